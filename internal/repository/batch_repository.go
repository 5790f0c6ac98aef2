package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const batchColumns = `id, batch_code, group_id, status, progress, created_by, generated_at, output_path, report_path, zip_path, log_text, created_at, updated_at`

const batchItemColumns = `id, batch_id, record_id, item_folder_name, result, detail, created_at, updated_at`

// BatchRepository persists export batches and their per-record items.
type BatchRepository struct {
	db *sqlx.DB
}

func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts the batch and its items in one transaction.
func (r *BatchRepository) Create(ctx context.Context, batch *models.SafBatch, items []models.SafBatchItem) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusCreated
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const batchQuery = `INSERT INTO saf_batches (` + batchColumns + `)
VALUES (:id, :batch_code, :group_id, :status, :progress, :created_by, :generated_at, :output_path, :report_path, :zip_path, :log_text, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, batchQuery, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	const itemQuery = `INSERT INTO saf_batch_items (` + batchItemColumns + `)
VALUES (:id, :batch_id, :record_id, :item_folder_name, :result, :detail, :created_at, :updated_at)`
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.BatchID = batch.ID
		if item.Result == "" {
			item.Result = models.ItemResultPending
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, itemQuery, item); err != nil {
			return fmt.Errorf("insert batch item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (*models.SafBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM saf_batches WHERE id = $1`
	var batch models.SafBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// List returns batches newest first, optionally scoped to a group.
func (r *BatchRepository) List(ctx context.Context, groupID string, limit, offset int) ([]models.SafBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM saf_batches`
	args := []interface{}{}
	argPos := 1
	if groupID != "" {
		query += fmt.Sprintf(" WHERE group_id = $%d", argPos)
		args = append(args, groupID)
		argPos++
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, limit, offset)
	}
	var batches []models.SafBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// ListByStatus returns batches in one status, oldest first.
func (r *BatchRepository) ListByStatus(ctx context.Context, status models.BatchStatus) ([]models.SafBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM saf_batches WHERE status = $1 ORDER BY created_at ASC`
	var batches []models.SafBatch
	if err := r.db.SelectContext(ctx, &batches, query, status); err != nil {
		return nil, fmt.Errorf("list batches by status: %w", err)
	}
	return batches, nil
}

// ClaimRunning atomically moves the batch into RUNNING. It reports false
// when another worker already holds the batch.
func (r *BatchRepository) ClaimRunning(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE saf_batches SET status = $1, progress = 0, log_text = '', updated_at = $2
WHERE id = $3 AND status <> $1`
	res, err := r.db.ExecContext(ctx, query, models.BatchStatusRunning, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("claim batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim batch rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateBatchParams carries a partial batch update; nil fields keep their
// stored values.
type UpdateBatchParams struct {
	Status      *models.BatchStatus
	Progress    *int
	GeneratedAt *time.Time
	OutputPath  *string
	ReportPath  *string
	ZipPath     *string
	LogText     *string
}

// Update applies the non-nil fields of params.
func (r *BatchRepository) Update(ctx context.Context, id string, params UpdateBatchParams) error {
	set := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}
	argPos := 2

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.GeneratedAt != nil {
		add("generated_at", *params.GeneratedAt)
	}
	if params.OutputPath != nil {
		add("output_path", *params.OutputPath)
	}
	if params.ReportPath != nil {
		add("report_path", *params.ReportPath)
	}
	if params.ZipPath != nil {
		add("zip_path", *params.ZipPath)
	}
	if params.LogText != nil {
		add("log_text", *params.LogText)
	}

	query := fmt.Sprintf("UPDATE saf_batches SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// Items returns the batch items joined to their record sequence order.
func (r *BatchRepository) Items(ctx context.Context, batchID string) ([]models.SafBatchItem, error) {
	const query = `SELECT i.id, i.batch_id, i.record_id, i.item_folder_name, i.result, i.detail, i.created_at, i.updated_at
FROM saf_batch_items i
JOIN thesis_records r ON r.id = i.record_id
WHERE i.batch_id = $1
ORDER BY r.nro ASC`
	var items []models.SafBatchItem
	if err := r.db.SelectContext(ctx, &items, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch items: %w", err)
	}
	return items, nil
}

// UpdateItem stores an item's generation outcome.
func (r *BatchRepository) UpdateItem(ctx context.Context, batchID, recordID string, result models.ItemResult, folderName, detail string) error {
	const query = `UPDATE saf_batch_items SET result = $1, item_folder_name = $2, detail = $3, updated_at = $4
WHERE batch_id = $5 AND record_id = $6`
	if _, err := r.db.ExecContext(ctx, query, result, folderName, detail, time.Now().UTC(), batchID, recordID); err != nil {
		return fmt.Errorf("update batch item: %w", err)
	}
	return nil
}
