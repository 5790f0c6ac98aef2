package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const recordColumns = `id, nro, group_id, status, career_id, title,
author1_name, author1_dni, author2_name, author2_dni, author3_name, author3_dni,
advisor_name, advisor_dni, advisor_orcid, juror1, juror2, juror3,
abstract, keywords_raw, submitted_by, submitted_at, approved_by, approved_at,
dspace_handle, dspace_url, created_at, updated_at`

// RecordRepository persists thesis records.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a record, assigning the next sequence number inside a
// transaction. The current maximum row is locked so concurrent creations
// cannot assign the same number.
func (r *RecordRepository) Create(ctx context.Context, record *models.ThesisRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.RecordStatusDraft
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create record: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var lastNro int
	err = tx.GetContext(ctx, &lastNro, `SELECT nro FROM thesis_records ORDER BY nro DESC LIMIT 1 FOR UPDATE`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		lastNro = 0
	case err != nil:
		return fmt.Errorf("lock max sequence: %w", err)
	}
	record.Nro = lastNro + 1

	const query = `INSERT INTO thesis_records (` + recordColumns + `)
VALUES (:id, :nro, :group_id, :status, :career_id, :title,
:author1_name, :author1_dni, :author2_name, :author2_dni, :author3_name, :author3_dni,
:advisor_name, :advisor_dni, :advisor_orcid, :juror1, :juror2, :juror3,
:abstract, :keywords_raw, :submitted_by, :submitted_at, :approved_by, :approved_at,
:dspace_handle, :dspace_url, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create record: %w", err)
	}
	return nil
}

// GetByID returns one record by identifier.
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*models.ThesisRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM thesis_records WHERE id = $1`
	var record models.ThesisRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &record, nil
}

// GetByNro returns one record by its sequence number.
func (r *RecordRepository) GetByNro(ctx context.Context, nro int) (*models.ThesisRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM thesis_records WHERE nro = $1`
	var record models.ThesisRecord
	if err := r.db.GetContext(ctx, &record, query, nro); err != nil {
		return nil, fmt.Errorf("get record by nro: %w", err)
	}
	return &record, nil
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	GroupID string
	Status  models.RecordStatus
	Search  string
	Limit   int
	Offset  int
}

// List returns records matching the filter, newest first.
func (r *RecordRepository) List(ctx context.Context, filter RecordFilter) ([]models.ThesisRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM thesis_records`
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if filter.GroupID != "" {
		where = append(where, fmt.Sprintf("group_id = $%d", argPos))
		args = append(args, filter.GroupID)
		argPos++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR author1_name ILIKE $%d OR author2_name ILIKE $%d OR author3_name ILIKE $%d)", argPos, argPos, argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var records []models.ThesisRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// ListByGroup returns the group's records in sequence order.
func (r *RecordRepository) ListByGroup(ctx context.Context, groupID string) ([]models.ThesisRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM thesis_records WHERE group_id = $1 ORDER BY nro ASC`
	var records []models.ThesisRecord
	if err := r.db.SelectContext(ctx, &records, query, groupID); err != nil {
		return nil, fmt.Errorf("list group records: %w", err)
	}
	return records, nil
}

// StatusesByGroup returns the member statuses used to derive the group status.
func (r *RecordRepository) StatusesByGroup(ctx context.Context, groupID string) ([]models.RecordStatus, error) {
	var statuses []models.RecordStatus
	if err := r.db.SelectContext(ctx, &statuses, `SELECT status FROM thesis_records WHERE group_id = $1`, groupID); err != nil {
		return nil, fmt.Errorf("group member statuses: %w", err)
	}
	return statuses, nil
}

// CountByGroup counts a group's records.
func (r *RecordRepository) CountByGroup(ctx context.Context, groupID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM thesis_records WHERE group_id = $1`, groupID); err != nil {
		return 0, fmt.Errorf("count group records: %w", err)
	}
	return count, nil
}

// Update persists the editable bibliographic fields.
func (r *RecordRepository) Update(ctx context.Context, record *models.ThesisRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE thesis_records SET career_id = :career_id, title = :title,
author1_name = :author1_name, author1_dni = :author1_dni,
author2_name = :author2_name, author2_dni = :author2_dni,
author3_name = :author3_name, author3_dni = :author3_dni,
advisor_name = :advisor_name, advisor_dni = :advisor_dni, advisor_orcid = :advisor_orcid,
juror1 = :juror1, juror2 = :juror2, juror3 = :juror3,
abstract = :abstract, keywords_raw = :keywords_raw, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// UpdateRecordStatusParams carries a status change plus its audit fields.
type UpdateRecordStatusParams struct {
	Status       models.RecordStatus
	SubmittedBy  *string
	SubmittedAt  *time.Time
	ApprovedBy   *string
	ApprovedAt   *time.Time
	DSpaceHandle *string
	DSpaceURL    *string
}

// UpdateStatus applies a status transition and its associated audit columns.
func (r *RecordRepository) UpdateStatus(ctx context.Context, id string, params UpdateRecordStatusParams) error {
	set := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{params.Status, time.Now().UTC()}
	argPos := 3

	if params.SubmittedBy != nil {
		set = append(set, fmt.Sprintf("submitted_by = $%d", argPos))
		args = append(args, *params.SubmittedBy)
		argPos++
	}
	if params.SubmittedAt != nil {
		set = append(set, fmt.Sprintf("submitted_at = $%d", argPos))
		args = append(args, *params.SubmittedAt)
		argPos++
	}
	if params.ApprovedBy != nil {
		set = append(set, fmt.Sprintf("approved_by = $%d", argPos))
		args = append(args, *params.ApprovedBy)
		argPos++
	}
	if params.ApprovedAt != nil {
		set = append(set, fmt.Sprintf("approved_at = $%d", argPos))
		args = append(args, *params.ApprovedAt)
		argPos++
	}
	if params.DSpaceHandle != nil {
		set = append(set, fmt.Sprintf("dspace_handle = $%d", argPos))
		args = append(args, *params.DSpaceHandle)
		argPos++
	}
	if params.DSpaceURL != nil {
		set = append(set, fmt.Sprintf("dspace_url = $%d", argPos))
		args = append(args, *params.DSpaceURL)
		argPos++
	}

	query := fmt.Sprintf("UPDATE thesis_records SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return nil
}
