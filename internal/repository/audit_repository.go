package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const auditColumns = `id, record_id, action, comment, user_id, created_at`

// AuditRepository stores the append-only record history. Events are never
// updated or deleted.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events (` + auditColumns + `)
VALUES (:id, :record_id, :action, :comment, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRecord returns a record's history oldest first.
func (r *AuditRepository) ListByRecord(ctx context.Context, recordID string) ([]models.AuditEvent, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_events WHERE record_id = $1 ORDER BY created_at ASC`
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, recordID); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// CountByRecordAndAction counts how many times an action was recorded.
func (r *AuditRepository) CountByRecordAndAction(ctx context.Context, recordID string, action models.AuditAction) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM audit_events WHERE record_id = $1 AND action = $2`, recordID, action); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}
