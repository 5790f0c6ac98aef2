package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const groupColumns = `id, name, sustentation_date, status, created_by, created_at, updated_at`

// GroupRepository persists sustentation groups.
type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group. The sustentation date carries a unique
// constraint, so a duplicate day surfaces as a database error.
func (r *GroupRepository) Create(ctx context.Context, group *models.SustentationGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.Status == "" {
		group.Status = models.GroupStatusAssembled
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	const query = `INSERT INTO sustentation_groups (` + groupColumns + `)
VALUES (:id, :name, :sustentation_date, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.SustentationGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM sustentation_groups WHERE id = $1`
	var group models.SustentationGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &group, nil
}

// GetByDate returns the group for a given sustentation day, if any.
func (r *GroupRepository) GetByDate(ctx context.Context, date time.Time) (*models.SustentationGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM sustentation_groups WHERE sustentation_date = $1`
	var group models.SustentationGroup
	if err := r.db.GetContext(ctx, &group, query, date); err != nil {
		return nil, fmt.Errorf("get group by date: %w", err)
	}
	return &group, nil
}

// List returns groups newest sustentation first.
func (r *GroupRepository) List(ctx context.Context, limit, offset int) ([]models.SustentationGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM sustentation_groups ORDER BY sustentation_date DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}
	var groups []models.SustentationGroup
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// UpdateStatus stores the derived group status.
func (r *GroupRepository) UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error {
	const query = `UPDATE sustentation_groups SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}

// Delete removes a group. Callers must verify it has no records first.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sustentation_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
