package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const careerColumns = `id, name, normalized_code, faculty, handle, thesis_degree_name, thesis_degree_discipline, thesis_degree_grantor, renati_level, renati_discipline, ocde_url, active, created_at, updated_at`

// CareerRepository reads the per-career export configuration.
type CareerRepository struct {
	db *sqlx.DB
}

func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

func (r *CareerRepository) GetByID(ctx context.Context, id string) (*models.CareerConfig, error) {
	query := `SELECT ` + careerColumns + ` FROM career_configs WHERE id = $1`
	var career models.CareerConfig
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, fmt.Errorf("get career: %w", err)
	}
	return &career, nil
}

// ListActive returns the careers available for new records, by name.
func (r *CareerRepository) ListActive(ctx context.Context) ([]models.CareerConfig, error) {
	query := `SELECT ` + careerColumns + ` FROM career_configs WHERE active = TRUE ORDER BY name ASC`
	var careers []models.CareerConfig
	if err := r.db.SelectContext(ctx, &careers, query); err != nil {
		return nil, fmt.Errorf("list careers: %w", err)
	}
	return careers, nil
}
