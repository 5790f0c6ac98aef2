package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const licenseColumns = `id, name, version, text_content, is_active, created_by, created_at, updated_at`

// LicenseRepository reads the deposit license versions.
type LicenseRepository struct {
	db *sqlx.DB
}

func NewLicenseRepository(db *sqlx.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// GetActive returns the license embedded in every generated item. At most
// one version is active at a time.
func (r *LicenseRepository) GetActive(ctx context.Context) (*models.LicenseVersion, error) {
	query := `SELECT ` + licenseColumns + ` FROM license_versions WHERE is_active = TRUE ORDER BY created_at DESC LIMIT 1`
	var license models.LicenseVersion
	if err := r.db.GetContext(ctx, &license, query); err != nil {
		return nil, fmt.Errorf("get active license: %w", err)
	}
	return &license, nil
}
