package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uai-repositorio/saf-api/internal/models"
)

const fileColumns = `id, record_id, file_type, original_name, stored_path, mime_type, size_bytes, sha256, created_at, updated_at`

// FileRepository persists uploaded thesis files.
type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *models.ThesisFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	const query = `INSERT INTO thesis_files (` + fileColumns + `)
VALUES (:id, :record_id, :file_type, :original_name, :stored_path, :mime_type, :size_bytes, :sha256, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.ThesisFile, error) {
	query := `SELECT ` + fileColumns + ` FROM thesis_files WHERE id = $1`
	var file models.ThesisFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &file, nil
}

// ListByRecord returns a record's files in upload order.
func (r *FileRepository) ListByRecord(ctx context.Context, recordID string) ([]models.ThesisFile, error) {
	query := `SELECT ` + fileColumns + ` FROM thesis_files WHERE record_id = $1 ORDER BY created_at ASC`
	var files []models.ThesisFile
	if err := r.db.SelectContext(ctx, &files, query, recordID); err != nil {
		return nil, fmt.Errorf("list record files: %w", err)
	}
	return files, nil
}

// ListByRecordAndType returns a record's files of one category.
func (r *FileRepository) ListByRecordAndType(ctx context.Context, recordID string, fileType models.FileType) ([]models.ThesisFile, error) {
	query := `SELECT ` + fileColumns + ` FROM thesis_files WHERE record_id = $1 AND file_type = $2 ORDER BY created_at ASC`
	var files []models.ThesisFile
	if err := r.db.SelectContext(ctx, &files, query, recordID, fileType); err != nil {
		return nil, fmt.Errorf("list record files by type: %w", err)
	}
	return files, nil
}

// DeleteByRecordAndType removes every file row of a category. Used when an
// exclusive category is replaced by a new upload.
func (r *FileRepository) DeleteByRecordAndType(ctx context.Context, recordID string, fileType models.FileType) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM thesis_files WHERE record_id = $1 AND file_type = $2`, recordID, fileType); err != nil {
		return fmt.Errorf("delete files by type: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM thesis_files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
