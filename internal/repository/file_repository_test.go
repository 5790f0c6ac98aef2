package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uai-repositorio/saf-api/internal/models"
)

func newFileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFileRepositoryCreateAndListByType(t *testing.T) {
	db, mock, cleanup := newFileRepoMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO thesis_files")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	file := &models.ThesisFile{
		RecordID:     "rec-1",
		FileType:     models.FileTypeThesisPDF,
		OriginalName: "tesis.pdf",
		StoredPath:   "records/rec-1/thesis_pdf_abc.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    2048,
	}
	require.NoError(t, repo.Create(context.Background(), file))
	require.NotEmpty(t, file.ID)

	rows := sqlmock.NewRows([]string{"id", "record_id", "file_type", "original_name", "stored_path", "mime_type", "size_bytes", "sha256", "created_at", "updated_at"}).
		AddRow(file.ID, "rec-1", "thesis_pdf", "tesis.pdf", file.StoredPath, "application/pdf", 2048, "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM thesis_files WHERE record_id = $1 AND file_type = $2")).
		WithArgs("rec-1", models.FileTypeThesisPDF).
		WillReturnRows(rows)

	files, err := repo.ListByRecordAndType(context.Background(), "rec-1", models.FileTypeThesisPDF)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "tesis.pdf", files[0].OriginalName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryDeleteByRecordAndType(t *testing.T) {
	db, mock, cleanup := newFileRepoMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thesis_files WHERE record_id = $1 AND file_type = $2")).
		WithArgs("rec-1", models.FileTypeThesisDocx).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByRecordAndType(context.Background(), "rec-1", models.FileTypeThesisDocx))
	require.NoError(t, mock.ExpectationsWereMet())
}
