package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uai-repositorio/saf-api/internal/models"
)

func newBatchRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBatchRepositoryCreateWithItems(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saf_batches")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saf_batch_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saf_batch_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	groupID := "group-1"
	batch := &models.SafBatch{BatchCode: "BATCH_20260829_120000", GroupID: &groupID, CreatedBy: "user-1"}
	items := []models.SafBatchItem{{RecordID: "rec-1"}, {RecordID: "rec-2"}}
	require.NoError(t, repo.Create(context.Background(), batch, items))
	require.Equal(t, models.BatchStatusCreated, batch.Status)
	require.Equal(t, batch.ID, items[0].BatchID)
	require.Equal(t, models.ItemResultPending, items[1].Result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryClaimRunning(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE saf_batches SET status = $1, progress = 0, log_text = '', updated_at = $2")).
		WithArgs(models.BatchStatusRunning, sqlmock.AnyArg(), "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimRunning(context.Background(), "batch-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryClaimRunningAlreadyHeld(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE saf_batches SET status = $1, progress = 0, log_text = '', updated_at = $2")).
		WithArgs(models.BatchStatusRunning, sqlmock.AnyArg(), "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimRunning(context.Background(), "batch-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryUpdatePartial(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	status := models.BatchStatusDone
	progress := 100
	zipPath := "/saf/BATCH_X.zip"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE saf_batches SET updated_at = $1, status = $2, progress = $3, zip_path = $4 WHERE id = $5")).
		WithArgs(sqlmock.AnyArg(), status, progress, zipPath, "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "batch-1", UpdateBatchParams{Status: &status, Progress: &progress, ZipPath: &zipPath})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryUpdateItem(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE saf_batch_items SET result = $1, item_folder_name = $2, detail = $3, updated_at = $4")).
		WithArgs(models.ItemResultOK, "item_003", "OK (PDF copied)", sqlmock.AnyArg(), "batch-1", "rec-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateItem(context.Background(), "batch-1", "rec-3", models.ItemResultOK, "item_003", "OK (PDF copied)")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
