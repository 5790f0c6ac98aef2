package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	"github.com/uai-repositorio/saf-api/internal/saf"
	"github.com/uai-repositorio/saf-api/pkg/config"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/jobs"
)

type batchStoreStub struct {
	batches map[string]*models.SafBatch
	items   map[string][]models.SafBatchItem
}

func newBatchStoreStub() *batchStoreStub {
	return &batchStoreStub{batches: map[string]*models.SafBatch{}, items: map[string][]models.SafBatchItem{}}
}

func (s *batchStoreStub) Create(ctx context.Context, batch *models.SafBatch, items []models.SafBatchItem) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusCreated
	}
	s.batches[batch.ID] = batch
	for i := range items {
		items[i].BatchID = batch.ID
		items[i].Result = models.ItemResultPending
	}
	s.items[batch.ID] = items
	return nil
}

func (s *batchStoreStub) GetByID(ctx context.Context, id string) (*models.SafBatch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *batch
	return &clone, nil
}

func (s *batchStoreStub) List(ctx context.Context, groupID string, limit, offset int) ([]models.SafBatch, error) {
	var out []models.SafBatch
	for _, batch := range s.batches {
		if groupID != "" && (batch.GroupID == nil || *batch.GroupID != groupID) {
			continue
		}
		out = append(out, *batch)
	}
	return out, nil
}

func (s *batchStoreStub) ListByStatus(ctx context.Context, status models.BatchStatus) ([]models.SafBatch, error) {
	var out []models.SafBatch
	for _, batch := range s.batches {
		if batch.Status == status {
			out = append(out, *batch)
		}
	}
	return out, nil
}

func (s *batchStoreStub) ClaimRunning(ctx context.Context, id string) (bool, error) {
	batch, ok := s.batches[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	if batch.Status == models.BatchStatusRunning {
		return false, nil
	}
	batch.Status = models.BatchStatusRunning
	batch.Progress = 0
	batch.LogText = ""
	return true, nil
}

func (s *batchStoreStub) Update(ctx context.Context, id string, params repository.UpdateBatchParams) error {
	batch, ok := s.batches[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		batch.Status = *params.Status
	}
	if params.Progress != nil {
		batch.Progress = *params.Progress
	}
	if params.GeneratedAt != nil {
		batch.GeneratedAt = params.GeneratedAt
	}
	if params.OutputPath != nil {
		batch.OutputPath = *params.OutputPath
	}
	if params.ReportPath != nil {
		batch.ReportPath = *params.ReportPath
	}
	if params.ZipPath != nil {
		batch.ZipPath = *params.ZipPath
	}
	if params.LogText != nil {
		batch.LogText = *params.LogText
	}
	return nil
}

func (s *batchStoreStub) Items(ctx context.Context, batchID string) ([]models.SafBatchItem, error) {
	out := make([]models.SafBatchItem, len(s.items[batchID]))
	copy(out, s.items[batchID])
	return out, nil
}

func (s *batchStoreStub) UpdateItem(ctx context.Context, batchID, recordID string, result models.ItemResult, folderName, detail string) error {
	items := s.items[batchID]
	for i := range items {
		if items[i].RecordID == recordID {
			items[i].Result = result
			items[i].ItemFolderName = folderName
			items[i].Detail = detail
			return nil
		}
	}
	return sql.ErrNoRows
}

type licenseStub struct {
	license *models.LicenseVersion
}

func (s *licenseStub) GetActive(ctx context.Context) (*models.LicenseVersion, error) {
	if s.license == nil {
		return nil, sql.ErrNoRows
	}
	return s.license, nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (s *dispatcherStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type signerStub struct{}

func (signerStub) Generate(jobID, relPath string) (string, time.Time, error) {
	return jobID + "|" + relPath, time.Now().Add(time.Hour), nil
}

func (signerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return "", "", time.Time{}, fmt.Errorf("malformed token")
	}
	return parts[0], parts[1], time.Now().Add(time.Hour), nil
}

type batchServiceFixture struct {
	svc      *BatchService
	batches  *batchStoreStub
	records  *recordStoreStub
	groups   *groupReaderStub
	careers  *careerReaderStub
	files    *fileReaderStub
	queue    *dispatcherStub
	status   *recomputeStub
	mediaDir string
	saf      config.SafConfig
}

func newBatchServiceFixture(t *testing.T) *batchServiceFixture {
	t.Helper()
	batches := newBatchStoreStub()
	records := newRecordStoreStub()
	groups := &groupReaderStub{groups: map[string]*models.SustentationGroup{
		"group-1": {
			ID:               "group-1",
			Name:             "SUSTENTACIÓN 15.08.2026",
			SustentationDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			Status:           models.GroupStatusApproved,
		},
	}}
	careers := &careerReaderStub{careers: map[string]*models.CareerConfig{
		"career-1": {
			ID:                  "career-1",
			Name:                "Ingeniería de Sistemas",
			NormalizedCode:      "SISTEMAS",
			Handle:              "20.500.1234/10",
			ThesisDegreeName:    "Ingeniero de Sistemas",
			ThesisDegreeGrantor: "Universidad Autónoma de Ica",
			Active:              true,
		},
	}}
	files := &fileReaderStub{files: map[string][]models.ThesisFile{}}
	queue := &dispatcherStub{}
	status := &recomputeStub{}
	mediaDir := t.TempDir()
	safCfg := config.SafConfig{OutputRoot: t.TempDir(), SignedURLTTL: time.Hour, ProgressTTL: time.Minute}

	svc := NewBatchService(BatchServiceDeps{
		Batches:   batches,
		Records:   records,
		Groups:    groups,
		Careers:   careers,
		Files:     files,
		License:   &licenseStub{license: &models.LicenseVersion{ID: "lic-1", TextContent: "licencia de depósito", IsActive: true}},
		Status:    status,
		Builder:   saf.NewItemBuilder(&saf.Converter{}),
		Signer:    signerStub{},
		Logger:    zap.NewNop(),
		MediaPath: func(storedPath string) string { return filepath.Join(mediaDir, storedPath) },
		Saf:       safCfg,
		DSpace:    config.DSpaceConfig{BinPath: `C:\dspace\bin`, ImportEperson: "repositorio@uai.edu.pe", BaseURL: "https://repositorio.uai.edu.pe"},
	})
	svc.BindQueue(queue)
	return &batchServiceFixture{
		svc: svc, batches: batches, records: records, groups: groups, careers: careers,
		files: files, queue: queue, status: status, mediaDir: mediaDir, saf: safCfg,
	}
}

// seedExportableRecord registers an approved record with a thesis PDF and an
// authorization form on disk.
func (fx *batchServiceFixture) seedExportableRecord(t *testing.T, id string, nro int) *models.ThesisRecord {
	t.Helper()
	careerID := "career-1"
	record := &models.ThesisRecord{
		ID:          id,
		Nro:         nro,
		GroupID:     "group-1",
		Status:      models.RecordStatusApproved,
		CareerID:    &careerID,
		Title:       fmt.Sprintf("Tesis %03d", nro),
		Author1Name: "Ana Quispe",
		Author1DNI:  "12345678",
		Abstract:    "Resumen.",
		KeywordsRaw: "tesis",
	}
	fx.records.records[id] = record

	dir := filepath.Join(fx.mediaDir, "records", id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	thesisRel := filepath.Join("records", id, "tesis.pdf")
	formRel := filepath.Join("records", id, "form.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(fx.mediaDir, thesisRel), []byte("%PDF-1.4 tesis"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fx.mediaDir, formRel), []byte("%PDF-1.4 form"), 0o644))
	fx.files.files[id] = []models.ThesisFile{
		{ID: id + "-pdf", RecordID: id, FileType: models.FileTypeThesisPDF, OriginalName: "tesis.pdf", StoredPath: thesisRel},
		{ID: id + "-form", RecordID: id, FileType: models.FileTypeForm, OriginalName: "autorizacion.pdf", StoredPath: formRel},
	}
	return record
}

func (fx *batchServiceFixture) seedBatch(id string, recordIDs ...string) *models.SafBatch {
	groupID := "group-1"
	batch := &models.SafBatch{
		ID:        id,
		BatchCode: "BATCH_20260815_120000",
		GroupID:   &groupID,
		Status:    models.BatchStatusCreated,
	}
	fx.batches.batches[id] = batch
	var items []models.SafBatchItem
	for _, recordID := range recordIDs {
		items = append(items, models.SafBatchItem{ID: uuid.NewString(), BatchID: id, RecordID: recordID, Result: models.ItemResultPending})
	}
	fx.batches.items[id] = items
	return batch
}

func TestBatchServiceCreateSkipsNonExportable(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	fx.records.records["rec-2"] = &models.ThesisRecord{ID: "rec-2", Nro: 2, GroupID: "group-1", Status: models.RecordStatusInReview}

	batch, err := fx.svc.Create(context.Background(), dto.CreateBatchRequest{GroupID: "group-1"}, adminClaims())
	require.NoError(t, err)
	require.Len(t, fx.batches.items[batch.ID], 1)
	assert.Equal(t, "rec-1", fx.batches.items[batch.ID][0].RecordID)
	assert.True(t, strings.HasPrefix(batch.BatchCode, "BATCH_"))
}

func TestBatchServiceCreateNoExportableRecords(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.records.records["rec-1"] = &models.ThesisRecord{ID: "rec-1", Nro: 1, GroupID: "group-1", Status: models.RecordStatusDraft}

	_, err := fx.svc.Create(context.Background(), dto.CreateBatchRequest{GroupID: "group-1"}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBatchServiceGenerateEnqueues(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedBatch("batch-1", "rec-1")

	batch, err := fx.svc.Generate(context.Background(), "batch-1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, batch.Status)
	require.Len(t, fx.queue.jobs, 1)
	assert.Equal(t, "batch-1", fx.queue.jobs[0].ID)
	assert.Equal(t, "saf_generate", fx.queue.jobs[0].Type)
}

func TestBatchServiceGenerateAlreadyRunning(t *testing.T) {
	fx := newBatchServiceFixture(t)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusRunning

	_, err := fx.svc.Generate(context.Background(), "batch-1", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.queue.jobs)
}

func TestBatchServiceGenerateDoneWithArchiveRejected(t *testing.T) {
	fx := newBatchServiceFixture(t)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusDone
	batch.ZipPath = "/exports/BATCH_20260815_120000.zip"

	_, err := fx.svc.Generate(context.Background(), "batch-1", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBatchServiceProcessJobAllItemsOK(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	fx.seedExportableRecord(t, "rec-2", 2)
	batch := fx.seedBatch("batch-1", "rec-1", "rec-2")
	batch.Status = models.BatchStatusRunning

	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate"}))

	stored := fx.batches.batches["batch-1"]
	assert.Equal(t, models.BatchStatusDone, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.GeneratedAt)

	itemDir := filepath.Join(stored.OutputPath, "SISTEMAS", "item_001")
	for _, name := range []string{"dublin_core.xml", "metadata_renati.xml", "metadata_thesis.xml", "contents", "license.txt", "thesis.pdf", "form_1.pdf"} {
		_, err := os.Stat(filepath.Join(itemDir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(stored.OutputPath, "import_all.bat"))
	assert.NoError(t, err)
	_, err = os.Stat(stored.ZipPath)
	assert.NoError(t, err)

	report, err := os.ReadFile(stored.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "\xef\xbb\xbf"))
	assert.Contains(t, string(report), "001")

	assert.Equal(t, models.RecordStatusPendingPublish, fx.records.records["rec-1"].Status)
	assert.Equal(t, models.RecordStatusPendingPublish, fx.records.records["rec-2"].Status)
	assert.Equal(t, []string{"group-1"}, fx.status.groups)

	for _, item := range fx.batches.items["batch-1"] {
		assert.Equal(t, models.ItemResultOK, item.Result)
	}
}

func TestBatchServiceProcessJobIssuedYearIsExportYear(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.groups.groups["group-1"].Name = "SUSTENTACIÓN 10.03.2020"
	fx.groups.groups["group-1"].SustentationDate = time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusRunning

	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate"}))

	stored := fx.batches.batches["batch-1"]
	core, err := os.ReadFile(filepath.Join(stored.OutputPath, "SISTEMAS", "item_001", "dublin_core.xml"))
	require.NoError(t, err)
	expected := fmt.Sprintf(`<dcvalue element="date" qualifier="issued">%d</dcvalue>`, time.Now().Year())
	assert.Contains(t, string(core), expected)
	assert.NotContains(t, string(core), ">2020<")
}

func TestBatchServiceProcessJobIsolatesItemFailures(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	// rec-2 is approved but has no thesis file, so its item must fail alone.
	careerID := "career-1"
	fx.records.records["rec-2"] = &models.ThesisRecord{
		ID: "rec-2", Nro: 2, GroupID: "group-1", Status: models.RecordStatusApproved, CareerID: &careerID,
		Title: "Tesis 002", Author1Name: "B", Author1DNI: "11112222",
	}
	fx.seedExportableRecord(t, "rec-3", 3)
	batch := fx.seedBatch("batch-1", "rec-1", "rec-2", "rec-3")
	batch.Status = models.BatchStatusRunning

	err := fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate"})
	require.NoError(t, err)

	stored := fx.batches.batches["batch-1"]
	assert.Equal(t, models.BatchStatusFailed, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	assert.Contains(t, stored.LogText, "1 item errors")

	byRecord := map[string]models.SafBatchItem{}
	for _, item := range fx.batches.items["batch-1"] {
		byRecord[item.RecordID] = item
	}
	assert.Equal(t, models.ItemResultOK, byRecord["rec-1"].Result)
	assert.Equal(t, models.ItemResultError, byRecord["rec-2"].Result)
	assert.Equal(t, models.ItemResultOK, byRecord["rec-3"].Result)

	// Successful items still advance even when the batch as a whole failed.
	assert.Equal(t, models.RecordStatusPendingPublish, fx.records.records["rec-1"].Status)
	assert.Equal(t, models.RecordStatusApproved, fx.records.records["rec-2"].Status)
	assert.Equal(t, models.RecordStatusPendingPublish, fx.records.records["rec-3"].Status)
}

func TestBatchServiceProcessJobRetrySkipsWhenClaimedElsewhere(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	// A fresh Generate call already holds the claim.
	batch.Status = models.BatchStatusRunning

	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate", Attempt: 1}))

	assert.Equal(t, models.BatchStatusRunning, fx.batches.batches["batch-1"].Status)
	assert.Equal(t, models.RecordStatusApproved, fx.records.records["rec-1"].Status)
	assert.Empty(t, fx.batches.batches["batch-1"].OutputPath)
}

func TestBatchServiceProcessJobRetrySkipsFinishedBatch(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusDone
	batch.ZipPath = filepath.Join(fx.saf.OutputRoot, "BATCH_20260815_120000.zip")

	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate", Attempt: 2}))

	assert.Equal(t, models.BatchStatusDone, fx.batches.batches["batch-1"].Status)
	assert.Equal(t, models.RecordStatusApproved, fx.records.records["rec-1"].Status)
}

func TestBatchServiceProcessJobRetryReclaimsFailedBatch(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusFailed

	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate", Attempt: 1}))

	assert.Equal(t, models.BatchStatusDone, fx.batches.batches["batch-1"].Status)
	assert.Equal(t, models.RecordStatusPendingPublish, fx.records.records["rec-1"].Status)
}

func TestBatchServiceProcessJobWithoutLicenseFails(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.svc.license = &licenseStub{}
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusRunning

	err := fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate"})
	require.Error(t, err)
	assert.Equal(t, models.BatchStatusFailed, fx.batches.batches["batch-1"].Status)
	assert.Contains(t, fx.batches.batches["batch-1"].LogText, "license")
}

func TestBatchServiceGetStatus(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusRunning
	batch.Progress = 40

	resp, err := fx.svc.GetStatus(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, resp.Status)
	assert.Equal(t, 40, resp.Progress)
	assert.False(t, resp.ZipReady)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].Nro)
}

func TestBatchServiceDownloadRoundTrip(t *testing.T) {
	fx := newBatchServiceFixture(t)
	batch := fx.seedBatch("batch-1", "rec-1")
	zipPath := filepath.Join(fx.saf.OutputRoot, batch.BatchCode+".zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("PK archive"), 0o644))
	batch.Status = models.BatchStatusDone
	batch.ZipPath = zipPath

	link, err := fx.svc.DownloadURL(context.Background(), "batch-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/saf/batches/download/"))

	token := strings.TrimPrefix(link.URL, "/api/v1/saf/batches/download/")
	download, err := fx.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, batch.BatchCode+".zip", download.Filename)
	download.File.Close()
}

func TestBatchServiceDownloadURLWithoutArchive(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedBatch("batch-1", "rec-1")

	_, err := fx.svc.DownloadURL(context.Background(), "batch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestBatchServiceRecoverInterrupted(t *testing.T) {
	fx := newBatchServiceFixture(t)
	stuck := fx.seedBatch("batch-1", "rec-1")
	stuck.Status = models.BatchStatusRunning
	done := fx.seedBatch("batch-2", "rec-1")
	done.Status = models.BatchStatusDone

	fx.svc.RecoverInterrupted(context.Background())
	assert.Equal(t, models.BatchStatusFailed, fx.batches.batches["batch-1"].Status)
	assert.Contains(t, fx.batches.batches["batch-1"].LogText, "interrupted")
	assert.Equal(t, models.BatchStatusDone, fx.batches.batches["batch-2"].Status)
}

func TestBatchServiceRefreshScripts(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedExportableRecord(t, "rec-1", 1)
	batch := fx.seedBatch("batch-1", "rec-1")
	batch.Status = models.BatchStatusRunning
	require.NoError(t, fx.svc.ProcessJob(context.Background(), jobs.Job{ID: "batch-1", Type: "saf_generate"}))

	// Point the career at a fresh collection and rebuild the helpers.
	fx.careers.careers["career-1"].Handle = "20.500.1234/99"
	refreshed, err := fx.svc.RefreshScripts(context.Background(), "batch-1", adminClaims())
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(refreshed.OutputPath, "import_all.bat"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "20.500.1234/99")
	_, err = os.Stat(refreshed.ZipPath)
	assert.NoError(t, err)
}

func TestBatchServiceRefreshScriptsBeforeGeneration(t *testing.T) {
	fx := newBatchServiceFixture(t)
	fx.seedBatch("batch-1", "rec-1")

	_, err := fx.svc.RefreshScripts(context.Background(), "batch-1", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}
