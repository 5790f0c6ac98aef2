package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	"github.com/uai-repositorio/saf-api/internal/saf"
	"github.com/uai-repositorio/saf-api/pkg/config"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/jobs"
)

const progressCachePrefix = "saf:batch:progress:"

type batchStore interface {
	Create(ctx context.Context, batch *models.SafBatch, items []models.SafBatchItem) error
	GetByID(ctx context.Context, id string) (*models.SafBatch, error)
	List(ctx context.Context, groupID string, limit, offset int) ([]models.SafBatch, error)
	ListByStatus(ctx context.Context, status models.BatchStatus) ([]models.SafBatch, error)
	ClaimRunning(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, params repository.UpdateBatchParams) error
	Items(ctx context.Context, batchID string) ([]models.SafBatchItem, error)
	UpdateItem(ctx context.Context, batchID, recordID string, result models.ItemResult, folderName, detail string) error
}

type licenseReader interface {
	GetActive(ctx context.Context) (*models.LicenseVersion, error)
}

type batchJobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// BatchService orchestrates SAF export runs: folder generation, reports,
// import scripts and the downloadable archive.
type BatchService struct {
	batches batchStore
	records recordStore
	groups  groupReader
	careers careerReader
	files   recordFileReader
	license licenseReader

	status  groupStatusRecomputer
	queue   batchJobDispatcher
	builder *saf.ItemBuilder
	signer  downloadSigner
	cache   *redis.Client
	metrics *MetricsService
	logger  *zap.Logger

	mediaPath func(storedPath string) string
	cfg       config.SafConfig
	dspace    config.DSpaceConfig
}

// BatchServiceDeps bundles the orchestrator's collaborators.
type BatchServiceDeps struct {
	Batches   batchStore
	Records   recordStore
	Groups    groupReader
	Careers   careerReader
	Files     recordFileReader
	License   licenseReader
	Status    groupStatusRecomputer
	Builder   *saf.ItemBuilder
	Signer    downloadSigner
	Cache     *redis.Client
	Metrics   *MetricsService
	Logger    *zap.Logger
	MediaPath func(storedPath string) string
	Saf       config.SafConfig
	DSpace    config.DSpaceConfig
}

// NewBatchService constructs the batch orchestrator. The job queue is
// attached afterwards through BindQueue because the queue handler needs
// the service itself.
func NewBatchService(deps BatchServiceDeps) *BatchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		batches:   deps.Batches,
		records:   deps.Records,
		groups:    deps.Groups,
		careers:   deps.Careers,
		files:     deps.Files,
		license:   deps.License,
		status:    deps.Status,
		builder:   deps.Builder,
		signer:    deps.Signer,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    logger,
		mediaPath: deps.MediaPath,
		cfg:       deps.Saf,
		dspace:    deps.DSpace,
	}
}

// BindQueue attaches the dispatcher used for background generation.
func (s *BatchService) BindQueue(queue batchJobDispatcher) {
	s.queue = queue
}

// Create registers a new batch over the group's exportable records.
func (s *BatchService) Create(ctx context.Context, req dto.CreateBatchRequest, claims *models.JWTClaims) (*models.SafBatch, error) {
	if _, err := s.groups.GetByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	members, err := s.records.List(ctx, repository.RecordFilter{GroupID: req.GroupID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group records")
	}

	items := make([]models.SafBatchItem, 0, len(members))
	for _, record := range members {
		if !record.Status.IsExportable() {
			continue
		}
		items = append(items, models.SafBatchItem{RecordID: record.ID})
	}
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group has no approved records to export")
	}

	groupID := req.GroupID
	batch := &models.SafBatch{
		BatchCode: "BATCH_" + time.Now().UTC().Format("20060102_150405"),
		GroupID:   &groupID,
		CreatedBy: claims.UserID,
	}
	if err := s.batches.Create(ctx, batch, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	return batch, nil
}

// Generate claims the batch and enqueues the background run. A batch that
// already finished with an archive must not be regenerated; a running
// batch cannot be claimed twice.
func (s *BatchService) Generate(ctx context.Context, batchID string, claims *models.JWTClaims) (*models.SafBatch, error) {
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == models.BatchStatusDone && batch.ZipPath != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch already generated; create a new batch instead")
	}
	claimed, err := s.batches.ClaimRunning(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim batch")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch generation already in progress")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: batchID, Type: "saf_generate"}); err != nil {
		s.failBatch(ctx, batchID, "failed to enqueue generation: "+err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue batch generation")
	}
	batch.Status = models.BatchStatusRunning
	batch.Progress = 0
	return batch, nil
}

// ProcessJob is the queue handler running one generation end to end.
// Retries re-claim the batch: the first delivery runs under the claim taken
// by Generate, but by the time a retry fires the batch row is FAILED and a
// new Generate call may have claimed it again. A retry that cannot claim,
// or that finds the archive already produced, drops the job.
func (s *BatchService) ProcessJob(ctx context.Context, job jobs.Job) error {
	batch, err := s.batches.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load batch %s: %w", job.ID, err)
	}
	if job.Attempt > 0 {
		if batch.Status == models.BatchStatusDone && batch.ZipPath != "" {
			return nil
		}
		claimed, err := s.batches.ClaimRunning(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("reclaim batch %s: %w", batch.ID, err)
		}
		if !claimed {
			s.logger.Info("skipping retry for batch claimed elsewhere", zap.String("batch_id", batch.ID))
			return nil
		}
		batch.Status = models.BatchStatusRunning
	}
	if err := s.generate(ctx, batch); err != nil {
		s.failBatch(ctx, batch.ID, err.Error())
		return err
	}
	return nil
}

func (s *BatchService) generate(ctx context.Context, batch *models.SafBatch) error {
	if batch.GroupID == nil {
		return fmt.Errorf("batch %s has no group", batch.ID)
	}
	if _, err := s.groups.GetByID(ctx, *batch.GroupID); err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	license, err := s.license.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no active deposit license configured")
		}
		return fmt.Errorf("load active license: %w", err)
	}
	items, err := s.batches.Items(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("load batch items: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("batch has no items")
	}

	started := time.Now()
	outputRoot := filepath.Join(s.cfg.OutputRoot, batch.BatchCode)
	if err := os.RemoveAll(outputRoot); err != nil {
		return fmt.Errorf("clear previous output: %w", err)
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	// dc.date.issued carries the export year, not the sustentation date.
	year := fmt.Sprintf("%d", time.Now().Year())
	logLines := []string{fmt.Sprintf("batch %s: %d items", batch.BatchCode, len(items))}
	rows := make([]saf.ReportRow, 0, len(items))
	careersByFolder := map[string]string{}
	errorCount := 0

	for idx, item := range items {
		row, careerFolder, handle := s.generateItem(ctx, batch, item, license.TextContent, year, outputRoot)
		rows = append(rows, row)
		logLines = append(logLines, fmt.Sprintf("item %s -> %s: %s", row.Nro, row.Status, row.Detail))
		if s.metrics != nil {
			s.metrics.ObserveBatchItem(row.Status)
		}
		if row.Status == string(models.ItemResultError) {
			errorCount++
		} else if careerFolder != "" && handle != "" {
			careersByFolder[careerFolder] = handle
		}
		s.publishProgress(ctx, batch.ID, (idx+1)*100/len(items))
	}

	reportPath := filepath.Join(outputRoot, "reporte_validacion.csv")
	if err := saf.WriteValidationReport(reportPath, rows); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}
	if err := saf.WriteSummaryPDF(filepath.Join(outputRoot, "resumen.pdf"), batch.BatchCode, rows); err != nil {
		return fmt.Errorf("write summary pdf: %w", err)
	}

	targets := make([]saf.ImportTarget, 0, len(careersByFolder))
	for folder, handle := range careersByFolder {
		targets = append(targets, saf.ImportTarget{CareerFolder: folder, Handle: handle})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].CareerFolder < targets[j].CareerFolder })
	if err := saf.WriteImportScripts(outputRoot, targets, s.scriptOptions()); err != nil {
		return fmt.Errorf("write import scripts: %w", err)
	}

	zipPath := filepath.Join(s.cfg.OutputRoot, batch.BatchCode+".zip")
	if err := saf.ZipDirectory(outputRoot, zipPath); err != nil {
		return fmt.Errorf("zip output: %w", err)
	}

	finalStatus := models.BatchStatusDone
	if errorCount > 0 {
		finalStatus = models.BatchStatusFailed
		logLines = append(logLines, fmt.Sprintf("finished with %d item errors", errorCount))
	}
	now := time.Now().UTC()
	progress := 100
	logText := strings.Join(logLines, "\n")
	err = s.batches.Update(ctx, batch.ID, repository.UpdateBatchParams{
		Status:      &finalStatus,
		Progress:    &progress,
		GeneratedAt: &now,
		OutputPath:  &outputRoot,
		ReportPath:  &reportPath,
		ZipPath:     &zipPath,
		LogText:     &logText,
	})
	if err != nil {
		return fmt.Errorf("store batch result: %w", err)
	}

	if err := s.status.Recompute(ctx, *batch.GroupID); err != nil {
		s.logger.Sugar().Warnw("failed to recompute group after batch", "group_id", *batch.GroupID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveBatchRun(string(finalStatus), time.Since(started))
	}
	s.logger.Sugar().Infow("batch generation finished",
		"batch_code", batch.BatchCode, "status", finalStatus, "items", len(items), "errors", errorCount)
	return nil
}

// generateItem builds one item folder. Failures stay local to the item so
// the rest of the batch keeps going.
func (s *BatchService) generateItem(ctx context.Context, batch *models.SafBatch, item models.SafBatchItem, licenseText, year, outputRoot string) (saf.ReportRow, string, string) {
	record, err := s.records.GetByID(ctx, item.RecordID)
	if err != nil {
		return s.itemError(ctx, batch.ID, item.RecordID, "???", "record not found: "+err.Error()), "", ""
	}
	nro := fmt.Sprintf("%03d", record.Nro)

	if !record.Status.IsExportable() {
		return s.itemError(ctx, batch.ID, record.ID, nro, "record is not approved (status "+string(record.Status)+")"), "", ""
	}
	if record.CareerID == nil || *record.CareerID == "" {
		return s.itemError(ctx, batch.ID, record.ID, nro, "record has no career"), "", ""
	}
	career, err := s.careers.GetByID(ctx, *record.CareerID)
	if err != nil {
		return s.itemError(ctx, batch.ID, record.ID, nro, "career not found"), "", ""
	}

	stored, err := s.files.ListByRecord(ctx, record.ID)
	if err != nil {
		return s.itemError(ctx, batch.ID, record.ID, nro, "failed to list files: "+err.Error()), "", ""
	}
	sources := make([]saf.SourceFile, 0, len(stored))
	for _, f := range stored {
		sources = append(sources, saf.SourceFile{
			Type:         f.FileType,
			Path:         s.mediaPath(f.StoredPath),
			OriginalName: f.OriginalName,
		})
	}

	out, err := s.builder.Build(ctx, saf.ItemInput{
		Record:      record,
		Career:      career,
		Files:       sources,
		LicenseText: licenseText,
		Year:        year,
		OutputRoot:  outputRoot,
	})
	if err != nil {
		return s.itemError(ctx, batch.ID, record.ID, nro, err.Error()), "", ""
	}

	if err := s.batches.UpdateItem(ctx, batch.ID, record.ID, models.ItemResultOK, out.FolderName, out.Detail); err != nil {
		s.logger.Sugar().Warnw("failed to store item result", "record_id", record.ID, "error", err)
	}
	if record.Status == models.RecordStatusApproved {
		pending := repository.UpdateRecordStatusParams{Status: models.RecordStatusPendingPublish}
		if err := s.records.UpdateStatus(ctx, record.ID, pending); err != nil {
			s.logger.Sugar().Warnw("failed to move record to pending publish", "record_id", record.ID, "error", err)
		}
	}
	return saf.ReportRow{Nro: nro, Status: string(models.ItemResultOK), Detail: out.Detail}, out.CareerFolder, career.Handle
}

func (s *BatchService) itemError(ctx context.Context, batchID, recordID, nro, detail string) saf.ReportRow {
	if err := s.batches.UpdateItem(ctx, batchID, recordID, models.ItemResultError, "", detail); err != nil {
		s.logger.Sugar().Warnw("failed to store item error", "record_id", recordID, "error", err)
	}
	return saf.ReportRow{Nro: nro, Status: string(models.ItemResultError), Detail: detail}
}

// GetStatus returns the batch with per-item outcomes. While a run is in
// flight the cached progress value is fresher than the row.
func (s *BatchService) GetStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error) {
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	items, err := s.batches.Items(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch items")
	}

	progress := batch.Progress
	if batch.Status == models.BatchStatusRunning && s.cache != nil {
		if cached, err := s.cache.Get(ctx, progressCachePrefix+batchID).Int(); err == nil && cached > progress {
			progress = cached
		}
	}

	resp := &dto.BatchStatusResponse{
		ID:          batch.ID,
		BatchCode:   batch.BatchCode,
		Status:      batch.Status,
		Progress:    progress,
		GeneratedAt: batch.GeneratedAt,
		ZipReady:    batch.ZipPath != "",
		LogText:     batch.LogText,
	}
	if batch.GroupID != nil {
		resp.GroupID = *batch.GroupID
	}
	for _, item := range items {
		status := dto.BatchItemStatus{
			RecordID:   item.RecordID,
			FolderName: item.ItemFolderName,
			Result:     item.Result,
			Detail:     item.Detail,
		}
		if record, err := s.records.GetByID(ctx, item.RecordID); err == nil {
			status.Nro = record.Nro
		}
		resp.Items = append(resp.Items, status)
	}
	return resp, nil
}

// List returns batches, optionally scoped to one group.
func (s *BatchService) List(ctx context.Context, groupID string, limit, offset int) ([]models.SafBatch, error) {
	batches, err := s.batches.List(ctx, groupID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, nil
}

// RefreshScripts rewrites the import helpers and the archive without
// touching the item folders. Used after collection handles change.
func (s *BatchService) RefreshScripts(ctx context.Context, batchID string, claims *models.JWTClaims) (*models.SafBatch, error) {
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == models.BatchStatusRunning {
		return nil, appErrors.Clone(appErrors.ErrConflict, "batch generation in progress")
	}
	if batch.OutputPath == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "batch has not been generated yet")
	}
	if _, err := os.Stat(batch.OutputPath); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "batch output folder no longer exists")
	}

	items, err := s.batches.Items(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch items")
	}
	careersByFolder := map[string]string{}
	for _, item := range items {
		if item.Result != models.ItemResultOK {
			continue
		}
		record, err := s.records.GetByID(ctx, item.RecordID)
		if err != nil || record.CareerID == nil {
			continue
		}
		career, err := s.careers.GetByID(ctx, *record.CareerID)
		if err != nil || career.Handle == "" {
			continue
		}
		careersByFolder[saf.CareerFolderName(career.NormalizedCode)] = career.Handle
	}
	targets := make([]saf.ImportTarget, 0, len(careersByFolder))
	for folder, handle := range careersByFolder {
		targets = append(targets, saf.ImportTarget{CareerFolder: folder, Handle: handle})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].CareerFolder < targets[j].CareerFolder })

	if err := saf.WriteImportScripts(batch.OutputPath, targets, s.scriptOptions()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewrite import scripts")
	}
	zipPath := filepath.Join(s.cfg.OutputRoot, batch.BatchCode+".zip")
	if err := saf.ZipDirectory(batch.OutputPath, zipPath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild archive")
	}
	if err := s.batches.Update(ctx, batchID, repository.UpdateBatchParams{ZipPath: &zipPath}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store archive path")
	}
	batch.ZipPath = zipPath
	return batch, nil
}

// DownloadURL issues a signed, expiring link for the batch archive.
func (s *BatchService) DownloadURL(ctx context.Context, batchID string) (*dto.BatchDownloadResponse, error) {
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.ZipPath == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "batch archive not generated yet")
	}
	token, expiresAt, err := s.signer.Generate(batch.ID, filepath.Base(batch.ZipPath))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.BatchDownloadResponse{URL: "/api/v1/saf/batches/download/" + token, ExpiresAt: expiresAt}, nil
}

// BatchDownload holds an open archive stream for one download.
type BatchDownload struct {
	File     *os.File
	Filename string
}

// ResolveDownload validates a signed token and opens the archive.
func (s *BatchService) ResolveDownload(ctx context.Context, token string) (*BatchDownload, error) {
	batchID, zipName, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	batch, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.ZipPath == "" || filepath.Base(batch.ZipPath) != zipName {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := os.Open(batch.ZipPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open archive")
	}
	return &BatchDownload{File: file, Filename: zipName}, nil
}

// RecoverInterrupted marks batches left RUNNING by a previous process as
// failed so they can be regenerated.
func (s *BatchService) RecoverInterrupted(ctx context.Context) {
	stuck, err := s.batches.ListByStatus(ctx, models.BatchStatusRunning)
	if err != nil {
		s.logger.Sugar().Warnw("failed to list interrupted batches", "error", err)
		return
	}
	for _, batch := range stuck {
		s.failBatch(ctx, batch.ID, "generation interrupted by restart")
	}
}

func (s *BatchService) failBatch(ctx context.Context, batchID, reason string) {
	status := models.BatchStatusFailed
	progress := 100
	if err := s.batches.Update(ctx, batchID, repository.UpdateBatchParams{Status: &status, Progress: &progress, LogText: &reason}); err != nil {
		s.logger.Sugar().Errorw("failed to mark batch as failed", "batch_id", batchID, "error", err)
	}
}

func (s *BatchService) publishProgress(ctx context.Context, batchID string, progress int) {
	if err := s.batches.Update(ctx, batchID, repository.UpdateBatchParams{Progress: &progress}); err != nil {
		s.logger.Sugar().Warnw("failed to store batch progress", "batch_id", batchID, "error", err)
	}
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, progressCachePrefix+batchID, progress, s.cfg.ProgressTTL).Err(); err != nil {
		s.logger.Sugar().Debugw("failed to cache batch progress", "batch_id", batchID, "error", err)
	}
}

func (s *BatchService) scriptOptions() saf.ScriptOptions {
	return saf.ScriptOptions{
		DSpaceBinPath: s.dspace.BinPath,
		Eperson:       s.dspace.ImportEperson,
		BaseURL:       s.dspace.BaseURL,
	}
}

func (s *BatchService) load(ctx context.Context, id string) (*models.SafBatch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}
