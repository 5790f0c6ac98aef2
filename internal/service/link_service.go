package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	"github.com/uai-repositorio/saf-api/internal/saf"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
)

type linkBatchStore interface {
	GetByID(ctx context.Context, id string) (*models.SafBatch, error)
	Items(ctx context.Context, batchID string) ([]models.SafBatchItem, error)
}

// LinkService ingests the handle/URL mapping produced by the DSpace import
// and closes the publication loop.
type LinkService struct {
	batches linkBatchStore
	records recordStore
	audits  auditStore
	status  groupStatusRecomputer
	baseURL string
	logger  *zap.Logger
}

func NewLinkService(batches linkBatchStore, records recordStore, audits auditStore, status groupStatusRecomputer, baseURL string, logger *zap.Logger) *LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{batches: batches, records: records, audits: audits, status: status, baseURL: baseURL, logger: logger}
}

// Apply matches link entries to the batch's records by sequence number and
// marks them published. Entries that cannot be matched or resolved are
// reported without stopping the rest; re-applying the same payload is
// idempotent.
func (s *LinkService) Apply(ctx context.Context, batchID string, payload []byte, claims *models.JWTClaims) (*dto.LinksApplyResponse, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	entries, parseErrs, err := saf.ParseLinkPayload(payload)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unrecognized links payload: "+err.Error())
	}

	items, err := s.batches.Items(ctx, batch.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch items")
	}
	byNro := make(map[string]*models.ThesisRecord, len(items))
	for _, item := range items {
		record, err := s.records.GetByID(ctx, item.RecordID)
		if err != nil {
			s.logger.Sugar().Warnw("failed to load batch record", "record_id", item.RecordID, "error", err)
			continue
		}
		byNro[fmt.Sprintf("%03d", record.Nro)] = record
	}

	resp := &dto.LinksApplyResponse{}
	for _, parseErr := range parseErrs {
		resp.Errors = append(resp.Errors, parseErr.Error())
	}

	touchedGroups := map[string]struct{}{}
	for _, entry := range entries {
		record, ok := byNro[entry.Nro]
		if !ok {
			resp.Errors = append(resp.Errors, fmt.Sprintf("nro %s is not part of this batch", entry.Nro))
			continue
		}
		url := entry.ResolveURL(s.baseURL)
		if url == "" && entry.Handle == "" {
			resp.Errors = append(resp.Errors, fmt.Sprintf("nro %s has neither url nor handle", entry.Nro))
			continue
		}

		if record.Status == models.RecordStatusPublished {
			resp.AlreadyPublished++
			continue
		}
		if !models.CanTransition(record.Status, models.RecordStatusPublished) {
			resp.Errors = append(resp.Errors, fmt.Sprintf("nro %s cannot be published from status %s", entry.Nro, record.Status))
			continue
		}

		handle := entry.Handle
		params := repository.UpdateRecordStatusParams{
			Status:       models.RecordStatusPublished,
			DSpaceHandle: &handle,
			DSpaceURL:    &url,
		}
		if err := s.records.UpdateStatus(ctx, record.ID, params); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("nro %s: %v", entry.Nro, err))
			continue
		}
		location := url
		if location == "" {
			location = handle
		}
		event := &models.AuditEvent{
			RecordID: record.ID,
			Action:   models.AuditActionPublish,
			UserID:   claims.UserID,
			Comment:  "publicado en " + location,
		}
		if err := s.audits.Create(ctx, event); err != nil {
			s.logger.Sugar().Warnw("failed to write publish audit event", "record_id", record.ID, "error", err)
		}
		resp.Published++
		touchedGroups[record.GroupID] = struct{}{}
	}

	for groupID := range touchedGroups {
		if err := s.status.Recompute(ctx, groupID); err != nil {
			s.logger.Sugar().Warnw("failed to recompute group after publish", "group_id", groupID, "error", err)
		}
	}
	return resp, nil
}
