package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
)

type recordStore interface {
	Create(ctx context.Context, record *models.ThesisRecord) error
	GetByID(ctx context.Context, id string) (*models.ThesisRecord, error)
	List(ctx context.Context, filter repository.RecordFilter) ([]models.ThesisRecord, error)
	Update(ctx context.Context, record *models.ThesisRecord) error
	UpdateStatus(ctx context.Context, id string, params repository.UpdateRecordStatusParams) error
}

type auditStore interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	ListByRecord(ctx context.Context, recordID string) ([]models.AuditEvent, error)
	CountByRecordAndAction(ctx context.Context, recordID string, action models.AuditAction) (int, error)
}

type careerReader interface {
	GetByID(ctx context.Context, id string) (*models.CareerConfig, error)
}

type recordFileReader interface {
	ListByRecord(ctx context.Context, recordID string) ([]models.ThesisFile, error)
}

type groupStatusRecomputer interface {
	Recompute(ctx context.Context, groupID string) error
}

type groupReader interface {
	GetByID(ctx context.Context, id string) (*models.SustentationGroup, error)
}

// RecordService manages thesis records and their review lifecycle.
type RecordService struct {
	records recordStore
	audits  auditStore
	careers careerReader
	files   recordFileReader
	groups  groupReader
	status  groupStatusRecomputer
	exists  func(storedPath string) bool
	rules   RegistryRules
	logger  *zap.Logger
}

// NewRecordService constructs the record service. exists reports whether a
// stored file path is readable on disk.
func NewRecordService(records recordStore, audits auditStore, careers careerReader, files recordFileReader, groups groupReader, status groupStatusRecomputer, exists func(string) bool, rules RegistryRules, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{
		records: records,
		audits:  audits,
		careers: careers,
		files:   files,
		groups:  groups,
		status:  status,
		exists:  exists,
		rules:   rules,
		logger:  logger,
	}
}

// Create registers a new record in DRAFT inside an existing group.
func (s *RecordService) Create(ctx context.Context, req dto.CreateRecordRequest, claims *models.JWTClaims) (*models.ThesisRecord, error) {
	group, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.Status != models.GroupStatusAssembled {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("cannot add records to a group in status %s", group.Status))
	}
	record := &models.ThesisRecord{
		GroupID:      req.GroupID,
		CareerID:     req.CareerID,
		Title:        req.Title,
		Author1Name:  req.Author1Name,
		Author1DNI:   req.Author1DNI,
		Author2Name:  req.Author2Name,
		Author2DNI:   req.Author2DNI,
		Author3Name:  req.Author3Name,
		Author3DNI:   req.Author3DNI,
		AdvisorName:  req.AdvisorName,
		AdvisorDNI:   req.AdvisorDNI,
		AdvisorORCID: req.AdvisorORCID,
		Juror1:       req.Juror1,
		Juror2:       req.Juror2,
		Juror3:       req.Juror3,
		Abstract:     req.Abstract,
		KeywordsRaw:  req.KeywordsRaw,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}
	return record, nil
}

// Get returns one record.
func (s *RecordService) Get(ctx context.Context, id string) (*models.ThesisRecord, error) {
	return s.load(ctx, id)
}

// List returns records matching the filter.
func (s *RecordService) List(ctx context.Context, filter repository.RecordFilter) ([]models.ThesisRecord, error) {
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

// History returns a record's audit trail oldest first.
func (s *RecordService) History(ctx context.Context, id string) ([]models.AuditEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.audits.ListByRecord(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record history")
	}
	return events, nil
}

// Update replaces the editable bibliographic fields. Only records in DRAFT
// or OBSERVED accept edits, except for administrators.
func (s *RecordService) Update(ctx context.Context, id string, req dto.UpdateRecordRequest, claims *models.JWTClaims) (*models.ThesisRecord, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.CanEdit(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "record cannot be edited in status "+string(record.Status))
	}
	if req.CareerID != nil && *req.CareerID != "" {
		if _, err := s.careers.GetByID(ctx, *req.CareerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "career not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
		}
	}

	record.CareerID = req.CareerID
	record.Title = req.Title
	record.Author1Name = req.Author1Name
	record.Author1DNI = req.Author1DNI
	record.Author2Name = req.Author2Name
	record.Author2DNI = req.Author2DNI
	record.Author3Name = req.Author3Name
	record.Author3DNI = req.Author3DNI
	record.AdvisorName = req.AdvisorName
	record.AdvisorDNI = req.AdvisorDNI
	record.AdvisorORCID = req.AdvisorORCID
	record.Juror1 = req.Juror1
	record.Juror2 = req.Juror2
	record.Juror3 = req.Juror3
	record.Abstract = req.Abstract
	record.KeywordsRaw = req.KeywordsRaw

	if err := s.records.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	return record, nil
}

// Validate runs the completeness checks without changing state.
func (s *RecordService) Validate(ctx context.Context, id string) (*dto.ValidationResponse, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	problems, err := s.submissionProblems(ctx, record)
	if err != nil {
		return nil, err
	}
	return &dto.ValidationResponse{Valid: len(problems) == 0, Problems: problems}, nil
}

// MarkReady moves a complete record from DRAFT or OBSERVED to READY.
func (s *RecordService) MarkReady(ctx context.Context, id string, claims *models.JWTClaims) (*models.ThesisRecord, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(record.Status, models.RecordStatusReady) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "record cannot be marked ready from status "+string(record.Status))
	}
	problems, err := s.submissionProblems(ctx, record)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(problems, "; "))
	}

	now := time.Now().UTC()
	params := repository.UpdateRecordStatusParams{
		Status:      models.RecordStatusReady,
		SubmittedBy: &claims.UserID,
		SubmittedAt: &now,
	}
	if err := s.records.UpdateStatus(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark record ready")
	}
	record.Status = models.RecordStatusReady
	record.SubmittedBy = &claims.UserID
	record.SubmittedAt = &now
	return record, nil
}

// Observe sends a record under review back to its loader. The comment is
// required so the loader knows what to correct.
func (s *RecordService) Observe(ctx context.Context, id, comment string, claims *models.JWTClaims) (*models.ThesisRecord, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "observation comment is required")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(record.Status, models.RecordStatusObserved) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "record cannot be observed from status "+string(record.Status))
	}
	if err := s.records.UpdateStatus(ctx, id, repository.UpdateRecordStatusParams{Status: models.RecordStatusObserved}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to observe record")
	}
	record.Status = models.RecordStatusObserved
	s.writeAudit(ctx, record.ID, models.AuditActionObserve, claims.UserID, comment)
	s.recomputeGroup(ctx, record.GroupID)
	return record, nil
}

// Approve accepts a record under review. The full completeness checks run
// again, including verifying the uploaded files still exist on disk.
func (s *RecordService) Approve(ctx context.Context, id, comment string, claims *models.JWTClaims) (*models.ThesisRecord, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(record.Status, models.RecordStatusApproved) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "record cannot be approved from status "+string(record.Status))
	}

	career, files, err := s.careerAndFiles(ctx, record)
	if err != nil {
		return nil, err
	}
	problems := ValidateForApproval(record, career, files, s.rules, s.exists)
	if len(problems) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(problems, "; "))
	}

	now := time.Now().UTC()
	params := repository.UpdateRecordStatusParams{
		Status:     models.RecordStatusApproved,
		ApprovedBy: &claims.UserID,
		ApprovedAt: &now,
	}
	if err := s.records.UpdateStatus(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve record")
	}
	record.Status = models.RecordStatusApproved
	record.ApprovedBy = &claims.UserID
	record.ApprovedAt = &now
	if strings.TrimSpace(comment) == "" {
		comment = "Aprobado para lote SAF."
	}
	s.writeAudit(ctx, record.ID, models.AuditActionApprove, claims.UserID, comment)
	s.recomputeGroup(ctx, record.GroupID)
	return record, nil
}

func (s *RecordService) load(ctx context.Context, id string) (*models.ThesisRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return record, nil
}

func (s *RecordService) careerAndFiles(ctx context.Context, record *models.ThesisRecord) (*models.CareerConfig, []models.ThesisFile, error) {
	var career *models.CareerConfig
	if record.CareerID != nil && *record.CareerID != "" {
		loaded, err := s.careers.GetByID(ctx, *record.CareerID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
		}
		career = loaded
	}
	files, err := s.files.ListByRecord(ctx, record.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record files")
	}
	return career, files, nil
}

func (s *RecordService) submissionProblems(ctx context.Context, record *models.ThesisRecord) ([]string, error) {
	career, files, err := s.careerAndFiles(ctx, record)
	if err != nil {
		return nil, err
	}
	return ValidateForSubmission(record, career, files, s.rules), nil
}

// writeAudit records a lifecycle event after its transition succeeded. A
// storage failure here is logged but does not undo the transition.
func (s *RecordService) writeAudit(ctx context.Context, recordID string, action models.AuditAction, actor, comment string) {
	event := &models.AuditEvent{RecordID: recordID, Action: action, UserID: actor, Comment: comment}
	if err := s.audits.Create(ctx, event); err != nil {
		s.logger.Sugar().Warnw("failed to write audit event", "record_id", recordID, "action", action, "error", err)
	}
}

func (s *RecordService) recomputeGroup(ctx context.Context, groupID string) {
	if err := s.status.Recompute(ctx, groupID); err != nil {
		s.logger.Sugar().Warnw("failed to recompute group status", "group_id", groupID, "error", err)
	}
}
