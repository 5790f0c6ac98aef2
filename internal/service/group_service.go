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

type groupStore interface {
	Create(ctx context.Context, group *models.SustentationGroup) error
	GetByID(ctx context.Context, id string) (*models.SustentationGroup, error)
	GetByDate(ctx context.Context, date time.Time) (*models.SustentationGroup, error)
	List(ctx context.Context, limit, offset int) ([]models.SustentationGroup, error)
	UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error
	Delete(ctx context.Context, id string) error
}

type groupRecordStore interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.ThesisRecord, error)
	StatusesByGroup(ctx context.Context, groupID string) ([]models.RecordStatus, error)
	CountByGroup(ctx context.Context, groupID string) (int, error)
	UpdateStatus(ctx context.Context, id string, params repository.UpdateRecordStatusParams) error
}

// GroupService manages sustentation groups and their derived status.
type GroupService struct {
	groups  groupStore
	records groupRecordStore
	audits  auditStore
	logger  *zap.Logger
}

func NewGroupService(groups groupStore, records groupRecordStore, audits auditStore, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, records: records, audits: audits, logger: logger}
}

// Create opens the group for one sustentation day. Each day has at most
// one group.
func (s *GroupService) Create(ctx context.Context, req dto.CreateGroupRequest, claims *models.JWTClaims) (*models.SustentationGroup, error) {
	date, err := time.Parse("2006-01-02", req.SustentationDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sustentation date")
	}
	if existing, err := s.groups.GetByDate(ctx, date); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a group already exists for that date")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group date")
	}

	group := &models.SustentationGroup{
		Name:             models.GroupNameForDate(date),
		SustentationDate: date,
		CreatedBy:        claims.UserID,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Get returns the group and its records in sequence order.
func (s *GroupService) Get(ctx context.Context, id string) (*dto.GroupDetailResponse, error) {
	group, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByGroup(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group records")
	}
	return &dto.GroupDetailResponse{Group: group, Records: records}, nil
}

// List returns groups newest sustentation first.
func (s *GroupService) List(ctx context.Context, limit, offset int) ([]models.SustentationGroup, error) {
	groups, err := s.groups.List(ctx, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Delete removes an empty group. Groups holding records cannot be deleted.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	count, err := s.records.CountByGroup(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group records")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "group still has records")
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}

// Submit moves every member of the group into review. All members must be
// READY; a single incomplete record blocks the whole group.
func (s *GroupService) Submit(ctx context.Context, id string, claims *models.JWTClaims) (*dto.GroupDetailResponse, error) {
	group, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByGroup(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group records")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group has no records")
	}

	var notReady []string
	for _, record := range records {
		if record.Status != models.RecordStatusReady {
			notReady = append(notReady, fmt.Sprintf("%03d (%s)", record.Nro, record.Status))
		}
	}
	if len(notReady) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "records not ready: "+strings.Join(notReady, ", "))
	}

	// The group submits as a unit: when one status update fails, the
	// records already moved are put back to READY before reporting.
	var submitted []string
	for i := range records {
		record := &records[i]
		if err := s.records.UpdateStatus(ctx, record.ID, repository.UpdateRecordStatusParams{Status: models.RecordStatusInReview}); err != nil {
			for _, revertID := range submitted {
				if revertErr := s.records.UpdateStatus(ctx, revertID, repository.UpdateRecordStatusParams{Status: models.RecordStatusReady}); revertErr != nil {
					s.logger.Sugar().Errorw("failed to revert record after aborted submit", "record_id", revertID, "error", revertErr)
				}
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit record "+record.ID)
		}
		submitted = append(submitted, record.ID)
		record.Status = models.RecordStatusInReview
	}

	// Audit trail is written only once every member moved.
	for i := range records {
		record := &records[i]
		action := models.AuditActionSend
		if observed, err := s.audits.CountByRecordAndAction(ctx, record.ID, models.AuditActionObserve); err == nil && observed > 0 {
			action = models.AuditActionResubmit
		}
		event := &models.AuditEvent{RecordID: record.ID, Action: action, UserID: claims.UserID, Comment: "enviado con el grupo " + group.Name}
		if err := s.audits.Create(ctx, event); err != nil {
			s.logger.Sugar().Warnw("failed to write submit audit event", "record_id", record.ID, "error", err)
		}
	}

	if err := s.Recompute(ctx, id); err != nil {
		s.logger.Sugar().Warnw("failed to recompute group status after submit", "group_id", id, "error", err)
	}
	group.Status = models.GroupStatusInReview
	return &dto.GroupDetailResponse{Group: group, Records: records}, nil
}

// Recompute derives the group status from its member records and stores
// it when it changed.
func (s *GroupService) Recompute(ctx context.Context, groupID string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	statuses, err := s.records.StatusesByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load member statuses: %w", err)
	}
	derived := models.ComputeGroupStatus(statuses)
	if derived == group.Status {
		return nil
	}
	if err := s.groups.UpdateStatus(ctx, groupID, derived); err != nil {
		return fmt.Errorf("store group status: %w", err)
	}
	return nil
}

func (s *GroupService) load(ctx context.Context, id string) (*models.SustentationGroup, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}
