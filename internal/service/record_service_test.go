package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
)

type recordStoreStub struct {
	records map[string]*models.ThesisRecord
	// statusErr makes UpdateStatus fail for one record and target status.
	statusErr map[string]models.RecordStatus
}

func newRecordStoreStub() *recordStoreStub {
	return &recordStoreStub{records: map[string]*models.ThesisRecord{}, statusErr: map[string]models.RecordStatus{}}
}

func (s *recordStoreStub) Create(ctx context.Context, record *models.ThesisRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Nro = len(s.records) + 1
	if record.Status == "" {
		record.Status = models.RecordStatusDraft
	}
	s.records[record.ID] = record
	return nil
}

func (s *recordStoreStub) GetByID(ctx context.Context, id string) (*models.ThesisRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (s *recordStoreStub) List(ctx context.Context, filter repository.RecordFilter) ([]models.ThesisRecord, error) {
	var out []models.ThesisRecord
	for _, record := range s.records {
		if filter.GroupID != "" && record.GroupID != filter.GroupID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}

func (s *recordStoreStub) Update(ctx context.Context, record *models.ThesisRecord) error {
	if _, ok := s.records[record.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *recordStoreStub) UpdateStatus(ctx context.Context, id string, params repository.UpdateRecordStatusParams) error {
	record, ok := s.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if status, ok := s.statusErr[id]; ok && status == params.Status {
		return sql.ErrConnDone
	}
	record.Status = params.Status
	if params.SubmittedBy != nil {
		record.SubmittedBy = params.SubmittedBy
	}
	if params.SubmittedAt != nil {
		record.SubmittedAt = params.SubmittedAt
	}
	if params.ApprovedBy != nil {
		record.ApprovedBy = params.ApprovedBy
	}
	if params.ApprovedAt != nil {
		record.ApprovedAt = params.ApprovedAt
	}
	if params.DSpaceHandle != nil {
		record.DSpaceHandle = *params.DSpaceHandle
	}
	if params.DSpaceURL != nil {
		record.DSpaceURL = *params.DSpaceURL
	}
	return nil
}

type auditStoreStub struct {
	events []models.AuditEvent
}

func (s *auditStoreStub) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now()
	s.events = append(s.events, *event)
	return nil
}

func (s *auditStoreStub) ListByRecord(ctx context.Context, recordID string) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	for _, event := range s.events {
		if event.RecordID == recordID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *auditStoreStub) CountByRecordAndAction(ctx context.Context, recordID string, action models.AuditAction) (int, error) {
	count := 0
	for _, event := range s.events {
		if event.RecordID == recordID && event.Action == action {
			count++
		}
	}
	return count, nil
}

type careerReaderStub struct {
	careers map[string]*models.CareerConfig
}

func (s *careerReaderStub) GetByID(ctx context.Context, id string) (*models.CareerConfig, error) {
	career, ok := s.careers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return career, nil
}

type fileReaderStub struct {
	files map[string][]models.ThesisFile
}

func (s *fileReaderStub) ListByRecord(ctx context.Context, recordID string) ([]models.ThesisFile, error) {
	return s.files[recordID], nil
}

type recomputeStub struct {
	groups []string
}

func (s *recomputeStub) Recompute(ctx context.Context, groupID string) error {
	s.groups = append(s.groups, groupID)
	return nil
}

type groupReaderStub struct {
	groups map[string]*models.SustentationGroup
}

func (s *groupReaderStub) GetByID(ctx context.Context, id string) (*models.SustentationGroup, error) {
	group, ok := s.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return group, nil
}

type recordServiceFixture struct {
	svc       *RecordService
	records   *recordStoreStub
	audits    *auditStoreStub
	careers   *careerReaderStub
	files     *fileReaderStub
	groups    *groupReaderStub
	recompute *recomputeStub
}

func newRecordServiceFixture(t *testing.T) *recordServiceFixture {
	t.Helper()
	records := newRecordStoreStub()
	audits := &auditStoreStub{}
	careers := &careerReaderStub{careers: map[string]*models.CareerConfig{
		"career-1": {ID: "career-1", Name: "Ingeniería de Sistemas", NormalizedCode: "SISTEMAS", Handle: "20.500.1234/10", Active: true},
	}}
	files := &fileReaderStub{files: map[string][]models.ThesisFile{}}
	groups := &groupReaderStub{groups: map[string]*models.SustentationGroup{
		"group-1": {ID: "group-1", Name: "SUSTENTACIÓN 15.08.2026", SustentationDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Status: models.GroupStatusAssembled},
	}}
	recompute := &recomputeStub{}
	rules := RegistryRules{DNILength: 8, RequireTurnitin: true}
	svc := NewRecordService(records, audits, careers, files, groups, recompute, func(string) bool { return true }, rules, zap.NewNop())
	return &recordServiceFixture{svc: svc, records: records, audits: audits, careers: careers, files: files, groups: groups, recompute: recompute}
}

func completeRecord(status models.RecordStatus) *models.ThesisRecord {
	careerID := "career-1"
	return &models.ThesisRecord{
		ID:           "rec-1",
		Nro:          1,
		GroupID:      "group-1",
		Status:       status,
		CareerID:     &careerID,
		Title:        "Modelo predictivo de deserción estudiantil",
		Author1Name:  "Ana Quispe",
		Author1DNI:   "12345678",
		AdvisorName:  "Luis Romero",
		AdvisorDNI:   "87654321",
		AdvisorORCID: "https://orcid.org/0000-0002-1825-0097",
		Juror1:       "Carlos Paz",
		Abstract:     "Se propone un modelo predictivo.",
		KeywordsRaw:  "deserción; aprendizaje automático",
	}
}

func completeFiles(recordID string) []models.ThesisFile {
	return []models.ThesisFile{
		{ID: "f-1", RecordID: recordID, FileType: models.FileTypeThesisPDF, OriginalName: "tesis.pdf", StoredPath: "records/rec-1/tesis.pdf"},
		{ID: "f-2", RecordID: recordID, FileType: models.FileTypeForm, OriginalName: "autorizacion.pdf", StoredPath: "records/rec-1/form.pdf"},
		{ID: "f-3", RecordID: recordID, FileType: models.FileTypeTurnitin, OriginalName: "similitud.pdf", StoredPath: "records/rec-1/turnitin.pdf"},
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-admin", Role: models.RoleAdmin}
}

func loaderClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-loader", Role: models.RoleLoader}
}

func auditorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-auditor", Role: models.RoleAuditor}
}

func TestRecordServiceCreate(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record, err := fx.svc.Create(context.Background(), dto.CreateRecordRequest{
		GroupID:     "group-1",
		Title:       "Una tesis",
		Author1Name: "Ana Quispe",
		Author1DNI:  "12345678",
	}, loaderClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusDraft, record.Status)
	assert.Equal(t, 1, record.Nro)
}

func TestRecordServiceCreateGroupNotAssembled(t *testing.T) {
	fx := newRecordServiceFixture(t)
	fx.groups.groups["group-1"].Status = models.GroupStatusInReview

	_, err := fx.svc.Create(context.Background(), dto.CreateRecordRequest{
		GroupID:     "group-1",
		Title:       "Una tesis",
		Author1Name: "Ana Quispe",
		Author1DNI:  "12345678",
	}, loaderClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.records.records)
}

func TestRecordServiceCreateUnknownGroup(t *testing.T) {
	fx := newRecordServiceFixture(t)
	_, err := fx.svc.Create(context.Background(), dto.CreateRecordRequest{
		GroupID:     "missing",
		Title:       "Una tesis",
		Author1Name: "Ana Quispe",
		Author1DNI:  "12345678",
	}, loaderClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceMarkReadyIncomplete(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusDraft)
	record.Title = ""
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	_, err := fx.svc.MarkReady(context.Background(), record.ID, loaderClaims())
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
	assert.Contains(t, typed.Message, "título vacío")
	assert.Equal(t, models.RecordStatusDraft, fx.records.records[record.ID].Status)
}

func TestRecordServiceMarkReadyComplete(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusDraft)
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	updated, err := fx.svc.MarkReady(context.Background(), record.ID, loaderClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusReady, updated.Status)
	require.NotNil(t, updated.SubmittedBy)
	assert.Equal(t, "user-loader", *updated.SubmittedBy)
	assert.NotNil(t, updated.SubmittedAt)
}

func TestRecordServiceMarkReadyWrongStatus(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	_, err := fx.svc.MarkReady(context.Background(), record.ID, loaderClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceObserveRequiresComment(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record

	_, err := fx.svc.Observe(context.Background(), record.ID, "   ", auditorClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.audits.events)
}

func TestRecordServiceObserve(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record

	updated, err := fx.svc.Observe(context.Background(), record.ID, "falta la firma del asesor", auditorClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusObserved, updated.Status)
	require.Len(t, fx.audits.events, 1)
	assert.Equal(t, models.AuditActionObserve, fx.audits.events[0].Action)
	assert.Equal(t, "user-auditor", fx.audits.events[0].UserID)
	assert.Equal(t, []string{"group-1"}, fx.recompute.groups)
}

func TestRecordServiceApprove(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	updated, err := fx.svc.Approve(context.Background(), record.ID, "conforme", auditorClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, "user-auditor", *updated.ApprovedBy)
	require.Len(t, fx.audits.events, 1)
	assert.Equal(t, models.AuditActionApprove, fx.audits.events[0].Action)
	assert.Equal(t, "conforme", fx.audits.events[0].Comment)
	assert.Equal(t, []string{"group-1"}, fx.recompute.groups)
}

func TestRecordServiceApproveDefaultComment(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	_, err := fx.svc.Approve(context.Background(), record.ID, "  ", auditorClaims())
	require.NoError(t, err)
	require.Len(t, fx.audits.events, 1)
	assert.Equal(t, "Aprobado para lote SAF.", fx.audits.events[0].Comment)
}

func TestRecordServiceApproveMissingFileOnDisk(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)
	fx.svc.exists = func(string) bool { return false }

	_, err := fx.svc.Approve(context.Background(), record.ID, "", auditorClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RecordStatusInReview, fx.records.records[record.ID].Status)
}

func TestRecordServiceUpdateBlockedInReview(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusInReview)
	fx.records.records[record.ID] = record

	req := dto.UpdateRecordRequest{Title: "Nuevo título", Author1Name: "Ana Quispe", Author1DNI: "12345678"}
	_, err := fx.svc.Update(context.Background(), record.ID, req, loaderClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)

	updated, err := fx.svc.Update(context.Background(), record.ID, req, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Nuevo título", updated.Title)
}

func TestRecordServiceValidateReportsProblems(t *testing.T) {
	fx := newRecordServiceFixture(t)
	record := completeRecord(models.RecordStatusDraft)
	record.Author1DNI = "12AB5678"
	fx.records.records[record.ID] = record
	fx.files.files[record.ID] = completeFiles(record.ID)

	resp, err := fx.svc.Validate(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Problems, "autor 1: DNI debe ser numérico")
}
