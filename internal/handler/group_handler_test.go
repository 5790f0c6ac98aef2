package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
)

type groupServiceMock struct {
	group  *models.SustentationGroup
	groups []models.SustentationGroup
	detail *dto.GroupDetailResponse
	err    error
}

func (m *groupServiceMock) Create(ctx context.Context, req dto.CreateGroupRequest, claims *models.JWTClaims) (*models.SustentationGroup, error) {
	return m.group, m.err
}

func (m *groupServiceMock) Get(ctx context.Context, id string) (*dto.GroupDetailResponse, error) {
	return m.detail, m.err
}

func (m *groupServiceMock) List(ctx context.Context, limit, offset int) ([]models.SustentationGroup, error) {
	return m.groups, m.err
}

func (m *groupServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *groupServiceMock) Submit(ctx context.Context, id string, claims *models.JWTClaims) (*dto.GroupDetailResponse, error) {
	return m.detail, m.err
}

func TestGroupHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &groupServiceMock{group: &models.SustentationGroup{
		ID:               "group-1",
		Name:             "SUSTENTACIÓN 15.08.2026",
		SustentationDate: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Status:           models.GroupStatusAssembled,
	}}
	h := NewGroupHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateGroupRequest{SustentationDate: "2026-08-15"})
	c, w := newGinContext(http.MethodPost, "/groups", payload)
	withClaims(c, models.RoleAdmin)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "SUSTENTACIÓN 15.08.2026")
}

func TestGroupHandlerCreateBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGroupHandler(&groupServiceMock{})

	c, w := newGinContext(http.MethodPost, "/groups", []byte(`{"sustentationDate": "15/08/2026"}`))
	withClaims(c, models.RoleAdmin)

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &groupServiceMock{detail: &dto.GroupDetailResponse{
		Group:   &models.SustentationGroup{ID: "group-1", Status: models.GroupStatusInReview},
		Records: []models.ThesisRecord{{ID: "rec-1", Nro: 1}},
	}}
	h := NewGroupHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/groups/group-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.GroupDetailResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Records, 1)
}

func TestGroupHandlerDeleteEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGroupHandler(&groupServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/groups/group-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}
	withClaims(c, models.RoleAdmin)

	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())
}

func TestGroupHandlerDeleteWithRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGroupHandler(&groupServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "group has records")})

	c, w := newGinContext(http.MethodDelete, "/groups/group-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}
	withClaims(c, models.RoleAdmin)

	h.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "group has records")
}

func TestGroupHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &groupServiceMock{detail: &dto.GroupDetailResponse{
		Group: &models.SustentationGroup{ID: "group-1", Status: models.GroupStatusInReview},
	}}
	h := NewGroupHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/groups/group-1/submit", nil)
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}
	withClaims(c, models.RoleLoader)

	h.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.GroupStatusInReview))
}
