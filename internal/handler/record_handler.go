package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/response"
)

type recordService interface {
	Create(ctx context.Context, req dto.CreateRecordRequest, claims *models.JWTClaims) (*models.ThesisRecord, error)
	Get(ctx context.Context, id string) (*models.ThesisRecord, error)
	List(ctx context.Context, filter repository.RecordFilter) ([]models.ThesisRecord, error)
	Update(ctx context.Context, id string, req dto.UpdateRecordRequest, claims *models.JWTClaims) (*models.ThesisRecord, error)
	Validate(ctx context.Context, id string) (*dto.ValidationResponse, error)
	MarkReady(ctx context.Context, id string, claims *models.JWTClaims) (*models.ThesisRecord, error)
	Observe(ctx context.Context, id, comment string, claims *models.JWTClaims) (*models.ThesisRecord, error)
	Approve(ctx context.Context, id, comment string, claims *models.JWTClaims) (*models.ThesisRecord, error)
	History(ctx context.Context, id string) ([]models.AuditEvent, error)
}

// RecordHandler exposes the thesis record endpoints.
type RecordHandler struct {
	records recordService
}

// NewRecordHandler constructs handler.
func NewRecordHandler(records recordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// Create godoc
// @Summary Register a new thesis record
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body dto.CreateRecordRequest true "Record data"
// @Success 201 {object} response.Envelope
// @Router /records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload"))
		return
	}
	record, err := h.records.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List thesis records
// @Tags Records
// @Produce json
// @Param groupId query string false "Group filter"
// @Param status query string false "Status filter"
// @Param q query string false "Title or author search"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := repository.RecordFilter{
		GroupID: c.Query("groupId"),
		Status:  models.RecordStatus(c.Query("status")),
		Search:  c.Query("q"),
		Limit:   limit,
		Offset:  offset,
	}
	records, err := h.records.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get one thesis record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Update a record's bibliographic fields
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.UpdateRecordRequest true "Record data"
// @Success 200 {object} response.Envelope
// @Router /records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	var req dto.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload"))
		return
	}
	record, err := h.records.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Validate godoc
// @Summary Run completeness checks without changing state
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/validate [get]
func (h *RecordHandler) Validate(c *gin.Context) {
	result, err := h.records.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkReady godoc
// @Summary Mark a complete record as ready for group submission
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/ready [post]
func (h *RecordHandler) MarkReady(c *gin.Context) {
	record, err := h.records.MarkReady(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Observe godoc
// @Summary Reject a record under review back to its loader
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.ObservationRequest true "Observation comment"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/observe [post]
func (h *RecordHandler) Observe(c *gin.Context) {
	var req dto.ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "observation comment is required"))
		return
	}
	record, err := h.records.Observe(c.Request.Context(), c.Param("id"), req.Comment, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Approve godoc
// @Summary Approve a record under review
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.ApprovalRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/approve [post]
func (h *RecordHandler) Approve(c *gin.Context) {
	var req dto.ApprovalRequest
	_ = c.ShouldBindJSON(&req)
	record, err := h.records.Approve(c.Request.Context(), c.Param("id"), req.Comment, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// History godoc
// @Summary Record audit trail
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/history [get]
func (h *RecordHandler) History(c *gin.Context) {
	events, err := h.records.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
