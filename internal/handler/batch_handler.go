package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/service"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/response"
)

type batchService interface {
	Create(ctx context.Context, req dto.CreateBatchRequest, claims *models.JWTClaims) (*models.SafBatch, error)
	List(ctx context.Context, groupID string, limit, offset int) ([]models.SafBatch, error)
	GetStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error)
	Generate(ctx context.Context, batchID string, claims *models.JWTClaims) (*models.SafBatch, error)
	RefreshScripts(ctx context.Context, batchID string, claims *models.JWTClaims) (*models.SafBatch, error)
	DownloadURL(ctx context.Context, batchID string) (*dto.BatchDownloadResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.BatchDownload, error)
}

type linkApplier interface {
	Apply(ctx context.Context, batchID string, payload []byte, claims *models.JWTClaims) (*dto.LinksApplyResponse, error)
}

// BatchHandler exposes the SAF export batch endpoints.
type BatchHandler struct {
	batches batchService
	links   linkApplier
}

// NewBatchHandler constructs handler.
func NewBatchHandler(batches batchService, links linkApplier) *BatchHandler {
	return &BatchHandler{batches: batches, links: links}
}

// Create godoc
// @Summary Create an export batch from a group's approved records
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body dto.CreateBatchRequest true "Group selection"
// @Success 201 {object} response.Envelope
// @Router /saf/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload"))
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// List godoc
// @Summary List export batches
// @Tags Batches
// @Produce json
// @Param groupId query string false "Group filter"
// @Success 200 {object} response.Envelope
// @Router /saf/batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	batches, err := h.batches.List(c.Request.Context(), c.Query("groupId"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// Status godoc
// @Summary Batch progress and per-item results
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /saf/batches/{id} [get]
func (h *BatchHandler) Status(c *gin.Context) {
	status, err := h.batches.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Generate godoc
// @Summary Start background generation of the SAF tree
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 202 {object} response.Envelope
// @Router /saf/batches/{id}/generate [post]
func (h *BatchHandler) Generate(c *gin.Context) {
	batch, err := h.batches.Generate(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, batch, nil)
}

// RefreshScripts godoc
// @Summary Rewrite import scripts and archive without regenerating items
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /saf/batches/{id}/scripts [post]
func (h *BatchHandler) RefreshScripts(c *gin.Context) {
	batch, err := h.batches.RefreshScripts(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// DownloadURL godoc
// @Summary Issue a signed download link for the batch archive
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /saf/batches/{id}/download [get]
func (h *BatchHandler) DownloadURL(c *gin.Context) {
	link, err := h.batches.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Stream the batch archive for a signed token
// @Tags Batches
// @Produce application/zip
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /saf/batches/download/{token} [get]
func (h *BatchHandler) Download(c *gin.Context) {
	download, err := h.batches.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Content-Type", "application/zip")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}

// ApplyLinks godoc
// @Summary Ingest the handle/URL mapping exported from DSpace
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /saf/batches/{id}/links [post]
func (h *BatchHandler) ApplyLinks(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || len(payload) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "links payload is required"))
		return
	}
	result, err := h.links.Apply(c.Request.Context(), c.Param("id"), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
