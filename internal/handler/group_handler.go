package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uai-repositorio/saf-api/internal/dto"
	"github.com/uai-repositorio/saf-api/internal/models"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/response"
)

type groupService interface {
	Create(ctx context.Context, req dto.CreateGroupRequest, claims *models.JWTClaims) (*models.SustentationGroup, error)
	Get(ctx context.Context, id string) (*dto.GroupDetailResponse, error)
	List(ctx context.Context, limit, offset int) ([]models.SustentationGroup, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id string, claims *models.JWTClaims) (*dto.GroupDetailResponse, error)
}

// GroupHandler exposes sustentation group endpoints.
type GroupHandler struct {
	groups groupService
}

// NewGroupHandler constructs handler.
func NewGroupHandler(groups groupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Create godoc
// @Summary Create the group for one sustentation day
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body dto.CreateGroupRequest true "Sustentation date"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload"))
		return
	}
	group, err := h.groups.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// List godoc
// @Summary List sustentation groups
// @Tags Groups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	groups, err := h.groups.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get one group with its records
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	detail, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete an empty group
// @Tags Groups
// @Param id path string true "Group ID"
// @Success 204
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.groups.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Send every ready record of the group into review
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/submit [post]
func (h *GroupHandler) Submit(c *gin.Context) {
	detail, err := h.groups.Submit(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
