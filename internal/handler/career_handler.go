package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uai-repositorio/saf-api/internal/repository"
	"github.com/uai-repositorio/saf-api/pkg/response"
)

// CareerHandler exposes the career catalogue used when filling records.
type CareerHandler struct {
	careers *repository.CareerRepository
}

// NewCareerHandler constructs handler.
func NewCareerHandler(careers *repository.CareerRepository) *CareerHandler {
	return &CareerHandler{careers: careers}
}

// ListActive godoc
// @Summary List active careers
// @Tags Careers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /careers [get]
func (h *CareerHandler) ListActive(c *gin.Context) {
	careers, err := h.careers.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, careers, nil)
}
