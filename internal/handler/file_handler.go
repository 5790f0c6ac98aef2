package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uai-repositorio/saf-api/internal/models"
	appErrors "github.com/uai-repositorio/saf-api/pkg/errors"
	"github.com/uai-repositorio/saf-api/pkg/response"
)

type fileService interface {
	Upload(ctx context.Context, recordID string, fileType models.FileType, originalName string, size int64, r io.Reader, claims *models.JWTClaims) (*models.ThesisFile, error)
	List(ctx context.Context, recordID string) ([]models.ThesisFile, error)
	Delete(ctx context.Context, fileID string, claims *models.JWTClaims) error
}

// FileHandler exposes the record document endpoints.
type FileHandler struct {
	files fileService
}

// NewFileHandler constructs handler.
func NewFileHandler(files fileService) *FileHandler {
	return &FileHandler{files: files}
}

// Upload godoc
// @Summary Upload a document for a record
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Record ID"
// @Param type formData string true "File category"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Router /records/{id}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	fileType := models.FileType(c.PostForm("type"))
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	file, err := h.files.Upload(c.Request.Context(), c.Param("id"), fileType, header.Filename, header.Size, src, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// List godoc
// @Summary List a record's documents
// @Tags Files
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/files [get]
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Delete godoc
// @Summary Delete one document
// @Tags Files
// @Param fileId path string true "File ID"
// @Success 204
// @Router /files/{fileId} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), c.Param("fileId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
