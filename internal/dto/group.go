package dto

import "github.com/uai-repositorio/saf-api/internal/models"

// CreateGroupRequest creates the group for one sustentation day.
type CreateGroupRequest struct {
	SustentationDate string `json:"sustentationDate" binding:"required,datetime=2006-01-02"`
}

// GroupDetailResponse bundles a group with its member records.
type GroupDetailResponse struct {
	Group   *models.SustentationGroup `json:"group"`
	Records []models.ThesisRecord     `json:"records"`
}
