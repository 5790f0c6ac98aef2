package dto

import (
	"time"

	"github.com/uai-repositorio/saf-api/internal/models"
)

// CreateBatchRequest selects the group whose approved records are exported.
type CreateBatchRequest struct {
	GroupID string `json:"groupId" binding:"required,uuid"`
}

// BatchItemStatus reports one record's generation outcome.
type BatchItemStatus struct {
	RecordID   string            `json:"recordId"`
	Nro        int               `json:"nro"`
	FolderName string            `json:"folderName,omitempty"`
	Result     models.ItemResult `json:"result"`
	Detail     string            `json:"detail,omitempty"`
}

// BatchStatusResponse exposes batch progress to pollers.
type BatchStatusResponse struct {
	ID          string             `json:"id"`
	BatchCode   string             `json:"batchCode"`
	GroupID     string             `json:"groupId"`
	Status      models.BatchStatus `json:"status"`
	Progress    int                `json:"progress"`
	GeneratedAt *time.Time         `json:"generatedAt,omitempty"`
	ZipReady    bool               `json:"zipReady"`
	LogText     string             `json:"logText,omitempty"`
	Items       []BatchItemStatus  `json:"items,omitempty"`
}

// BatchDownloadResponse carries a signed, time-limited download link.
type BatchDownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LinksApplyResponse summarises a link ingestion run.
type LinksApplyResponse struct {
	Published        int      `json:"published"`
	AlreadyPublished int      `json:"alreadyPublished"`
	Errors           []string `json:"errors,omitempty"`
}
