package models

import "time"

// BatchStatus captures the export run lifecycle.
type BatchStatus string

const (
	BatchStatusCreated BatchStatus = "CREATED"
	BatchStatusRunning BatchStatus = "RUNNING"
	BatchStatusDone    BatchStatus = "DONE"
	BatchStatusFailed  BatchStatus = "FAILED"
)

// SafBatch is one export run of a group's approved records into a SAF tree.
type SafBatch struct {
	ID          string      `db:"id" json:"id"`
	BatchCode   string      `db:"batch_code" json:"batchCode"`
	GroupID     *string     `db:"group_id" json:"groupId,omitempty"`
	Status      BatchStatus `db:"status" json:"status"`
	Progress    int         `db:"progress" json:"progress"`
	CreatedBy   string      `db:"created_by" json:"createdBy"`
	GeneratedAt *time.Time  `db:"generated_at" json:"generatedAt,omitempty"`
	OutputPath  string      `db:"output_path" json:"outputPath"`
	ReportPath  string      `db:"report_path" json:"reportPath"`
	ZipPath     string      `db:"zip_path" json:"zipPath"`
	LogText     string      `db:"log_text" json:"logText"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// ItemResult is the per-record outcome within a batch.
type ItemResult string

const (
	ItemResultPending ItemResult = "PENDING"
	ItemResultOK      ItemResult = "OK"
	ItemResultError   ItemResult = "ERROR"
)

// SafBatchItem links one record into a batch. Unique per (batch, record).
type SafBatchItem struct {
	ID             string     `db:"id" json:"id"`
	BatchID        string     `db:"batch_id" json:"batchId"`
	RecordID       string     `db:"record_id" json:"recordId"`
	ItemFolderName string     `db:"item_folder_name" json:"itemFolderName"`
	Result         ItemResult `db:"result" json:"result"`
	Detail         string     `db:"detail" json:"detail"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}
