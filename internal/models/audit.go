package models

import "time"

// AuditAction labels one workflow transition in the append-only trail.
type AuditAction string

const (
	AuditActionSend     AuditAction = "send"
	AuditActionObserve  AuditAction = "observe"
	AuditActionResubmit AuditAction = "resubmit"
	AuditActionApprove  AuditAction = "approve"
	AuditActionPublish  AuditAction = "publish"
)

// AuditEvent is an immutable log entry recorded per successful transition.
// Events are never updated or deleted.
type AuditEvent struct {
	ID        string      `db:"id" json:"id"`
	RecordID  string      `db:"record_id" json:"recordId"`
	Action    AuditAction `db:"action" json:"action"`
	Comment   string      `db:"comment" json:"comment"`
	UserID    string      `db:"user_id" json:"userId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}
