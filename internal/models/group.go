package models

import (
	"fmt"
	"time"
)

// GroupStatus is the derived status of a sustentation group. It is never set
// directly after creation; it is always recomputed from member statuses.
type GroupStatus string

const (
	GroupStatusAssembled      GroupStatus = "ASSEMBLED"
	GroupStatusInReview       GroupStatus = "IN_REVIEW"
	GroupStatusObserved       GroupStatus = "OBSERVED"
	GroupStatusApproved       GroupStatus = "APPROVED"
	GroupStatusPendingPublish GroupStatus = "PENDING_PUBLISH"
	GroupStatusPublished      GroupStatus = "PUBLISHED"
)

// SustentationGroup is a dated defense cohort whose records are exported together.
type SustentationGroup struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	SustentationDate time.Time   `db:"sustentation_date" json:"sustentationDate"`
	Status           GroupStatus `db:"status" json:"status"`
	CreatedBy        string      `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
}

// GroupNameForDate derives the display name used when none is provided.
func GroupNameForDate(d time.Time) string {
	return fmt.Sprintf("SUSTENTACIÓN %s", d.Format("02.01.2006"))
}

// ComputeGroupStatus folds member statuses into the group status. The result
// is order independent: precedence goes published > pending-publish > approved
// > observed > in-review > assembled.
func ComputeGroupStatus(statuses []RecordStatus) GroupStatus {
	if len(statuses) == 0 {
		return GroupStatusAssembled
	}

	all := func(want RecordStatus) bool {
		for _, s := range statuses {
			if s != want {
				return false
			}
		}
		return true
	}
	any := func(want ...RecordStatus) bool {
		for _, s := range statuses {
			for _, w := range want {
				if s == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case all(RecordStatusPublished):
		return GroupStatusPublished
	case any(RecordStatusPendingPublish, RecordStatusPublished):
		return GroupStatusPendingPublish
	case all(RecordStatusApproved):
		return GroupStatusApproved
	case any(RecordStatusObserved):
		return GroupStatusObserved
	case any(RecordStatusInReview):
		return GroupStatusInReview
	default:
		return GroupStatusAssembled
	}
}
