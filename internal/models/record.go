package models

import "time"

// RecordStatus enumerates the thesis record workflow states.
type RecordStatus string

const (
	RecordStatusDraft          RecordStatus = "DRAFT"
	RecordStatusReady          RecordStatus = "READY"
	RecordStatusInReview       RecordStatus = "IN_REVIEW"
	RecordStatusObserved       RecordStatus = "OBSERVED"
	RecordStatusApproved       RecordStatus = "APPROVED"
	RecordStatusPendingPublish RecordStatus = "PENDING_PUBLISH"
	RecordStatusPublished      RecordStatus = "PUBLISHED"
)

// recordTransitions lists the legal per-record moves. PUBLISHED is terminal.
var recordTransitions = map[RecordStatus][]RecordStatus{
	RecordStatusDraft:          {RecordStatusReady},
	RecordStatusReady:          {RecordStatusInReview},
	RecordStatusInReview:       {RecordStatusObserved, RecordStatusApproved},
	RecordStatusObserved:       {RecordStatusReady, RecordStatusInReview},
	RecordStatusApproved:       {RecordStatusPendingPublish},
	RecordStatusPendingPublish: {RecordStatusPublished},
}

// CanTransition reports whether moving from one record status to another is legal.
func CanTransition(from, to RecordStatus) bool {
	for _, next := range recordTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsExportable reports whether a record may be processed by batch generation.
// PENDING_PUBLISH is tolerated so a failed batch can be resumed.
func (s RecordStatus) IsExportable() bool {
	return s == RecordStatusApproved || s == RecordStatusPendingPublish
}

// IsTerminal reports whether no further transitions exist.
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusPublished
}

// ThesisRecord is one thesis submission moving through the workflow.
type ThesisRecord struct {
	ID       string       `db:"id" json:"id"`
	Nro      int          `db:"nro" json:"nro"`
	GroupID  string       `db:"group_id" json:"groupId"`
	Status   RecordStatus `db:"status" json:"status"`
	CareerID *string      `db:"career_id" json:"careerId,omitempty"`

	Title        string `db:"title" json:"title"`
	Author1Name  string `db:"author1_name" json:"author1Name"`
	Author1DNI   string `db:"author1_dni" json:"author1Dni"`
	Author2Name  string `db:"author2_name" json:"author2Name"`
	Author2DNI   string `db:"author2_dni" json:"author2Dni"`
	Author3Name  string `db:"author3_name" json:"author3Name"`
	Author3DNI   string `db:"author3_dni" json:"author3Dni"`
	AdvisorName  string `db:"advisor_name" json:"advisorName"`
	AdvisorDNI   string `db:"advisor_dni" json:"advisorDni"`
	AdvisorORCID string `db:"advisor_orcid" json:"advisorOrcid"`
	Juror1       string `db:"juror1" json:"juror1"`
	Juror2       string `db:"juror2" json:"juror2"`
	Juror3       string `db:"juror3" json:"juror3"`
	Abstract     string `db:"abstract" json:"abstract"`
	KeywordsRaw  string `db:"keywords_raw" json:"keywordsRaw"`

	SubmittedBy *string    `db:"submitted_by" json:"submittedBy,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	ApprovedBy  *string    `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approvedAt,omitempty"`

	DSpaceHandle string `db:"dspace_handle" json:"dspaceHandle"`
	DSpaceURL    string `db:"dspace_url" json:"dspaceUrl"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Authors returns the declared author name/DNI slots in order.
func (r *ThesisRecord) Authors() [][2]string {
	return [][2]string{
		{r.Author1Name, r.Author1DNI},
		{r.Author2Name, r.Author2DNI},
		{r.Author3Name, r.Author3DNI},
	}
}

// Jurors returns the declared reviewer names in slot order.
func (r *ThesisRecord) Jurors() []string {
	return []string{r.Juror1, r.Juror2, r.Juror3}
}

// CanEdit reports whether the given role may still modify the record.
// Once a record enters review it is read-only for everyone except admins,
// so metadata and files stay consistent with what the auditor saw.
func (r *ThesisRecord) CanEdit(role UserRole) bool {
	if role == RoleAdmin {
		return true
	}
	if role != RoleLoader && role != RoleAdvisor && role != RoleAuditor {
		return false
	}
	return r.Status == RecordStatusDraft || r.Status == RecordStatusObserved
}
