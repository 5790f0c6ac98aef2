package dto

// CreateRecordRequest carries the bibliographic fields of a new record.
type CreateRecordRequest struct {
	GroupID      string  `json:"groupId" binding:"required,uuid"`
	CareerID     *string `json:"careerId" binding:"omitempty,uuid"`
	Title        string  `json:"title" binding:"required"`
	Author1Name  string  `json:"author1Name" binding:"required"`
	Author1DNI   string  `json:"author1Dni" binding:"required"`
	Author2Name  string  `json:"author2Name"`
	Author2DNI   string  `json:"author2Dni"`
	Author3Name  string  `json:"author3Name"`
	Author3DNI   string  `json:"author3Dni"`
	AdvisorName  string  `json:"advisorName"`
	AdvisorDNI   string  `json:"advisorDni"`
	AdvisorORCID string  `json:"advisorOrcid"`
	Juror1       string  `json:"juror1"`
	Juror2       string  `json:"juror2"`
	Juror3       string  `json:"juror3"`
	Abstract     string  `json:"abstract"`
	KeywordsRaw  string  `json:"keywords"`
}

// UpdateRecordRequest mirrors the create payload without the group binding;
// records never move between groups.
type UpdateRecordRequest struct {
	CareerID     *string `json:"careerId" binding:"omitempty,uuid"`
	Title        string  `json:"title" binding:"required"`
	Author1Name  string  `json:"author1Name" binding:"required"`
	Author1DNI   string  `json:"author1Dni" binding:"required"`
	Author2Name  string  `json:"author2Name"`
	Author2DNI   string  `json:"author2Dni"`
	Author3Name  string  `json:"author3Name"`
	Author3DNI   string  `json:"author3Dni"`
	AdvisorName  string  `json:"advisorName"`
	AdvisorDNI   string  `json:"advisorDni"`
	AdvisorORCID string  `json:"advisorOrcid"`
	Juror1       string  `json:"juror1"`
	Juror2       string  `json:"juror2"`
	Juror3       string  `json:"juror3"`
	Abstract     string  `json:"abstract"`
	KeywordsRaw  string  `json:"keywords"`
}

// ObservationRequest rejects a record back to its loader. The comment is
// mandatory so the loader knows what to fix.
type ObservationRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// ApprovalRequest optionally annotates an approval.
type ApprovalRequest struct {
	Comment string `json:"comment"`
}

// ValidationResponse lists the completeness problems of a record.
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}
