package models

import "time"

// CareerConfig is the per-career repository mapping and thesis metadata.
// The normalized code doubles as the SAF career folder name after folding.
type CareerConfig struct {
	ID                     string    `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	NormalizedCode         string    `db:"normalized_code" json:"normalizedCode"`
	Faculty                string    `db:"faculty" json:"faculty"`
	Handle                 string    `db:"handle" json:"handle"`
	ThesisDegreeName       string    `db:"thesis_degree_name" json:"thesisDegreeName"`
	ThesisDegreeDiscipline string    `db:"thesis_degree_discipline" json:"thesisDegreeDiscipline"`
	ThesisDegreeGrantor    string    `db:"thesis_degree_grantor" json:"thesisDegreeGrantor"`
	RenatiLevel            string    `db:"renati_level" json:"renatiLevel"`
	RenatiDiscipline       string    `db:"renati_discipline" json:"renatiDiscipline"`
	OCDEURL                string    `db:"ocde_url" json:"ocdeUrl"`
	Active                 bool      `db:"active" json:"active"`
	CreatedAt              time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time `db:"updated_at" json:"updatedAt"`
}

// LicenseVersion is a stored license text. Exactly one version is active and
// its text is copied verbatim into each exported item.
type LicenseVersion struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Version     string    `db:"version" json:"version"`
	TextContent string    `db:"text_content" json:"textContent"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedBy   *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
