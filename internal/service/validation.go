package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/uai-repositorio/saf-api/internal/models"
)

var orcidPattern = regexp.MustCompile(`(?i)^https?://orcid\.org/\d{4}-\d{4}-\d{4}-\d{4}$`)

// RegistryRules holds the tunable completeness rules.
type RegistryRules struct {
	DNILength       int
	RequireTurnitin bool
}

// ValidateForSubmission returns every completeness problem found on a
// record. An empty slice means the record can move to READY.
func ValidateForSubmission(record *models.ThesisRecord, career *models.CareerConfig, files []models.ThesisFile, rules RegistryRules) []string {
	var problems []string

	if record.CareerID == nil || *record.CareerID == "" {
		problems = append(problems, "carrera no asignada")
	} else if career == nil || !career.Active {
		problems = append(problems, "carrera inactiva o inexistente")
	} else if strings.TrimSpace(career.Handle) == "" {
		problems = append(problems, "carrera sin handle configurado")
	}

	if strings.TrimSpace(record.Title) == "" {
		problems = append(problems, "título vacío")
	}
	if strings.TrimSpace(record.Author1Name) == "" {
		problems = append(problems, "autor 1 sin nombre")
	}
	if strings.TrimSpace(record.Author1DNI) == "" {
		problems = append(problems, "autor 1: DNI vacío")
	}

	// Only the first author is mandatory. DNIs on the remaining slots and
	// the advisor are format-checked when present.
	if problem := checkDNIIfPresent(record.Author1DNI, rules.DNILength); problem != "" {
		problems = append(problems, "autor 1: "+problem)
	}
	if problem := checkDNIIfPresent(record.Author2DNI, rules.DNILength); problem != "" {
		problems = append(problems, "autor 2: "+problem)
	}
	if problem := checkDNIIfPresent(record.Author3DNI, rules.DNILength); problem != "" {
		problems = append(problems, "autor 3: "+problem)
	}
	if problem := checkDNIIfPresent(record.AdvisorDNI, rules.DNILength); problem != "" {
		problems = append(problems, "asesor: "+problem)
	}

	if orcid := strings.TrimSpace(record.AdvisorORCID); orcid != "" && !orcidPattern.MatchString(orcid) {
		problems = append(problems, "ORCID del asesor inválido (https://orcid.org/0000-0000-0000-0000)")
	}

	byType := map[models.FileType]int{}
	for _, f := range files {
		byType[f.FileType]++
	}
	if byType[models.FileTypeThesisPDF] == 0 && byType[models.FileTypeThesisDocx] == 0 {
		problems = append(problems, "falta el archivo de tesis (PDF o DOCX)")
	}
	if byType[models.FileTypeForm] == 0 {
		problems = append(problems, "falta el formulario de autorización")
	}
	if rules.RequireTurnitin && byType[models.FileTypeTurnitin] == 0 {
		problems = append(problems, "falta el reporte de similitud")
	}

	return problems
}

// ValidateForApproval re-runs the submission checks and additionally
// verifies every stored file still exists on disk. exists reports whether
// a stored path is readable.
func ValidateForApproval(record *models.ThesisRecord, career *models.CareerConfig, files []models.ThesisFile, rules RegistryRules, exists func(storedPath string) bool) []string {
	problems := ValidateForSubmission(record, career, files, rules)
	for _, f := range files {
		if !exists(f.StoredPath) {
			problems = append(problems, fmt.Sprintf("archivo %s no encontrado en disco", f.OriginalName))
		}
	}
	return problems
}

func checkDNIIfPresent(dni string, length int) string {
	dni = strings.TrimSpace(dni)
	if dni == "" {
		return ""
	}
	for _, r := range dni {
		if r < '0' || r > '9' {
			return "DNI debe ser numérico"
		}
	}
	if len(dni) != length {
		return fmt.Sprintf("DNI debe tener %d dígitos", length)
	}
	return ""
}
