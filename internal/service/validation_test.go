package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uai-repositorio/saf-api/internal/models"
)

func testRules() RegistryRules {
	return RegistryRules{DNILength: 8, RequireTurnitin: true}
}

func testCareer() *models.CareerConfig {
	return &models.CareerConfig{ID: "career-1", Name: "Ingeniería de Sistemas", NormalizedCode: "SISTEMAS", Handle: "20.500.1234/10", Active: true}
}

func TestValidateForSubmissionCompleteRecord(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	problems := ValidateForSubmission(record, testCareer(), completeFiles(record.ID), testRules())
	assert.Empty(t, problems)
}

func TestValidateForSubmissionMissingFields(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	record.Title = "  "
	record.Author1Name = ""
	record.Author1DNI = ""
	problems := ValidateForSubmission(record, testCareer(), completeFiles(record.ID), testRules())
	assert.Contains(t, problems, "título vacío")
	assert.Contains(t, problems, "autor 1 sin nombre")
	assert.Contains(t, problems, "autor 1: DNI vacío")
}

func TestValidateForSubmissionSingleAuthor(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	record.Author2Name = ""
	record.Author2DNI = ""
	record.Author3Name = ""
	record.Author3DNI = ""
	record.AdvisorName = ""
	record.AdvisorDNI = ""
	record.AdvisorORCID = ""
	record.Abstract = ""
	record.KeywordsRaw = ""
	problems := ValidateForSubmission(record, testCareer(), completeFiles(record.ID), testRules())
	assert.Empty(t, problems)
}

func TestValidateForSubmissionCareerWithoutHandle(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	career := testCareer()
	career.Handle = "  "
	problems := ValidateForSubmission(record, career, completeFiles(record.ID), testRules())
	assert.Contains(t, problems, "carrera sin handle configurado")
}

func TestValidateForSubmissionInactiveCareer(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	career := testCareer()
	career.Active = false
	problems := ValidateForSubmission(record, career, completeFiles(record.ID), testRules())
	assert.Contains(t, problems, "carrera inactiva o inexistente")
}

func TestValidateForSubmissionNoCareer(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	record.CareerID = nil
	problems := ValidateForSubmission(record, nil, completeFiles(record.ID), testRules())
	assert.Contains(t, problems, "carrera no asignada")
}

func TestValidateForSubmissionDNIRules(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	record.Author1DNI = "1234"
	record.Author2DNI = "123456789"
	record.AdvisorDNI = "1234567a"
	problems := ValidateForSubmission(record, testCareer(), completeFiles(record.ID), testRules())
	assert.Contains(t, problems, "autor 1: DNI debe tener 8 dígitos")
	assert.Contains(t, problems, "autor 2: DNI debe tener 8 dígitos")
	assert.Contains(t, problems, "asesor: DNI debe ser numérico")
}

func TestValidateForSubmissionORCID(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	files := completeFiles(record.ID)
	career := testCareer()

	valid := []string{
		"",
		"https://orcid.org/0000-0002-1825-0097",
		"http://orcid.org/0000-0002-1825-0097",
		"HTTPS://ORCID.ORG/0000-0002-1825-0097",
	}
	for _, orcid := range valid {
		record.AdvisorORCID = orcid
		problems := ValidateForSubmission(record, career, files, testRules())
		assert.Empty(t, problems, orcid)
	}

	invalid := []string{
		"0000-0002-1825-0097",
		"orcid.org/0000-0002-1825-0097",
		"https://orcid.org/0000-0002-1825-009X",
		"https://orcid.org/0000-0002-1825",
	}
	for _, orcid := range invalid {
		record.AdvisorORCID = orcid
		problems := ValidateForSubmission(record, career, files, testRules())
		require.Len(t, problems, 1, orcid)
		assert.Contains(t, problems[0], "ORCID del asesor inválido", orcid)
	}
}

func TestValidateForSubmissionFileCategories(t *testing.T) {
	record := completeRecord(models.RecordStatusDraft)
	problems := ValidateForSubmission(record, testCareer(), nil, testRules())
	assert.Contains(t, problems, "falta el archivo de tesis (PDF o DOCX)")
	assert.Contains(t, problems, "falta el formulario de autorización")
	assert.Contains(t, problems, "falta el reporte de similitud")

	// A DOCX thesis satisfies the thesis requirement; Turnitin is only
	// demanded when the rules say so.
	files := []models.ThesisFile{
		{FileType: models.FileTypeThesisDocx, OriginalName: "tesis.docx"},
		{FileType: models.FileTypeForm, OriginalName: "form.pdf"},
	}
	rules := testRules()
	rules.RequireTurnitin = false
	problems = ValidateForSubmission(record, testCareer(), files, rules)
	assert.Empty(t, problems)
}

func TestValidateForApprovalChecksDisk(t *testing.T) {
	record := completeRecord(models.RecordStatusInReview)
	files := completeFiles(record.ID)

	problems := ValidateForApproval(record, testCareer(), files, testRules(), func(string) bool { return true })
	assert.Empty(t, problems)

	problems = ValidateForApproval(record, testCareer(), files, testRules(), func(storedPath string) bool {
		return storedPath != files[0].StoredPath
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], files[0].OriginalName)
}
