package saf

import (
	"regexp"
	"sort"
	"strings"

	"github.com/uai-repositorio/saf-api/internal/models"
)

// SchemaDC is the default metadata schema; entries under it land in
// dublin_core.xml, every other schema gets its own metadata_<schema>.xml.
const SchemaDC = "dc"

const (
	defaultMetadataLanguage = "es"
	metadataLanguageISO     = "spa"
	thesisTypeCode          = "info:eu-repo/semantics/bachelorThesis"
	openAccessRightsCode    = "info:eu-repo/semantics/openAccess"
	publishedVersionCode    = "info:eu-repo/semantics/publishedVersion"
	renatiThesisTypeURL     = "https://purl.org/pe-repo/renati/type#tesis"
	licenseRightsURI        = "https://creativecommons.org/licenses/by/4.0"
	publisherName           = "Universidad Autónoma de Ica"
	publisherCountry        = "PE"
)

// languageExcludedQualifiers suppress the language attribute for code-like values.
var languageExcludedQualifiers = map[string]struct{}{
	"dni":  {},
	"uri":  {},
	"date": {},
}

// forcedLanguageFields always carry the default language, even when the
// qualifier or value shape would normally suppress it. Checked first.
var forcedLanguageFields = map[[3]string]struct{}{
	{"dc", "rights", "uri"}:        {},
	{"renati", "advisor", "orcid"}: {},
	{"renati", "type", ""}:         {},
	{"renati", "level", ""}:        {},
	{"dc", "subject", "ocde"}:      {},
}

var uriValuePrefixes = []string{"http://", "https://", "hdl:"}

var integerLikeRE = regexp.MustCompile(`^\d+\.0+$`)

// Entry is one flat metadata value destined for a SAF metadata XML file.
type Entry struct {
	Schema    string
	Element   string
	Qualifier string
	Language  string
	Value     string
}

// InferLanguage decides the language attribute for a metadata value.
func InferLanguage(schema, element, qualifier, value string) string {
	schema = strings.ToLower(strings.TrimSpace(schema))
	element = strings.ToLower(strings.TrimSpace(element))
	qualifier = strings.ToLower(strings.TrimSpace(qualifier))
	value = strings.ToLower(strings.TrimSpace(value))

	if value == "" {
		return ""
	}
	if _, ok := forcedLanguageFields[[3]string{schema, element, qualifier}]; ok {
		return defaultMetadataLanguage
	}
	if element == "date" {
		return ""
	}
	if _, ok := languageExcludedQualifiers[qualifier]; ok {
		return ""
	}
	for _, prefix := range uriValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return ""
		}
	}
	return defaultMetadataLanguage
}

// NewEntry trims the value and tags it with the inferred language.
func NewEntry(schema, element, qualifier, value string) Entry {
	value = strings.TrimSpace(value)
	return Entry{
		Schema:    schema,
		Element:   element,
		Qualifier: qualifier,
		Language:  InferLanguage(schema, element, qualifier, value),
		Value:     value,
	}
}

// NormalizeIntegerLike strips the trailing ".0" float artifact that
// spreadsheet round-trips leave on numeric identifiers.
func NormalizeIntegerLike(value string) string {
	text := strings.TrimSpace(value)
	if integerLikeRE.MatchString(text) {
		return text[:strings.Index(text, ".")]
	}
	return text
}

var subjectSplitRE = regexp.MustCompile(`[;|\n]+`)

// SplitSubjects breaks the raw keyword string into distinct subject terms.
// Semicolon, pipe or newline anywhere selects that splitter for the whole
// string; otherwise comma; otherwise the text is a single term. Terms are
// trimmed of surrounding punctuation and deduplicated case- and
// diacritic-insensitively, first occurrence wins.
func SplitSubjects(text string) []string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.ContainsAny(raw, ";|\n") {
		parts = subjectSplitRE.Split(raw, -1)
	} else if strings.Contains(raw, ",") {
		parts = strings.Split(raw, ",")
	} else {
		parts = []string{raw}
	}

	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		term := strings.Trim(p, " \t\r\n,;.")
		if term == "" {
			continue
		}
		key := FoldText(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}

// DeriveMetadata maps a record and its career configuration into the ordered
// flat entry list. Pure: no I/O, deterministic for identical inputs. The
// emission order is part of the contract because the XML serialization is
// order sensitive.
func DeriveMetadata(record *models.ThesisRecord, career *models.CareerConfig, year string) []Entry {
	md := make([]Entry, 0, 32)
	add := func(schema, element, qualifier, value string) {
		md = append(md, NewEntry(schema, element, qualifier, value))
	}

	add("dc", "title", "", record.Title)
	add("dc", "date", "issued", year)
	add("dc", "language", "iso", metadataLanguageISO)
	add("dc", "format", "", "application/pdf")
	add("dc", "type", "", thesisTypeCode)
	add("dc", "rights", "", openAccessRightsCode)

	for _, author := range record.Authors() {
		name := strings.TrimSpace(author[0])
		dni := NormalizeIntegerLike(author[1])
		if name != "" {
			add("dc", "contributor", "author", name)
		}
		if dni != "" {
			add("renati", "author", "dni", dni)
		}
	}

	if name := strings.TrimSpace(record.AdvisorName); name != "" {
		add("dc", "contributor", "advisor", name)
	}
	if dni := strings.TrimSpace(record.AdvisorDNI); dni != "" {
		add("renati", "advisor", "dni", NormalizeIntegerLike(dni))
	}
	if orcid := strings.TrimSpace(record.AdvisorORCID); orcid != "" {
		add("renati", "advisor", "orcid", orcid)
	}

	for _, juror := range record.Jurors() {
		if name := strings.TrimSpace(juror); name != "" {
			add("renati", "juror", "", name)
		}
	}

	if abstract := strings.TrimSpace(record.Abstract); abstract != "" {
		add("dc", "description", "abstract", abstract)
	}

	for _, subject := range SplitSubjects(record.KeywordsRaw) {
		add("dc", "subject", "", subject)
	}

	add("renati", "type", "", renatiThesisTypeURL)
	add("dc", "type", "version", publishedVersionCode)
	add("dc", "publisher", "", publisherName)
	add("dc", "publisher", "country", publisherCountry)
	add("dc", "rights", "uri", licenseRightsURI)

	if career != nil {
		if career.ThesisDegreeName != "" {
			add("thesis", "degree", "name", career.ThesisDegreeName)
		}
		if career.ThesisDegreeDiscipline != "" {
			add("thesis", "degree", "discipline", career.ThesisDegreeDiscipline)
		}
		if career.ThesisDegreeGrantor != "" {
			add("thesis", "degree", "grantor", career.ThesisDegreeGrantor)
		}
		if career.RenatiLevel != "" {
			add("renati", "level", "", career.RenatiLevel)
		}
		if career.RenatiDiscipline != "" {
			add("renati", "discipline", "", career.RenatiDiscipline)
		}
		if career.OCDEURL != "" {
			add("dc", "subject", "ocde", career.OCDEURL)
		}
	}

	return md
}

// ExtraSchemas lists the non-default schemas present in the entry list,
// sorted ascending for stable output.
func ExtraSchemas(entries []Entry) []string {
	set := make(map[string]struct{})
	for _, e := range entries {
		if e.Schema != SchemaDC {
			set[e.Schema] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
