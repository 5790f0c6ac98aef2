package saf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// escapeXML entity-escapes the five XML special characters.
func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}

func renderSchemaXML(schema string, entries []Entry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	if schema == SchemaDC {
		b.WriteString("<dublin_core>\n")
	} else {
		fmt.Fprintf(&b, "<dublin_core schema=%q>\n", schema)
	}
	for _, e := range entries {
		value := strings.TrimSpace(e.Value)
		if e.Schema != schema || value == "" {
			continue
		}
		qAttr := ""
		if e.Qualifier != "" {
			qAttr = fmt.Sprintf(" qualifier=%q", e.Qualifier)
		}
		lAttr := ""
		if e.Language != "" {
			lAttr = fmt.Sprintf(" language=%q", e.Language)
		}
		fmt.Fprintf(&b, "  <dcvalue element=%q%s%s>%s</dcvalue>\n", e.Element, qAttr, lAttr, escapeXML(value))
	}
	b.WriteString("</dublin_core>")
	return b.String()
}

// WriteMetadataFiles serializes the entry list into dublin_core.xml plus one
// metadata_<schema>.xml per extra schema, and returns the file names written.
func WriteMetadataFiles(dir string, entries []Entry) ([]string, error) {
	written := []string{"dublin_core.xml"}
	dcPath := filepath.Join(dir, "dublin_core.xml")
	if err := os.WriteFile(dcPath, []byte(renderSchemaXML(SchemaDC, entries)), 0o644); err != nil {
		return nil, fmt.Errorf("write dublin_core.xml: %w", err)
	}
	for _, schema := range ExtraSchemas(entries) {
		name := fmt.Sprintf("metadata_%s.xml", schema)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(renderSchemaXML(schema, entries)), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

// ContentsLine formats one manifest row: filename, bundle, optional primary flag.
func ContentsLine(filename, bundle string, primary bool) string {
	line := fmt.Sprintf("%s\tbundle:%s", filename, bundle)
	if primary {
		line += "\tprimary:true"
	}
	return line
}

// WriteContentsFile writes the payload manifest, one line per file.
func WriteContentsFile(dir string, lines []string) error {
	path := filepath.Join(dir, "contents")
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write contents: %w", err)
	}
	return nil
}
