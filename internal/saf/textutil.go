package saf

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldText upper-cases, strips diacritics and collapses whitespace. It is the
// comparison key for keyword dedup and the base of career folder names.
func FoldText(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}
	return whitespaceRE.ReplaceAllString(s, " ")
}

// CareerFolderName maps a career code to its SAF directory name.
func CareerFolderName(code string) string {
	if strings.TrimSpace(code) == "" {
		code = "SIN_CARRERA"
	}
	return strings.ReplaceAll(FoldText(code), " ", "_")
}
