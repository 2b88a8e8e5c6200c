package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRE    = regexp.MustCompile("[\t\n\r\f\v ]+")
	multiSpace = regexp.MustCompile(` {2,}`)
)

// normalizeName führt NFC-Normalisierung durch und fasst Leerraum zu
// einzelnen Leerzeichen zusammen.
func normalizeName(s string) string {
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		normalized = s
	}
	normalized = spaceRE.ReplaceAllString(normalized, " ")
	normalized = multiSpace.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// validateName normalisiert einen Namen und prüft Pflicht und Länge.
func validateName(field, name string) (string, error) {
	name = normalizeName(name)
	if err := validate.Var(name, "required,max=255"); err != nil {
		return "", formatValidationError(err, field)
	}
	return name, nil
}
