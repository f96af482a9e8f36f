package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLText unescapes character references and collapses runs of whitespace.
// Tags are left alone; anchors should already exclude them.
func HTMLText(raw string) (string, error) {
	return strings.Join(strings.Fields(html.UnescapeString(raw)), " "), nil
}

// Upper upper-cases the trimmed span
func Upper(raw string) (string, error) {
	return strings.ToUpper(strings.TrimSpace(raw)), nil
}

// Lower lower-cases the trimmed span
func Lower(raw string) (string, error) {
	return strings.ToLower(strings.TrimSpace(raw)), nil
}

// Builtin returns the handlers the CLI registers by default
func Builtin() map[string]Handler {
	return map[string]Handler{
		"HTML":  HTMLText,
		"UPPER": Upper,
		"LOWER": Lower,
	}
}
