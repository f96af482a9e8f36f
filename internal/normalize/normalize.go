package normalize

import (
	"regexp"
	"strings"

	"github.com/ppiankov/anchorx/internal/template"
)

// Status describes how a field value was obtained
type Status string

const (
	StatusFound           Status = "found"            // Anchors located, value normalized
	StatusMissing         Status = "missing"          // Anchor not found or empty span
	StatusFallbackApplied Status = "fallback_applied" // Value replaced by a default or the fallback sentinel
	StatusTypeMismatch    Status = "type_mismatch"    // Value kept but does not fit the declared type
)

// DefaultFallback is the sentinel used when a field cannot be located
const DefaultFallback = "N/A"

// Handler transforms the raw span of a Custom-typed field
type Handler func(raw string) (string, error)

var numericLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Table maps Custom tags to handlers and holds the fallback sentinel.
// A Table is read-only once built and safe for concurrent use.
type Table struct {
	handlers map[string]Handler
	fallback string
}

// NewTable builds a Table from handlers keyed by Custom tag
func NewTable(fallback string, handlers map[string]Handler) *Table {
	h := make(map[string]Handler, len(handlers))
	for tag, fn := range handlers {
		if fn != nil {
			h[tag] = fn
		}
	}
	return &Table{handlers: h, fallback: fallback}
}

// Default returns a Table with no custom handlers and the default fallback
func Default() *Table {
	return NewTable(DefaultFallback, nil)
}

// Fallback returns the sentinel for unlocated fields
func (t *Table) Fallback() string {
	return t.fallback
}

// WithFallback returns a copy of t using a different sentinel
func (t *Table) WithFallback(fallback string) *Table {
	return &Table{handlers: t.handlers, fallback: fallback}
}

// Has reports whether a handler is registered for tag
func (t *Table) Has(tag string) bool {
	_, ok := t.handlers[tag]
	return ok
}

// Normalize converts a raw span according to the field type.
// It never fails; problems are reported through the returned Status.
func (t *Table) Normalize(ft template.FieldType, raw string) (string, Status) {
	if raw == "" {
		return t.fallback, StatusMissing
	}

	switch ft.Kind {
	case template.KindNumeric:
		return Numeric(raw)
	case template.KindText:
		return strings.TrimSpace(raw), StatusFound
	case template.KindCustom:
		fn, ok := t.handlers[ft.Tag]
		if !ok {
			return raw, StatusFound
		}
		v, err := fn(raw)
		if err != nil {
			return t.fallback, StatusFallbackApplied
		}
		return v, StatusFound
	}

	return raw, StatusFound
}

// Numeric strips grouping commas and surrounding whitespace.
// The cleaned value is returned even when it is not a number.
func Numeric(raw string) (string, Status) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if !numericLiteral.MatchString(cleaned) {
		return cleaned, StatusTypeMismatch
	}
	return cleaned, StatusFound
}
