package model

import (
	"time"

	"github.com/ppiankov/anchorx/internal/extract"
	"github.com/ppiankov/anchorx/internal/normalize"
)

// Report is the outcome of applying one template to one document
type Report struct {
	Source    string    `json:"source" yaml:"source"`         // URL or file path that was read
	Template  string    `json:"template" yaml:"template"`     // Template name, or "inline"
	Pattern   string    `json:"pattern" yaml:"pattern"`       // Canonical template text
	Rows      bool      `json:"rows" yaml:"rows"`             // Whether the template was applied repeatedly
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"` // When the document was obtained
	FetchMeta FetchMeta `json:"fetch_meta" yaml:"fetch_meta"` // Retrieval metadata

	Results []*extract.Result `json:"results" yaml:"-"` // One per row; a single entry for non-row templates
	Summary Summary           `json:"summary" yaml:"summary"`
}

// FetchMeta contains retrieval metadata for the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	Bytes        int               `json:"bytes" yaml:"bytes"`
	FromCache    bool              `json:"from_cache" yaml:"from_cache"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Summary counts field statuses across all results
type Summary struct {
	Rows            int `json:"rows" yaml:"rows"`
	Found           int `json:"found" yaml:"found"`
	Missing         int `json:"missing" yaml:"missing"`
	FallbackApplied int `json:"fallback_applied" yaml:"fallback_applied"`
	TypeMismatch    int `json:"type_mismatch" yaml:"type_mismatch"`
}

// Summarize counts statuses over results, nested fields excluded
func Summarize(results []*extract.Result) Summary {
	s := Summary{Rows: len(results)}
	for _, r := range results {
		s.Found += r.Count(normalize.StatusFound)
		s.Missing += r.Count(normalize.StatusMissing)
		s.FallbackApplied += r.Count(normalize.StatusFallbackApplied)
		s.TypeMismatch += r.Count(normalize.StatusTypeMismatch)
	}
	return s
}

// Fields returns the total number of top-level fields counted
func (s Summary) Fields() int {
	return s.Found + s.Missing + s.FallbackApplied + s.TypeMismatch
}
