package extract

import (
	"strings"

	"github.com/ppiankov/anchorx/internal/normalize"
	"github.com/ppiankov/anchorx/internal/template"
)

// Extractor applies compiled templates to source text.
// It holds only read-only configuration and is safe for concurrent use.
type Extractor struct {
	table    *normalize.Table
	defaults map[string]string

	fallback    string
	hasFallback bool
}

// Option configures an Extractor
type Option func(*Extractor)

// WithNormalizers sets the normalizer table (custom handlers and fallback)
func WithNormalizers(t *normalize.Table) Option {
	return func(e *Extractor) {
		if t != nil {
			e.table = t
		}
	}
}

// WithFallback sets the sentinel used for fields that cannot be located.
// It wins over the fallback carried by the normalizer table.
func WithFallback(sentinel string) Option {
	return func(e *Extractor) {
		e.fallback = sentinel
		e.hasFallback = true
	}
}

// WithDefaults gives missing fields a per-name default value
func WithDefaults(defaults map[string]string) Option {
	return func(e *Extractor) {
		for k, v := range defaults {
			e.defaults[k] = v
		}
	}
}

// New creates an Extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{
		table:    normalize.Default(),
		defaults: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hasFallback {
		e.table = e.table.WithFallback(e.fallback)
	}
	return e
}

// Extract runs t against src with a one-off Extractor
func Extract(t *template.Template, src string, opts ...Option) *Result {
	return New(opts...).Extract(t, src)
}

// Extract walks t over src and returns one entry per placeholder.
// Per-field failures never abort the walk.
func (e *Extractor) Extract(t *template.Template, src string) *Result {
	res, _, _ := e.match(t, src)
	return res
}

// match is the single-pass walk. It returns the result, the final cursor and
// whether every literal was found.
func (e *Extractor) match(t *template.Template, src string) (*Result, int, bool) {
	n := t.Len()
	res := newResult(n)
	cursor := 0
	broken := false

	for i := 0; i < n; i++ {
		seg := t.Segment(i)

		if seg.IsLiteral() {
			if broken {
				continue
			}
			at := indexFrom(src, cursor, seg.Text)
			if at < 0 {
				// Later placeholders cannot be located; earlier ones stay bound.
				broken = true
				continue
			}
			cursor = at + len(seg.Text)
			continue
		}

		if broken {
			res.add(e.missing(seg))
			continue
		}

		raw, next, ok := span(t, i, src, cursor)
		if !ok {
			res.add(e.missing(seg))
			continue
		}
		cursor = next
		res.add(e.bind(seg, raw))
	}

	return res, cursor, !broken
}

// span locates the raw text for the placeholder at index i.
// next is the cursor after binding: the start of the right anchor, so the
// anchor is consumed by the following literal step.
func span(t *template.Template, i int, src string, cursor int) (raw string, next int, ok bool) {
	if i+1 == t.Len() {
		raw = src[cursor:]
		return raw, len(src), raw != ""
	}

	right := t.Segment(i + 1)
	if !right.IsLiteral() {
		return "", cursor, false
	}

	at := indexFrom(src, cursor, right.Text)
	if at < 0 || at-cursor <= 0 {
		return "", cursor, false
	}
	return src[cursor:at], at, true
}

func (e *Extractor) bind(seg template.Segment, raw string) Field {
	value, status := e.table.Normalize(seg.Field.Type, raw)
	f := Field{
		Name:   seg.Field.Name,
		Type:   seg.Field.Type.String(),
		Value:  value,
		Status: status,
		Raw:    raw,
	}
	if status == normalize.StatusMissing {
		e.applyDefault(&f)
	}
	if seg.Child != nil {
		f.Nested = e.Extract(seg.Child, raw)
	}
	return f
}

func (e *Extractor) missing(seg template.Segment) Field {
	f := Field{
		Name:   seg.Field.Name,
		Type:   seg.Field.Type.String(),
		Value:  e.table.Fallback(),
		Status: normalize.StatusMissing,
	}
	e.applyDefault(&f)
	if seg.Child != nil {
		f.Nested = e.Extract(seg.Child, "")
	}
	return f
}

func (e *Extractor) applyDefault(f *Field) {
	if v, ok := e.defaults[f.Name]; ok {
		f.Value = v
		f.Status = normalize.StatusFallbackApplied
	}
}

// indexFrom finds sub in s at or after from, returning an absolute offset
func indexFrom(s string, from int, sub string) int {
	if from > len(s) {
		return -1
	}
	at := strings.Index(s[from:], sub)
	if at < 0 {
		return -1
	}
	return from + at
}
