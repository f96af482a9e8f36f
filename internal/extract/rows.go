package extract

import (
	"iter"
	"strings"

	"github.com/ppiankov/anchorx/internal/template"
)

// Rows is a lazy, forward-only sequence of row results.
// Each row is matched against the source suffix left by the previous row.
// Once exhausted it stays exhausted.
type Rows struct {
	e       *Extractor
	t       *template.Template
	src     string
	offset  int
	lead    string
	hasLead bool
	cur     *Result
	done    bool
}

// ExtractRepeated applies a row template repeatedly with a one-off Extractor
func ExtractRepeated(t *template.Template, src string, opts ...Option) *Rows {
	return New(opts...).ExtractRepeated(t, src)
}

// ExtractRepeated returns an iterator over the rows of src matched by t
func (e *Extractor) ExtractRepeated(t *template.Template, src string) *Rows {
	lead, ok := t.FirstLiteral()
	return &Rows{
		e:       e,
		t:       t,
		src:     src,
		lead:    lead,
		hasLead: ok,
	}
}

// Next advances to the next row. It returns false when the row's leading
// literal no longer occurs in the unconsumed text or no progress is possible.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}

	suffix := r.src[r.offset:]
	if suffix == "" || (r.hasLead && !strings.Contains(suffix, r.lead)) {
		return r.stop()
	}

	res, end, _ := r.e.match(r.t, suffix)
	if end == 0 {
		return r.stop()
	}

	r.offset += end
	r.cur = res
	return true
}

// Result returns the row produced by the last successful Next
func (r *Rows) Result() *Result {
	return r.cur
}

// Offset returns how far into the source the rows have consumed
func (r *Rows) Offset() int {
	return r.offset
}

// All drains the iterator as a range-over-func sequence
func (r *Rows) All() iter.Seq[*Result] {
	return func(yield func(*Result) bool) {
		for r.Next() {
			if !yield(r.cur) {
				return
			}
		}
	}
}

func (r *Rows) stop() bool {
	r.done = true
	r.cur = nil
	return false
}
