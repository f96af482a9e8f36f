package extract

import (
	"bytes"
	"encoding/json"

	"github.com/ppiankov/anchorx/internal/normalize"
)

// Field is one extracted value
type Field struct {
	Name   string           `json:"-"`
	Type   string           `json:"type"`
	Value  string           `json:"value"`
	Status normalize.Status `json:"status"`
	Raw    string           `json:"raw,omitempty"`    // Span as it appeared in the source
	Nested *Result          `json:"nested,omitempty"` // Set when the placeholder owns a child template
}

// OK reports whether the field was located and normalized cleanly
func (f Field) OK() bool {
	return f.Status == normalize.StatusFound
}

// Result is an ordered name -> field mapping.
// Order follows placeholder order in the template.
type Result struct {
	fields []Field
	index  map[string]int
}

func newResult(capacity int) *Result {
	return &Result{
		fields: make([]Field, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (r *Result) add(f Field) {
	r.index[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Fields returns a copy of the fields in template order
func (r *Result) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields
func (r *Result) Len() int {
	return len(r.fields)
}

// Get looks a field up by name
func (r *Result) Get(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Value returns the value of the named field, or "" when absent
func (r *Result) Value(name string) string {
	f, _ := r.Get(name)
	return f.Value
}

// Names returns field names in template order
func (r *Result) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Count returns how many fields have the given status
func (r *Result) Count(status normalize.Status) int {
	n := 0
	for _, f := range r.fields {
		if f.Status == status {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the result as a JSON object keeping template order
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
