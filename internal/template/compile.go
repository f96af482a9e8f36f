package template

import (
	"fmt"
	"strings"
)

const (
	openMarker  = "{{"
	closeMarker = "}}"
)

// SegmentKind tells literal segments from placeholders
type SegmentKind int

const (
	LiteralSegment SegmentKind = iota
	PlaceholderSegment
)

// Segment is one unit of a Template.
// Text is set for literals; Field (and optionally Child) for placeholders.
type Segment struct {
	Kind  SegmentKind
	Text  string
	Field Field
	Child *Template
}

// IsLiteral reports whether the segment is literal text
func (s Segment) IsLiteral() bool {
	return s.Kind == LiteralSegment
}

// Template is a compiled, immutable sequence of segments
type Template struct {
	segments []Segment
}

// Compile parses a template string into a Template.
// Text outside {{TYPE:NAME}} markers is literal and matched byte-for-byte.
func Compile(s string) (*Template, error) {
	var (
		segments []Segment
		literal  strings.Builder
		seen     = make(map[string]bool)
	)

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Segment{Kind: LiteralSegment, Text: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	for i < len(s) {
		rest := s[i:]
		open := strings.Index(rest, openMarker)
		closing := strings.Index(rest, closeMarker)

		if closing >= 0 && (open < 0 || closing < open) {
			return nil, &SyntaxError{Input: s, Offset: i + closing, Msg: "unbalanced '}}' outside a placeholder"}
		}
		if open < 0 {
			literal.WriteString(rest)
			break
		}

		literal.WriteString(rest[:open])
		start := i + open
		bodyStart := start + len(openMarker)

		end := strings.Index(s[bodyStart:], closeMarker)
		if end < 0 {
			return nil, &SyntaxError{Input: s, Offset: start, Msg: "unterminated placeholder"}
		}
		body := s[bodyStart : bodyStart+end]
		if strings.ContainsAny(body, "{}") {
			return nil, &SyntaxError{Input: s, Offset: start, Msg: "unbalanced braces in placeholder"}
		}

		field, err := ParseField(body)
		if err != nil {
			se := err.(*SyntaxError)
			se.Input = s
			se.Offset = start
			return nil, se
		}
		if seen[field.Name] {
			return nil, &SyntaxError{Input: s, Offset: start, Msg: fmt.Sprintf("duplicate field name %q", field.Name)}
		}
		seen[field.Name] = true

		flush()
		segments = append(segments, Segment{Kind: PlaceholderSegment, Field: field})
		i = bodyStart + end + len(closeMarker)
	}
	flush()

	return &Template{segments: segments}, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(s string) *Template {
	t, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of segments
func (t *Template) Len() int {
	return len(t.segments)
}

// Segment returns the i-th segment
func (t *Template) Segment(i int) Segment {
	return t.segments[i]
}

// Segments returns a copy of the segment sequence
func (t *Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Fields returns the placeholder descriptors in template order
func (t *Template) Fields() []Field {
	var fields []Field
	for _, seg := range t.segments {
		if seg.Kind == PlaceholderSegment {
			fields = append(fields, seg.Field)
		}
	}
	return fields
}

// FirstLiteral returns the first literal segment's text, if any
func (t *Template) FirstLiteral() (string, bool) {
	for _, seg := range t.segments {
		if seg.Kind == LiteralSegment {
			return seg.Text, true
		}
	}
	return "", false
}

// WithChild returns a copy of t in which the placeholder called name owns child.
// t itself is left untouched.
func (t *Template) WithChild(name string, child *Template) (*Template, error) {
	if child == nil {
		return nil, fmt.Errorf("child template for %q is nil", name)
	}

	segments := t.Segments()
	for i := range segments {
		if segments[i].Kind == PlaceholderSegment && segments[i].Field.Name == name {
			segments[i].Child = child
			return &Template{segments: segments}, nil
		}
	}

	return nil, fmt.Errorf("no placeholder named %q", name)
}

// String returns the canonical textual form of the top level.
// Child templates are not part of the flat form.
func (t *Template) String() string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.Kind == LiteralSegment {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(openMarker)
		b.WriteString(seg.Field.String())
		b.WriteString(closeMarker)
	}
	return b.String()
}

// Equal reports whether both templates have the same segment tree
func (t *Template) Equal(o *Template) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.segments) != len(o.segments) {
		return false
	}
	for i, a := range t.segments {
		b := o.segments[i]
		if a.Kind != b.Kind || a.Text != b.Text || a.Field != b.Field {
			return false
		}
		if !a.Child.Equal(b.Child) {
			return false
		}
	}
	return true
}
