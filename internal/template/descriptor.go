package template

import (
	"fmt"
	"strings"
)

// Kind enumerates the field types the normalizer knows about
type Kind int

const (
	KindCustom  Kind = iota // Caller-defined tag, see FieldType.Tag
	KindNumeric             // NUMERIC
	KindText                // TEXT
)

// FieldType is the declared type of a placeholder.
// Unknown type tokens compile to a Custom type carrying the raw token.
type FieldType struct {
	Kind Kind
	Tag  string // raw token for KindCustom, canonical token otherwise
}

// Known type tokens (case-sensitive)
const (
	TokenNumeric = "NUMERIC"
	TokenText    = "TEXT"
)

var (
	Numeric = FieldType{Kind: KindNumeric, Tag: TokenNumeric}
	Text    = FieldType{Kind: KindText, Tag: TokenText}
)

// Custom returns the FieldType for a caller-defined tag
func Custom(tag string) FieldType {
	return FieldType{Kind: KindCustom, Tag: tag}
}

// String returns the token as written in a template
func (t FieldType) String() string {
	return t.Tag
}

// IsCustom reports whether t is a Custom type
func (t FieldType) IsCustom() bool {
	return t.Kind == KindCustom
}

// typeFromToken maps a TYPE token to its FieldType
func typeFromToken(tok string) FieldType {
	switch tok {
	case TokenNumeric:
		return Numeric
	case TokenText:
		return Text
	default:
		return Custom(tok)
	}
}

// Field is the (type, name) pair declared by one placeholder
type Field struct {
	Type FieldType
	Name string
}

// String renders the placeholder body, e.g. NUMERIC:PRICE
func (f Field) String() string {
	return f.Type.String() + ":" + f.Name
}

// ParseField parses the inner text of a placeholder (TYPE:NAME).
// The split happens on the first colon.
func ParseField(inner string) (Field, error) {
	typ, name, ok := strings.Cut(inner, ":")
	if !ok {
		return Field{}, &SyntaxError{Input: inner, Offset: -1, Msg: "missing ':' separator in placeholder"}
	}
	if name == "" {
		return Field{}, &SyntaxError{Input: inner, Offset: -1, Msg: "empty field name"}
	}
	if !isToken(typ) {
		return Field{}, &SyntaxError{Input: inner, Offset: -1, Msg: fmt.Sprintf("invalid field type %q", typ)}
	}
	if !isToken(name) {
		return Field{}, &SyntaxError{Input: inner, Offset: -1, Msg: fmt.Sprintf("invalid field name %q", name)}
	}

	return Field{Type: typeFromToken(typ), Name: name}, nil
}

// isToken reports whether s is a non-empty run of [A-Za-z0-9_]
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
