package template

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every *SyntaxError via errors.Is
var ErrSyntax = errors.New("template syntax error")

// SyntaxError reports a malformed template or placeholder.
// Offset is the byte position in the template string, or -1 when unknown.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("template syntax error at offset %d: %s", e.Offset, e.Msg)
	}
	return "template syntax error: " + e.Msg
}

// Is makes errors.Is(err, ErrSyntax) succeed
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
