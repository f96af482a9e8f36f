package normalize

import (
	"errors"
	"testing"

	"github.com/ppiankov/anchorx/internal/template"
	"github.com/stretchr/testify/assert"
)

func TestTable_Normalize(t *testing.T) {
	t.Parallel()

	failing := func(string) (string, error) { return "", errors.New("bad input") }
	table := NewTable("--", map[string]Handler{
		"UPPER": Upper,
		"FAIL":  failing,
		"NIL":   nil,
	})

	tests := []struct {
		name       string
		ft         template.FieldType
		raw        string
		wantValue  string
		wantStatus Status
	}{
		{name: "numeric strips grouping", ft: template.Numeric, raw: "1,234", wantValue: "1234", wantStatus: StatusFound},
		{name: "numeric trims", ft: template.Numeric, raw: "  -12.50 \n", wantValue: "-12.50", wantStatus: StatusFound},
		{name: "numeric leading dot", ft: template.Numeric, raw: ".5", wantValue: ".5", wantStatus: StatusFound},
		{name: "numeric signed", ft: template.Numeric, raw: "+7", wantValue: "+7", wantStatus: StatusFound},
		{name: "numeric mismatch keeps cleaned", ft: template.Numeric, raw: " 1,234 USD", wantValue: "1234 USD", wantStatus: StatusTypeMismatch},
		{name: "numeric rejects exponent", ft: template.Numeric, raw: "1e5", wantValue: "1e5", wantStatus: StatusTypeMismatch},
		{name: "numeric whitespace only", ft: template.Numeric, raw: "   ", wantValue: "", wantStatus: StatusTypeMismatch},
		{name: "text trims", ft: template.Text, raw: "  hello world\t", wantValue: "hello world", wantStatus: StatusFound},
		{name: "custom handler", ft: template.Custom("UPPER"), raw: " abc ", wantValue: "ABC", wantStatus: StatusFound},
		{name: "custom unregistered passthrough", ft: template.Custom("DATE"), raw: " 2024-01-01 ", wantValue: " 2024-01-01 ", wantStatus: StatusFound},
		{name: "nil handler is ignored", ft: template.Custom("NIL"), raw: "x", wantValue: "x", wantStatus: StatusFound},
		{name: "custom handler error", ft: template.Custom("FAIL"), raw: "x", wantValue: "--", wantStatus: StatusFallbackApplied},
		{name: "empty numeric", ft: template.Numeric, raw: "", wantValue: "--", wantStatus: StatusMissing},
		{name: "empty text", ft: template.Text, raw: "", wantValue: "--", wantStatus: StatusMissing},
		{name: "empty custom bypasses handler", ft: template.Custom("UPPER"), raw: "", wantValue: "--", wantStatus: StatusMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			value, status := table.Normalize(tt.ft, tt.raw)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestTable_Fallback(t *testing.T) {
	t.Parallel()

	table := Default()
	assert.Equal(t, DefaultFallback, table.Fallback())
	assert.False(t, table.Has("HTML"))

	other := table.WithFallback("?")
	assert.Equal(t, "?", other.Fallback())
	assert.Equal(t, DefaultFallback, table.Fallback(), "original table must not change")
}

func TestBuiltinHandlers(t *testing.T) {
	t.Parallel()

	got, err := HTMLText("  Fish &amp; Chips\n\t&lt;3  ")
	assert.NoError(t, err)
	assert.Equal(t, "Fish & Chips <3", got)

	got, err = Lower(" MiXeD ")
	assert.NoError(t, err)
	assert.Equal(t, "mixed", got)

	table := NewTable(DefaultFallback, Builtin())
	for _, tag := range []string{"HTML", "UPPER", "LOWER"} {
		assert.True(t, table.Has(tag), tag)
	}
}
