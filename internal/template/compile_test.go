package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		inner   string
		want    Field
		wantErr bool
	}{
		{name: "numeric", inner: "NUMERIC:PRICE", want: Field{Type: Numeric, Name: "PRICE"}},
		{name: "text", inner: "TEXT:title_1", want: Field{Type: Text, Name: "title_1"}},
		{name: "unknown type becomes custom", inner: "DATE:when", want: Field{Type: Custom("DATE"), Name: "when"}},
		{name: "type match is case sensitive", inner: "numeric:x", want: Field{Type: Custom("numeric"), Name: "x"}},
		{name: "missing separator", inner: "NUMERIC", wantErr: true},
		{name: "empty name", inner: "TEXT:", wantErr: true},
		{name: "empty type", inner: ":NAME", wantErr: true},
		{name: "second colon stays in name", inner: "TEXT:a:b", wantErr: true},
		{name: "space in name", inner: "TEXT:a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseField(tt.inner)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSyntax)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	t.Run("splits literals and placeholders", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile("<a>{{NUMERIC:X}}</a>")
		require.NoError(t, err)
		require.Equal(t, 3, tpl.Len())

		assert.Equal(t, Segment{Kind: LiteralSegment, Text: "<a>"}, tpl.Segment(0))
		assert.Equal(t, Segment{Kind: PlaceholderSegment, Field: Field{Type: Numeric, Name: "X"}}, tpl.Segment(1))
		assert.Equal(t, Segment{Kind: LiteralSegment, Text: "</a>"}, tpl.Segment(2))
	})

	t.Run("keeps whitespace verbatim", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile("  <td> {{TEXT:A}}\n</td>")
		require.NoError(t, err)
		assert.Equal(t, "  <td> ", tpl.Segment(0).Text)
		assert.Equal(t, "\n</td>", tpl.Segment(2).Text)
	})

	t.Run("pure literal is valid", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile("<html>")
		require.NoError(t, err)
		assert.Equal(t, 1, tpl.Len())
		assert.Empty(t, tpl.Fields())
	})

	t.Run("empty string is valid", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile("")
		require.NoError(t, err)
		assert.Equal(t, 0, tpl.Len())
	})

	t.Run("adjacent placeholders", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile("{{TEXT:A}}{{TEXT:B}}")
		require.NoError(t, err)
		require.Equal(t, 2, tpl.Len())
		assert.Equal(t, []Field{{Type: Text, Name: "A"}, {Type: Text, Name: "B"}}, tpl.Fields())
	})

	t.Run("single braces are literal", func(t *testing.T) {
		t.Parallel()

		tpl, err := Compile(`{"a": {{NUMERIC:A}}}`)
		require.NoError(t, err)
		assert.Equal(t, `{"a": `, tpl.Segment(0).Text)
		assert.Equal(t, "}", tpl.Segment(2).Text)
	})
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		offset int
	}{
		{name: "unterminated", input: "{{NUMERIC:X", offset: 0},
		{name: "unterminated after literal", input: "<a>{{TEXT:X</a>", offset: 3},
		{name: "stray close", input: "<a>}}</a>", offset: 3},
		{name: "nested open", input: "{{TEXT:{{TEXT:A}}", offset: 0},
		{name: "missing separator", input: "<b>{{PRICE}}</b>", offset: 3},
		{name: "empty name", input: "{{TEXT:}}", offset: 0},
		{name: "duplicate name", input: "{{TEXT:A}},{{NUMERIC:A}}", offset: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tpl, err := Compile(tt.input)
			require.Error(t, err)
			assert.Nil(t, tpl)
			assert.ErrorIs(t, err, ErrSyntax)

			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.offset, se.Offset)
			assert.Equal(t, tt.input, se.Input)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustCompile("{{NUMERIC:X") })
	assert.NotPanics(t, func() { MustCompile("{{NUMERIC:X}}") })
}

func TestTemplate_RoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<a>{{NUMERIC:X}}</a>",
		"{{TEXT:A}}{{TEXT:B}}",
		"<li>{{TEXT:ITEM}}</li>",
		"price: {{NUMERIC:P}} ({{CURRENCY:C}})",
		"no placeholders at all",
		"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			first := MustCompile(in)
			assert.Equal(t, in, first.String())

			second, err := Compile(first.String())
			require.NoError(t, err)
			assert.True(t, first.Equal(second))
			assert.Equal(t, first.Segments(), second.Segments())
		})
	}
}

func TestTemplate_WithChild(t *testing.T) {
	t.Parallel()

	parent := MustCompile("<tr>{{TEXT:ROW}}</tr>")
	child := MustCompile("<td>{{TEXT:A}}</td>")

	t.Run("attaches child to named placeholder", func(t *testing.T) {
		t.Parallel()

		nested, err := parent.WithChild("ROW", child)
		require.NoError(t, err)
		assert.Same(t, child, nested.Segment(1).Child)
		assert.Nil(t, parent.Segment(1).Child, "receiver must not change")
		assert.False(t, parent.Equal(nested))
		assert.Equal(t, parent.String(), nested.String())
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()

		_, err := parent.WithChild("NOPE", child)
		assert.Error(t, err)
	})

	t.Run("nil child", func(t *testing.T) {
		t.Parallel()

		_, err := parent.WithChild("ROW", nil)
		assert.Error(t, err)
	})
}

func TestTemplate_FirstLiteral(t *testing.T) {
	t.Parallel()

	lit, ok := MustCompile("{{TEXT:A}}|{{TEXT:B}};").FirstLiteral()
	assert.True(t, ok)
	assert.Equal(t, "|", lit)

	_, ok = MustCompile("{{TEXT:A}}").FirstLiteral()
	assert.False(t, ok)
}
