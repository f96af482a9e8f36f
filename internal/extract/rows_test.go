package extract

import (
	"testing"

	"github.com/ppiankov/anchorx/internal/normalize"
	"github.com/ppiankov/anchorx/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(rows *Rows, name string) []string {
	var values []string
	for res := range rows.All() {
		values = append(values, res.Value(name))
	}
	return values
}

func TestExtractRepeated_Items(t *testing.T) {
	t.Parallel()

	rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "<li>a</li><li>b</li><li>c</li>")

	assert.Equal(t, []string{"a", "b", "c"}, collect(rows, "ITEM"))
	assert.False(t, rows.Next(), "no fourth row")
	assert.Nil(t, rows.Result())
}

func TestExtractRepeated_NotRestartable(t *testing.T) {
	t.Parallel()

	rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "<li>a</li><li>b</li>")

	require.Len(t, collect(rows, "ITEM"), 2)
	assert.Empty(t, collect(rows, "ITEM"))
}

func TestExtractRepeated_ForwardOnlyAfterBreak(t *testing.T) {
	t.Parallel()

	rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "<li>a</li><li>b</li><li>c</li>")

	for res := range rows.All() {
		assert.Equal(t, "a", res.Value("ITEM"))
		break
	}
	assert.Equal(t, 10, rows.Offset())

	require.True(t, rows.Next())
	assert.Equal(t, "b", rows.Result().Value("ITEM"))
}

func TestExtractRepeated_MultiFieldRows(t *testing.T) {
	t.Parallel()

	src := `<table>
<tr><td>apples</td><td>1,200</td></tr>
<tr><td>pears</td><td>35</td></tr>
</table>`
	rows := New(WithFallback("-")).ExtractRepeated(
		template.MustCompile("<tr><td>{{TEXT:NAME}}</td><td>{{NUMERIC:QTY}}</td></tr>"), src)

	var names, qty []string
	for res := range rows.All() {
		names = append(names, res.Value("NAME"))
		qty = append(qty, res.Value("QTY"))
	}
	assert.Equal(t, []string{"apples", "pears"}, names)
	assert.Equal(t, []string{"1200", "35"}, qty)
}

func TestExtractRepeated_Edges(t *testing.T) {
	t.Parallel()

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "<p>nothing</p>")
		assert.False(t, rows.Next())
	})

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "")
		assert.False(t, rows.Next())
	})

	t.Run("truncated last row degrades to missing", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile("<li>{{TEXT:ITEM}}</li>"), "<li>a</li><li>b")

		require.True(t, rows.Next())
		assert.Equal(t, "a", rows.Result().Value("ITEM"))
		require.True(t, rows.Next())
		f, _ := rows.Result().Get("ITEM")
		assert.Equal(t, normalize.StatusMissing, f.Status)
		assert.False(t, rows.Next())
	})

	t.Run("template without literals yields one row", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile("{{TEXT:ALL}}"), "abc")
		assert.Equal(t, []string{"abc"}, collect(rows, "ALL"))
	})

	t.Run("literal only template terminates", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile("x"), "xxxx")
		n := 0
		for rows.Next() {
			n++
		}
		assert.Equal(t, 4, n)
	})

	t.Run("empty template terminates", func(t *testing.T) {
		t.Parallel()

		rows := ExtractRepeated(template.MustCompile(""), "abc")
		assert.False(t, rows.Next())
	})
}

func TestExtractRepeated_NestedRows(t *testing.T) {
	t.Parallel()

	cell := template.MustCompile("<b>{{TEXT:KEY}}</b>={{TEXT:VAL}};")
	row, err := template.MustCompile("<row>{{TEXT:BODY}}</row>").WithChild("BODY", cell)
	require.NoError(t, err)

	rows := ExtractRepeated(row, "<row><b>a</b>=1;</row><row><b>b</b>=2;</row>")

	var keys, vals []string
	for res := range rows.All() {
		body, ok := res.Get("BODY")
		require.True(t, ok)
		require.NotNil(t, body.Nested)
		keys = append(keys, body.Nested.Value("KEY"))
		vals = append(vals, body.Nested.Value("VAL"))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, []string{"1", "2"}, vals)
}
