package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/anchorx/internal/extract"
	"github.com/ppiankov/anchorx/internal/model"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Formats lists every supported output format
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatMarkdown}

// Renderer writes reports in one of the supported formats
type Renderer struct {
	format string
}

// NewRenderer returns a renderer for format
func NewRenderer(format string) (*Renderer, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML, FormatMarkdown:
		return &Renderer{format: format}, nil
	case "md":
		return &Renderer{format: FormatMarkdown}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// Ext returns the file extension for the renderer's format
func (r *Renderer) Ext() string {
	switch r.format {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Render writes report to w
func (r *Renderer) Render(w io.Writer, report *model.Report) error {
	switch r.format {
	case FormatJSON:
		return renderJSON(w, report)
	case FormatYAML:
		return renderYAML(w, report)
	case FormatMarkdown:
		return renderMarkdown(w, report)
	default:
		return renderText(w, report)
	}
}

// RenderFile writes report to path, creating parent directories
func (r *Renderer) RenderFile(path string, report *model.Report) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", closeErr)
		}
	}()

	return r.Render(f, report)
}

func renderJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// yamlReport mirrors model.Report with results as order-preserving nodes
type yamlReport struct {
	model.Report `yaml:",inline"`
	Results      []*yaml.Node `yaml:"results"`
}

func renderYAML(w io.Writer, report *model.Report) error {
	out := yamlReport{Report: *report}
	for _, res := range report.Results {
		out.Results = append(out.Results, resultNode(res))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

func resultNode(res *extract.Result) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range res.Fields() {
		field := &yaml.Node{Kind: yaml.MappingNode}
		field.Content = append(field.Content,
			scalar("value"), scalar(f.Value),
			scalar("status"), scalar(string(f.Status)),
		)
		if f.Nested != nil {
			field.Content = append(field.Content, scalar("nested"), resultNode(f.Nested))
		}
		node.Content = append(node.Content, scalar(f.Name), field)
	}
	return node
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func renderMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Template)
	fmt.Fprintf(&b, "- Source: %s\n", report.Source)
	fmt.Fprintf(&b, "- Pattern: `%s`\n", strings.ReplaceAll(report.Pattern, "`", "'"))
	fmt.Fprintf(&b, "- Fetched: %s\n", report.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Rows: %d, found: %d, missing: %d\n\n", report.Summary.Rows, report.Summary.Found, report.Summary.Missing)

	if len(report.Results) > 0 {
		names := report.Results[0].Names()
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(names)) + "\n")

		for _, res := range report.Results {
			cells := make([]string, len(names))
			for i, name := range names {
				f, _ := res.Get(name)
				cells[i] = markdownCell(f)
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func markdownCell(f extract.Field) string {
	v := strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(f.Value)
	if !f.OK() {
		v += " _(" + string(f.Status) + ")_"
	}
	return v
}

func renderText(w io.Writer, report *model.Report) error {
	var b strings.Builder

	for i, res := range report.Results {
		if report.Rows {
			fmt.Fprintf(&b, "# row %d\n", i+1)
		}
		writeFields(&b, res, "")
	}
	fmt.Fprintf(&b, "-- %s: %d row(s), %d found, %d missing, %d fallback, %d type mismatch\n",
		report.Template, report.Summary.Rows, report.Summary.Found, report.Summary.Missing,
		report.Summary.FallbackApplied, report.Summary.TypeMismatch)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeFields(b *strings.Builder, res *extract.Result, indent string) {
	for _, f := range res.Fields() {
		if f.OK() {
			fmt.Fprintf(b, "%s%s = %s\n", indent, f.Name, f.Value)
		} else {
			fmt.Fprintf(b, "%s%s = %s [%s]\n", indent, f.Name, f.Value, f.Status)
		}
		if f.Nested != nil {
			writeFields(b, f.Nested, indent+"  ")
		}
	}
}
