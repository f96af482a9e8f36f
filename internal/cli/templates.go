package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/ppiankov/anchorx/internal/registry"
	"github.com/ppiankov/anchorx/internal/template"
	"github.com/spf13/cobra"
)

// templatesCmd represents the templates command
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect configured templates",
	Long: `Inspect the named templates defined in the config file.

Templates live under the templates key:

  templates:
    price:
      pattern: '<span class="price">{{NUMERIC:PRICE}}</span>'
    specs:
      pattern: '<dl>{{TEXT:BODY}}</dl>'
      children:
        BODY: '<dt>{{TEXT:KEY}}</dt><dd>{{TEXT:VALUE}}</dd>'
      defaults:
        BODY: none`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := registry.New(cfg.Templates)
		if err != nil {
			return fmt.Errorf("compile templates: %w (run 'anchorx templates check' for details)", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMODE\tFIELDS\tDESCRIPTION")
		for _, name := range reg.Names() {
			entry, _ := reg.Get(name)
			mode := "single"
			if entry.Rows {
				mode = "rows"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, mode, fieldList(entry.Template), entry.Description)
		}
		return tw.Flush()
	},
}

var templatesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile every template and report errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return checkTemplates(cmd, cfg.Templates)
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template's canonical pattern and fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		spec, ok := cfg.Templates[args[0]]
		if !ok {
			return fmt.Errorf("unknown template %q", args[0])
		}
		entry, err := registry.Compile(args[0], spec)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:     %s\n", entry.Name)
		if entry.Description != "" {
			fmt.Fprintf(out, "About:    %s\n", entry.Description)
		}
		fmt.Fprintf(out, "Rows:     %v\n", entry.Rows)
		fmt.Fprintf(out, "Pattern:  %s\n", entry.Template)
		fmt.Fprintln(out, "Fields:")
		writeFieldTree(cmd, entry.Template, entry.Defaults, "  ")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesCheckCmd)
	templatesCmd.AddCommand(templatesShowCmd)
}

// checkTemplates compiles each template separately so every failure is shown
func checkTemplates(cmd *cobra.Command, specs map[string]model.TemplateSpec) error {
	out := cmd.OutOrStdout()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		entry, err := registry.Compile(name, specs[name])
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(out, "✗ %s\n", err)
			var se *template.SyntaxError
			if errors.As(err, &se) && se.Offset >= 0 {
				fmt.Fprintf(out, "    %s\n    %s^\n", se.Input, strings.Repeat(" ", se.Offset))
			}
			continue
		}
		fmt.Fprintf(out, "✓ %s (%d field(s))\n", name, len(entry.Template.Fields()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d template(s) failed to compile", len(errs), len(specs))
	}
	return nil
}

func fieldList(t *template.Template) string {
	fields := t.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

func writeFieldTree(cmd *cobra.Command, t *template.Template, defaults map[string]string, indent string) {
	out := cmd.OutOrStdout()
	for _, seg := range t.Segments() {
		if seg.IsLiteral() {
			continue
		}
		line := indent + seg.Field.String()
		if d, ok := defaults[seg.Field.Name]; ok {
			line += fmt.Sprintf(" (default %q)", d)
		}
		fmt.Fprintln(out, line)
		if seg.Child != nil {
			writeFieldTree(cmd, seg.Child, nil, indent+"  ")
		}
	}
}
