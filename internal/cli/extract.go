package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/ppiankov/anchorx/internal/pipeline"
	"github.com/ppiankov/anchorx/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// errIncomplete is returned under --strict when a field was not found
var errIncomplete = errors.New("extraction incomplete")

var (
	templateName string
	pattern      string
	asRows       bool
	format       string
	outPath      string
	fallback     string
	strict       bool
	timeout      time.Duration
	userAgent    string
	noCache      bool
	noRobots     bool
	insecureTLS  bool
	httpProxy    string
	httpsProxy   string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <source>",
	Short: "Apply a template to a URL, file or stdin",
	Long: `Extract loads a document and applies one template to it.

The source is an http(s) URL, a local file, or - for stdin. The template is
either a name from the config file (--template) or an inline pattern
(--pattern).

Example:
  anchorx extract https://example.com --template title
  anchorx extract page.html --pattern '<b>{{NUMERIC:TOTAL}}</b>' --format json
  cat app.log | anchorx extract - -p 'user={{TEXT:USER}} ' --rows`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args[0], asRows)
	},
}

// rowsCmd represents the rows command
var rowsCmd = &cobra.Command{
	Use:   "rows <source>",
	Short: "Apply a template repeatedly, one result per match",
	Long: `Rows applies a template over and over, each match starting where the
previous one ended, until the template no longer matches.

Example:
  anchorx rows page.html --pattern '<li>{{TEXT:ITEM}}</li>'
  anchorx rows https://example.com --template links --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(rowsCmd)

	for _, cmd := range []*cobra.Command{extractCmd, rowsCmd} {
		cmd.Flags().StringVarP(&templateName, "template", "t", "", "name of a configured template")
		cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "inline template pattern")
		cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text, json, yaml, markdown (default from config)")
		cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
		cmd.Flags().StringVar(&fallback, "fallback", "", "value for fields that cannot be located (default from config)")
		cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error unless every field is found")
		cmd.MarkFlagsMutuallyExclusive("template", "pattern")
		addFetchFlags(cmd.Flags())
	}
	extractCmd.Flags().BoolVar(&asRows, "rows", false, "apply the pattern repeatedly (inline patterns only)")
}

// addFetchFlags registers the flags shared by every command that loads documents
func addFetchFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	fs.StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	fs.BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	fs.BoolVar(&noRobots, "no-robots", false, "ignore robots.txt")
	fs.BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	fs.StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fs.StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFetchFlags copies explicitly set flags over the loaded configuration
func applyFetchFlags(fs *pflag.FlagSet, cfg *model.Config) {
	if fs.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if fs.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
}

// newPipeline loads configuration, applies flags and compiles the registry
func newPipeline(cmd *cobra.Command, opts ...pipeline.Option) (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	applyFetchFlags(cmd.Flags(), cfg)
	if cmd.Flags().Changed("fallback") {
		cfg.Extraction.Fallback = fallback
	}

	reg, err := registry.New(cfg.Templates)
	if err != nil {
		return nil, nil, fmt.Errorf("compile templates: %w", err)
	}

	opts = append([]pipeline.Option{
		pipeline.WithLogger(newLogger(cmd.ErrOrStderr(), cfg.Output.Verbose)),
		pipeline.WithStdin(cmd.InOrStdin()),
	}, opts...)
	return pipeline.NewPipeline(cfg, reg, opts...), cfg, nil
}

func runExtract(cmd *cobra.Command, source string, rows bool) error {
	if templateName == "" && pattern == "" {
		return fmt.Errorf("one of --template or --pattern is required")
	}

	p, cfg, err := newPipeline(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = format
	}

	renderer, err := pipeline.NewRenderer(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTP.Timeout*time.Duration(cfg.HTTP.MaxRetries+2))
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Source: %s\n", source)
		fmt.Fprintf(cmd.ErrOrStderr(), "Cache: %v\n", cfg.Cache.Enabled)
	}

	var report *model.Report
	if pattern != "" {
		report, err = p.RunInline(ctx, source, pattern, rows)
	} else {
		report, err = runNamed(ctx, p, source, templateName, rows)
	}
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	if outPath != "" {
		if err := renderer.RenderFile(outPath, report); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s\n", outPath)
	} else if err := renderer.Render(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if strict && report.Summary.Found < report.Summary.Fields() {
		return fmt.Errorf("%w: %d of %d field(s) found", errIncomplete, report.Summary.Found, report.Summary.Fields())
	}
	return nil
}

// runNamed applies a registered template, forcing row mode when asked
func runNamed(ctx context.Context, p *pipeline.Pipeline, source, name string, rows bool) (*model.Report, error) {
	entry, ok := p.Registry().Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownTemplate, name)
	}
	if rows && !entry.Rows {
		forced := *entry
		forced.Rows = true
		entry = &forced
	}

	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Apply(doc, entry), nil
}
