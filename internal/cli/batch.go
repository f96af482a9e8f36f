package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/ppiankov/anchorx/internal/pipeline"
	"github.com/ppiankov/anchorx/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchFormat  string
	batchPattern string
	defaultTpl   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract from many sources listed in a file, in parallel",
	Long: `Batch reads one target per line, a source optionally followed by a
template name, and runs the extractions concurrently with per-host rate
limiting. Lines starting with # are ignored.

  https://example.com/a
  https://example.com/b   links
  ./saved/page.html       title

Each report is written to the output directory.

Example:
  anchorx batch targets.txt --template title
  anchorx batch targets.txt --concurrency 8 --output-dir ./reports --format json
  anchorx batch targets.txt --pattern '<h1>{{TEXT:HEADING}}</h1>'`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers (default from config when unset)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./anchorx-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "", "report format: text, json, yaml, markdown (default from config)")
	batchCmd.Flags().StringVarP(&defaultTpl, "template", "t", "", "template for lines that do not name one")
	batchCmd.Flags().StringVarP(&batchPattern, "pattern", "p", "", "inline pattern applied to every source")
	batchCmd.MarkFlagsMutuallyExclusive("template", "pattern")
	addFetchFlags(batchCmd.Flags())
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	stderr := cmd.ErrOrStderr()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	// set once the processor exists, before any fetch runs
	var limiter *worker.Limiter
	p, cfg, err := newPipeline(cmd, pipeline.WithCrawlDelay(func(host string, delay time.Duration) {
		if limiter != nil {
			limiter.LimitHost(host, delay)
		}
	}))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = batchFormat
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	renderer, err := pipeline.NewRenderer(cfg.Output.Format)
	if err != nil {
		return err
	}

	var runner worker.Runner = p
	lineTemplate := defaultTpl
	if batchPattern != "" {
		runner = worker.RunnerFunc(func(ctx context.Context, source, _ string) (*model.Report, error) {
			return p.RunInline(ctx, source, batchPattern, false)
		})
		lineTemplate = pipeline.InlineTemplate
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  anchorx batch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Rate limit:   %.1f req/s per host\n", cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	targets, err := worker.ReadTargetsFromFile(file, lineTemplate)
	if err != nil {
		return fmt.Errorf("read targets: %w", err)
	}
	if batchPattern != "" {
		for i := range targets {
			targets[i].Template = pipeline.InlineTemplate
		}
	}
	fmt.Fprintf(stderr, "✓ Loaded %d targets\n\n", len(targets))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(runner, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	limiter = processor.Limiter()
	results := processor.Process(ctx, targets)

	successCount, failureCount := 0, 0
	for _, res := range results {
		if res.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s [%s]: %v\n", res.Target.Source, res.Target.Template, res.Error)
			continue
		}

		name := sanitizeFilename(res.Target.Source) + "-" + sanitizeFilename(res.Target.Template) + renderer.Ext()
		if err := renderer.RenderFile(filepath.Join(outputDir, name), res.Report); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write report: %v\n", res.Target.Source, err)
			continue
		}

		successCount++
		s := res.Report.Summary
		fmt.Fprintf(stderr, "✓ %s [%s] %d row(s), %d/%d found (%v)\n",
			res.Target.Source, res.Target.Template, s.Rows, s.Found, s.Fields(), res.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d targets\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d targets failed", failureCount)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"://", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"&", "_",
	"=", "_",
	" ", "-",
)

// sanitizeFilename turns a source or template name into a safe file name
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = filenameReplacer.Replace(s)
	s = strings.Trim(s, "._-")
	if s == "" {
		s = "report"
	}

	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
