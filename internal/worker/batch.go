package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/anchorx/internal/model"
)

// Runner applies a named template to a source
type Runner interface {
	Run(ctx context.Context, source, template string) (*model.Report, error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, source, template string) (*model.Report, error)

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, source, template string) (*model.Report, error) {
	return f(ctx, source, template)
}

// Target is one source/template pair of a batch
type Target struct {
	Source   string
	Template string
}

// ExtractJob runs one target through a Runner
type ExtractJob struct {
	Target  Target
	Runner  Runner
	Limiter *Limiter
}

// Run waits for the host's rate limit and runs the extraction
func (j *ExtractJob) Run(ctx context.Context) Result {
	start := time.Now()
	res := &JobResult{Target: j.Target}
	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Target.Source); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	res.Report, res.Error = j.Runner.Run(ctx, j.Target.Source, j.Target.Template)
	res.Duration = time.Since(start)
	return res
}

// JobResult is the outcome of an ExtractJob
type JobResult struct {
	Target   Target
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// Err returns the extraction error, if any
func (r *JobResult) Err() error {
	return r.Error
}

// BatchProcessor extracts many targets concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. A non-positive requestsPerSecond
// disables rate limiting.
func NewBatchProcessor(runner Runner, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// Limiter returns the per-host limiter, or nil when rate limiting is off
func (b *BatchProcessor) Limiter() *Limiter {
	return b.limiter
}

// Process runs every target and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, targets []Target) []*JobResult {
	if len(targets) == 0 {
		return []*JobResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// accepted[k] is the target index of the k-th accepted job
	accepted := make([]int, 0, len(targets))
	for i, t := range targets {
		if pool.Submit(&ExtractJob{Target: t, Runner: b.runner, Limiter: b.limiter}) {
			accepted = append(accepted, i)
		}
	}

	out := make([]*JobResult, len(targets))
	for k, res := range pool.Wait() {
		if res != nil {
			out[accepted[k]] = res.(*JobResult)
		}
	}

	for i, t := range targets {
		if out[i] != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &JobResult{Target: t, Error: fmt.Errorf("not run: %w", err)}
	}
	return out
}

// ProcessFile reads targets from a file and runs them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path, defaultTemplate string) ([]*JobResult, error) {
	targets, err := ReadTargetsFromFile(path, defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return b.Process(ctx, targets), nil
}

// ReadTargetsFromFile parses one target per line: a source optionally
// followed by a template name. Blank lines and lines starting with # are
// skipped and repeated targets are dropped.
func ReadTargetsFromFile(path, defaultTemplate string) ([]Target, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var targets []Target
	seen := make(map[Target]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		t := Target{Source: fields[0], Template: defaultTemplate}
		switch len(fields) {
		case 1:
		case 2:
			t.Template = fields[1]
		default:
			return nil, fmt.Errorf("line %d: expected \"<source> [template]\", got %q", lineNo, line)
		}
		if t.Template == "" {
			return nil, fmt.Errorf("line %d: no template for %s", lineNo, t.Source)
		}

		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return targets, nil
}
