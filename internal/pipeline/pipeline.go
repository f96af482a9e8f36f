package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/ppiankov/anchorx/internal/cache"
	"github.com/ppiankov/anchorx/internal/extract"
	"github.com/ppiankov/anchorx/internal/model"
	"github.com/ppiankov/anchorx/internal/normalize"
	"github.com/ppiankov/anchorx/internal/registry"
	"github.com/ppiankov/anchorx/internal/template"
	"github.com/ppiankov/anchorx/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// ErrUnknownTemplate is returned for names missing from the registry
var ErrUnknownTemplate = errors.New("unknown template")

// InlineTemplate is the report name used for ad hoc patterns
const InlineTemplate = "inline"

// Pipeline loads documents and applies registered templates to them
type Pipeline struct {
	fetcher  *Fetcher
	robots   *util.RobotsPolicy // nil when robots.txt is ignored
	cache    cache.Cache
	registry *registry.Registry
	table    *normalize.Table
	config   *model.Config
	logger   *slog.Logger
	stdin    io.Reader
	now      func() time.Time

	onCrawlDelay func(host string, delay time.Duration)
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLogger sets the diagnostics logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCache replaces the cache built from config
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithStdin sets the reader used for the "-" source
func WithStdin(r io.Reader) Option {
	return func(p *Pipeline) { p.stdin = r }
}

// WithCrawlDelay registers fn to receive robots.txt crawl delays per host
func WithCrawlDelay(fn func(host string, delay time.Duration)) Option {
	return func(p *Pipeline) { p.onCrawlDelay = fn }
}

// NewPipeline wires a pipeline from configuration and a compiled registry
func NewPipeline(cfg *model.Config, reg *registry.Registry, opts ...Option) *Pipeline {
	fetcher := NewFetcher(cfg.HTTP)

	p := &Pipeline{
		fetcher:  fetcher,
		cache:    cache.New(cfg.Cache),
		registry: reg,
		table:    normalize.NewTable(cfg.Extraction.Fallback, normalize.Builtin()),
		config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:    os.Stdin,
		now:      time.Now,
	}
	if cfg.HTTP.RespectRobots {
		p.robots = util.NewRobotsPolicy(fetcher.Client(), cfg.HTTP.UserAgent)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the template registry
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// Document is a loaded source body
type Document struct {
	Source    string
	Body      string
	Meta      model.FetchMeta
	FetchedAt time.Time
}

// Load reads a document from a URL, a file path, or stdin ("-")
func (p *Pipeline) Load(ctx context.Context, source string) (*Document, error) {
	if source == "-" {
		data, err := io.ReadAll(p.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Document{Source: source, Body: string(data), Meta: model.FetchMeta{Bytes: len(data)}, FetchedAt: p.now().UTC()}, nil
	}

	if !isRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return &Document{Source: source, Body: string(data), Meta: model.FetchMeta{Bytes: len(data)}, FetchedAt: p.now().UTC()}, nil
	}

	return p.fetch(ctx, source)
}

func (p *Pipeline) fetch(ctx context.Context, rawURL string) (*Document, error) {
	key := cache.Key(rawURL)
	if data, ok := p.cache.Get(key); ok {
		var doc Document
		if err := json.Unmarshal(data, &doc); err == nil {
			doc.Meta.FromCache = true
			p.logger.Debug("cache hit", "url", rawURL, "bytes", len(doc.Body))
			return &doc, nil
		}
		_ = p.cache.Delete(key)
	}

	if p.robots != nil {
		allowed, delay, err := p.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 && p.onCrawlDelay != nil {
			if u, err := url.Parse(rawURL); err == nil {
				p.logger.Debug("crawl delay", "host", u.Hostname(), "delay", delay)
				p.onCrawlDelay(u.Hostname(), delay)
			}
		}
	}

	start := p.now()
	res, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		p.logger.Warn("fetch failed", "url", rawURL, "err", err)
		return nil, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Info("fetch", "url", res.FinalURL, "bytes", res.Meta.Bytes, "duration", p.now().Sub(start))

	doc := &Document{
		Source:    res.FinalURL,
		Body:      res.Body,
		Meta:      res.Meta,
		FetchedAt: p.now().UTC(),
	}

	if data, err := json.Marshal(doc); err == nil {
		if err := p.cache.Set(key, data, 0); err != nil {
			p.logger.Warn("cache write failed", "url", rawURL, "err", err)
		}
	}
	return doc, nil
}

// Run loads source and applies the named template
func (p *Pipeline) Run(ctx context.Context, source, templateName string) (*model.Report, error) {
	entry, ok := p.registry.Get(templateName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateName)
	}

	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Apply(doc, entry), nil
}

// RunInline compiles pattern and applies it to source
func (p *Pipeline) RunInline(ctx context.Context, source, pattern string, rows bool) (*model.Report, error) {
	tpl, err := template.Compile(pattern)
	if err != nil {
		return nil, err
	}

	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Apply(doc, &registry.Entry{Name: InlineTemplate, Template: tpl, Rows: rows}), nil
}

// Apply extracts entry from an already loaded document
func (p *Pipeline) Apply(doc *Document, entry *registry.Entry) *model.Report {
	ex := p.extractor(entry)

	var results []*extract.Result
	if entry.Rows {
		for res := range ex.ExtractRepeated(entry.Template, doc.Body).All() {
			results = append(results, res)
		}
	} else {
		results = append(results, ex.Extract(entry.Template, doc.Body))
	}

	summary := model.Summarize(results)
	p.logger.Debug("extract",
		"source", doc.Source,
		"template", entry.Name,
		"rows", summary.Rows,
		"found", summary.Found,
		"missing", summary.Missing,
	)

	return &model.Report{
		Source:    doc.Source,
		Template:  entry.Name,
		Pattern:   entry.Template.String(),
		Rows:      entry.Rows,
		FetchedAt: doc.FetchedAt,
		FetchMeta: doc.Meta,
		Results:   results,
		Summary:   summary,
	}
}

func (p *Pipeline) extractor(entry *registry.Entry) *extract.Extractor {
	return extract.New(
		extract.WithNormalizers(p.table),
		extract.WithFallback(p.config.Extraction.Fallback),
		extract.WithDefaults(entry.Defaults),
	)
}

// isRemote reports whether source looks like an http(s) URL
func isRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
