package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a document may be fetched, caching robots.txt per host
type RobotsPolicy struct {
	mu         sync.RWMutex
	hosts      map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
	agent      string // product token matched against robots groups
}

// NewRobotsPolicy creates a policy that fetches robots.txt with client
func NewRobotsPolicy(client *http.Client, userAgent string) *RobotsPolicy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsPolicy{
		hosts:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
		agent:      ProductToken(userAgent),
	}
}

// Check returns whether rawURL may be fetched and the crawl delay for it.
// An unreachable robots.txt allows everything.
func (p *RobotsPolicy) Check(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return true, 0, nil
	}

	data, err := p.robotsFor(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	var delay time.Duration
	if group := data.FindGroup(p.agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, p.agent), delay, nil
}

func (p *RobotsPolicy) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	p.mu.RLock()
	data, ok := p.hosts[u.Host]
	p.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	p.mu.Lock()
	p.hosts[u.Host] = data
	p.mu.Unlock()

	return data, nil
}

// Reset drops every cached robots.txt
func (p *RobotsPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hosts = make(map[string]*robotstxt.RobotsData)
}

// ProductToken reduces a User-Agent to its product name, e.g. "anchorx/0.1 (...)" -> "anchorx"
func ProductToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	product, _, _ := strings.Cut(fields[0], "/")
	return product
}
