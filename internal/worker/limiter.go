package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles requests per host. Sources without a host, such as
// local files and stdin, are never throttled.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to source's host is permitted
func (l *Limiter) Wait(ctx context.Context, source string) error {
	host, ok := hostOf(source)
	if !ok {
		return nil
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request to source's host may proceed now
func (l *Limiter) Allow(source string) bool {
	host, ok := hostOf(source)
	if !ok {
		return true
	}
	return l.forHost(host).Allow()
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = lim
	return lim
}

// SetHostRate overrides the limit for one host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// LimitHost slows host to at most one request per interval. It never
// raises an existing limit.
func (l *Limiter) LimitHost(host string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	lim := l.forHost(host)
	if every := rate.Every(interval); lim.Limit() > every {
		lim.SetLimit(every)
	}
}

func hostOf(source string) (string, bool) {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.Hostname(), true
}
