// Package ratelimit implements fixed-window request counters keyed by
// purpose and client identifier, held in process memory.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/npremz/astrobackoffice/internal/logging"
)

// Policy is a named ceiling of Max requests per Window. Policies with
// different names never share counters.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

var (
	LoginPolicy  = Policy{Name: "login", Max: 5, Window: 15 * time.Minute}
	APIPolicy    = Policy{Name: "api", Max: 100, Window: time.Minute}
	UploadPolicy = Policy{Name: "upload", Max: 10, Window: time.Minute}
)

// DefaultSweepInterval is how often Run drops expired windows.
const DefaultSweepInterval = time.Minute

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, never less
// than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu            sync.Mutex
	entries       map[string]*entry
	now           func() time.Time
	sweepInterval time.Duration
	logger        logging.Logger
}

type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) { l.sweepInterval = d }
}

func New(logger logging.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		entries:       make(map[string]*entry),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		logger:        logger.With("module", "ratelimit"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now exposes the limiter clock so callers compute Retry-After against the
// same time base.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Check counts one request for identifier under p. The first request of a
// window opens it; the request that pushes the count past p.Max and every
// later one in that window are denied.
func (l *Limiter) Check(p Policy, identifier string) Result {
	key := p.Name + ":" + identifier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(p.Window)}
		l.entries[key] = e
	}
	e.count++

	remaining := p.Max - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   e.count <= p.Max,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}
}

// Sweep drops every window that has ended and returns how many it removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live counters.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps on a ticker until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "rate limiter sweeper stopped")
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug(ctx, "swept rate limit windows", "removed", n)
			}
		}
	}
}
