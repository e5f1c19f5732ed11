package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	return New(logging.Discard(), WithClock(clock.Now)), clock
}

func TestCheck_DeniesPastMax(t *testing.T) {
	l, _ := newLimiter(t)

	for i := 1; i <= LoginPolicy.Max; i++ {
		res := l.Check(LoginPolicy, "203.0.113.7")
		require.True(t, res.Allowed, "attempt %d", i)
		assert.Equal(t, LoginPolicy.Max-i, res.Remaining)
	}

	res := l.Check(LoginPolicy, "203.0.113.7")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestCheck_FreshWindowResets(t *testing.T) {
	l, clock := newLimiter(t)

	var last Result
	for i := 0; i < LoginPolicy.Max+1; i++ {
		last = l.Check(LoginPolicy, "id")
	}
	require.False(t, last.Allowed)

	clock.Advance(LoginPolicy.Window)

	res := l.Check(LoginPolicy, "id")
	assert.True(t, res.Allowed)
	assert.Equal(t, LoginPolicy.Max-1, res.Remaining)
	assert.Equal(t, clock.Now().Add(LoginPolicy.Window), res.ResetAt)
}

func TestCheck_PurposesAndIdentifiersAreIsolated(t *testing.T) {
	l, _ := newLimiter(t)

	for i := 0; i < UploadPolicy.Max+1; i++ {
		l.Check(UploadPolicy, "a")
	}
	assert.False(t, l.Check(UploadPolicy, "a").Allowed)
	assert.True(t, l.Check(UploadPolicy, "b").Allowed)
	assert.True(t, l.Check(APIPolicy, "a").Allowed)
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 90, Result{ResetAt: now.Add(89*time.Second + 100*time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(10 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

func TestSweep(t *testing.T) {
	l, clock := newLimiter(t)

	l.Check(APIPolicy, "a")
	l.Check(LoginPolicy, "a")
	require.Equal(t, 2, l.Len())

	clock.Advance(APIPolicy.Window)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	clock.Advance(LoginPolicy.Window)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	l, clock := newLimiter(t)
	l.sweepInterval = 5 * time.Millisecond

	l.Check(APIPolicy, "a")
	clock.Advance(2 * APIPolicy.Window)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCheck_Concurrent(t *testing.T) {
	l, _ := newLimiter(t)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check(APIPolicy, "shared").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for a := range allowed {
		if a {
			n++
		}
	}
	assert.Equal(t, APIPolicy.Max, n)
}
