package scraper

import (
	"context"
	"sync"
	"time"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}

func (t *fakeTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.waits))
	copy(out, t.waits)
	return out
}

// recordingSleep returns immediately and remembers the requested durations.
type recordingSleep struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleep) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.sleeps {
		total += d
	}
	return total
}

func minJitter(min, _ time.Duration) time.Duration { return min }

func testPolicy(maxRetries uint64) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	return p
}

func withFakeTimer(r *Retrier) *fakeTimer {
	t := &fakeTimer{}
	r.timer = t
	r.jitter = minJitter
	return t
}
