package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out consecutive requests to the same site by a random delay
// drawn uniformly from [Min, Max]. The first call never waits.
type Pacer struct {
	min, max time.Duration
	sleep    func(context.Context, time.Duration) error

	mu      sync.Mutex
	started bool
}

// NewPacer creates a Pacer. A max below min is raised to min.
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, sleep: sleepCtx}
}

// Wait blocks for the next courtesy delay, or returns early with ctx.Err().
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if first {
		return nil
	}
	return p.sleep(ctx, p.Next())
}

// Next draws one delay from the configured range.
func (p *Pacer) Next() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(rand.Int63n(span+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// URLSet is a thread-safe, insertion-ordered set of URLs.
type URLSet struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	order []string
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Contains returns true if the URL has already been added.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Items returns the URLs in the order they were first added.
func (s *URLSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}
