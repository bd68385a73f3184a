package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTooManyRequests is returned when a (client, purpose) pair has exhausted
// its window.
var ErrTooManyRequests = errors.New("too many requests")

// Purposes rate-limited independently per client IP.
const (
	PurposeChat          = "chat"
	PurposeContactSearch = "contact_search"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request counter keyed by (client IP, purpose).
// Expired windows are treated as absent on access; a background sweep only
// bounds memory.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	span    time.Duration
	windows map[string]*window
	stop    chan struct{}
	done    chan struct{}
}

// New creates a limiter allowing limit requests per span for each key.
func New(limit int, span time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		span:    span,
		windows: make(map[string]*window),
	}
}

// Allow records one request for the given client and purpose. It returns
// ErrTooManyRequests when the live window is already at the limit; rejected
// requests do not advance the counter.
func (l *Limiter) Allow(clientIP, purpose string) error {
	key := fmt.Sprintf("%s_%s", purpose, clientIP)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if !ok || now.After(win.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.span)}
		return nil
	}

	if win.count >= l.limit {
		return ErrTooManyRequests
	}

	win.count++
	return nil
}

// Clear drops all counters. Intended for tests.
func (l *Limiter) Clear() {
	l.mu.Lock()
	l.windows = make(map[string]*window)
	l.mu.Unlock()
}

// StartSweeper launches a goroutine that removes elapsed windows every
// interval. Call Stop to shut it down.
func (l *Limiter) StartSweeper(interval time.Duration) {
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// Stop terminates the sweeper goroutine, if running.
func (l *Limiter) Stop() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (l *Limiter) sweep() {
	now := time.Now()
	l.mu.Lock()
	for key, win := range l.windows {
		if now.After(win.resetAt) {
			delete(l.windows, key)
		}
	}
	l.mu.Unlock()
}
