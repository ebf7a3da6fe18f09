package core

// import_limiter.go bounds how many score imports run at once. Each import
// holds a slot for its whole parse-and-upsert run; callers that cannot get
// a slot within the wait time receive ErrTooManyImports.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when no import slot frees up in time.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

const (
	defaultMaxImports = 3
	defaultImportWait = 20 * time.Second
)

// ImportLimiter is a counting semaphore for score imports.
type ImportLimiter struct {
	slots  chan struct{}
	wait   time.Duration
	active atomic.Int64
}

// NewImportLimiter allows maxConcurrent imports; non-positive values fall
// back to defaults.
func NewImportLimiter(maxConcurrent int, wait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxImports
	}
	if wait <= 0 {
		wait = defaultImportWait
	}
	return &ImportLimiter{slots: make(chan struct{}, maxConcurrent), wait: wait}
}

// Acquire takes a slot, waiting up to the configured time. Every
// successful Acquire must be paired with Release.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyImports
	}
}

// Release frees a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ImportLimiterStatus is a snapshot of slot usage.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current slot usage.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := int(l.active.Load())
	return ImportLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain polls until no import holds a slot or ctx ends.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}
