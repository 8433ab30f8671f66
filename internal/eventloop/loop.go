// Package eventloop runs every session callback on one logical goroutine.
//
// Timers, capture ticks and inbound channel events are posted onto the loop
// and executed one at a time, so the components that own session state need
// no locks. A stopped Timer is invalidated, not merely ignored: a callback
// that was already queued when Stop ran checks the timer and returns.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do once the loop is no longer running.
var ErrStopped = errors.New("event loop stopped")

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop()
}

// Scheduler is the loop surface the session components depend on.
type Scheduler interface {
	Now() time.Time
	// Post queues f to run on the loop.
	Post(f func())
	// Do runs f on the loop and waits for it to return. Never call Do from a loop callback.
	Do(ctx context.Context, f func()) error
	AfterFunc(d time.Duration, f func()) Timer
	Every(d time.Duration, f func()) Timer
}

// Loop is the production Scheduler backed by the wall clock.
type Loop struct {
	now func() time.Time

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func New() *Loop {
	return &Loop{
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (l *Loop) Now() time.Time {
	return l.now()
}

func (l *Loop) Post(f func()) {
	l.mu.Lock()
	l.pending = append(l.pending, f)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) Do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		f()
	})
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued callbacks in order until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, f := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

type loopTimer struct {
	stopped atomic.Bool
	timer   *time.Timer
	quit    chan struct{}
	once    sync.Once
}

func (t *loopTimer) Stop() {
	t.stopped.Store(true)
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.quit != nil {
		t.once.Do(func() { close(t.quit) })
	}
}

func (t *loopTimer) guard(f func()) func() {
	return func() {
		if t.stopped.Load() {
			return
		}
		f()
	}
}

func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	run := t.guard(f)
	t.timer = time.AfterFunc(d, func() { l.Post(run) })
	return t
}

func (l *Loop) Every(d time.Duration, f func()) Timer {
	t := &loopTimer{quit: make(chan struct{})}
	run := t.guard(f)
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(run)
			case <-t.quit:
				return
			case <-l.stopped:
				return
			}
		}
	}()
	return t
}
