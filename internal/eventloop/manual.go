package eventloop

import (
	"context"
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests. Time only moves on Advance,
// and posted callbacks run synchronously in FIFO order.
type Manual struct {
	now     time.Time
	seq     int
	timers  []*manualTimer
	queue   []func()
	running bool
}

type manualTimer struct {
	at       time.Time
	interval time.Duration
	seq      int
	f        func()
	stopped  bool
}

func (t *manualTimer) Stop() {
	t.stopped = true
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	return m.now
}

func (m *Manual) Post(f func()) {
	m.queue = append(m.queue, f)
	if m.running {
		return
	}
	m.drain()
}

func (m *Manual) Do(_ context.Context, f func()) error {
	m.Post(f)
	return nil
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	return m.schedule(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Timer {
	return m.schedule(d, d, f)
}

func (m *Manual) schedule(d, interval time.Duration, f func()) *manualTimer {
	m.seq++
	t := &manualTimer{at: m.now.Add(d), interval: interval, seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Pending reports how many timers are armed and not stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every due timer in deadline order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.at
		if next.interval > 0 {
			next.at = next.at.Add(next.interval)
		} else {
			next.stopped = true
		}
		f := next.f
		timer := next
		m.Post(func() {
			if timer.interval == 0 || !timer.stopped {
				f()
			}
		})
	}
	m.now = target
	m.compact()
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
}

func (m *Manual) drain() {
	m.running = true
	defer func() { m.running = false }()
	for len(m.queue) > 0 {
		f := m.queue[0]
		m.queue = m.queue[1:]
		f()
	}
}
