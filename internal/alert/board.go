package alert

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
)

const (
	// DefaultLifetime is how long a derived alert stays visible.
	DefaultLifetime = 3 * time.Second
	// DefaultRelayLifetime is how long a service-originated alert stays visible.
	DefaultRelayLifetime = 5 * time.Second
)

// Board holds the visible alert set. It must only be used from the event loop.
type Board struct {
	sched         eventloop.Scheduler
	lifetime      time.Duration
	relayLifetime time.Duration
	logger        *zap.Logger
	newID         func() string
	onChange      func()

	visible []domain.Alert
	expiry  map[string]eventloop.Timer
}

// Option customises a Board.
type Option func(*Board)

func WithLifetimes(derived, relayed time.Duration) Option {
	return func(b *Board) {
		if derived > 0 {
			b.lifetime = derived
		}
		if relayed > 0 {
			b.relayLifetime = relayed
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithIDs overrides identity generation; tests use it for stable ids.
func WithIDs(next func() string) Option {
	return func(b *Board) { b.newID = next }
}

// OnChange registers a callback invoked after the visible set changes.
func OnChange(f func()) Option {
	return func(b *Board) { b.onChange = f }
}

func NewBoard(sched eventloop.Scheduler, opts ...Option) *Board {
	b := &Board{
		sched:         sched,
		lifetime:      DefaultLifetime,
		relayLifetime: DefaultRelayLifetime,
		logger:        zap.NewNop(),
		newID:         uuid.NewString,
		expiry:        make(map[string]eventloop.Timer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Observe runs Derive on the sample and raises the finding unless an alert
// with the same message is still visible.
func (b *Board) Observe(sample domain.TelemetrySample) (domain.Alert, bool) {
	finding, ok := Derive(sample)
	if !ok {
		return domain.Alert{}, false
	}
	if b.showing(finding.Message) {
		return domain.Alert{}, false
	}
	a := domain.Alert{
		ID:        b.newID(),
		Type:      finding.Severity,
		Message:   finding.Message,
		Timestamp: unixSeconds(b.sched.Now()),
	}
	b.show(a, b.lifetime)
	return a, true
}

// Relay displays a pre-classified alert from the analysis service.
func (b *Board) Relay(a domain.Alert) (domain.Alert, bool) {
	if err := a.Validate(); err != nil {
		b.logger.Warn("discarding relayed alert", zap.Error(err))
		return domain.Alert{}, false
	}
	if a.ID == "" || b.expiry[a.ID] != nil {
		a.ID = b.newID()
	}
	if a.Timestamp == 0 {
		a.Timestamp = unixSeconds(b.sched.Now())
	}
	b.show(a, b.relayLifetime)
	return a, true
}

// Dismiss removes an alert immediately and cancels its expiry.
func (b *Board) Dismiss(id string) bool {
	timer, ok := b.expiry[id]
	if !ok {
		return false
	}
	timer.Stop()
	b.remove(id)
	return true
}

// Clear drops every visible alert.
func (b *Board) Clear() {
	if len(b.visible) == 0 {
		return
	}
	for id, timer := range b.expiry {
		timer.Stop()
		delete(b.expiry, id)
	}
	b.visible = nil
	b.changed()
}

// Visible returns a copy of the visible alerts, oldest first.
func (b *Board) Visible() []domain.Alert {
	out := make([]domain.Alert, len(b.visible))
	copy(out, b.visible)
	return out
}

func (b *Board) show(a domain.Alert, lifetime time.Duration) {
	id := a.ID
	b.visible = append(b.visible, a)
	b.expiry[id] = b.sched.AfterFunc(lifetime, func() {
		b.remove(id)
	})
	b.changed()
}

func (b *Board) remove(id string) {
	if _, ok := b.expiry[id]; !ok {
		return
	}
	delete(b.expiry, id)
	for i, a := range b.visible {
		if a.ID == id {
			b.visible = append(b.visible[:i], b.visible[i+1:]...)
			break
		}
	}
	b.changed()
}

func (b *Board) showing(message string) bool {
	for _, a := range b.visible {
		if a.Message == message {
			return true
		}
	}
	return false
}

func (b *Board) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
