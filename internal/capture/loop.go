package capture

import (
	"time"

	"go.uber.org/zap"

	"proctor-quiz-service/internal/eventloop"
)

// DefaultInterval is the capture cadence.
const DefaultInterval = time.Second

// Loop periodically pulls one frame from its device and hands it to a single
// consumer. All methods run on the event loop.
type Loop struct {
	sched    eventloop.Scheduler
	device   Device
	interval time.Duration
	logger   *zap.Logger

	consumer func(dataURI string)
	active   bool
	capable  bool
	ticker   eventloop.Timer
}

func NewLoop(sched eventloop.Scheduler, device Device, interval time.Duration, logger *zap.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{sched: sched, device: device, interval: interval, logger: logger}
}

// SetConsumer registers the single frame consumer, replacing any previous one.
func (l *Loop) SetConsumer(f func(dataURI string)) {
	l.consumer = f
}

// Activate acquires the device and starts the cadence. It reports whether
// capture is available; a failed acquisition is logged, never returned.
func (l *Loop) Activate() bool {
	if l.active {
		return l.capable
	}
	l.active = true

	if l.device == nil {
		l.capable = false
		l.logger.Warn("capture unavailable", zap.Error(ErrNoDevice))
		return false
	}
	if err := l.device.Open(); err != nil {
		l.capable = false
		l.logger.Warn("capture unavailable", zap.Error(err))
		return false
	}
	l.capable = true
	l.ticker = l.sched.Every(l.interval, l.tick)
	l.logger.Info("capture started", zap.Duration("interval", l.interval))
	return true
}

// Deactivate stops the cadence and releases the device. Safe to call repeatedly.
func (l *Loop) Deactivate() {
	if !l.active {
		return
	}
	l.active = false
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	if l.capable {
		if err := l.device.Close(); err != nil {
			l.logger.Warn("release capture device", zap.Error(err))
		}
		l.logger.Info("capture stopped")
	}
	l.capable = false
}

// Capable reports whether the device was acquired on the last activation.
func (l *Loop) Capable() bool {
	return l.capable
}

// Active reports whether the loop is between Activate and Deactivate.
func (l *Loop) Active() bool {
	return l.active
}

func (l *Loop) tick() {
	if !l.active || !l.capable {
		return
	}
	frame, err := l.device.Frame()
	if err != nil {
		l.logger.Debug("skipping capture tick", zap.Error(err))
		return
	}
	if len(frame.Data) == 0 || l.consumer == nil {
		return
	}
	l.consumer(frame.DataURI())
}
