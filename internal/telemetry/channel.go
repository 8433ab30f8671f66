package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
)

// State is the connection state observed by listeners.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)

const (
	writeWait  = 5 * time.Second
	closeWait  = time.Second
	sendBuffer = 16
)

// Config tunes the channel.
type Config struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	SendBuffer   int
}

// Channel is a long-lived, reconnecting duplex link to the analysis service.
// Inbound events and state changes are posted onto the event loop; the
// command methods are meant to be called from the loop and never block on
// the network.
type Channel struct {
	cfg    Config
	dialer *websocket.Dialer
	sched  eventloop.Scheduler
	logger *zap.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	conn       *connection
	streaming  bool
	generation uint64
	teardown   sync.WaitGroup

	// owned by the loop
	state    State
	onState  []func(State)
	onSample []func(domain.TelemetrySample)
	onAlert  []func(domain.Alert)
}

func NewChannel(cfg Config, sched eventloop.Scheduler, logger *zap.Logger) *Channel {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = 500 * time.Millisecond
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = sendBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		sched:  sched,
		logger: logger.With(zap.String("url", cfg.URL)),
		state:  StateDisconnected,
	}
}

// OnState, OnTelemetry and OnAlert register listeners. Register before Connect.
func (c *Channel) OnState(f func(State)) { c.onState = append(c.onState, f) }

func (c *Channel) OnTelemetry(f func(domain.TelemetrySample)) { c.onSample = append(c.onSample, f) }

func (c *Channel) OnAlert(f func(domain.Alert)) { c.onAlert = append(c.onAlert, f) }

// Connected reports the state last delivered to listeners.
func (c *Channel) Connected() bool {
	return c.state == StateConnected
}

// Connect starts the connection goroutine. It is a no-op while one is running.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.generation, c.done)
}

// Disconnect tears the link down and cancels any pending reconnection.
// Events already queued on the loop are dropped. The socket is flushed and
// closed in the background; use Wait to join it. Safe to call repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.generation++
	c.streaming = false
	conn := c.conn
	c.conn = nil
	done := c.done
	c.mu.Unlock()

	if conn != nil {
		conn.shutdown()
	}
	c.teardown.Add(1)
	go func() {
		defer c.teardown.Done()
		select {
		case <-done:
		case <-time.After(closeWait):
			if conn != nil {
				conn.close()
			}
			<-done
		}
	}()
	c.setState(StateDisconnected)
}

// Wait blocks until every link torn down by Disconnect has finished closing.
func (c *Channel) Wait() {
	c.teardown.Wait()
}

// StartStreaming asks the service to begin inference. The request is
// remembered and repeated after every reconnect.
func (c *Channel) StartStreaming() {
	c.mu.Lock()
	c.streaming = true
	c.mu.Unlock()
	c.command(TypeStartAnalysis, nil)
}

// StopStreaming asks the service to end inference.
func (c *Channel) StopStreaming() {
	c.mu.Lock()
	c.streaming = false
	c.mu.Unlock()
	c.command(TypeStopAnalysis, nil)
}

// SendFrame forwards one encoded frame. Frames are dropped while disconnected
// or when the send queue is full; nothing is retried.
func (c *Channel) SendFrame(dataURI string) {
	c.command(TypeFrame, dataURI)
}

func (c *Channel) command(msgType string, payload any) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	msg, err := encode(msgType, payload)
	if err != nil {
		c.logger.Warn("encode outbound message", zap.String("type", msgType), zap.Error(err))
		return
	}
	if !conn.enqueue(msg) {
		c.logger.Debug("dropped outbound message", zap.String("type", msgType))
	}
}

func (c *Channel) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectMin
	b.MaxInterval = c.cfg.ReconnectMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := b.NextBackOff()
			c.logger.Debug("dial analysis service", zap.Duration("retry_in", wait), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		b.Reset()

		conn := newConnection(ws, c.cfg.SendBuffer)
		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			conn.close()
			return
		}
		c.conn = conn
		streaming := c.streaming
		c.mu.Unlock()

		go conn.writePump(c.logger)
		if streaming {
			if msg, err := encode(TypeStartAnalysis, nil); err == nil {
				conn.enqueue(msg)
			}
		}
		c.logger.Info("connected to analysis service")
		c.post(gen, func() { c.setState(StateConnected) })

		c.readPump(gen, conn)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Info("lost connection to analysis service")
		c.post(gen, func() { c.setState(StateDisconnected) })
	}
}

func (c *Channel) readPump(gen uint64, conn *connection) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		ev, err := Decode(data)
		if err != nil {
			c.logger.Warn("discarding inbound message", zap.Error(err))
			continue
		}
		switch ev.Kind {
		case EventTelemetry:
			sample := ev.Sample
			c.post(gen, func() {
				for _, f := range c.onSample {
					f(sample)
				}
			})
		case EventAlert:
			a := ev.Alert
			c.post(gen, func() {
				for _, f := range c.onAlert {
					f(a)
				}
			})
		}
	}
}

// post queues f on the loop, dropping it if the channel was torn down in the meantime.
func (c *Channel) post(gen uint64, f func()) {
	c.sched.Post(func() {
		c.mu.Lock()
		current := c.generation == gen
		c.mu.Unlock()
		if current {
			f()
		}
	})
}

func (c *Channel) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	for _, f := range c.onState {
		f(s)
	}
}

type connection struct {
	ws       *websocket.Conn
	send     chan []byte
	quit     chan struct{}
	closed   chan struct{}
	quitOnce sync.Once
	once     sync.Once
}

func newConnection(ws *websocket.Conn, buffer int) *connection {
	return &connection{
		ws:     ws,
		send:   make(chan []byte, buffer),
		quit:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (c *connection) enqueue(msg []byte) bool {
	select {
	case <-c.closed:
		return false
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown asks the writer to flush queued messages and close the socket.
func (c *connection) shutdown() {
	c.quitOnce.Do(func() { close(c.quit) })
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *connection) writePump(logger *zap.Logger) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				logger.Debug("write to analysis service", zap.Error(err))
				c.close()
				return
			}
		case <-c.quit:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.close()
			return
		case <-c.closed:
			return
		}
	}
}

func (c *connection) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connection) write(msg []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}
