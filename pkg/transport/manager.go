package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("transport: manager closed")

// Config holds the connection settings.
type Config struct {
	// Endpoint is the websocket URL, usually from EndpointFromOrigin.
	Endpoint string

	// ReconnectDelay is the fixed delay before redialing after any close.
	// Default: 3s
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds a single dial.
	// Default: 10s
	HandshakeTimeout time.Duration

	// ReadTimeout is the longest the connection may stay silent, pongs
	// included.
	// Default: 60s
	ReadTimeout time.Duration

	// WriteTimeout bounds each write.
	// Default: 10s
	WriteTimeout time.Duration

	// PingInterval is the keepalive period. Must be less than ReadTimeout.
	// Default: 25s
	PingInterval time.Duration

	// MaxMessageSize limits inbound messages.
	// Default: 1MB
	MaxMessageSize int64

	// SendBuffer is the outbound queue depth per connection.
	// Default: 16
	SendBuffer int

	// EventBuffer is the capacity of the Events channel.
	// Default: 64
	EventBuffer int
}

// DefaultConfig returns the default connection settings for endpoint.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:         endpoint,
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     25 * time.Second,
		MaxMessageSize:   1 << 20,
		SendBuffer:       16,
		EventBuffer:      64,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig(c.Endpoint)
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics records connection metrics into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(m *Manager) {
		m.header = h
	}
}

// Manager owns the websocket to the game server.
type Manager struct {
	cfg     Config
	dialer  *websocket.Dialer
	header  http.Header
	logger  *slog.Logger
	metrics *metrics.Metrics

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	state  State
	gen    uint64
	link   *link
	timer  *time.Timer
	ctx    context.Context
	closed bool
}

// New creates a Manager. It does not dial until Connect is called.
func New(cfg Config, opts ...Option) *Manager {
	cfg.applyDefaults()
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
		state:  StateClosed,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		}
	}
	m.logger = m.logger.With("component", "transport", "endpoint", cfg.Endpoint)
	m.events = make(chan Event, cfg.EventBuffer)
	m.done = make(chan struct{})
	return m
}

// Events returns the lifecycle event stream. It is never closed; select on
// Done as well.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Done is closed when the Manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Generation returns the current dial generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Endpoint returns the websocket URL.
func (m *Manager) Endpoint() string {
	return m.cfg.Endpoint
}

// Connect dials the server unless a connection is already open or being
// dialed. A pending reconnect timer is cancelled and replaced by the dial.
// ctx bounds this dial and all later automatic reconnects.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.closed || ctx.Err() != nil || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.ctx = ctx
	gen := m.startDialLocked()
	m.mu.Unlock()

	go m.dial(ctx, gen)
}

func (m *Manager) startDialLocked() uint64 {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	m.state = StateConnecting
	return m.gen
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	dctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	ws, _, err := m.dialer.DialContext(dctx, m.cfg.Endpoint, m.header)
	cancel()

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}
	if err != nil {
		m.state = StateClosed
		retry := m.scheduleLocked(gen)
		m.mu.Unlock()

		coded := ferrors.New("F020").Wrap(err)
		m.logger.Warn("dial failed", "error", coded, "generation", gen, "retry_in", retry)
		m.metrics.WebSocketError("dial")
		m.emit(Event{Kind: EventDisconnected, Generation: gen, Reason: err.Error(), RetryIn: retry, Err: coded})
		return
	}

	l := newLink(gen, ws, m.cfg.SendBuffer)
	m.link = l
	m.state = StateOpen
	m.mu.Unlock()

	m.logger.Info("connected", "generation", gen)
	m.metrics.Connected()
	m.emit(Event{Kind: EventConnected, Generation: gen})

	go m.writePump(l)
	go m.readPump(l)
}

// scheduleLocked arms the single reconnect timer for gen and returns its
// delay, or 0 when no reconnect will happen.
func (m *Manager) scheduleLocked(gen uint64) time.Duration {
	if m.closed || m.ctx.Err() != nil {
		return 0
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	ctx := m.ctx
	m.timer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.reconnect(ctx, gen)
	})
	m.metrics.ReconnectScheduled()
	return m.cfg.ReconnectDelay
}

// reconnect fires from the timer armed for gen. A newer generation means
// someone already dialed, so the stale timer does nothing.
func (m *Manager) reconnect(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.closed || ctx.Err() != nil || gen != m.gen || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	next := m.startDialLocked()
	m.mu.Unlock()

	m.logger.Debug("reconnecting", "generation", next)
	m.dial(ctx, next)
}

// lost tears down l and, if it is still the current link, moves to closed and
// schedules a reconnect. Only the first caller per link has any effect.
func (m *Manager) lost(l *link, reason string) {
	l.close()

	m.mu.Lock()
	if m.link != l {
		m.mu.Unlock()
		return
	}
	m.link = nil
	m.state = StateClosed
	retry := m.scheduleLocked(l.gen)
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return
	}
	m.logger.Info("disconnected", "reason", reason, "generation", l.gen, "retry_in", retry)
	m.metrics.Disconnected()
	m.emit(Event{Kind: EventDisconnected, Generation: l.gen, Reason: reason, RetryIn: retry,
		Err: ferrors.New("F021").WithDetail(reason)})
}

// Send encodes msg and queues it on the open connection. It returns false and
// drops msg when the connection is not open or the queue is full. Messages
// dropped here are not retried.
func (m *Manager) Send(msg *protocol.Message) bool {
	b, err := protocol.Encode(msg)
	if err != nil {
		m.logger.Error("encode failed", "error", err)
		return false
	}

	m.mu.Lock()
	l := m.link
	open := m.state == StateOpen && l != nil
	m.mu.Unlock()

	if !open {
		m.logger.Debug("send dropped", "type", msg.Type, "reason", "not open")
		m.metrics.MessageDropped("not_open")
		return false
	}

	select {
	case l.send <- b:
		return true
	case <-l.done:
		m.metrics.MessageDropped("not_open")
		return false
	default:
		m.logger.Warn("send dropped", "type", msg.Type, "reason", "queue full")
		m.metrics.MessageDropped("queue_full")
		return false
	}
}

// Close shuts the connection and stops reconnecting. Safe to call more than
// once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	l := m.link
	m.link = nil
	m.state = StateClosed
	m.mu.Unlock()

	close(m.done)
	if l != nil {
		l.shutdown(m.cfg.WriteTimeout)
	}
	m.logger.Debug("closed")
	return nil
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}
