package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/capture"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

// ErrAlreadyActive is returned by Start while a device is held.
var ErrAlreadyActive = errors.New("stream: capture already active")

// Conn is the part of the connection manager the streamer needs.
type Conn interface {
	State() transport.State
	Send(*protocol.Message) bool
}

// Outcome reports what a Tick did.
type Outcome uint8

const (
	Sent Outcome = iota
	Inactive
	NotReady
	Disconnected
	InFlight
	RateLimited
	CaptureFailed
	EncodeFailed
	SendFailed
)

// String returns the outcome name, also used as the deferral metric label.
func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Inactive:
		return "inactive"
	case NotReady:
		return "not_ready"
	case Disconnected:
		return "disconnected"
	case InFlight:
		return "in_flight"
	case RateLimited:
		return "rate"
	case CaptureFailed:
		return "capture_failed"
	case EncodeFailed:
		return "encode_failed"
	case SendFailed:
		return "send_failed"
	}
	return "unknown"
}

// Config configures a Streamer.
type Config struct {
	// Source is the capture source passed to the opener.
	Source string

	// MinInterval is the minimum time between two sent frames.
	// Default: 100ms
	MinInterval time.Duration

	// Encoder scales and compresses frames.
	// Default: capture.DefaultEncoder()
	Encoder *capture.Encoder
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Streamer) {
		s.logger = l
	}
}

// WithMetrics records frame metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Streamer) {
		s.metrics = m
	}
}

// WithTracer records a span per frame round-trip.
func WithTracer(t *metrics.Tracer) Option {
	return func(s *Streamer) {
		s.tracer = t
	}
}

// WithOpener replaces capture.Open.
func WithOpener(open capture.Opener) Option {
	return func(s *Streamer) {
		s.open = open
	}
}

// Streamer owns the capture device and the frame credit.
type Streamer struct {
	cfg     Config
	conn    Conn
	open    capture.Opener
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  *metrics.Tracer

	dev      capture.Device
	active   bool
	armed    bool
	inFlight bool
	lastSent time.Time
	seq      uint64
	span     *metrics.FrameSpan
	ctx      context.Context
}

// New creates a Streamer that sends through conn.
func New(cfg Config, conn Conn, opts ...Option) *Streamer {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 100 * time.Millisecond
	}
	if cfg.Encoder == nil {
		cfg.Encoder = capture.DefaultEncoder()
	}
	s := &Streamer{
		cfg:     cfg,
		conn:    conn,
		open:    capture.Open,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:  slog.Default(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "stream")
	return s
}

// Start acquires the capture device and resets the credit. The returned
// channel is closed when the device is ready; the owner calls Arm once after
// receiving from it. Acquisition failures wrap capture.ErrPermissionDenied,
// capture.ErrDeviceNotFound or capture.ErrDeviceBusy and leave the streamer
// inactive.
func (s *Streamer) Start(ctx context.Context) (<-chan struct{}, error) {
	if s.active {
		return nil, ErrAlreadyActive
	}
	dev, err := s.open(s.cfg.Source)
	if err != nil {
		s.logger.Warn("capture unavailable", "source", s.cfg.Source, "error", err)
		return nil, err
	}
	s.dev = dev
	s.active = true
	s.armed = false
	s.ctx = ctx
	s.clearCredit("start")
	s.logger.Info("capture started", "source", dev.Source())
	return dev.Ready(), nil
}

// Arm enables ticking after the device signalled readiness. It returns false
// if capture was stopped in the meantime. A device that finished starting up
// but reports an error is released and its error returned.
func (s *Streamer) Arm() (bool, error) {
	if !s.active || s.armed {
		return false, nil
	}
	if err := s.dev.Err(); err != nil {
		s.logger.Warn("capture did not become ready", "source", s.dev.Source(), "error", err)
		s.Stop()
		return false, err
	}
	s.armed = true
	s.logger.Debug("capture ready")
	return true, nil
}

// Stop releases the device and clears the credit. Calling Stop when inactive
// only clears the credit.
func (s *Streamer) Stop() {
	s.clearCredit("stop")
	if !s.active {
		return
	}
	s.active = false
	s.armed = false
	if err := s.dev.Close(); err != nil {
		s.logger.Warn("capture close failed", "error", err)
	}
	s.dev = nil
	s.logger.Info("capture stopped")
}

// Active reports whether a capture device is held.
func (s *Streamer) Active() bool {
	return s.active
}

// InFlight reports whether a frame is awaiting acknowledgment.
func (s *Streamer) InFlight() bool {
	return s.inFlight
}

// LastSent returns when the last frame was sent.
func (s *Streamer) LastSent() time.Time {
	return s.lastSent
}

// Tick sends one frame if every gate passes. A failed gate defers to the
// next tick.
func (s *Streamer) Tick(now time.Time) Outcome {
	if !s.active {
		return Inactive
	}
	if !s.armed {
		return s.deferred(NotReady)
	}
	if s.conn.State() != transport.StateOpen {
		return s.deferred(Disconnected)
	}
	// Credit before rate so a held credit does not use up the token.
	if s.inFlight {
		return s.deferred(InFlight)
	}
	if s.limiter.TokensAt(now) < 1 {
		return s.deferred(RateLimited)
	}

	img, err := s.dev.Frame()
	if err != nil {
		s.logger.Warn("frame capture failed", "error", capture.Coded(err))
		return s.deferred(CaptureFailed)
	}
	url, n, err := s.cfg.Encoder.EncodeDataURL(img)
	if err != nil {
		s.logger.Warn("frame encode failed", "error", ferrors.New("F010").Wrap(err))
		return s.deferred(EncodeFailed)
	}

	// Capture may have been stopped while encoding.
	if !s.active {
		return Inactive
	}
	if !s.conn.Send(protocol.NewVideoFrame(url)) {
		return s.deferred(SendFailed)
	}

	s.limiter.AllowN(now, 1)
	s.inFlight = true
	s.lastSent = now
	s.seq++
	s.span = s.tracer.StartFrame(s.ctx, s.seq, n)
	s.metrics.FrameSent(n)
	s.logger.Debug("frame sent", "seq", s.seq, "size", humanize.Bytes(uint64(n)))
	return Sent
}

// Ack releases the credit. kind is the acknowledging message type. It returns
// false if no frame was in flight.
func (s *Streamer) Ack(kind protocol.MessageType, detail string, now time.Time) bool {
	if !s.inFlight {
		return false
	}
	s.inFlight = false
	s.metrics.FrameAcked(string(kind), now.Sub(s.lastSent))
	s.span.Acked(string(kind), detail)
	s.span = nil
	return true
}

// Disconnected drops the credit of a frame lost with the connection. The
// device stays open so sending resumes after reconnect.
func (s *Streamer) Disconnected() {
	s.clearCredit("disconnected")
}

func (s *Streamer) clearCredit(reason string) {
	if s.inFlight {
		s.metrics.FrameAborted()
		s.span.Aborted(reason)
	}
	s.inFlight = false
	s.span = nil
}

func (s *Streamer) deferred(o Outcome) Outcome {
	s.metrics.FrameDeferred(o.String())
	return o
}
