package game

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
)

// Sender delivers commands to the server.
type Sender interface {
	Send(*protocol.Message) bool
}

// Summary is the end-of-session result shown once per game over.
type Summary struct {
	Score     int       `json:"score"`
	Highscore int       `json:"highscore"`
	At        time.Time `json:"at"`
}

// Processed is the last processed frame returned by the server.
type Processed struct {
	// Frame is a data URL.
	Frame string
	At    time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics records command and correction metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithTracer records a span per command.
func WithTracer(t *metrics.Tracer) Option {
	return func(c *Controller) {
		c.tracer = t
	}
}

// WithStatus posts info and error messages to b.
func WithStatus(b *status.Board) Option {
	return func(c *Controller) {
		c.status = b
	}
}

// WithCameraActive reports whether camera control is active. Manual jumps
// are refused while it returns true.
func WithCameraActive(fn func() bool) Option {
	return func(c *Controller) {
		c.cameraActive = fn
	}
}

// OnSummary registers fn to run when the end-of-session summary is shown.
func OnSummary(fn func(Summary)) Option {
	return func(c *Controller) {
		c.onSummary = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.clock = now
	}
}

// Controller mirrors the server game session.
type Controller struct {
	send         Sender
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       *metrics.Tracer
	status       *status.Board
	cameraActive func() bool
	onSummary    func(Summary)
	clock        func() time.Time

	snapshot  atomic.Pointer[protocol.GameState]
	mode      atomic.Value
	summary   atomic.Pointer[Summary]
	processed atomic.Pointer[Processed]

	// Owned by the dispatch goroutine.
	predicted    bool
	summaryShown bool
}

// NewController creates a Controller in ModeConnecting.
func NewController(send Sender, opts ...Option) *Controller {
	c := &Controller{
		send:         send,
		logger:       slog.Default(),
		cameraActive: func() bool { return false },
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "game")
	c.mode.Store(ModeConnecting)
	return c
}

// Mode returns the current local mode.
func (c *Controller) Mode() Mode {
	return c.mode.Load().(Mode)
}

// Predicted reports whether the current mode is an unconfirmed prediction.
func (c *Controller) Predicted() bool {
	return c.predicted
}

// Snapshot returns the latest authoritative state, or nil before the first
// game_state. The returned value must not be modified.
func (c *Controller) Snapshot() *protocol.GameState {
	return c.snapshot.Load()
}

// Summary returns the visible end-of-session summary, if any.
func (c *Controller) Summary() (Summary, bool) {
	s := c.summary.Load()
	if s == nil {
		return Summary{}, false
	}
	return *s, true
}

// Processed returns the last processed frame, if any.
func (c *Controller) Processed() (Processed, bool) {
	p := c.processed.Load()
	if p == nil {
		return Processed{}, false
	}
	return *p, true
}

// Dispatch applies one inbound message. It reports whether the message
// acknowledges a streamed frame. Malformed and unknown messages are logged and
// ignored.
func (c *Controller) Dispatch(msg *protocol.Message) (ack bool) {
	if msg == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dispatch panic", "type", msg.Type, "panic", r)
			ack = msg.Type.IsFrameAck()
		}
	}()

	ack = msg.Type.IsFrameAck()
	if err := msg.Validate(); err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			c.logger.Warn("unknown message type ignored", "type", msg.Type, "error", ferrors.New("F041").Wrap(err))
			return false
		}
		if msg.Type == protocol.TypeGameState {
			c.logger.Warn("invalid snapshot dropped", "error", ferrors.New("F042").Wrap(err))
			return false
		}
		c.logger.Warn("invalid message", "type", msg.Type, "error", ferrors.New("F040").Wrap(err))
		return ack
	}

	switch msg.Type {
	case protocol.TypeGameState:
		c.apply(msg.Data)
	case protocol.TypeVideoProcessed:
		c.processed.Store(&Processed{Frame: msg.Frame, At: c.clock()})
	case protocol.TypeInfo:
		c.logger.Info("server info", "message", msg.Message)
		c.status.Post(status.Info, msg.Message)
	case protocol.TypeError:
		c.logger.Warn("server error", "message", msg.Message)
		text := msg.Message
		if text == "" {
			text = "Server error"
		}
		c.status.Post(status.Error, text)
	default:
		c.logger.Debug("outbound message type received", "type", msg.Type)
	}
	return ack
}

// apply publishes s and reconciles the mode against it.
func (c *Controller) apply(s *protocol.GameState) {
	c.snapshot.Store(s)

	next := modeOf(s)
	prev := c.Mode()
	if c.predicted && next != prev {
		c.logger.Debug("prediction corrected", "predicted", prev, "confirmed", next)
		c.metrics.ModeCorrected()
	}
	c.predicted = false
	c.mode.Store(next)

	if next != ModeGameOver {
		// The episode ended without a restart from us (auto-restart).
		if c.summaryShown {
			c.summaryShown = false
			c.summary.Store(nil)
		}
		return
	}
	if c.summaryShown {
		return
	}
	c.summaryShown = true
	sum := &Summary{Score: s.Score, Highscore: s.Highscore, At: c.clock()}
	c.summary.Store(sum)
	c.logger.Info("game over", "score", s.Score, "highscore", s.Highscore)
	if c.onSummary != nil {
		c.onSummary(*sum)
	}
}

func (c *Controller) predict(m Mode) {
	c.mode.Store(m)
	c.predicted = true
}

func (c *Controller) command(t protocol.MessageType) bool {
	delivered := c.send.Send(protocol.NewCommand(t))
	if delivered {
		c.metrics.CommandSent(string(t))
	} else {
		c.logger.Debug("command not delivered", "type", t)
	}
	c.tracer.Command(context.Background(), string(t), delivered)
	return delivered
}

// RequestStart sends start_game and predicts playing.
func (c *Controller) RequestStart() bool {
	ok := c.command(protocol.TypeStartGame)
	c.predict(ModePlaying)
	return ok
}

// RequestPause sends pause_game and predicts the playing/paused toggle. In
// other modes the local mode is left alone.
func (c *Controller) RequestPause() bool {
	ok := c.command(protocol.TypePauseGame)
	switch c.Mode() {
	case ModePlaying:
		c.predict(ModePaused)
	case ModePaused:
		c.predict(ModePlaying)
	}
	return ok
}

// RequestRestart sends restart_game, forces preview and hides the summary.
func (c *Controller) RequestRestart() bool {
	ok := c.command(protocol.TypeRestartGame)
	c.summaryShown = false
	c.summary.Store(nil)
	c.predict(ModePreview)
	return ok
}

// RequestManualJump sends manual_jump. It is refused while the camera is the
// active input.
func (c *Controller) RequestManualJump() bool {
	if c.cameraActive() {
		c.logger.Debug("manual jump refused while camera active")
		return false
	}
	return c.command(protocol.TypeManualJump)
}
