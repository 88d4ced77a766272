package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/archive"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/capture"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/game"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/render"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/stream"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

// Session errors.
var (
	ErrSessionClosed  = errors.New("client: session closed")
	ErrAlreadyRunning = errors.New("client: session already running")
	ErrUnknownCommand = errors.New("client: unknown command")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics records metrics for every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTracer records frame and command spans.
func WithTracer(t *metrics.Tracer) Option {
	return func(s *Session) {
		s.tracer = t
	}
}

// WithOpener replaces capture.Open.
func WithOpener(open capture.Opener) Option {
	return func(s *Session) {
		s.opener = open
	}
}

// WithArchiver stores each game over.
func WithArchiver(a *archive.Archiver) Option {
	return func(s *Session) {
		s.archiver = a
	}
}

// WithOutput renders frames to w on every render tick.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithStatusBoard replaces the status board.
func WithStatusBoard(b *status.Board) Option {
	return func(s *Session) {
		s.status = b
	}
}

type request struct {
	cmd   Command
	reply chan error
}

// Session is one client session.
type Session struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   *metrics.Tracer
	opener   capture.Opener
	archiver *archive.Archiver
	out      io.Writer

	conn     *transport.Manager
	stream   *stream.Streamer
	game     *game.Controller
	status   *status.Board
	renderer *render.Renderer

	requests chan request
	done     chan struct{}
	finished chan struct{}
	camera   atomic.Bool
	archives sync.WaitGroup

	mu       sync.Mutex
	started  bool
	closeOne sync.Once
	downOnce sync.Once

	// Owned by the Run loop.
	ready <-chan struct{}
	gen   uint64
}

// New creates a session. Nothing connects until Run.
func New(cfg Config, opts ...Option) (*Session, error) {
	if cfg.Transport.Endpoint == "" {
		return nil, transport.ErrInvalidOrigin
	}
	cfg.applyDefaults()

	s := &Session{
		cfg:      cfg,
		logger:   slog.Default(),
		opener:   capture.Open,
		requests: make(chan request),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = status.NewBoard()
	}

	s.conn = transport.New(cfg.Transport,
		transport.WithLogger(s.logger),
		transport.WithMetrics(s.metrics),
	)
	s.stream = stream.New(cfg.Stream, s.conn,
		stream.WithLogger(s.logger),
		stream.WithMetrics(s.metrics),
		stream.WithTracer(s.tracer),
		stream.WithOpener(s.opener),
	)
	s.game = game.NewController(s.conn,
		game.WithLogger(s.logger),
		game.WithMetrics(s.metrics),
		game.WithTracer(s.tracer),
		game.WithStatus(s.status),
		game.WithCameraActive(s.camera.Load),
		game.OnSummary(s.onSummary),
	)
	s.renderer = render.NewRenderer(cfg.Render)
	s.logger = s.logger.With("component", "session")
	return s, nil
}

// Run connects and processes events until ctx is cancelled or Close is
// called. It returns nil on a normal shutdown.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.mu.Unlock()

	defer close(s.finished)
	defer s.teardown()

	s.logger.Info("session starting", "endpoint", s.conn.Endpoint())
	s.status.Post(status.Info, "Connecting to server...")
	s.conn.Connect(ctx)
	if s.cfg.AutoStartCamera {
		s.startCamera(ctx)
	}

	captureTicker := time.NewTicker(s.cfg.CaptureTick)
	defer captureTicker.Stop()

	var renderC <-chan time.Time
	if s.out != nil {
		t := time.NewTicker(s.cfg.RenderInterval)
		defer t.Stop()
		renderC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopping", "reason", ctx.Err())
			return nil

		case <-s.done:
			s.logger.Info("session closed")
			return nil

		case ev := <-s.conn.Events():
			s.safely(func() { s.handleEvent(ev) })

		case <-s.ready:
			s.ready = nil
			s.armCamera()

		case now := <-captureTicker.C:
			s.safely(func() { s.stream.Tick(now) })

		case <-renderC:
			s.renderer.RenderToWriter(s.out, s.View())

		case req := <-s.requests:
			var err error
			s.safely(func() { err = s.apply(ctx, req.cmd) })
			req.reply <- err
		}
	}
}

// safely runs fn on the loop and logs a panic instead of killing the session.
func (s *Session) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (s *Session) handleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnected:
		s.gen = ev.Generation
		s.status.Post(status.Success, ev.StatusText())

	case transport.EventDisconnected:
		s.stream.Disconnected()
		s.status.Post(status.Warning, ev.StatusText())

	case transport.EventMessage:
		if ev.Generation != s.gen {
			s.logger.Debug("stale message dropped", "type", ev.Msg.Type, "generation", ev.Generation)
			return
		}
		if s.game.Dispatch(ev.Msg) {
			s.stream.Ack(ev.Msg.Type, ev.Msg.Message, time.Now())
		}
	}
}

func (s *Session) startCamera(ctx context.Context) error {
	if s.stream.Active() {
		return nil
	}
	ready, err := s.stream.Start(ctx)
	if err != nil {
		coded := capture.Coded(err)
		s.status.Post(status.Error, coded.StatusText()+". Use keyboard controls.")
		s.logger.Warn("camera unavailable", "error", coded)
		return coded
	}
	s.ready = ready
	s.camera.Store(true)
	s.status.Post(status.Info, "Starting camera...")
	return nil
}

// armCamera enables streaming once the device finished starting up. A device
// that failed to start is released and control falls back to the keyboard.
func (s *Session) armCamera() {
	armed, err := s.stream.Arm()
	if err != nil {
		coded := capture.Coded(err)
		s.camera.Store(false)
		s.status.Post(status.Error, coded.StatusText()+". Use keyboard controls.")
		s.logger.Warn("camera unavailable", "error", coded)
		return
	}
	if armed {
		s.status.Post(status.Success, "Camera ready")
	}
}

func (s *Session) stopCamera() {
	wasActive := s.stream.Active()
	s.stream.Stop()
	s.ready = nil
	s.camera.Store(false)
	if wasActive {
		s.status.Post(status.Info, "Camera stopped")
	}
}

func (s *Session) onSummary(sum game.Summary) {
	s.status.Postf(status.Info, "Game over! Score %d, high score %d", sum.Score, sum.Highscore)
	if s.archiver == nil {
		return
	}
	rec := archive.Record{
		Score:     sum.Score,
		Highscore: sum.Highscore,
		EndedAt:   sum.At,
		Server:    s.conn.Endpoint(),
	}
	if p, ok := s.game.Processed(); ok {
		rec.Frame = p.Frame
	}
	s.archives.Add(1)
	go func() {
		defer s.archives.Done()
		if key, err := s.archiver.Save(context.Background(), rec); err != nil {
			s.logger.Warn("archive failed", "error", err)
		} else {
			s.logger.Info("session archived", "key", key)
		}
	}()
}

// Do runs cmd on the session loop and returns its result.
func (s *Session) Do(ctx context.Context, cmd Command) error {
	if !cmd.Valid() {
		return ErrUnknownCommand
	}
	req := request{cmd: cmd, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-s.finished:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the current read-only session state.
func (s *Session) View() render.View {
	v := render.View{
		State:      s.game.Snapshot(),
		Mode:       s.game.Mode(),
		Connection: s.conn.State(),
		Camera:     s.camera.Load(),
		Status:     s.status.Active(),
	}
	if sum, ok := s.game.Summary(); ok {
		v.Summary = &sum
	}
	return v
}

// Processed returns the last processed frame from the server.
func (s *Session) Processed() (game.Processed, bool) {
	return s.game.Processed()
}

// Close stops the session. It waits for Run to return if it is running.
// Safe to call more than once.
func (s *Session) Close() error {
	s.closeOne.Do(func() { close(s.done) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if started {
		<-s.finished
	} else {
		s.teardown()
	}
	return nil
}

func (s *Session) teardown() {
	s.downOnce.Do(func() {
		s.stopCamera()
		s.conn.Close()
		s.archives.Wait()
	})
}

// Snapshot returns the latest authoritative game state, or nil.
func (s *Session) Snapshot() *protocol.GameState {
	return s.game.Snapshot()
}
