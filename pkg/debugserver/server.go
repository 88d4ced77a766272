// Package debugserver exposes a running session over HTTP.
//
// Routes:
//
//	GET  /healthz              liveness
//	GET  /metrics              Prometheus metrics
//	GET  /api/state            session view as JSON
//	GET  /api/render           the current text frame
//	GET  /api/frame            last processed frame (image/jpeg)
//	POST /api/commands/{name}  run a command (start, pause, restart, jump, camera, camera_on, camera_off)
//
// The state endpoint lets external renderers draw the game without touching
// the session loop.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/client"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/game"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/render"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
)

// Session is the part of client.Session the server uses.
type Session interface {
	View() render.View
	Processed() (game.Processed, bool)
	Do(ctx context.Context, cmd client.Command) error
}

// StateResponse is the JSON body of GET /api/state.
type StateResponse struct {
	Mode       string              `json:"mode"`
	Connection string              `json:"connection"`
	Camera     bool                `json:"camera"`
	State      *protocol.GameState `json:"state"`
	Summary    *game.Summary       `json:"summary,omitempty"`
	Status     []status.Entry      `json:"status"`
}

// Server is the debug HTTP server.
type Server struct {
	addr     string
	session  Session
	gatherer prometheus.Gatherer
	renderer *render.Renderer
	logger   *slog.Logger
	router   chi.Router
}

// New creates a debug server for session. gatherer may be nil to serve the
// default registry.
func New(addr string, session Session, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:     addr,
		session:  session,
		gatherer: gatherer,
		renderer: render.NewRenderer(render.RendererConfig{}),
		logger:   logger.With("component", "debugserver"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/render", s.handleRender)
		r.Get("/frame", s.handleFrame)
		r.Post("/commands/{name}", s.handleCommand)
	})
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v := s.session.View()
	writeJSON(w, http.StatusOK, StateResponse{
		Mode:       v.Mode.String(),
		Connection: v.Connection.String(),
		Camera:     v.Camera,
		State:      v.State,
		Summary:    v.Summary,
		Status:     v.Status,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.renderer.RenderToWriter(w, s.session.View())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	p, ok := s.session.Processed()
	if !ok {
		http.Error(w, "no processed frame yet", http.StatusNotFound)
		return
	}
	mime, data, err := protocol.DecodeDataURL(p.Frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Last-Modified", p.At.UTC().Format(http.TimeFormat))
	w.Write(data)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd := client.Command(chi.URLParam(r, "name"))
	if !cmd.Valid() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown command " + string(cmd)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := s.session.Do(ctx, cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"command": string(cmd), "mode": s.session.View().Mode.String()})
	case errors.Is(err, client.ErrSessionClosed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusConflict, map[string]string{"error": ferrors.StatusText(err)})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("debug server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("debug server stopped")
		return nil
	}
}
