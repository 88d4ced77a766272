// Package wstest provides an in-process game server for tests.
//
// The server speaks the JSON wire protocol on /ws. By default it behaves like
// the real game server: every video_frame is answered with video_processed
// followed by a game_state snapshot, and control commands change the mode.
// Tests can replace the handler, push messages, and drop connections to
// exercise reconnects.
package wstest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
)

// Handler reacts to one inbound client message.
type Handler func(c *Conn, m *protocol.Message)

// Conn is one server-side websocket.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Send writes m to the client.
func (c *Conn) Send(m *protocol.Message) error {
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return c.SendRaw(b)
}

// SendRaw writes b to the client as a text message without validation.
func (c *Conn) SendRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Close drops the connection without a close handshake.
func (c *Conn) Close() {
	c.ws.Close()
}

// Server is a fake game server.
type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader
	handler  Handler
	received chan *protocol.Message
	accepts  atomic.Int32

	mu    sync.Mutex
	conns map[*Conn]struct{}
	state protocol.GameState
}

// Option configures a Server.
type Option func(*Server)

// WithHandler replaces the game behavior.
func WithHandler(h Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithState sets the initial snapshot.
func WithState(st protocol.GameState) Option {
	return func(s *Server) {
		s.state = st
	}
}

// NewServer starts a fake server. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		received: make(chan *protocol.Message, 256),
		conns:    make(map[*Conn]struct{}),
		state: protocol.GameState{
			BirdPosY:    5,
			GameMode:    protocol.ModePreview,
			PreviewMode: true,
		},
	}
	s.handler = s.Game
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/ws", s.serveWS)
	s.Server = httptest.NewServer(r)
	return s
}

// Origin returns the http origin the client derives its endpoint from.
func (s *Server) Origin() string {
	return s.Server.URL
}

// Received delivers every message the server decoded, in arrival order.
func (s *Server) Received() <-chan *protocol.Message {
	return s.received
}

// Accepts returns how many websocket upgrades have succeeded.
func (s *Server) Accepts() int {
	return int(s.accepts.Load())
}

// Open returns the number of currently connected clients.
func (s *Server) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Broadcast sends m to every connected client.
func (s *Server) Broadcast(m *protocol.Message) {
	for _, c := range s.snapshotConns() {
		c.Send(m)
	}
}

// DropAll closes every open connection abruptly.
func (s *Server) DropAll() {
	for _, c := range s.snapshotConns() {
		c.Close()
	}
}

// State returns a copy of the emulated game state.
func (s *Server) State() protocol.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.Clone()
}

// Close drops all clients and shuts the server down.
func (s *Server) Close() {
	s.DropAll()
	s.Server.Close()
}

func (s *Server) snapshotConns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Conn{ws: ws}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.accepts.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		ws.Close()
	}()

	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			return
		}
		m, err := protocol.Decode(b)
		if err != nil {
			continue
		}
		select {
		case s.received <- m:
		default:
		}
		if s.handler != nil {
			s.handler(c, m)
		}
	}
}

// Game is the default handler. It mirrors the real server's reactions.
func (s *Server) Game(c *Conn, m *protocol.Message) {
	switch m.Type {
	case protocol.TypeVideoFrame:
		c.Send(&protocol.Message{Type: protocol.TypeVideoProcessed, Frame: m.Frame})
	case protocol.TypeStartGame:
		s.update(func(st *protocol.GameState) {
			if st.GameMode == protocol.ModePreview {
				st.GameMode = protocol.ModePlaying
				st.PreviewMode = false
			}
		})
	case protocol.TypePauseGame:
		s.update(func(st *protocol.GameState) {
			switch st.GameMode {
			case protocol.ModePlaying:
				st.GameMode = protocol.ModePaused
			case protocol.ModePaused:
				st.GameMode = protocol.ModePlaying
			}
		})
	case protocol.TypeRestartGame:
		s.update(func(st *protocol.GameState) {
			*st = protocol.GameState{
				Highscore:   st.Highscore,
				BirdPosY:    5,
				GameMode:    protocol.ModePreview,
				PreviewMode: true,
			}
		})
	case protocol.TypeManualJump:
		s.update(func(st *protocol.GameState) {
			st.BirdPosY = max(0, st.BirdPosY-1)
		})
	default:
		c.Send(&protocol.Message{Type: protocol.TypeError, Message: "Unknown message type"})
		return
	}
	c.Send(protocol.NewGameState(s.stateCopy()))
}

// SetState replaces the emulated state and broadcasts it.
func (s *Server) SetState(st protocol.GameState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.Broadcast(protocol.NewGameState(s.stateCopy()))
}

func (s *Server) update(fn func(*protocol.GameState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

func (s *Server) stateCopy() *protocol.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}
