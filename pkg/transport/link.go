package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
)

// link is one dialed connection and its pumps.
type link struct {
	gen  uint64
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newLink(gen uint64, ws *websocket.Conn, buffer int) *link {
	return &link{
		gen:  gen,
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		l.ws.Close()
	})
}

// shutdown sends a close frame before closing.
func (l *link) shutdown(timeout time.Duration) {
	l.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(timeout))
	l.close()
}

// readPump decodes inbound messages into events until the connection fails.
func (m *Manager) readPump(l *link) {
	l.ws.SetReadLimit(m.cfg.MaxMessageSize)
	l.ws.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
	l.ws.SetPongHandler(func(string) error {
		l.ws.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		return nil
	})

	for {
		_, b, err := l.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				m.metrics.WebSocketError("read")
			}
			m.lost(l, "read: "+err.Error())
			return
		}
		l.ws.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))

		msg, err := protocol.Decode(b)
		if err != nil {
			m.logger.Warn("malformed message dropped", "error", ferrors.New("F040").Wrap(err), "bytes", len(b))
			m.metrics.MessageDropped("malformed")
			continue
		}
		m.metrics.MessageReceived(string(msg.Type))

		select {
		case m.events <- Event{Kind: EventMessage, Generation: l.gen, Msg: msg}:
		case <-l.done:
			return
		case <-m.done:
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (m *Manager) writePump(l *link) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case b := <-l.send:
			l.ws.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
			if err := l.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				m.metrics.WebSocketError("write")
				m.lost(l, "write: "+err.Error())
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(m.cfg.WriteTimeout)
			if err := l.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				m.metrics.WebSocketError("ping")
				m.lost(l, "ping: "+err.Error())
				return
			}

		case <-l.done:
			return
		}
	}
}
