package transport

import (
	"time"

	"github.com/hako/durafmt"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
)

// State is the connection state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// EventKind identifies an Event.
type EventKind uint8

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventMessage
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	}
	return "unknown"
}

// Event is one transport lifecycle notification.
type Event struct {
	Kind EventKind

	// Generation is the dial generation the event belongs to.
	Generation uint64

	// Reason describes why the connection closed (EventDisconnected).
	Reason string

	// RetryIn is the delay before the scheduled reconnect (EventDisconnected).
	RetryIn time.Duration

	// Err is the coded cause of an EventDisconnected: F020 when the dial
	// failed, F021 when an open connection was lost.
	Err *ferrors.Error

	// Msg is the decoded inbound message (EventMessage).
	Msg *protocol.Message
}

// StatusText returns the user-facing status line for connection events.
func (e Event) StatusText() string {
	switch e.Kind {
	case EventConnected:
		return "Connected to server"
	case EventDisconnected:
		text := "Disconnected from server"
		if e.Err != nil {
			text = e.Err.StatusText()
		}
		if e.RetryIn <= 0 {
			return text
		}
		return text + ". Reconnecting in " + durafmt.Parse(e.RetryIn).LimitFirstN(2).String()
	}
	return ""
}
