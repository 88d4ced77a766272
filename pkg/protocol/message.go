package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies the kind of a wire message.
type MessageType string

// Client → Server message types.
const (
	TypeVideoFrame  MessageType = "video_frame"
	TypeStartGame   MessageType = "start_game"
	TypePauseGame   MessageType = "pause_game"
	TypeRestartGame MessageType = "restart_game"
	TypeManualJump  MessageType = "manual_jump"
)

// Server → Client message types.
const (
	TypeGameState      MessageType = "game_state"
	TypeVideoProcessed MessageType = "video_processed"
	TypeInfo           MessageType = "info"
	TypeError          MessageType = "error"
)

// IsCommand reports whether t is a client control command (no payload).
func (t MessageType) IsCommand() bool {
	switch t {
	case TypeStartGame, TypePauseGame, TypeRestartGame, TypeManualJump:
		return true
	}
	return false
}

// IsOutbound reports whether t is sent by the client.
func (t MessageType) IsOutbound() bool {
	return t == TypeVideoFrame || t.IsCommand()
}

// IsInbound reports whether t is sent by the server.
func (t MessageType) IsInbound() bool {
	switch t {
	case TypeGameState, TypeVideoProcessed, TypeInfo, TypeError:
		return true
	}
	return false
}

// IsFrameAck reports whether a message of type t releases the frame credit.
func (t MessageType) IsFrameAck() bool {
	return t == TypeVideoProcessed || t == TypeError
}

// Protocol errors.
var (
	ErrEmptyMessage   = errors.New("protocol: empty message")
	ErrMissingType    = errors.New("protocol: missing message type")
	ErrUnknownType    = errors.New("protocol: unknown message type")
	ErrMissingPayload = errors.New("protocol: missing payload")
	ErrInvalidState   = errors.New("protocol: invalid game state")
	ErrInvalidDataURL = errors.New("protocol: invalid data URL")
)

// Message is a single wire message. Only the fields relevant to Type are set.
type Message struct {
	Type MessageType `json:"type"`

	// Frame is a data URL (video_frame, video_processed).
	Frame string `json:"frame,omitempty"`

	// Message is human-readable text (info, error).
	Message string `json:"message,omitempty"`

	// Data is the authoritative snapshot (game_state).
	Data *GameState `json:"data,omitempty"`
}

// NewVideoFrame returns a video_frame message carrying dataURL.
func NewVideoFrame(dataURL string) *Message {
	return &Message{Type: TypeVideoFrame, Frame: dataURL}
}

// NewCommand returns a payload-less control command.
func NewCommand(t MessageType) *Message {
	return &Message{Type: t}
}

// NewGameState returns a game_state message. Used by test servers.
func NewGameState(s *GameState) *Message {
	return &Message{Type: TypeGameState, Data: s}
}

// Validate checks that a message of a known type carries the payload it needs.
// Unknown types return ErrUnknownType.
func (m *Message) Validate() error {
	if m == nil || m.Type == "" {
		return ErrMissingType
	}
	switch m.Type {
	case TypeVideoFrame, TypeVideoProcessed:
		if m.Frame == "" {
			return fmt.Errorf("%w: %s requires frame", ErrMissingPayload, m.Type)
		}
	case TypeGameState:
		if m.Data == nil {
			return fmt.Errorf("%w: %s requires data", ErrMissingPayload, m.Type)
		}
		return m.Data.Validate()
	case TypeInfo, TypeError:
		// An empty message is tolerated; the type alone is meaningful.
	case TypeStartGame, TypePauseGame, TypeRestartGame, TypeManualJump:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

// Encode serializes m to its wire form.
func Encode(m *Message) ([]byte, error) {
	if m == nil || m.Type == "" {
		return nil, ErrMissingType
	}
	return json.Marshal(m)
}

// Decode parses one wire message. It does not validate the payload.
func Decode(b []byte) (*Message, error) {
	if len(b) == 0 {
		return nil, ErrEmptyMessage
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode: %w", err)
	}
	if m.Type == "" {
		return nil, ErrMissingType
	}
	return &m, nil
}
