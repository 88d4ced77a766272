package protocol

import (
	"fmt"
	"math"
)

// Mode is the server-side game mode carried in every snapshot.
type Mode string

const (
	ModePreview  Mode = "preview"
	ModePlaying  Mode = "playing"
	ModePaused   Mode = "paused"
	ModeGameOver Mode = "game_over"
)

// Valid reports whether m is one of the four server modes.
func (m Mode) Valid() bool {
	switch m {
	case ModePreview, ModePlaying, ModePaused, ModeGameOver:
		return true
	}
	return false
}

// Grid dimensions of the playfield in grid units.
const (
	GridWidth  = 20
	GridHeight = 10
)

// Pipe is one obstacle column. X and GapY are in grid units.
type Pipe struct {
	X    float64 `json:"x"`
	GapY float64 `json:"gap_y"`
}

// GameState is an authoritative snapshot. It is replaced wholesale on every
// game_state message and never mutated after decoding.
type GameState struct {
	Score                int     `json:"score"`
	Highscore            int     `json:"highscore"`
	BirdPosY             float64 `json:"bird_pos_y"`
	Pipes                []Pipe  `json:"pipes"`
	GameMode             Mode    `json:"game_mode"`
	GameOver             bool    `json:"game_over"`
	PreviewMode          bool    `json:"preview_mode"`
	ShowRestartDialog    bool    `json:"show_restart_dialog"`
	AutoRestartCountdown int     `json:"auto_restart_countdown"`

	// Informational fields some servers include.
	PipeCount int     `json:"pipe_count,omitempty"`
	PipeSpeed float64 `json:"pipe_speed,omitempty"`
}

// Validate checks the snapshot invariants.
func (s *GameState) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidState)
	}
	if s.Score < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidState, s.Score)
	}
	if s.Highscore < 0 {
		return fmt.Errorf("%w: negative highscore %d", ErrInvalidState, s.Highscore)
	}
	if s.AutoRestartCountdown < 0 {
		return fmt.Errorf("%w: negative countdown %d", ErrInvalidState, s.AutoRestartCountdown)
	}
	if !s.GameMode.Valid() {
		return fmt.Errorf("%w: unknown game_mode %q", ErrInvalidState, s.GameMode)
	}
	if math.IsNaN(s.BirdPosY) || math.IsInf(s.BirdPosY, 0) {
		return fmt.Errorf("%w: bird_pos_y not finite", ErrInvalidState)
	}
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the pipes slice.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Pipes != nil {
		c.Pipes = make([]Pipe, len(s.Pipes))
		copy(c.Pipes, s.Pipes)
	}
	return &c
}
