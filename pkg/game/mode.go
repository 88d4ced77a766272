package game

import "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"

// Mode is the local game mode.
type Mode string

const (
	ModeConnecting Mode = "connecting"
	ModePreview    Mode = "preview"
	ModePlaying    Mode = "playing"
	ModePaused     Mode = "paused"
	ModeGameOver   Mode = "game_over"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// modeOf maps a snapshot to the local mode. game_over=true wins over
// game_mode.
func modeOf(s *protocol.GameState) Mode {
	if s.GameOver {
		return ModeGameOver
	}
	switch s.GameMode {
	case protocol.ModePreview:
		return ModePreview
	case protocol.ModePlaying:
		return ModePlaying
	case protocol.ModePaused:
		return ModePaused
	case protocol.ModeGameOver:
		return ModeGameOver
	}
	return ModeConnecting
}
