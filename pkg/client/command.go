package client

import (
	"context"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
)

// Command is a user action.
type Command string

const (
	CmdStart        Command = "start"
	CmdPause        Command = "pause"
	CmdRestart      Command = "restart"
	CmdJump         Command = "jump"
	CmdCameraToggle Command = "camera"
	CmdCameraOn     Command = "camera_on"
	CmdCameraOff    Command = "camera_off"
)

// Commands lists every command.
var Commands = []Command{CmdStart, CmdPause, CmdRestart, CmdJump, CmdCameraToggle, CmdCameraOn, CmdCameraOff}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	for _, k := range Commands {
		if c == k {
			return true
		}
	}
	return false
}

// apply runs on the loop.
func (s *Session) apply(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdStart:
		s.game.RequestStart()
	case CmdPause:
		s.game.RequestPause()
	case CmdRestart:
		s.game.RequestRestart()
	case CmdJump:
		if !s.game.RequestManualJump() && s.camera.Load() {
			s.status.Post(status.Warning, "Camera control is active")
		}
	case CmdCameraToggle:
		if s.stream.Active() {
			s.stopCamera()
			return nil
		}
		return s.startCamera(ctx)
	case CmdCameraOn:
		return s.startCamera(ctx)
	case CmdCameraOff:
		s.stopCamera()
	default:
		return ErrUnknownCommand
	}
	return nil
}
