// Package client runs one faceflap session.
//
// A Session wires the connection manager, the frame streamer and the game
// controller together and drives them from a single dispatch loop. Transport
// events, capture ticks, render ticks and user commands all arrive on
// channels and are handled one at a time by Run, so the snapshot, mode,
// frame credit and camera state have exactly one writer.
//
//	s, err := client.New(cfg, client.WithOutput(os.Stdout))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	return s.Run(ctx)
//
// Other goroutines interact through Do (commands) and View (read-only state).
package client
