// Package stream sends camera frames to the game server under stop-and-wait
// flow control.
//
// A Streamer holds a single frame credit. Tick sends a frame only when the
// connection is open, the minimum interval since the previous frame has
// passed, and no earlier frame is still waiting for its acknowledgment. The
// server acknowledges a frame with video_processed or error, and the owner
// forwards that to Ack.
//
// A Streamer is not safe for concurrent use. It is driven from the session's
// dispatch loop, which serializes ticks, acks and start/stop requests.
package stream
