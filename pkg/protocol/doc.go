// Package protocol implements the JSON wire protocol spoken between the
// faceflap client and the game server.
//
// Every websocket text message carries exactly one JSON object. The "type"
// field selects the message kind and the payload fields sit beside it:
//
//	{"type":"video_frame","frame":"data:image/jpeg;base64,..."}
//	{"type":"game_state","data":{"score":10,"game_mode":"playing",...}}
//
// # Client → Server
//
//   - video_frame: one encoded camera capture (Frame)
//   - start_game: begin active play from preview
//   - pause_game: toggle pause
//   - restart_game: reset the session to preview
//   - manual_jump: keyboard fallback input
//
// # Server → Client
//
//   - game_state: authoritative snapshot (Data)
//   - video_processed: processed frame (Frame), doubles as a frame ack
//   - info: advisory status (Message)
//   - error: processing or command failure (Message), doubles as a frame ack
//
// Decode only checks that a message is well formed JSON with a type.
// Validate checks the payload a known type requires; unknown types are left
// to the caller to log and ignore.
package protocol
