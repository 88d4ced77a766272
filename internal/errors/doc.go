// Package errors provides coded, actionable errors for faceflap.
//
// Each error code (e.g. "F001") maps to a registered template holding a
// category, a short user-facing message and a longer detail. The short
// message is what the client shows on its status line; Format renders the
// full error for the terminal.
//
// # Error Categories
//
//   - capture: camera acquisition and frame encoding
//   - connection: websocket dial and transport faults
//   - protocol: malformed or unexpected server messages
//   - config: configuration file problems
//   - cli: command-line usage
//
// # Usage
//
//	err := errors.New("F001").
//	    Wrap(cause).
//	    WithSuggestion("Grant camera access and press 'c' to retry")
//
//	fmt.Println(err.StatusText()) // Camera access denied
//	fmt.Println(err.Format())
package errors
