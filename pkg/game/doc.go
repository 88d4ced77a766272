// Package game mirrors the server's game session on the client.
//
// The Controller holds the latest authoritative snapshot and the local mode.
// Commands change the mode immediately as a prediction; the next snapshot
// always overwrites it. Snapshots are published atomically, so readers on
// other goroutines never see a partially applied update.
//
// Dispatch and the Request methods must be called from a single goroutine.
// Snapshot, Mode, Summary and Processed may be called from any goroutine.
package game
