// Package transport manages the websocket to the game server.
//
// A Manager owns at most one live connection. It turns the connection's
// lifecycle into Events on a single channel, reconnects after a fixed delay
// whenever the connection closes, and exposes Send, which only delivers while
// the connection is open.
//
// Each dial increments a generation counter. Pumps and timers carry the
// generation they were started for, so a late callback from a superseded
// connection can never revive it or start a second one.
package transport
