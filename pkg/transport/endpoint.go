package transport

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidOrigin is returned when an origin cannot be mapped to a websocket
// endpoint.
var ErrInvalidOrigin = errors.New("transport: invalid origin")

// EndpointPath is the websocket path on the game server.
const EndpointPath = "/ws"

// EndpointFromOrigin derives the websocket endpoint from the page origin:
// http becomes ws, https becomes wss, and the path is always /ws.
func EndpointFromOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidOrigin)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: EndpointPath}).String(), nil
}
