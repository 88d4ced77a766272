package client

import (
	"time"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/config"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/capture"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/render"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/stream"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

// Config holds the session settings.
type Config struct {
	Transport transport.Config
	Stream    stream.Config

	// AutoStartCamera starts capture when Run begins.
	AutoStartCamera bool

	// CaptureTick is the scheduler period of the capture loop. The streamer's
	// rate gate decides whether a tick actually sends.
	// Default: MinInterval / 4, at least 5ms
	CaptureTick time.Duration

	// RenderInterval is the display refresh period.
	// Default: 50ms
	RenderInterval time.Duration

	Render render.RendererConfig
}

func (c *Config) applyDefaults() {
	if c.Stream.MinInterval <= 0 {
		c.Stream.MinInterval = 100 * time.Millisecond
	}
	if c.CaptureTick <= 0 {
		c.CaptureTick = max(c.Stream.MinInterval/4, 5*time.Millisecond)
	}
	if c.RenderInterval <= 0 {
		c.RenderInterval = 50 * time.Millisecond
	}
}

// ConfigFrom builds a session Config from the application config.
func ConfigFrom(cfg *config.Config) (Config, error) {
	endpoint, err := transport.EndpointFromOrigin(cfg.Server.Origin)
	if err != nil {
		return Config{}, ferrors.New("F022").Wrap(err).
			WithDetail("server.origin is " + cfg.Server.Origin)
	}

	tc := transport.DefaultConfig(endpoint)
	tc.ReconnectDelay = cfg.ReconnectDelay()
	tc.ReadTimeout = cfg.ReadTimeout()
	tc.WriteTimeout = cfg.WriteTimeout()
	tc.PingInterval = cfg.PingInterval()
	if cfg.Server.MaxMessageSize > 0 {
		tc.MaxMessageSize = cfg.Server.MaxMessageSize
	}

	return Config{
		Transport: tc,
		Stream: stream.Config{
			Source:      cfg.Capture.Device,
			MinInterval: cfg.MinFrameInterval(),
			Encoder: &capture.Encoder{
				Width:   cfg.Capture.Width,
				Height:  cfg.Capture.Height,
				Quality: cfg.Capture.Quality,
			},
		},
		AutoStartCamera: cfg.Capture.AutoStart,
		RenderInterval:  cfg.RenderInterval(),
		Render:          render.RendererConfig{Color: true, ClearScreen: true},
	}, nil
}
