package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "faceflap.json"

	// DefaultOrigin is the page origin the websocket endpoint is derived from.
	DefaultOrigin = "http://localhost:8000"

	// DefaultReconnectDelay is the fixed back-off after any close.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultCaptureRate is the target number of captures per second.
	DefaultCaptureRate = 10

	// DefaultQuality is the JPEG quality factor (1-100).
	DefaultQuality = 80

	// DefaultWidth and DefaultHeight are the negotiated capture size.
	DefaultWidth  = 300
	DefaultHeight = 225

	// DefaultDevice is the capture source used when none is configured.
	DefaultDevice = "synthetic"
)

// Config represents the complete faceflap.json configuration.
type Config struct {
	// Server contains game server connection settings.
	Server ServerConfig `json:"server"`

	// Capture contains camera capture and frame streaming settings.
	Capture CaptureConfig `json:"capture"`

	// Display contains terminal renderer settings.
	Display DisplayConfig `json:"display"`

	// Debug contains the local debug HTTP server settings.
	Debug DebugConfig `json:"debug,omitempty"`

	// Archive contains end-of-session archive settings.
	Archive ArchiveConfig `json:"archive,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains connection settings. Durations use time.ParseDuration
// syntax ("3s", "500ms").
type ServerConfig struct {
	// Origin is the page origin; ws/wss and the /ws path are derived from it.
	Origin string `json:"origin"`

	// ReconnectDelay is the fixed delay before reconnecting after a close.
	ReconnectDelay string `json:"reconnectDelay,omitempty"`

	// ReadTimeout is the maximum silence before the connection is considered dead.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout bounds each websocket write.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// PingInterval is the keepalive ping period.
	PingInterval string `json:"pingInterval,omitempty"`

	// MaxMessageSize limits inbound message size in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`
}

// CaptureConfig contains capture settings.
type CaptureConfig struct {
	// Device selects the capture source: "synthetic", "dir:<path>" or "none".
	Device string `json:"device"`

	// Rate is the target captures per second; the minimum send interval is 1/Rate.
	Rate float64 `json:"rate"`

	// Quality is the JPEG quality factor (1-100).
	Quality int `json:"quality"`

	// Width and Height are the encoded frame size.
	Width  int `json:"width"`
	Height int `json:"height"`

	// AutoStart starts the camera as soon as the session runs.
	AutoStart bool `json:"autoStart,omitempty"`
}

// DisplayConfig contains terminal renderer settings.
type DisplayConfig struct {
	// Enabled turns the terminal renderer on.
	Enabled bool `json:"enabled"`

	// FPS is the render tick rate.
	FPS int `json:"fps"`
}

// DebugConfig contains the debug HTTP server settings.
type DebugConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `json:"addr,omitempty"`
}

// ArchiveConfig contains S3 archive settings. An empty bucket disables archiving.
type ArchiveConfig struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for S3-compatible stores (MinIO).
	Endpoint string `json:"endpoint,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`

	// Format is "text" or "json".
	Format string `json:"format"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Origin:         DefaultOrigin,
			ReconnectDelay: "3s",
			ReadTimeout:    "60s",
			WriteTimeout:   "10s",
			PingInterval:   "25s",
			MaxMessageSize: 1 << 20,
		},
		Capture: CaptureConfig{
			Device:    DefaultDevice,
			Rate:      DefaultCaptureRate,
			Quality:   DefaultQuality,
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			AutoStart: true,
		},
		Display: DisplayConfig{
			Enabled: true,
			FPS:     20,
		},
		Archive: ArchiveConfig{
			Prefix: "sessions/",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for faceflap.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("F060").
				WithDetail("No faceflap.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'faceflap config init' to write one with defaults")
		}
		return nil, errors.New("F061").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("F061").
			WithDetail("Failed to parse faceflap.json: " + err.Error()).
			WithSuggestion("Check that faceflap.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("F061").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("F061").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Origin == "" {
		c.Server.Origin = d.Server.Origin
	}
	if c.Server.ReconnectDelay == "" {
		c.Server.ReconnectDelay = d.Server.ReconnectDelay
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.PingInterval == "" {
		c.Server.PingInterval = d.Server.PingInterval
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = d.Server.MaxMessageSize
	}

	if c.Capture.Device == "" {
		c.Capture.Device = DefaultDevice
	}
	if c.Capture.Rate == 0 {
		c.Capture.Rate = DefaultCaptureRate
	}
	if c.Capture.Quality == 0 {
		c.Capture.Quality = DefaultQuality
	}
	if c.Capture.Width == 0 {
		c.Capture.Width = DefaultWidth
	}
	if c.Capture.Height == 0 {
		c.Capture.Height = DefaultHeight
	}

	if c.Display.FPS == 0 {
		c.Display.FPS = d.Display.FPS
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = d.Archive.Prefix
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value string
	}{
		{"server.reconnectDelay", c.Server.ReconnectDelay},
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.pingInterval", c.Server.PingInterval},
	}
	parsed := make(map[string]time.Duration, len(durations))
	for _, f := range durations {
		d, err := time.ParseDuration(f.value)
		if err != nil || d <= 0 {
			return errors.New("F062").
				WithDetail(f.name + " must be a positive duration, got " + quote(f.value))
		}
		parsed[f.name] = d
	}
	// A ping must go out before the read deadline expires.
	if parsed["server.pingInterval"] >= parsed["server.readTimeout"] {
		return errors.New("F062").
			WithDetail("server.pingInterval must be shorter than server.readTimeout")
	}
	if c.Capture.Rate <= 0 || c.Capture.Rate > 60 {
		return errors.New("F062").
			WithDetail("capture.rate must be in (0, 60] captures per second")
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return errors.New("F062").
			WithDetail("capture.quality must be between 1 and 100")
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return errors.New("F062").
			WithDetail("capture.width and capture.height must be positive")
	}
	if c.Display.FPS <= 0 || c.Display.FPS > 120 {
		return errors.New("F062").
			WithDetail("display.fps must be between 1 and 120")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("F062").
			WithDetail("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("F062").
			WithDetail("log.format must be text or json")
	}
	return nil
}

// ReconnectDelay returns the parsed reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	return parseDuration(c.Server.ReconnectDelay, DefaultReconnectDelay)
}

// ReadTimeout returns the parsed read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 60*time.Second)
}

// WriteTimeout returns the parsed write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 10*time.Second)
}

// PingInterval returns the parsed keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return parseDuration(c.Server.PingInterval, 25*time.Second)
}

// MinFrameInterval is the minimum time between two sent frames.
func (c *Config) MinFrameInterval() time.Duration {
	if c.Capture.Rate <= 0 {
		return time.Second / DefaultCaptureRate
	}
	return time.Duration(float64(time.Second) / c.Capture.Rate)
}

// RenderInterval is the display tick period.
func (c *Config) RenderInterval() time.Duration {
	if c.Display.FPS <= 0 {
		return time.Second / 20
	}
	return time.Second / time.Duration(c.Display.FPS)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func quote(s string) string {
	return `"` + s + `"`
}
