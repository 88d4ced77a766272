// Package metrics exposes Prometheus metrics and OpenTelemetry spans for the
// faceflap client runtime.
//
// All recording methods are safe to call on a nil *Metrics, so components can
// run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the client metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "faceflap").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for frame round-trip time.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the client metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the round-trip histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "faceflap",
		Subsystem: "client",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	framesSent       prometheus.Counter
	framesAcked      *prometheus.CounterVec
	framesDeferred   *prometheus.CounterVec
	framesAborted    prometheus.Counter
	frameBytes       prometheus.Histogram
	frameRoundTrip   prometheus.Histogram
	frameInFlight    prometheus.Gauge
	connects         prometheus.Counter
	disconnects      prometheus.Counter
	reconnects       prometheus.Counter
	connected        prometheus.Gauge
	wsErrors         *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	commandsSent     *prometheus.CounterVec
	modeCorrections  prometheus.Counter
}

// New registers the client metrics and returns them.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		framesSent:     counter("frames_sent_total", "Total number of video frames sent to the server"),
		framesAcked:    counterVec("frames_acked_total", "Total number of frame acknowledgments by kind", "kind"),
		framesDeferred: counterVec("frames_deferred_total", "Capture ticks deferred by a failed gate", "gate"),
		framesAborted:  counter("frames_aborted_total", "In-flight frames abandoned by stop or disconnect"),
		frameBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_bytes",
			Help:        "Encoded frame payload size in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{4096, 8192, 16384, 32768, 65536, 131072}, // 4KB to 128KB
		}),
		frameRoundTrip: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_roundtrip_seconds",
			Help:        "Time from sending a frame to its acknowledgment",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		frameInFlight:    gauge("frame_in_flight", "1 while a frame awaits acknowledgment"),
		connects:         counter("connects_total", "Total number of successful websocket opens"),
		disconnects:      counter("disconnects_total", "Total number of websocket closes"),
		reconnects:       counter("reconnects_total", "Total number of scheduled reconnect attempts"),
		connected:        gauge("connected", "1 while the websocket is open"),
		wsErrors:         counterVec("websocket_errors_total", "Total websocket errors by type", "type"),
		messagesReceived: counterVec("messages_received_total", "Inbound messages by type", "type"),
		messagesDropped:  counterVec("messages_dropped_total", "Inbound messages dropped by reason", "reason"),
		commandsSent:     counterVec("commands_sent_total", "Outbound control commands by type", "type"),
		modeCorrections:  counter("mode_corrections_total", "Predicted modes overwritten by a snapshot"),
	}
}

// FrameSent records a sent frame of n bytes.
func (m *Metrics) FrameSent(n int) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.frameBytes.Observe(float64(n))
	m.frameInFlight.Set(1)
}

// FrameAcked records an acknowledgment of kind ("processed" or "error") that
// arrived rtt after the frame was sent.
func (m *Metrics) FrameAcked(kind string, rtt time.Duration) {
	if m == nil {
		return
	}
	m.framesAcked.WithLabelValues(kind).Inc()
	m.frameRoundTrip.Observe(rtt.Seconds())
	m.frameInFlight.Set(0)
}

// FrameAborted records an in-flight frame abandoned without acknowledgment.
func (m *Metrics) FrameAborted() {
	if m == nil {
		return
	}
	m.framesAborted.Inc()
	m.frameInFlight.Set(0)
}

// FrameDeferred records a capture tick that failed gate.
func (m *Metrics) FrameDeferred(gate string) {
	if m == nil {
		return
	}
	m.framesDeferred.WithLabelValues(gate).Inc()
}

// Connected records a websocket open.
func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.connects.Inc()
	m.connected.Set(1)
}

// Disconnected records a websocket close.
func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
	m.connected.Set(0)
}

// ReconnectScheduled records a scheduled reconnect attempt.
func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// WebSocketError records a websocket error of errorType.
func (m *Metrics) WebSocketError(errorType string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// MessageReceived records an inbound message of type t.
func (m *Metrics) MessageReceived(t string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(t).Inc()
}

// MessageDropped records a dropped inbound message.
func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(reason).Inc()
}

// CommandSent records an outbound control command.
func (m *Metrics) CommandSent(t string) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(t).Inc()
}

// ModeCorrected records a predicted mode overwritten by a snapshot.
func (m *Metrics) ModeCorrected() {
	if m == nil {
		return
	}
	m.modeCorrections.Inc()
}
