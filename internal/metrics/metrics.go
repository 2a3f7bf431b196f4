// Package metrics exposes a Session's byte counters and reconnect outcomes
// as Prometheus instruments. Wiring it is optional: a Session built without
// a Metrics instance simply skips every instrumentation call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config controls metric naming and registration.
type Config struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Registry    prometheus.Registerer
}

// Option configures a Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace (default "sconn").
func WithNamespace(ns string) Option {
	return func(c *Config) { c.Namespace = ns }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(sub string) Option {
	return func(c *Config) { c.Subsystem = sub }
}

// WithConstLabels attaches constant labels to every metric.
func WithConstLabels(l prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = l }
}

// WithRegistry sets the registerer metrics are registered against
// (default prometheus.DefaultRegisterer).
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = r }
}

// Metrics holds the instruments a Session reports through.
type Metrics struct {
	BytesSent         prometheus.Counter
	BytesReceived     prometheus.Counter
	FramesSent        prometheus.Counter
	ReconnectAttempts prometheus.Counter
	ReconnectFailures prometheus.Counter
	State             prometheus.Gauge
}

// New builds and registers a Metrics instance.
func New(opts ...Option) *Metrics {
	cfg := &Config{Namespace: "sconn", Registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(cfg)
	}
	f := promauto.With(cfg.Registry)

	return &Metrics{
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "bytes_sent_total", Help: "Application bytes handed to the transport in forward state.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "bytes_received_total", Help: "Application bytes delivered from the transport in forward state.",
		}),
		FramesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "frames_sent_total", Help: "Frames handed to the transport, including retransmits.",
		}),
		ReconnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "reconnect_attempts_total", Help: "Reconnect handshakes initiated.",
		}),
		ReconnectFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "reconnect_failures_total", Help: "Reconnect handshakes that landed in a terminal error state.",
		}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: "session_state", Help: "Current SConn state, as its State enum value.",
		}),
	}
}
