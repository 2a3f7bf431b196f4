package sconn

import "github.com/sconn-client/sconn/internal/metrics"

// Option configures a Session at construction time.
type Option func(*Session)

// WithPackageType overrides the schema type name used for the
// request/response package header. Defaults to "base.package".
func WithPackageType(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.packageTypeName = name
		}
	}
}

// WithPersistName enables resumestate persistence under name. Forward's
// entry flushes the resumable fields to disk; Connect loads them back and
// reconnects instead of starting a fresh newconnect handshake if a prior
// run's state is still on disk; Close clears it.
func WithPersistName(name string) Option {
	return func(s *Session) {
		s.persistName = name
	}
}

// WithReconnectCallback installs cb, invoked with true/false once a
// Reconnect attempt settles.
func WithReconnectCallback(cb func(ok bool)) Option {
	return func(s *Session) {
		s.reconnectCB = cb
	}
}

// WithMetrics reports byte counters and reconnect outcomes through m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}
