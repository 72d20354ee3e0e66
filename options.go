package ldap

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option represents a functional option for configuring a Bridge.
type Option func(*Bridge)

// WithLogger sets a custom structured logger for directory operations.
// If not provided, a no-op logger will be used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	bridge := ldap.New(ldap.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDialer replaces the network dialer, e.g. with an in-memory directory in tests.
func WithDialer(dialer Dialer) Option {
	return func(b *Bridge) {
		if dialer != nil {
			b.dialer = dialer
		}
	}
}

// WithConnectTimeout bounds establishing each connection.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.connectTimeout = timeout
		}
	}
}

// WithOperationTimeout bounds each bind and search.
func WithOperationTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.operationTimeout = timeout
		}
	}
}

// WithTLSConfig configures the TLS client used for ldaps:// connections.
// It has no effect on the default dialer's plaintext connections and is
// ignored when WithDialer supplies a custom dialer.
//
// Example:
//
//	bridge := ldap.New(ldap.WithTLSConfig(&tls.Config{RootCAs: pool}))
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(b *Bridge) {
		if tlsConfig != nil {
			b.tlsConfig = tlsConfig
		}
	}
}

// WithObserver registers a sink for authentication and connection-test outcomes.
func WithObserver(observer Observer) Option {
	return func(b *Bridge) {
		if observer != nil {
			b.observer = observer
		}
	}
}
