package ldap

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"time"
)

// Bridge authenticates portal logins against a directory and runs the
// administrator connection test.
//
// A Bridge holds only dependencies. The DirectoryConfig is passed to every call
// and never stored, so configuration changes take effect on the next call, and
// a Bridge is safe for concurrent use.
type Bridge struct {
	logger           *slog.Logger
	dialer           Dialer
	tlsConfig        *tls.Config
	observer         Observer
	connectTimeout   time.Duration
	operationTimeout time.Duration
}

// New creates a Bridge. Without options it dials real directories with 10s
// connect and operation timeouts and discards logs.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:         nopObserver{},
		connectTimeout:   DefaultConnectTimeout,
		operationTimeout: DefaultOperationTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.dialer == nil {
		b.dialer = &netDialer{tlsConfig: b.tlsConfig}
	}

	return b
}

// connect opens one connection to the configured directory. The connect phase
// is bounded by the connect timeout; every later operation on the returned
// connection by the operation timeout.
func (b *Bridge) connect(ctx context.Context, url string) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, b.connectTimeout)
	defer cancel()

	conn, err := b.dialer.Dial(dialCtx, url)
	if err != nil {
		return nil, WrapLDAPError("dial", url, err)
	}

	conn.SetTimeout(b.operationTimeout)
	return conn, nil
}

// closeConn closes c and logs, but does not return, a close failure.
func (b *Bridge) closeConn(c Conn, url string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		b.logger.Debug("ldap_connection_close_failed",
			slog.String("server", url),
			slog.String("error", err.Error()))
	}
}

// bindAsReader performs the lookup bind: a simple bind with the service account,
// or an unauthenticated bind when none is configured.
func (b *Bridge) bindAsReader(conn Conn, cfg DirectoryConfig) error {
	if cfg.Anonymous() {
		return nil
	}
	if cfg.BindPassword == "" {
		return conn.UnauthenticatedBind(cfg.BindDN)
	}
	return conn.Bind(cfg.BindDN, cfg.BindPassword)
}

func checkContext(ctx context.Context, op, url string) error {
	if err := ctx.Err(); err != nil {
		return WrapLDAPError(op, url, err)
	}
	return nil
}
