package ldap

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Conn is the part of *ldap.Conn the bridge uses.
type Conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Close() error
}

var _ Conn = (*ldap.Conn)(nil)

// Dialer opens a connection to a directory URL. Implementations must honor
// the context deadline for the connect phase.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f(ctx, url).
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// netDialer dials with go-ldap over TCP, using TLS for ldaps:// URLs.
type netDialer struct {
	tlsConfig *tls.Config
}

func (d *netDialer) Dial(ctx context.Context, url string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if d.tlsConfig != nil {
		opts = append(opts, ldap.DialWithTLSConfig(d.tlsConfig.Clone()))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
