// Package testutil provides an in-memory directory for exercising the bridge
// without a network.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// FakeEntry is one directory object. Password is the secret a simple bind as
// DN must present; an empty Password makes the entry unbindable.
type FakeEntry struct {
	DN         string
	Password   string
	Attributes map[string][]string
}

// BindCall records a bind operation
type BindCall struct {
	Conn     int
	DN       string
	Password string
	Error    error
}

// SearchCall records a search operation
type SearchCall struct {
	Conn    int
	Request *ldap.SearchRequest
	Entries int
	Error   error
}

// FakeDirectory serves binds and searches from memory. Its Dial method has the
// shape of the bridge's dialer, so tests adapt it with a DialerFunc.
type FakeDirectory struct {
	mu sync.Mutex

	// URL, when set, is the only address Dial accepts.
	URL string
	// ServiceDN and ServicePassword are accepted by Bind in addition to the entries.
	ServiceDN       string
	ServicePassword string
	// AllowAnonymous permits searches on connections that never bound.
	AllowAnonymous bool

	// DialFunc may fail the n-th dial (starting at 1).
	DialFunc func(n int, url string) error
	// BindFunc may fail a bind on the n-th connection before credentials are checked.
	BindFunc func(conn int, dn, password string) error
	// SearchFunc may fail a search before the entries are consulted.
	SearchFunc func(conn int, req *ldap.SearchRequest) error

	entries []*FakeEntry
	dialed  testing.TB

	Dials       []string
	BindCalls   []BindCall
	SearchCalls []SearchCall
	Conns       []*FakeConn
}

// NewFakeDirectory creates a directory holding entries.
func NewFakeDirectory(entries ...*FakeEntry) *FakeDirectory {
	d := &FakeDirectory{}
	for _, e := range entries {
		d.AddEntry(e)
	}
	return d
}

// AddEntry stores e, replacing any entry with the same DN. Attribute values
// are copied.
func (d *FakeDirectory) AddEntry(e *FakeEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	attrs := make(map[string][]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = append([]string(nil), v...)
	}
	stored := &FakeEntry{DN: e.DN, Password: e.Password, Attributes: attrs}
	for i, existing := range d.entries {
		if strings.EqualFold(existing.DN, e.DN) {
			d.entries[i] = stored
			return
		}
	}
	d.entries = append(d.entries, stored)
}

// FailOnDial makes every Dial report a test failure on t. Use it to assert
// that no network connection is attempted.
func (d *FakeDirectory) FailOnDial(t testing.TB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = t
}

// DialCount returns the number of Dial calls so far.
func (d *FakeDirectory) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Dials)
}

// OpenConns returns the number of connections not yet closed.
func (d *FakeDirectory) OpenConns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	open := 0
	for _, c := range d.Conns {
		if !c.closed {
			open++
		}
	}
	return open
}

// Binds returns a copy of the recorded bind calls.
func (d *FakeDirectory) Binds() []BindCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]BindCall(nil), d.BindCalls...)
}

// Searches returns a copy of the recorded search calls.
func (d *FakeDirectory) Searches() []SearchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SearchCall(nil), d.SearchCalls...)
}

// Dial opens a new fake connection.
func (d *FakeDirectory) Dial(ctx context.Context, url string) (*FakeConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.Dials = append(d.Dials, url)
	n := len(d.Dials)

	if d.dialed != nil {
		d.dialed.Errorf("unexpected dial %d to %s", n, url)
		return nil, NetworkError("dial refused by test")
	}
	if d.DialFunc != nil {
		if err := d.DialFunc(n, url); err != nil {
			return nil, err
		}
	}
	if d.URL != "" && url != d.URL {
		return nil, NetworkError(fmt.Sprintf("dial tcp: lookup %s: no such host", url))
	}

	c := &FakeConn{dir: d, id: n}
	d.Conns = append(d.Conns, c)
	return c, nil
}

// NetworkError returns the error go-ldap reports when the transport fails.
func NetworkError(msg string) error {
	return ldap.NewError(ldap.ErrorNetwork, errors.New(msg))
}

// ResultError returns a protocol level error with the given result code.
func ResultError(code uint16, msg string) error {
	return ldap.NewError(code, errors.New(msg))
}

// FakeConn is a single connection to a FakeDirectory.
type FakeConn struct {
	dir     *FakeDirectory
	id      int
	bound   bool
	closed  bool
	timeout time.Duration
}

// ID is the 1-based dial sequence number of the connection.
func (c *FakeConn) ID() int { return c.id }

// Timeout returns the last value passed to SetTimeout.
func (c *FakeConn) Timeout() time.Duration {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	return c.timeout
}

// Closed reports whether Close was called.
func (c *FakeConn) Closed() bool {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	return c.closed
}

func (c *FakeConn) SetTimeout(timeout time.Duration) {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	c.timeout = timeout
}

func (c *FakeConn) Close() error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	c.closed = true
	return nil
}

func (c *FakeConn) Bind(username, password string) error {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	err := c.bind(username, password)
	c.bound = err == nil
	d.BindCalls = append(d.BindCalls, BindCall{Conn: c.id, DN: username, Password: password, Error: err})
	return err
}

func (c *FakeConn) bind(username, password string) error {
	d := c.dir
	if c.closed {
		return NetworkError("connection closed")
	}
	if d.BindFunc != nil {
		if err := d.BindFunc(c.id, username, password); err != nil {
			return err
		}
	}
	if password == "" {
		return ldap.NewError(ldap.ErrorEmptyPassword, errors.New("ldap: empty password not allowed by the client"))
	}
	if d.ServiceDN != "" && strings.EqualFold(username, d.ServiceDN) && password == d.ServicePassword {
		return nil
	}
	for _, e := range d.entries {
		if e.Password != "" && strings.EqualFold(e.DN, username) && e.Password == password {
			return nil
		}
	}
	return ResultError(ldap.LDAPResultInvalidCredentials, "80090308: LdapErr: DSID-0C09044E, comment: AcceptSecurityContext error, data 52e")
}

func (c *FakeConn) UnauthenticatedBind(username string) error {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	switch {
	case c.closed:
		err = NetworkError("connection closed")
	case !d.AllowAnonymous:
		err = ResultError(ldap.LDAPResultUnwillingToPerform, "unauthenticated bind not allowed")
	}
	d.BindCalls = append(d.BindCalls, BindCall{Conn: c.id, DN: username, Error: err})
	return err
}

func (c *FakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := c.search(req)
	n := 0
	if res != nil {
		n = len(res.Entries)
	}
	d.SearchCalls = append(d.SearchCalls, SearchCall{Conn: c.id, Request: req, Entries: n, Error: err})
	return res, err
}

func (c *FakeConn) search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d := c.dir
	if c.closed {
		return nil, NetworkError("connection closed")
	}
	if d.SearchFunc != nil {
		if err := d.SearchFunc(c.id, req); err != nil {
			return nil, err
		}
	}
	if !c.bound && !d.AllowAnonymous {
		return nil, ResultError(ldap.LDAPResultOperationsError,
			"000004DC: LdapErr: DSID-0C090A5C, comment: In order to perform this operation a successful bind must be completed on the connection")
	}

	f, err := parseFilter(req.Filter)
	if err != nil {
		return nil, ldap.NewError(ldap.ErrorFilterCompile, err)
	}

	res := &ldap.SearchResult{Entries: []*ldap.Entry{}}
	for _, e := range d.entries {
		if !inScope(e.DN, req.BaseDN) || !f.match(e) {
			continue
		}
		if req.SizeLimit > 0 && len(res.Entries) == req.SizeLimit {
			return res, ResultError(ldap.LDAPResultSizeLimitExceeded, "size limit exceeded")
		}
		res.Entries = append(res.Entries, project(e, req.Attributes))
	}
	return res, nil
}

func inScope(dn, base string) bool {
	dn, base = strings.ToLower(dn), strings.ToLower(base)
	return dn == base || strings.HasSuffix(dn, ","+base)
}

func project(e *FakeEntry, wanted []string) *ldap.Entry {
	if len(wanted) == 0 {
		return ldap.NewEntry(e.DN, e.Attributes)
	}
	attrs := make(map[string][]string)
	for _, w := range wanted {
		for name, values := range e.Attributes {
			if strings.EqualFold(name, w) {
				attrs[name] = values
			}
		}
	}
	return ldap.NewEntry(e.DN, attrs)
}
