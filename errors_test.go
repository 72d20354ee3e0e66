package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapLDAPError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
		wantCode     int
		transport    bool
	}{
		{"invalid credentials", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad")), CategoryAuthentication, 49, false},
		{"empty password", ldap.NewError(ldap.ErrorEmptyPassword, errors.New("empty")), CategoryAuthentication, 206, false},
		{"insufficient access", ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("no")), CategoryAuthorization, 50, false},
		{"no such object", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no")), CategoryNotFound, 32, false},
		{"size limit", ldap.NewError(ldap.LDAPResultSizeLimitExceeded, errors.New("limit")), CategorySizeLimit, 4, false},
		{"network", ldap.NewError(ldap.ErrorNetwork, errors.New("reset")), CategoryTransport, 200, true},
		{"server down", ldap.NewError(ldap.LDAPResultServerDown, errors.New("down")), CategoryTransport, 81, true},
		{"time limit", ldap.NewError(ldap.LDAPResultTimeLimitExceeded, errors.New("slow")), CategoryTimeout, 3, true},
		{"operations error", ldap.NewError(ldap.LDAPResultOperationsError, errors.New("bind first")), CategoryUnknown, 1, false},
		{"plain error", errors.New("connection refused"), CategoryTransport, -1, true},
		{"deadline", context.DeadlineExceeded, CategoryTimeout, -1, true},
		{"cancelled", fmt.Errorf("dial: %w", context.Canceled), CategoryCancelled, -1, true},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, CategoryTransport, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapLDAPError("service_bind", "ldap://dc1.example.org:389", tt.err)
			require.NotNil(t, wrapped)
			assert.Equal(t, tt.wantCategory, wrapped.Category)
			assert.Equal(t, tt.wantCode, wrapped.Code)
			assert.Equal(t, tt.transport, IsTransportError(wrapped))
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}

func TestWrapLDAPErrorNil(t *testing.T) {
	assert.Nil(t, WrapLDAPError("dial", "ldap://x", nil))
	assert.False(t, IsTransportError(nil))
}

func TestWrapLDAPErrorKeepsExisting(t *testing.T) {
	inner := NewLDAPError("dial", "ldap://x", errors.New("refused"))
	outer := WrapLDAPError("user_bind", "ldap://x", fmt.Errorf("context: %w", inner))
	assert.Same(t, inner, outer)
}

func TestLDAPErrorMessage(t *testing.T) {
	err := NewLDAPError("user_bind", "ldap://dc1.example.org:389", errors.New("boom")).WithDN("cn=John Doe,dc=example,dc=org")
	assert.Equal(t, `ldap user_bind failed for DN "cn=John Doe,dc=example,dc=org" on server "ldap://dc1.example.org:389": boom`, err.Error())

	err = NewLDAPError("dial", "ldap://dc1.example.org:389", errors.New("boom"))
	assert.Equal(t, `ldap dial failed on server "ldap://dc1.example.org:389": boom`, err.Error())
}

func TestLDAPErrorIs(t *testing.T) {
	err := NewLDAPError("user_bind", "ldap://x", errors.New("boom")).WithCode(49)
	assert.True(t, errors.Is(err, &LDAPError{Op: "user_bind", Code: 49}))
	assert.False(t, errors.Is(err, &LDAPError{Op: "service_bind", Code: 49}))
}

func TestIsInvalidCredentialsError(t *testing.T) {
	assert.True(t, IsInvalidCredentialsError(ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad"))))
	assert.True(t, IsInvalidCredentialsError(WrapLDAPError("user_bind", "", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad")))))
	assert.True(t, IsInvalidCredentialsError(Failure(ReasonInvalidCredentials, nil).Err))
	assert.False(t, IsInvalidCredentialsError(ldap.NewError(ldap.ErrorNetwork, errors.New("reset"))))
	assert.False(t, IsInvalidCredentialsError(nil))
}

func TestGetLDAPResultCode(t *testing.T) {
	assert.Equal(t, 32, GetLDAPResultCode(fmt.Errorf("x: %w", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no")))))
	assert.Equal(t, -1, GetLDAPResultCode(errors.New("plain")))
}
