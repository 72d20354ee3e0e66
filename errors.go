package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// LDAPError represents an enhanced error with context for a single directory step.
// It wraps the underlying go-ldap or network error.
type LDAPError struct {
	// Op is the step name (e.g., "dial", "service_bind", "user_search", "user_bind")
	Op string
	// DN is the distinguished name involved in the step (if applicable)
	DN string
	// Server is the directory URL
	Server string
	// Code is the LDAP result code, or -1 when the failure never reached the protocol
	Code int
	// Category is the classification used to pick a failure reason
	Category ErrorCategory
	// Err is the underlying error
	Err error
	// Timestamp indicates when the error occurred
	Timestamp time.Time
}

// ErrorCategory is a coarse classification of a directory error.
type ErrorCategory string

const (
	CategoryTransport      ErrorCategory = "transport"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryNotFound       ErrorCategory = "not_found"
	CategorySizeLimit      ErrorCategory = "size_limit"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryCancelled      ErrorCategory = "cancelled"
	CategoryProtocol       ErrorCategory = "protocol"
	CategoryUnknown        ErrorCategory = "unknown"
)

// Error implements the error interface.
func (e *LDAPError) Error() string {
	if e.DN != "" {
		return fmt.Sprintf("ldap %s failed for DN %q on server %q: %v", e.Op, e.DN, e.Server, e.Err)
	}
	return fmt.Sprintf("ldap %s failed on server %q: %v", e.Op, e.Server, e.Err)
}

// Unwrap returns the underlying error.
func (e *LDAPError) Unwrap() error {
	return e.Err
}

// Is matches another *LDAPError by step and code, and otherwise defers to the wrapped error.
func (e *LDAPError) Is(target error) bool {
	if ldapErr, ok := target.(*LDAPError); ok {
		return e.Op == ldapErr.Op && e.Code == ldapErr.Code
	}
	return errors.Is(e.Err, target)
}

// One sentinel per failure reason. AuthResult.Err always wraps exactly one of them.
var (
	ErrNotConfigured      = errors.New("ldap: directory authentication not configured")
	ErrConnection         = errors.New("ldap: cannot reach directory")
	ErrServiceBind        = errors.New("ldap: service account bind failed")
	ErrUserSearch         = errors.New("ldap: user search failed")
	ErrUserNotFound       = errors.New("ldap: user not found")
	ErrInvalidCredentials = errors.New("ldap: invalid credentials")
	ErrUserAuth           = errors.New("ldap: user bind could not be completed")

	// ErrAmbiguousUser is wrapped into a user search failure when the account
	// filter matches more than one entry.
	ErrAmbiguousUser = errors.New("ldap: account filter matched more than one entry")
)

// NewLDAPError creates a new enhanced error for a directory step.
func NewLDAPError(op, server string, err error) *LDAPError {
	return &LDAPError{
		Op:        op,
		Server:    server,
		Code:      -1,
		Category:  CategoryUnknown,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithDN adds a distinguished name to the error context.
func (e *LDAPError) WithDN(dn string) *LDAPError {
	e.DN = dn
	return e
}

// WithCode adds an LDAP result code to the error context.
func (e *LDAPError) WithCode(code int) *LDAPError {
	e.Code = code
	return e
}

// WrapLDAPError wraps err with step context and classifies it.
func WrapLDAPError(op, server string, err error) *LDAPError {
	if err == nil {
		return nil
	}

	var existing *LDAPError
	if errors.As(err, &existing) {
		return existing
	}

	wrapped := NewLDAPError(op, server, err)

	switch {
	case errors.Is(err, context.Canceled):
		wrapped.Category = CategoryCancelled
		return wrapped
	case errors.Is(err, context.DeadlineExceeded):
		wrapped.Category = CategoryTimeout
		return wrapped
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		wrapped.Code = int(ldapErr.ResultCode)
		wrapped.Category = classifyResultCode(ldapErr.ResultCode)
		return wrapped
	}

	// Anything that is not a protocol level answer failed on the way to the server.
	wrapped.Category = CategoryTransport
	return wrapped
}

// classifyResultCode maps go-ldap result codes (including its client-side codes) to a category.
func classifyResultCode(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials, ldap.ErrorEmptyPassword:
		return CategoryAuthentication
	case ldap.LDAPResultInsufficientAccessRights, ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultUnwillingToPerform, ldap.LDAPResultConfidentialityRequired:
		return CategoryAuthorization
	case ldap.LDAPResultNoSuchObject:
		return CategoryNotFound
	case ldap.LDAPResultSizeLimitExceeded:
		return CategorySizeLimit
	case ldap.LDAPResultTimeLimitExceeded, ldap.LDAPResultTimeout:
		return CategoryTimeout
	case ldap.ErrorNetwork, ldap.LDAPResultServerDown, ldap.LDAPResultConnectError,
		ldap.LDAPResultUnavailable, ldap.LDAPResultBusy:
		return CategoryTransport
	case ldap.LDAPResultProtocolError, ldap.ErrorDebugging, ldap.ErrorUnexpectedMessage,
		ldap.ErrorUnexpectedResponse, ldap.ErrorFilterCompile, ldap.ErrorFilterDecompile:
		return CategoryProtocol
	default:
		return CategoryUnknown
	}
}

// IsTransportError reports whether err means the server could not be talked to,
// as opposed to the server answering with a refusal.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var enhanced *LDAPError
	if errors.As(err, &enhanced) {
		switch enhanced.Category {
		case CategoryTransport, CategoryTimeout, CategoryCancelled:
			return true
		}
		return false
	}

	return WrapLDAPError("", "", err).Category == CategoryTransport
}

// IsInvalidCredentialsError reports whether the server rejected the credentials.
func IsInvalidCredentialsError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return true
	}
	return GetLDAPResultCode(err) == int(ldap.LDAPResultInvalidCredentials)
}

// GetLDAPResultCode extracts the LDAP result code from an error, if available.
// Returns -1 if no LDAP result code is found.
func GetLDAPResultCode(err error) int {
	var enhanced *LDAPError
	if errors.As(err, &enhanced) && enhanced.Code >= 0 {
		return enhanced.Code
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return int(ldapErr.ResultCode)
	}

	return -1
}

// reasonError joins a reason sentinel with its cause so both match errors.Is.
func reasonError(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func validationError(field, value, reason string) error {
	return fmt.Errorf("validation failed for %s '%s': %s", field, value, reason)
}

func configurationError(component, issue string, err error) error {
	if err != nil {
		return fmt.Errorf("configuration error in %s: %s: %w", component, issue, err)
	}
	return fmt.Errorf("configuration error in %s: %s", component, issue)
}
