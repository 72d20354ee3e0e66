package ldap

import (
	"fmt"
)

// DirectoryUser is the profile extracted from the matched directory entry.
type DirectoryUser struct {
	// DN is the distinguished name the user bound with.
	DN string `json:"dn"`
	// AccountName is sAMAccountName, then uid, then the submitted username.
	AccountName string `json:"accountName"`
	// DisplayName is displayName, then cn, then the submitted username.
	DisplayName string `json:"displayName"`
	// Email is mail, or {submitted username}@ldap.local.
	Email string `json:"email"`
	// Department is empty when the entry has none.
	Department string `json:"department"`
	// Title is empty when the entry has none.
	Title string `json:"title"`
}

// Reason names why an authentication attempt did not succeed.
// The set is closed; callers may switch on it exhaustively.
type Reason int

const (
	// ReasonNone is the zero value, carried by successful results.
	ReasonNone Reason = iota
	ReasonNotConfigured
	ReasonConnectionError
	ReasonServiceBindFailed
	ReasonUserSearchFailed
	ReasonUserNotFound
	ReasonInvalidCredentials
	ReasonUserAuthError
)

var reasonNames = map[Reason]string{
	ReasonNone:               "none",
	ReasonNotConfigured:      "not_configured",
	ReasonConnectionError:    "connection_error",
	ReasonServiceBindFailed:  "service_bind_failed",
	ReasonUserSearchFailed:   "user_search_failed",
	ReasonUserNotFound:       "user_not_found",
	ReasonInvalidCredentials: "invalid_credentials",
	ReasonUserAuthError:      "user_auth_error",
}

var reasonSentinels = map[Reason]error{
	ReasonNotConfigured:      ErrNotConfigured,
	ReasonConnectionError:    ErrConnection,
	ReasonServiceBindFailed:  ErrServiceBind,
	ReasonUserSearchFailed:   ErrUserSearch,
	ReasonUserNotFound:       ErrUserNotFound,
	ReasonInvalidCredentials: ErrInvalidCredentials,
	ReasonUserAuthError:      ErrUserAuth,
}

// Reasons lists every failure reason in declaration order.
func Reasons() []Reason {
	return []Reason{
		ReasonNotConfigured,
		ReasonConnectionError,
		ReasonServiceBindFailed,
		ReasonUserSearchFailed,
		ReasonUserNotFound,
		ReasonInvalidCredentials,
		ReasonUserAuthError,
	}
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// MarshalText encodes the reason as its snake_case name.
func (r Reason) MarshalText() ([]byte, error) {
	if _, ok := reasonNames[r]; !ok {
		return nil, fmt.Errorf("ldap: unknown reason %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a snake_case reason name.
func (r *Reason) UnmarshalText(text []byte) error {
	for reason, name := range reasonNames {
		if name == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("ldap: unknown reason %q", string(text))
}

// AuthResult is the outcome of Authenticate: either a user or a failure reason.
// Exactly one of User and Reason is set.
type AuthResult struct {
	User   *DirectoryUser
	Reason Reason
	// Err wraps the reason's sentinel and, when there is one, the underlying cause.
	// It is for logs only and must not be shown to the end user.
	Err error
}

// Success builds a successful result.
func Success(user *DirectoryUser) AuthResult {
	return AuthResult{User: user}
}

// Failure builds a failed result for reason, keeping cause for diagnostics.
func Failure(reason Reason, cause error) AuthResult {
	sentinel, ok := reasonSentinels[reason]
	if !ok {
		sentinel = fmt.Errorf("ldap: %s", reason)
	}
	return AuthResult{Reason: reason, Err: reasonError(sentinel, cause)}
}

// OK reports whether the directory authenticated the user.
func (r AuthResult) OK() bool {
	return r.User != nil && r.Reason == ReasonNone
}

func (r AuthResult) String() string {
	if r.OK() {
		return fmt.Sprintf("success(%s)", r.User.DN)
	}
	return fmt.Sprintf("failure(%s)", r.Reason)
}
