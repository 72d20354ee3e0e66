// Package ldap authenticates portal users against an LDAP or Active Directory
// server and explains directory configuration problems to administrators.
//
// The package wraps go-ldap/ldap with the two flows the portal needs:
//   - Authenticate: service bind, account lookup, then a re-bind as the matched
//     entry on a second connection
//   - TestConnection: connect, optional bind and a capped listing of the base DN,
//     collected into a step by step DiagnosticTrace
//
// Neither flow returns an error. Authenticate reports a closed set of failure
// reasons and TestConnection records every failure as a trace step.
//
// # Basic Usage
//
//	bridge := ldap.New(ldap.WithLogger(logger))
//
//	cfg := ldap.DirectoryConfig{
//		Enabled:      true,
//		Host:         "dc1.example.org",
//		Port:         389,
//		BaseDN:       "dc=example,dc=org",
//		BindDN:       "cn=svc,dc=example,dc=org",
//		BindPassword: "secret",
//	}
//
//	result := bridge.Authenticate(ctx, "jdoe", "hunter2", cfg)
//	if result.OK() {
//		fmt.Printf("Authenticated %s (%s)\n", result.User.DisplayName, result.User.DN)
//	}
//
// # Configuration
//
// A DirectoryConfig is passed to every call. The Bridge never keeps one, so
// callers load the stored settings immediately before each call and edits apply
// to the next attempt. Port 636 selects ldaps://, every other port ldap://.
//
// # Error Handling
//
// AuthResult.Reason is one of ReasonNotConfigured, ReasonConnectionError,
// ReasonServiceBindFailed, ReasonUserSearchFailed, ReasonUserNotFound,
// ReasonInvalidCredentials or ReasonUserAuthError. AuthResult.Err wraps the
// matching sentinel (ErrNotConfigured, ErrConnection, ...) and the underlying
// *LDAPError, for logging only. An account filter that matches more than one
// entry is a user search failure wrapping ErrAmbiguousUser.
package ldap
