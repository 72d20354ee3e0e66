package ldap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

var errEmptyPassword = errors.New("ldap: empty password refused before bind")

// Authenticate verifies username and password against the directory described
// by cfg.
//
// The flow uses two independent connections. The first binds as the service
// account (or stays anonymous) and looks the alias up under cfg.BaseDN; it is
// closed before the second connection binds with the matched entry's DN and the
// supplied password. Each connection is closed on every exit path and nothing
// is retried.
//
// Parameters:
//   - ctx: checked between steps; the connect and operation timeouts bound each step
//   - username: login alias matched against sAMAccountName, cn and uid
//   - password: the user's password, never logged
//   - cfg: a fresh snapshot of the stored directory settings
//
// Returns:
//   - AuthResult: Success with the extracted profile, or Failure with one of the
//     closed set of reasons. Authenticate never panics or returns an error; the
//     caller decides whether to fall back to local authentication.
func (b *Bridge) Authenticate(ctx context.Context, username, password string, cfg DirectoryConfig) (result AuthResult) {
	start := time.Now()
	maskedUsername := maskSensitiveData(username)

	defer func() {
		duration := time.Since(start)
		b.observer.ObserveAuthentication(result.Reason, duration)

		switch {
		case result.OK():
			b.logger.Info("authentication_successful",
				slog.String("username_masked", maskedUsername),
				slog.String("dn", result.User.DN),
				slog.Duration("duration", duration))
		case result.Reason == ReasonNotConfigured:
			b.logger.Debug("authentication_skipped_not_configured",
				slog.String("username_masked", maskedUsername))
		default:
			b.logger.Warn("authentication_failed",
				slog.String("username_masked", maskedUsername),
				slog.String("reason", result.Reason.String()),
				slog.Any("error", result.Err),
				slog.Duration("duration", duration))
		}
	}()

	if !cfg.Configured() {
		return Failure(ReasonNotConfigured, nil)
	}

	// An empty password would be an unauthenticated bind, which many servers accept.
	if password == "" {
		return Failure(ReasonInvalidCredentials, errEmptyPassword)
	}
	if err := ValidateUsername(username); err != nil {
		return Failure(ReasonInvalidCredentials, err)
	}

	url := cfg.URL()

	b.logger.Debug("authentication_attempt",
		slog.String("username_masked", maskedUsername),
		slog.String("server", url))

	entry, reason, err := b.lookupUser(ctx, cfg, url, username)
	if err != nil {
		return Failure(reason, err)
	}
	if entry == nil {
		return Failure(ReasonUserNotFound, nil)
	}

	if reason, err := b.verifyUser(ctx, url, entry.DN, password); err != nil {
		return Failure(reason, err)
	}

	return Success(extractUser(entry, username))
}

// lookupUser runs steps one to four on the first connection and returns the
// single matching entry, or a nil entry and a nil error when nothing matched.
// The connection is closed before it returns.
func (b *Bridge) lookupUser(ctx context.Context, cfg DirectoryConfig, url, username string) (*ldap.Entry, Reason, error) {
	conn, err := b.connect(ctx, url)
	if err != nil {
		b.logger.Debug("ldap_connect_failed",
			slog.String("server", url),
			slog.String("error", err.Error()))
		return nil, ReasonConnectionError, err
	}
	defer b.closeConn(conn, url)

	if err := checkContext(ctx, "service_bind", url); err != nil {
		return nil, ReasonConnectionError, err
	}

	if err := b.bindAsReader(conn, cfg); err != nil {
		wrapped := WrapLDAPError("service_bind", url, err).WithDN(cfg.BindDN)
		b.logger.Debug("ldap_service_bind_failed",
			slog.String("server", url),
			slog.String("bind_dn", cfg.BindDN),
			slog.Int("code", wrapped.Code),
			slog.String("error", err.Error()))
		if IsTransportError(wrapped) {
			return nil, ReasonConnectionError, wrapped
		}
		return nil, ReasonServiceBindFailed, wrapped
	}

	if err := checkContext(ctx, "user_search", url); err != nil {
		return nil, ReasonUserSearchFailed, err
	}

	res, err := conn.Search(b.userSearchRequest(cfg.BaseDN, username))
	if err != nil {
		wrapped := WrapLDAPError("user_search", url, err).WithDN(cfg.BaseDN)
		if wrapped.Category == CategorySizeLimit {
			// More entries than the size limit means the alias is ambiguous.
			return nil, ReasonUserSearchFailed, reasonError(ErrAmbiguousUser, wrapped)
		}
		b.logger.Debug("ldap_user_search_failed",
			slog.String("server", url),
			slog.String("base_dn", cfg.BaseDN),
			slog.Int("code", wrapped.Code),
			slog.String("error", err.Error()))
		return nil, ReasonUserSearchFailed, wrapped
	}

	entry, err := selectUser(res.Entries)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, ReasonUserNotFound, nil
	case err != nil:
		b.logger.Warn("ldap_user_search_ambiguous",
			slog.String("server", url),
			slog.String("base_dn", cfg.BaseDN),
			slog.Int("entries", len(res.Entries)))
		return nil, ReasonUserSearchFailed, err
	}

	return entry, ReasonNone, nil
}

// verifyUser binds a second, fresh connection as dn.
func (b *Bridge) verifyUser(ctx context.Context, url, dn, password string) (Reason, error) {
	if err := checkContext(ctx, "user_bind", url); err != nil {
		return ReasonUserAuthError, err
	}

	conn, err := b.connect(ctx, url)
	if err != nil {
		b.logger.Debug("ldap_user_connect_failed",
			slog.String("server", url),
			slog.String("error", err.Error()))
		return ReasonUserAuthError, err
	}
	defer b.closeConn(conn, url)

	if err := conn.Bind(dn, password); err != nil {
		wrapped := WrapLDAPError("user_bind", url, err).WithDN(dn)
		if IsTransportError(wrapped) {
			return ReasonUserAuthError, wrapped
		}
		return ReasonInvalidCredentials, wrapped
	}

	return ReasonNone, nil
}
