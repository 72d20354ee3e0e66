package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/conectseas/directory-auth/internal/store"
)

const (
	DefaultSessionTTL = 12 * time.Hour
	tokenBytes        = 32
)

// SessionManager issues and resolves bearer session tokens.
type SessionManager struct {
	sessions store.SessionsStore
	users    store.UsersStore
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(sessions store.SessionsStore, users store.UsersStore, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{sessions: sessions, users: users, ttl: ttl, now: time.Now}
}

func (m *SessionManager) Issue(ctx context.Context, user *store.User, clientIP, userAgent string) (*store.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	now := m.now().UTC()
	sess := &store.Session{
		Token:     token,
		UserID:    user.ID,
		IP:        clientIP,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Resolve returns the live session for token and its user, or ErrSessionNotFound.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*store.Session, *store.User, error) {
	if token == "" {
		return nil, nil, ErrSessionNotFound
	}
	sess, err := m.sessions.Get(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	user, err := m.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		_ = m.sessions.Delete(ctx, token)
		return nil, nil, ErrSessionNotFound
	}
	return sess, user, nil
}

func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	return m.sessions.Delete(ctx, token)
}

// PurgeExpired removes every session past its expiry.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
