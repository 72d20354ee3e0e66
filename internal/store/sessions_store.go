package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SessionsStore interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db *sql.DB
}

func NewSessionsStore(db *sql.DB) SessionsStore {
	return &sessionsStore{db: db}
}

func (s *sessionsStore) Create(ctx context.Context, sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(token, user_id, ip, user_agent, created_at, expires_at) VALUES(?,?,?,?,?,?)`,
		sess.Token, sess.UserID, sess.IP, sess.UserAgent, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC())
	return err
}

// Get returns the session for token, or nil when it does not exist or has expired.
func (s *sessionsStore) Get(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT token, user_id, ip, user_agent, created_at, expires_at FROM sessions WHERE token=?`, token)
	var sess Session
	if err := row.Scan(&sess.Token, &sess.UserID, &sess.IP, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !time.Now().Before(sess.ExpiresAt) {
		_ = s.Delete(ctx, token)
		return nil, nil
	}
	return &sess, nil
}

func (s *sessionsStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
