package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type UsersStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, hash, salt string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, name, email, role, department, position, password_hash, salt, auth_source, directory_dn, last_login_at, created_at, updated_at`

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username)
	return scanUser(row)
}

func (s *usersStore) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Role, &u.Department, &u.Position,
		&u.PasswordHash, &u.Salt, &u.AuthSource, &u.DirectoryDN, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

// Create inserts user, assigning an id and timestamps when missing.
func (s *usersStore) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.AuthSource == "" {
		user.AuthSource = AuthSourceLocal
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		user.ID, user.Username, user.Name, user.Email, user.Role, user.Department, user.Position,
		user.PasswordHash, user.Salt, user.AuthSource, user.DirectoryDN, nullTime(user.LastLoginAt), user.CreatedAt, user.UpdatedAt)
	return err
}

// UpdateProfile rewrites the directory-sourced profile fields.
func (s *usersStore) UpdateProfile(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name=?, email=?, department=?, position=?, directory_dn=?, updated_at=? WHERE id=?`,
		user.Name, user.Email, user.Department, user.Position, user.DirectoryDN, user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *usersStore) UpdatePassword(ctx context.Context, id, hash, salt string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=?, salt=?, updated_at=? WHERE id=?`,
		hash, salt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *usersStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, at.UTC(), id)
	return err
}

func (s *usersStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n)
	return n, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
