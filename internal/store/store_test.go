package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ldap "github.com/conectseas/directory-auth"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(context.Background(), path, logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path, logger)
	require.NoError(t, err)
	defer db.Close()

	n, err := NewUsersStore(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsStore(openTestDB(t))

	_, ok, err := settings.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Put(ctx, "k", "v1"))
	require.NoError(t, settings.Put(ctx, "k", "v2"))
	value, ok, err := settings.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
}

func TestDirectorySettings(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsStore(openTestDB(t))
	dirSettings := NewDirectorySettings(settings)

	cfg, err := dirSettings.Load(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Configured(), "nothing saved means disabled")
	assert.Equal(t, ldap.DefaultPort, cfg.Port)

	want := ldap.DirectoryConfig{
		Enabled:      true,
		Host:         "dc1.example.org",
		Port:         636,
		BaseDN:       "dc=example,dc=org",
		BindDN:       "cn=svc,dc=example,dc=org",
		BindPassword: "secret",
	}
	require.NoError(t, dirSettings.Save(ctx, want))

	got, err := dirSettings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Edits made behind the wrapper are visible on the next Load.
	require.NoError(t, settings.Put(ctx, DirectorySettingsKey, `{"enabled":false,"host":"dc2.example.org"}`))
	got, err = dirSettings.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "dc2.example.org", got.Host)
	assert.Equal(t, ldap.DefaultPort, got.Port)
}

func TestUsersStore(t *testing.T) {
	ctx := context.Background()
	users := NewUsersStore(openTestDB(t))

	missing, err := users.FindByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	u := &User{Username: "jdoe", Name: "John Doe", Email: "john.doe@example.org", PasswordHash: "h", Salt: "s", AuthSource: AuthSourceLDAP}
	require.NoError(t, users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, RoleUser, u.Role)

	dup := &User{Username: "jdoe", PasswordHash: "h", Salt: "s"}
	assert.Error(t, users.Create(ctx, dup), "username is unique")

	got, err := users.FindByUsername(ctx, "jdoe")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "John Doe", got.Name)
	assert.Equal(t, AuthSourceLDAP, got.AuthSource)
	assert.Nil(t, got.LastLoginAt)

	got.Department = "Infraestrutura"
	got.Position = "Analista"
	require.NoError(t, users.UpdateProfile(ctx, got))
	now := time.Now()
	require.NoError(t, users.TouchLogin(ctx, got.ID, now))

	byID, err := users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Infraestrutura", byID.Department)
	assert.Equal(t, "Analista", byID.Position)
	require.NotNil(t, byID.LastLoginAt)
	assert.WithinDuration(t, now, *byID.LastLoginAt, time.Second)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "h2", "s2"))
	assert.ErrorIs(t, users.UpdatePassword(ctx, "nope", "h", "s"), ErrNotFound)
	assert.ErrorIs(t, users.UpdateProfile(ctx, &User{ID: "nope"}), ErrNotFound)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionsStore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUsersStore(db)
	sessions := NewSessionsStore(db)

	u := &User{Username: "jdoe", PasswordHash: "h", Salt: "s"}
	require.NoError(t, users.Create(ctx, u))

	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &Session{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.Create(ctx, &Session{Token: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, sessions.Create(ctx, &Session{Token: "older", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	live, err := sessions.Get(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, u.ID, live.UserID)

	expired, err := sessions.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, expired)

	removed, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed, "Get already removed the other expired session")

	require.NoError(t, sessions.Delete(ctx, "live"))
	gone, err := sessions.Get(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.Error(t, sessions.Create(ctx, &Session{Token: "orphan", UserID: "missing", ExpiresAt: now.Add(time.Hour)}),
		"foreign keys are enforced")
}
