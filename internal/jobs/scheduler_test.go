package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectseas/directory-auth/internal/auth"
	"github.com/conectseas/directory-auth/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("every now and then", discardLogger())
	assert.Error(t, err)

	s, err := New("", discardLogger())
	require.NoError(t, err)
	require.NotNil(t, s)
	s, err = New("*/5 * * * *", discardLogger())
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	var ran []string
	s, err := New(DefaultSchedule, discardLogger(),
		Task{Name: "a", Run: func(context.Context) error { ran = append(ran, "a"); return errors.New("boom") }},
		Task{Name: "b", Run: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			ran = append(ran, "b")
			return nil
		}},
	)
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	runs := make(chan struct{}, 4)
	s, err := New("@every 1s", discardLogger(), Task{Name: "tick", Run: func(context.Context) error {
		runs <- struct{}{}
		return nil
	}})
	require.NoError(t, err)

	s.Start()
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestHousekeepingTasks(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "jobs.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := store.NewUsersStore(db)
	u := &store.User{Username: "jdoe", PasswordHash: "h", Salt: "s"}
	require.NoError(t, users.Create(ctx, u))
	sessionsStore := store.NewSessionsStore(db)
	require.NoError(t, sessionsStore.Create(ctx, &store.Session{Token: "old", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, sessionsStore.Create(ctx, &store.Session{Token: "live", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	throttle := auth.NewThrottle(auth.ThrottleConfig{}, discardLogger())
	s, err := New(DefaultSchedule, discardLogger(),
		SessionCleanup(auth.NewSessionManager(sessionsStore, users, time.Hour), discardLogger()),
		ThrottleCleanup(throttle),
	)
	require.NoError(t, err)
	s.RunOnce(ctx)

	removed, err := sessionsStore.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed, "the cleanup job already removed the expired session")
	live, err := sessionsStore.Get(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, live)
}
