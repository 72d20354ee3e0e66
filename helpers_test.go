package ldap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/conectseas/directory-auth/testutil"
)

// fakeDialer adapts a fake directory to the bridge's Dialer.
func fakeDialer(dir *testutil.FakeDirectory) Dialer {
	return DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		conn, err := dir.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func newTestBridge(t *testing.T, dir *testutil.FakeDirectory, opts ...Option) *Bridge {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(append([]Option{WithLogger(logger), WithDialer(fakeDialer(dir))}, opts...)...)
}

// exampleConfig is the example.org configuration with a service account.
func exampleConfig() DirectoryConfig {
	return DirectoryConfig{
		Enabled:      true,
		Host:         testutil.ExampleHost,
		Port:         389,
		BaseDN:       testutil.ExampleBaseDN,
		BindDN:       testutil.ExampleServiceDN,
		BindPassword: testutil.ExampleServicePassword,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
