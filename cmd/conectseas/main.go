package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ldap "github.com/conectseas/directory-auth"
	"github.com/conectseas/directory-auth/internal/api"
	"github.com/conectseas/directory-auth/internal/auth"
	"github.com/conectseas/directory-auth/internal/config"
	"github.com/conectseas/directory-auth/internal/jobs"
	"github.com/conectseas/directory-auth/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "conectseas: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users := store.NewUsersStore(db)
	settings := store.NewDirectorySettings(store.NewSettingsStore(db))
	if _, err := auth.EnsureAdmin(ctx, users, auth.AdminSeed{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
	}, cfg.Pepper, logger); err != nil {
		return err
	}

	tlsConfig, err := directoryTLSConfig(cfg.Directory)
	if err != nil {
		return err
	}
	bridgeOpts := []ldap.Option{
		ldap.WithLogger(logger),
		ldap.WithConnectTimeout(cfg.Directory.ConnectTimeout),
		ldap.WithOperationTimeout(cfg.Directory.OperationTimeout),
		ldap.WithTLSConfig(tlsConfig),
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		observer := ldap.NewPrometheusObserver(cfg.Metrics.Namespace)
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			observer,
		)
		bridgeOpts = append(bridgeOpts, ldap.WithObserver(observer))
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	bridge := ldap.New(bridgeOpts...)

	sessions := auth.NewSessionManager(store.NewSessionsStore(db), users, cfg.SessionTTL)
	throttle := auth.NewThrottle(auth.ThrottleConfig{
		MaxAttempts:     cfg.Throttle.MaxAttempts,
		Window:          cfg.Throttle.Window,
		LockoutDuration: cfg.Throttle.LockoutDuration,
		MaxLockout:      cfg.Throttle.MaxLockout,
	}, logger)
	login := auth.NewLoginService(auth.LoginServiceConfig{
		Users:     users,
		Sessions:  sessions,
		Directory: settings,
		Bridge:    bridge,
		Throttle:  throttle,
		Pepper:    cfg.Pepper,
		Logger:    logger,
	})

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler, err = jobs.New(cfg.Jobs.CleanupSchedule, logger,
			jobs.SessionCleanup(sessions, logger),
			jobs.ThrottleCleanup(throttle),
		)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	server := api.NewServer(cfg.ListenAddr, api.Deps{
		Login:     login,
		Sessions:  sessions,
		Directory: settings,
		Tester:    bridge,
		Metrics:   metricsHandler,
		Logger:    logger,
	})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown_requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("jobs shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// directoryTLSConfig builds the client TLS settings used for ldaps:// dials.
func directoryTLSConfig(cfg config.DirectoryConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read directory CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAFile)
		}
		tlsConfig.RootCAs = pool
	}
	tlsConfig.InsecureSkipVerify = cfg.TLSInsecureSkipVerify
	return tlsConfig, nil
}
