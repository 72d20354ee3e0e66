package config

import (
	"fmt"
	"strings"
)

const minPepperLength = 16

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if !cfg.IsDev() && len(cfg.Pepper) < minPepperLength {
		return fmt.Errorf("pepper must be at least %d characters outside APP_ENV=dev", minPepperLength)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log.level: %s", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log.format: %s", cfg.Log.Format)
	}
	if cfg.Directory.ConnectTimeout <= 0 || cfg.Directory.OperationTimeout <= 0 {
		return fmt.Errorf("directory timeouts must be positive")
	}
	if cfg.Throttle.MaxAttempts < 0 {
		return fmt.Errorf("throttle.max_attempts must not be negative")
	}
	if cfg.Throttle.MaxAttempts > 0 && (cfg.Throttle.Window <= 0 || cfg.Throttle.LockoutDuration <= 0) {
		return fmt.Errorf("throttle.window and throttle.lockout must be positive")
	}
	if cfg.Admin.Username != "" && len(cfg.Admin.Password) < 8 {
		return fmt.Errorf("admin.password must be at least 8 characters when admin.username is set")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace must be set when metrics are enabled")
	}
	if cfg.Jobs.Enabled && strings.TrimSpace(cfg.Jobs.CleanupSchedule) == "" {
		return fmt.Errorf("jobs.cleanup_schedule must be set when jobs are enabled")
	}
	return nil
}
