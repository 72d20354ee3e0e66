package auth

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	ldap "github.com/conectseas/directory-auth"
)

// ThrottleConfig configures the login throttle.
type ThrottleConfig struct {
	// Failed attempts allowed inside Window before the key is locked.
	MaxAttempts int
	Window      time.Duration
	// Lockout doubles with every repeated violation up to MaxLockout.
	LockoutDuration time.Duration
	MaxLockout      time.Duration
	// Violations older than this are forgotten.
	ViolationReset time.Duration
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MaxAttempts:     5,
		Window:          15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
		MaxLockout:      24 * time.Hour,
		ViolationReset:  24 * time.Hour,
	}
}

type attemptRecord struct {
	failures    []time.Time
	violations  int
	lockedUntil time.Time
	lastUpdate  time.Time
}

// Throttle is a per-key sliding-window limiter for failed logins. Keys combine
// the normalized username with the client address.
type Throttle struct {
	cfg     ThrottleConfig
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
	records map[string]*attemptRecord
}

func NewThrottle(cfg ThrottleConfig, logger *slog.Logger) *Throttle {
	def := DefaultThrottleConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.MaxLockout <= 0 {
		cfg.MaxLockout = def.MaxLockout
	}
	if cfg.MaxLockout < cfg.LockoutDuration {
		cfg.MaxLockout = cfg.LockoutDuration
	}
	if cfg.ViolationReset <= 0 {
		cfg.ViolationReset = def.ViolationReset
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttle{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "login_throttle")),
		now:     time.Now,
		records: make(map[string]*attemptRecord),
	}
}

// ThrottleKey builds the throttle key for a login attempt.
func ThrottleKey(username, clientIP string) string {
	return ldap.NormalizeUsername(username) + "|" + clientIP
}

// Check returns an ErrThrottled-wrapped error while key is locked out.
func (t *Throttle) Check(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		return nil
	}
	now := t.now()
	if now.Before(rec.lockedUntil) {
		remaining := rec.lockedUntil.Sub(now).Round(time.Second)
		return fmt.Errorf("%w: retry in %v", ErrThrottled, remaining)
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the key once MaxAttempts
// failures fall inside the window.
func (t *Throttle) RecordFailure(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec, ok := t.records[key]
	if !ok {
		rec = &attemptRecord{lastUpdate: now}
		t.records[key] = rec
	}
	if now.Sub(rec.lastUpdate) > t.cfg.ViolationReset {
		rec.violations = 0
	}

	windowStart := now.Add(-t.cfg.Window)
	kept := rec.failures[:0]
	for _, at := range rec.failures {
		if at.After(windowStart) {
			kept = append(kept, at)
		}
	}
	rec.failures = append(kept, now)
	rec.lastUpdate = now

	if len(rec.failures) >= t.cfg.MaxAttempts {
		lockout := t.lockoutFor(rec.violations)
		rec.lockedUntil = now.Add(lockout)
		rec.violations++
		rec.failures = rec.failures[:0]
		t.logger.Warn("login_throttle_locked",
			slog.String("key", ldap.MaskUsername(key)),
			slog.Int("violations", rec.violations),
			slog.Duration("lockout", lockout))
	}
}

// RecordSuccess clears the failure window. Violations are kept so a lockout
// right after a success still backs off.
func (t *Throttle) RecordSuccess(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[key]; ok {
		rec.failures = nil
		rec.lastUpdate = t.now()
	}
}

// Cleanup drops records that are neither locked nor updated within
// ViolationReset. It returns the number removed.
func (t *Throttle) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, rec := range t.records {
		if now.Sub(rec.lastUpdate) > t.cfg.ViolationReset && !now.Before(rec.lockedUntil) {
			delete(t.records, key)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debug("login_throttle_cleanup", slog.Int("removed", removed))
	}
	return removed
}

func (t *Throttle) lockoutFor(violations int) time.Duration {
	d := t.cfg.LockoutDuration
	for i := 0; i < violations; i++ {
		d *= 2
		if d >= t.cfg.MaxLockout {
			return t.cfg.MaxLockout
		}
	}
	return d
}
