package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ldap "github.com/conectseas/directory-auth"
	"github.com/conectseas/directory-auth/internal/store"
)

// DirectoryAuthenticator is the part of the bridge the login flow needs.
type DirectoryAuthenticator interface {
	Authenticate(ctx context.Context, username, password string, cfg ldap.DirectoryConfig) ldap.AuthResult
}

// DirectoryConfigSource yields the current directory settings.
type DirectoryConfigSource interface {
	Load(ctx context.Context) (ldap.DirectoryConfig, error)
}

type LoginRequest struct {
	Username  string
	Password  string
	ClientIP  string
	UserAgent string
}

type LoginResult struct {
	Session *store.Session
	User    *store.User
	// Source is the layer that accepted the password: ldap or local.
	Source string
}

// LoginService authenticates against the directory first and falls back to
// the locally stored password hash on any directory failure.
type LoginService struct {
	users     store.UsersStore
	sessions  *SessionManager
	directory DirectoryConfigSource
	bridge    DirectoryAuthenticator
	throttle  *Throttle
	pepper    string
	logger    *slog.Logger
	now       func() time.Time
}

type LoginServiceConfig struct {
	Users     store.UsersStore
	Sessions  *SessionManager
	Directory DirectoryConfigSource
	Bridge    DirectoryAuthenticator
	Throttle  *Throttle
	Pepper    string
	Logger    *slog.Logger
}

func NewLoginService(cfg LoginServiceConfig) *LoginService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	throttle := cfg.Throttle
	if throttle == nil {
		throttle = NewThrottle(DefaultThrottleConfig(), logger)
	}
	return &LoginService{
		users:     cfg.Users,
		sessions:  cfg.Sessions,
		directory: cfg.Directory,
		bridge:    cfg.Bridge,
		throttle:  throttle,
		pepper:    cfg.Pepper,
		logger:    logger.With(slog.String("component", "login")),
		now:       time.Now,
	}
}

func (s *LoginService) Throttle() *Throttle {
	return s.throttle
}

// Login returns ErrThrottled while the username and address pair is locked
// out, ErrInvalidCredentials for every rejected password, and any other error
// only for storage failures.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	masked := ldap.MaskUsername(req.Username)
	key := ThrottleKey(req.Username, req.ClientIP)
	if err := s.throttle.Check(key); err != nil {
		s.logger.Warn("login_throttled", slog.String("username", masked), slog.String("ip", req.ClientIP))
		return nil, err
	}

	user, source, err := s.authenticate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.throttle.RecordFailure(key)
			s.logger.Info("login_failed", slog.String("username", masked), slog.String("ip", req.ClientIP))
		}
		return nil, err
	}
	s.throttle.RecordSuccess(key)

	if err := s.users.TouchLogin(ctx, user.ID, s.now()); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	sess, err := s.sessions.Issue(ctx, user, req.ClientIP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login_successful",
		slog.String("username", masked),
		slog.String("source", source),
		slog.String("ip", req.ClientIP))
	return &LoginResult{Session: sess, User: user, Source: source}, nil
}

func (s *LoginService) authenticate(ctx context.Context, req LoginRequest) (*store.User, string, error) {
	if req.Username == "" || req.Password == "" {
		return nil, "", ErrInvalidCredentials
	}

	cfg, err := s.directory.Load(ctx)
	if err != nil {
		// A broken settings row must not lock everybody out.
		s.logger.Error("directory_settings_unreadable", slog.String("error", err.Error()))
		cfg = ldap.DirectoryConfig{}
	}
	if cfg.Enabled {
		result := s.bridge.Authenticate(ctx, req.Username, req.Password, cfg)
		if result.OK() {
			user, err := s.materialize(ctx, result.User)
			if err != nil {
				return nil, "", err
			}
			return user, store.AuthSourceLDAP, nil
		}
		s.logger.Debug("directory_login_fallback",
			slog.String("username", ldap.MaskUsername(req.Username)),
			slog.String("reason", result.Reason.String()))
	}

	user, err := s.verifyLocal(ctx, req.Username, req.Password)
	if err != nil {
		return nil, "", err
	}
	return user, store.AuthSourceLocal, nil
}

// materialize finds the local user for a directory account, creating it on
// first login. Profiles of directory-created users follow the directory.
func (s *LoginService) materialize(ctx context.Context, du *ldap.DirectoryUser) (*store.User, error) {
	username := ldap.NormalizeUsername(du.AccountName)
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		hash, err := UnusableHash(s.pepper)
		if err != nil {
			return nil, fmt.Errorf("hash placeholder password: %w", err)
		}
		user = &store.User{
			Username:     username,
			Name:         du.DisplayName,
			Email:        du.Email,
			Role:         store.RoleUser,
			Department:   du.Department,
			Position:     du.Title,
			PasswordHash: hash.Hash,
			Salt:         hash.Salt,
			AuthSource:   store.AuthSourceLDAP,
			DirectoryDN:  du.DN,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("directory_user_created",
			slog.String("username", ldap.MaskUsername(username)),
			slog.String("user_id", user.ID))
		return user, nil
	}
	if user.AuthSource != store.AuthSourceLDAP {
		return user, nil
	}
	if user.Name == du.DisplayName && user.Email == du.Email && user.Department == du.Department &&
		user.Position == du.Title && user.DirectoryDN == du.DN {
		return user, nil
	}
	user.Name = du.DisplayName
	user.Email = du.Email
	user.Department = du.Department
	user.Position = du.Title
	user.DirectoryDN = du.DN
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *LoginService) verifyLocal(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.users.FindByUsername(ctx, ldap.NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		s.burnVerify(password)
		return nil, ErrInvalidCredentials
	}
	stored, err := ParsePasswordHash(user.PasswordHash, user.Salt)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(password, s.pepper, stored)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     *PasswordHash
)

// burnVerify spends one hash verification so unknown usernames take as long
// as wrong passwords.
func (s *LoginService) burnVerify(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = UnusableHash("")
	})
	if dummyHash != nil {
		_, _ = VerifyPassword(password, s.pepper, dummyHash)
	}
}
