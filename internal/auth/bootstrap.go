package auth

import (
	"context"
	"fmt"
	"log/slog"

	ldap "github.com/conectseas/directory-auth"
	"github.com/conectseas/directory-auth/internal/store"
)

// AdminSeed describes the local administrator created on startup.
type AdminSeed struct {
	Username string
	Password string
	Name     string
	Email    string
}

// EnsureAdmin creates the seeded administrator when it does not exist yet. An
// existing account is left untouched, including its password.
func EnsureAdmin(ctx context.Context, users store.UsersStore, seed AdminSeed, pepper string, logger *slog.Logger) (*store.User, error) {
	username := ldap.NormalizeUsername(seed.Username)
	if username == "" {
		return nil, nil
	}
	if err := ldap.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("admin username: %w", err)
	}
	existing, err := users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if existing != nil {
		if !existing.IsAdmin() {
			logger.Warn("admin_seed_conflict", slog.String("username", ldap.MaskUsername(username)), slog.String("role", existing.Role))
		}
		return existing, nil
	}
	if seed.Password == "" {
		return nil, fmt.Errorf("admin password is required to seed %q", username)
	}
	hash, err := HashPassword(seed.Password, pepper)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &store.User{
		Username:     username,
		Name:         seed.Name,
		Email:        seed.Email,
		Role:         store.RoleAdmin,
		PasswordHash: hash.Hash,
		Salt:         hash.Salt,
		AuthSource:   store.AuthSourceLocal,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	logger.Info("admin_seeded", slog.String("username", ldap.MaskUsername(username)), slog.String("user_id", admin.ID))
	return admin, nil
}
