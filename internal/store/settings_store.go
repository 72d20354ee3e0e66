package store

import (
	"context"
	"database/sql"
	"time"

	ldap "github.com/conectseas/directory-auth"
)

// DirectorySettingsKey names the settings row holding the directory configuration blob.
const DirectorySettingsKey = "ldap_config"

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

type settingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) SettingsStore {
	return &settingsStore{db: db}
}

func (s *settingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *settingsStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings(key, value, updated_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// DirectorySettings reads and writes the directory configuration blob. Load
// hits the database on every call; nothing is cached.
type DirectorySettings struct {
	settings SettingsStore
}

func NewDirectorySettings(settings SettingsStore) *DirectorySettings {
	return &DirectorySettings{settings: settings}
}

// Load returns the stored configuration, or the disabled defaults when none was saved.
func (d *DirectorySettings) Load(ctx context.Context) (ldap.DirectoryConfig, error) {
	raw, _, err := d.settings.Get(ctx, DirectorySettingsKey)
	if err != nil {
		return ldap.DirectoryConfig{}, err
	}
	return ldap.ParseDirectoryConfig([]byte(raw))
}

func (d *DirectorySettings) Save(ctx context.Context, cfg ldap.DirectoryConfig) error {
	raw, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return d.settings.Put(ctx, DirectorySettingsKey, string(raw))
}
