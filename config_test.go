package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryConfigTransport(t *testing.T) {
	tests := []struct {
		port       int
		wantScheme string
		wantURL    string
	}{
		{635, "ldap", "ldap://dc1.example.org:635"},
		{636, "ldaps", "ldaps://dc1.example.org:636"},
		{637, "ldap", "ldap://dc1.example.org:637"},
		{389, "ldap", "ldap://dc1.example.org:389"},
		{0, "ldap", "ldap://dc1.example.org:389"},
		{-1, "ldap", "ldap://dc1.example.org:389"},
	}

	for _, tt := range tests {
		t.Run(tt.wantURL, func(t *testing.T) {
			cfg := DirectoryConfig{Host: "dc1.example.org", Port: tt.port}
			assert.Equal(t, tt.wantScheme, cfg.Scheme())
			assert.Equal(t, tt.wantURL, cfg.URL())
			assert.Equal(t, tt.port == 636, cfg.Secure())
		})
	}

	t.Run("636 wins regardless of other fields", func(t *testing.T) {
		cfg := exampleConfig()
		cfg.Port = 636
		cfg.Enabled = false
		cfg.BindDN, cfg.BindPassword = "", ""
		assert.Equal(t, "ldaps", cfg.Scheme())
	})

	t.Run("IPv6 host", func(t *testing.T) {
		cfg := DirectoryConfig{Host: "2001:db8::1", Port: 636}
		assert.Equal(t, "ldaps://[2001:db8::1]:636", cfg.URL())
	})
}

func TestParseDirectoryConfig(t *testing.T) {
	t.Run("empty blob gives disabled defaults", func(t *testing.T) {
		cfg, err := ParseDirectoryConfig(nil)
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.Equal(t, DefaultPort, cfg.Port)
		assert.False(t, cfg.Configured())
	})

	t.Run("stored blob", func(t *testing.T) {
		cfg, err := ParseDirectoryConfig([]byte(`{
			"enabled": true,
			"host": " dc1.example.org ",
			"baseDn": "dc=example,dc=org",
			"bindDn": "cn=svc,dc=example,dc=org",
			"bindPassword": "secret"
		}`))
		require.NoError(t, err)
		assert.Equal(t, exampleConfig(), cfg)
		assert.True(t, cfg.Configured())
	})

	t.Run("explicit port", func(t *testing.T) {
		cfg, err := ParseDirectoryConfig([]byte(`{"port": 636}`))
		require.NoError(t, err)
		assert.Equal(t, 636, cfg.Port)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseDirectoryConfig([]byte(`{"port": "x"`))
		assert.Error(t, err)
	})

	t.Run("round trip through Marshal", func(t *testing.T) {
		raw, err := exampleConfig().Marshal()
		require.NoError(t, err)
		cfg, err := ParseDirectoryConfig(raw)
		require.NoError(t, err)
		assert.Equal(t, exampleConfig(), cfg)
	})
}

func TestDirectoryConfigSecretHandling(t *testing.T) {
	stored := exampleConfig()

	redacted := stored.Redacted()
	assert.Equal(t, RedactedSecret, redacted.BindPassword)
	assert.Equal(t, "secret", stored.BindPassword, "Redacted must not modify the receiver")

	merged := redacted.MergeSecret(stored)
	assert.Equal(t, "secret", merged.BindPassword)

	changed := redacted
	changed.BindPassword = "new-secret"
	assert.Equal(t, "new-secret", changed.MergeSecret(stored).BindPassword)

	assert.Empty(t, DirectoryConfig{}.Redacted().BindPassword)
}

func TestDirectoryConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DirectoryConfig)
		wantErr string
	}{
		{"valid", func(*DirectoryConfig) {}, ""},
		{"disabled skips required fields", func(c *DirectoryConfig) { *c = DirectoryConfig{} }, ""},
		{"missing host", func(c *DirectoryConfig) { c.Host = "" }, "host"},
		{"url instead of host", func(c *DirectoryConfig) { c.Host = "ldap://dc1" }, "host"},
		{"missing base DN", func(c *DirectoryConfig) { c.BaseDN = "" }, "baseDn"},
		{"bad base DN", func(c *DirectoryConfig) { c.BaseDN = "example" }, "dn"},
		{"bad bind DN", func(c *DirectoryConfig) { c.BindDN = "svc" }, "dn"},
		{"port out of range", func(c *DirectoryConfig) { c.Port = 70000 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := exampleConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
