package ldap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

const (
	// DefaultPort is the plaintext LDAP port used when none is configured.
	DefaultPort = 389
	// SecurePort selects LDAPS. Any other port is dialed in plaintext.
	SecurePort = 636

	DefaultConnectTimeout   = 10 * time.Second
	DefaultOperationTimeout = 10 * time.Second

	// SyntheticEmailDomain is used for directory users without a mail attribute.
	SyntheticEmailDomain = "ldap.local"

	// RedactedSecret replaces the bind password in anything shown to an operator.
	RedactedSecret = "********"
)

// DirectoryConfig contains the administrator supplied directory settings.
// It is persisted as an opaque JSON blob and must be read fresh for every call;
// the bridge never keeps a copy between calls.
type DirectoryConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port" default:"389"`
	BaseDN       string `json:"baseDn"`
	BindDN       string `json:"bindDn"`
	BindPassword string `json:"bindPassword"`
}

// ParseDirectoryConfig decodes a stored settings blob. An empty blob yields the
// defaults, which are disabled.
func ParseDirectoryConfig(raw []byte) (DirectoryConfig, error) {
	var cfg DirectoryConfig
	if err := defaults.Set(&cfg); err != nil {
		return DirectoryConfig{}, configurationError("directory config", "apply defaults", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return DirectoryConfig{}, configurationError("directory config", "decode settings blob", err)
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.BaseDN = strings.TrimSpace(cfg.BaseDN)
	cfg.BindDN = strings.TrimSpace(cfg.BindDN)

	return cfg, nil
}

// Marshal encodes the config into its stored form.
func (c DirectoryConfig) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Configured reports whether login may consult the directory at all.
func (c DirectoryConfig) Configured() bool {
	return c.Enabled && strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.BaseDN) != ""
}

// Anonymous reports whether no service account is configured.
func (c DirectoryConfig) Anonymous() bool {
	return c.BindDN == "" && c.BindPassword == ""
}

// EffectivePort returns the configured port or DefaultPort.
func (c DirectoryConfig) EffectivePort() int {
	if c.Port <= 0 {
		return DefaultPort
	}
	return c.Port
}

// Secure reports whether the encrypted transport is selected. Only port 636
// selects it.
func (c DirectoryConfig) Secure() bool {
	return c.EffectivePort() == SecurePort
}

// Scheme returns "ldaps" for SecurePort and "ldap" otherwise.
func (c DirectoryConfig) Scheme() string {
	if c.Secure() {
		return "ldaps"
	}
	return "ldap"
}

// URL returns the dial target, e.g. ldap://dc1.example.org:389.
func (c DirectoryConfig) URL() string {
	host := strings.TrimSpace(c.Host)
	return fmt.Sprintf("%s://%s", c.Scheme(), net.JoinHostPort(host, strconv.Itoa(c.EffectivePort())))
}

// Redacted returns a copy safe to hand to an operator UI.
func (c DirectoryConfig) Redacted() DirectoryConfig {
	if c.BindPassword != "" {
		c.BindPassword = RedactedSecret
	}
	return c
}

// MergeSecret keeps the previous bind password when the update carries the
// redaction placeholder, so a form round-trip does not wipe the secret.
func (c DirectoryConfig) MergeSecret(previous DirectoryConfig) DirectoryConfig {
	if c.BindPassword == RedactedSecret {
		c.BindPassword = previous.BindPassword
	}
	return c
}

// Validate checks the fields an administrator must supply before enabling.
func (c DirectoryConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return validationError("port", strconv.Itoa(c.Port), "must be between 1 and 65535")
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Host) == "" {
		return validationError("host", c.Host, "required when enabled")
	}
	if strings.ContainsAny(c.Host, "/ ") {
		return validationError("host", c.Host, "must be a bare host name")
	}
	if strings.TrimSpace(c.BaseDN) == "" {
		return validationError("baseDn", c.BaseDN, "required when enabled")
	}
	if _, err := ValidateDN(c.BaseDN); err != nil {
		return err
	}
	if c.BindDN != "" {
		if _, err := ValidateDN(c.BindDN); err != nil {
			return err
		}
	}
	return nil
}
