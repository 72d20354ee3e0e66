package ldap

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxDNLength defines the maximum length for Distinguished Names
	MaxDNLength = 8000
	// MaxUsernameLength bounds the login alias placed into the account filter
	MaxUsernameLength = 256
)

var usernameFolder = cases.Fold()

// NormalizeUsername returns the canonical form of a login alias: trimmed,
// NFC-normalized and case-folded. It is used as the local account key so that
// "JDoe" and "jdoe" resolve to the same portal user.
func NormalizeUsername(username string) string {
	return usernameFolder.String(norm.NFC.String(strings.TrimSpace(username)))
}

// ValidateUsername rejects aliases that can never name a directory account.
// The value is escaped before it reaches a filter regardless.
func ValidateUsername(username string) error {
	if username == "" {
		return validationError("username", username, "cannot be empty")
	}
	if !utf8.ValidString(username) {
		return validationError("username", maskSensitiveData(username), "not valid UTF-8")
	}
	if len(username) > MaxUsernameLength {
		return validationError("username", maskSensitiveData(username),
			fmt.Sprintf("too long: %d bytes (max %d)", len(username), MaxUsernameLength))
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return validationError("username", maskSensitiveData(username), "contains control characters")
		}
	}
	return nil
}

// ValidateDN validates and normalizes a Distinguished Name (DN)
func ValidateDN(dn string) (string, error) {
	normalized := strings.TrimSpace(dn)
	if normalized == "" {
		return "", validationError("dn", dn, "cannot be empty")
	}

	if len(normalized) > MaxDNLength {
		return "", validationError("dn", dn, fmt.Sprintf("too long: %d characters (max %d)", len(normalized), MaxDNLength))
	}

	for _, r := range normalized {
		if unicode.IsControl(r) {
			return "", validationError("dn", dn, "contains control characters")
		}
	}

	parsed, err := ldap.ParseDN(normalized)
	if err != nil {
		return "", validationError("dn", dn, err.Error())
	}
	if len(parsed.RDNs) == 0 {
		return "", validationError("dn", dn, "must contain at least one component")
	}

	return normalized, nil
}

// maskSensitiveData masks sensitive information for logging. It counts runes
// so multibyte names stay valid UTF-8.
func maskSensitiveData(data string) string {
	runes := []rune(data)
	if len(runes) <= 4 {
		return "***"
	}

	// Show first 2 and last 2 characters, mask the middle
	visible := 2
	if len(runes) < 6 {
		visible = 1
	}

	prefix := string(runes[:visible])
	suffix := string(runes[len(runes)-visible:])
	masked := strings.Repeat("*", len(runes)-2*visible)

	return prefix + masked + suffix
}

// MaskUsername is the exported form of the log masking applied to login aliases.
func MaskUsername(username string) string {
	return maskSensitiveData(username)
}
