package ldap

import (
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// accountAttributes are the schema conventions tried for the login alias.
var accountAttributes = []string{"sAMAccountName", "cn", "uid"}

// userAttributes is the fixed attribute set requested for the matched entry.
var userAttributes = []string{
	"cn",
	"mail",
	"sAMAccountName",
	"uid",
	"displayName",
	"department",
	"title",
	"distinguishedName",
}

const (
	// userLookupSizeLimit is two so that an ambiguous alias is detected rather
	// than resolved to whichever entry the server returns first.
	userLookupSizeLimit = 2
	// diagnosticSizeLimit caps the connection test listing.
	diagnosticSizeLimit = 5
)

// accountFilter matches username against every account attribute. The value is escaped.
func accountFilter(username string) string {
	escaped := ldap.EscapeFilter(username)
	filter := "(|"
	for _, attr := range accountAttributes {
		filter += fmt.Sprintf("(%s=%s)", attr, escaped)
	}
	return filter + ")"
}

func (b *Bridge) userSearchRequest(baseDN, username string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		userLookupSizeLimit,
		timeLimitSeconds(b.operationTimeout),
		false,
		accountFilter(username),
		userAttributes,
		nil,
	)
}

func (b *Bridge) diagnosticSearchRequest(baseDN string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		diagnosticSizeLimit,
		timeLimitSeconds(b.operationTimeout),
		false,
		"(objectClass=*)",
		nil,
		nil,
	)
}

// selectUser picks the single entry for the alias. It returns ErrUserNotFound
// for no entries and ErrAmbiguousUser when distinct entries matched.
func selectUser(entries []*ldap.Entry) (*ldap.Entry, error) {
	var match *ldap.Entry
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if match == nil {
			match = entry
			continue
		}
		if entry.DN != match.DN {
			return nil, ErrAmbiguousUser
		}
	}
	if match == nil {
		return nil, ErrUserNotFound
	}
	return match, nil
}

// extractUser builds the profile from the matched entry, applying the
// fallbacks for accounts that lack the optional attributes.
func extractUser(entry *ldap.Entry, username string) *DirectoryUser {
	return &DirectoryUser{
		DN:          entry.DN,
		AccountName: firstNonEmpty(entry.GetAttributeValue("sAMAccountName"), entry.GetAttributeValue("uid"), username),
		DisplayName: firstNonEmpty(entry.GetAttributeValue("displayName"), entry.GetAttributeValue("cn"), username),
		Email:       firstNonEmpty(entry.GetAttributeValue("mail"), username+"@"+SyntheticEmailDomain),
		Department:  entry.GetAttributeValue("department"),
		Title:       entry.GetAttributeValue("title"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func timeLimitSeconds(d time.Duration) int {
	secs := int(d.Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
