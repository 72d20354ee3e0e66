package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
)

func TestAccountControlString(t *testing.T) {
	tests := []struct {
		value AccountControl
		want  string
	}{
		{512, "NORMAL_ACCOUNT"},
		{514, "ACCOUNTDISABLE|NORMAL_ACCOUNT"},
		{66048, "NORMAL_ACCOUNT|DONT_EXPIRE_PASSWORD"},
		{4096, "WORKSTATION_TRUST_ACCOUNT"},
		{0, "NONE"},
		{0x4000200, "NORMAL_ACCOUNT|0x4000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.String(), "value %d", uint32(tt.value))
	}

	assert.True(t, AccountControl(514).Disabled())
	assert.False(t, AccountControl(512).Disabled())
}

func TestSamAccountTypeString(t *testing.T) {
	assert.Equal(t, "USER_OBJECT", SamAccountType(805306368).String())
	assert.Equal(t, "MACHINE_ACCOUNT", SamAccountType(805306369).String())
	assert.Equal(t, "UNKNOWN", SamAccountType(7).String())
}

func TestRenderEntryAnnotatesAccountFlags(t *testing.T) {
	entry := ldap.NewEntry("cn=John Doe,ou=users,dc=example,dc=org", map[string][]string{
		"userAccountControl": {"514"},
		"sAMAccountType":     {"805306368"},
		"description":        {"514"},
	})

	rendered := renderEntry(entry)

	assert.Equal(t, []string{"514 (ACCOUNTDISABLE|NORMAL_ACCOUNT)"}, rendered.Attributes["userAccountControl"])
	assert.Equal(t, []string{"805306368 (USER_OBJECT)"}, rendered.Attributes["sAMAccountType"])
	assert.Equal(t, []string{"514"}, rendered.Attributes["description"])
	assert.Equal(t, "garbage", annotateFlags("userAccountControl", "garbage"))
}
