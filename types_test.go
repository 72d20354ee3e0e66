package ldap

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonText(t *testing.T) {
	names := map[Reason]string{
		ReasonNotConfigured:      "not_configured",
		ReasonConnectionError:    "connection_error",
		ReasonServiceBindFailed:  "service_bind_failed",
		ReasonUserSearchFailed:   "user_search_failed",
		ReasonUserNotFound:       "user_not_found",
		ReasonInvalidCredentials: "invalid_credentials",
		ReasonUserAuthError:      "user_auth_error",
	}
	require.Len(t, Reasons(), len(names))

	for _, reason := range Reasons() {
		t.Run(names[reason], func(t *testing.T) {
			assert.Equal(t, names[reason], reason.String())

			raw, err := json.Marshal(reason)
			require.NoError(t, err)
			assert.Equal(t, `"`+names[reason]+`"`, string(raw))

			var decoded Reason
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, reason, decoded)
		})
	}

	assert.Equal(t, "reason(42)", Reason(42).String())
	_, err := Reason(42).MarshalText()
	assert.Error(t, err)
	var r Reason
	assert.Error(t, r.UnmarshalText([]byte("bogus")))
}

func TestAuthResult(t *testing.T) {
	user := &DirectoryUser{DN: "cn=John Doe,ou=users,dc=example,dc=org", AccountName: "jdoe"}

	ok := Success(user)
	assert.True(t, ok.OK())
	assert.NoError(t, ok.Err)
	assert.Equal(t, "success(cn=John Doe,ou=users,dc=example,dc=org)", ok.String())

	cause := errors.New("LDAP Result Code 49")
	failed := Failure(ReasonInvalidCredentials, cause)
	assert.False(t, failed.OK())
	assert.Nil(t, failed.User)
	assert.ErrorIs(t, failed.Err, ErrInvalidCredentials)
	assert.ErrorIs(t, failed.Err, cause)
	assert.Equal(t, "failure(invalid_credentials)", failed.String())

	for _, reason := range Reasons() {
		res := Failure(reason, nil)
		assert.Error(t, res.Err)
		assert.False(t, res.OK())
	}
}
