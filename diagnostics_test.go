package ldap

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectseas/directory-auth/testutil"
)

func stepLabels(trace DiagnosticTrace) []string {
	labels := make([]string, 0, len(trace.Steps))
	for _, s := range trace.Steps {
		labels = append(labels, s.Label+":"+string(s.Status))
	}
	return labels
}

func TestConnectionTestSuccess(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	trace := newTestBridge(t, dir).TestConnection(context.Background(), exampleConfig())

	assert.True(t, trace.Success)
	assert.Equal(t, testutil.ExampleURL, trace.URL)
	assert.Equal(t, []string{"connect:success", "bind:success", "search:success"}, stepLabels(trace))

	bind := trace.Steps[1]
	assert.Equal(t, testutil.ExampleServiceDN, bind.BoundDN)

	search := trace.LastStep()
	assert.Equal(t, testutil.ExampleBaseDN, search.BaseDN)
	require.Len(t, search.Entries, 1)
	assert.Equal(t, testutil.JDoeDN, search.Entries[0].DN)
	assert.Equal(t, []string{"john.doe@example.org"}, search.Entries[0].Attributes["mail"])
	assert.Len(t, search.Entries[0].Attributes, len(testutil.JDoeEntry().Attributes), "the full attribute map is recorded")

	searches := dir.Searches()
	require.Len(t, searches, 1)
	assert.Equal(t, "(objectClass=*)", searches[0].Request.Filter)
	assert.Equal(t, 5, searches[0].Request.SizeLimit)
	assert.Equal(t, 0, dir.OpenConns())
}

func TestConnectionTestCapsEntries(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	for _, cn := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		dir.AddEntry(&testutil.FakeEntry{
			DN:         "cn=" + cn + ",ou=users,dc=example,dc=org",
			Attributes: map[string][]string{"cn": {cn}},
		})
	}

	trace := newTestBridge(t, dir).TestConnection(context.Background(), exampleConfig())

	assert.True(t, trace.Success, "a size limit answer with entries is still a success")
	assert.Len(t, trace.LastStep().Entries, 5)
}

func TestConnectionTestNoEntries(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	cfg := exampleConfig()
	cfg.BaseDN = "ou=empty,dc=example,dc=org"

	trace := newTestBridge(t, dir).TestConnection(context.Background(), cfg)

	assert.False(t, trace.Success)
	last := trace.LastStep()
	assert.Equal(t, StepSearch, last.Label)
	assert.Equal(t, StepWarning, last.Status)
	assert.Empty(t, last.Entries)
	for _, s := range trace.Steps {
		assert.NotEqual(t, StepError, s.Status)
	}

	// The login path sees the same directory as an unknown user.
	result := newTestBridge(t, dir).Authenticate(context.Background(), "jdoe", "hunter2", cfg)
	assert.Equal(t, ReasonUserNotFound, result.Reason)
}

func TestConnectionTestServiceBindFails(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	cfg := exampleConfig()
	cfg.BindPassword = "wrong"

	trace := newTestBridge(t, dir).TestConnection(context.Background(), cfg)

	assert.False(t, trace.Success)
	assert.Equal(t, []string{"connect:success", "bind:error"}, stepLabels(trace))
	assert.Equal(t, testutil.ExampleServiceDN, trace.LastStep().BoundDN)
	assert.Contains(t, trace.LastStep().Message, "Invalid Credentials")
	assert.False(t, trace.HasStep(StepSearch))
	assert.Empty(t, dir.Searches(), "no search may be attempted")
	assert.Equal(t, 0, dir.OpenConns())

	result := newTestBridge(t, dir).Authenticate(context.Background(), "jdoe", "hunter2", cfg)
	assert.Equal(t, ReasonServiceBindFailed, result.Reason)
}

func TestConnectionTestAnonymous(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	dir.AllowAnonymous = true
	cfg := exampleConfig()
	cfg.BindDN, cfg.BindPassword = "", ""

	trace := newTestBridge(t, dir).TestConnection(context.Background(), cfg)

	assert.Empty(t, dir.Binds(), "no bind call is expected")
	assert.Equal(t, []string{"connect:success", "bind:info", "search:success"}, stepLabels(trace))

	infos := 0
	for _, s := range trace.Steps {
		if s.Label == StepSearch {
			break
		}
		if s.Status == StepInfo {
			infos++
		}
	}
	assert.Equal(t, 1, infos)
	assert.True(t, trace.Success)
}

func TestConnectionTestConnectFails(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	dir.DialFunc = func(int, string) error { return testutil.NetworkError("dial tcp 10.0.0.1:389: connect: connection refused") }

	trace := newTestBridge(t, dir).TestConnection(context.Background(), exampleConfig())

	assert.False(t, trace.Success)
	assert.Equal(t, []string{"connect:error"}, stepLabels(trace))
	assert.Contains(t, trace.LastStep().Message, "connection refused")
}

func TestConnectionTestSearchFails(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	dir.SearchFunc = func(int, *ldap.SearchRequest) error {
		return testutil.ResultError(ldap.LDAPResultNoSuchObject, "0000208D: NameErr: DSID-0310021B, problem 2001 (NO_OBJECT)")
	}

	trace := newTestBridge(t, dir).TestConnection(context.Background(), exampleConfig())

	assert.False(t, trace.Success)
	assert.Equal(t, []string{"connect:success", "bind:success", "search:error"}, stepLabels(trace))
}

func TestConnectionTestMissingFields(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	dir.FailOnDial(t)
	cfg := exampleConfig()
	cfg.Host = ""

	trace := newTestBridge(t, dir).TestConnection(context.Background(), cfg)

	assert.False(t, trace.Success)
	assert.Equal(t, []string{"config:error"}, stepLabels(trace))
}

func TestConnectionTestIgnoresEnabledFlag(t *testing.T) {
	dir := testutil.NewExampleDirectory()
	cfg := exampleConfig()
	cfg.Enabled = false

	trace := newTestBridge(t, dir).TestConnection(context.Background(), cfg)

	assert.True(t, trace.Success)
}

func TestDiagnosticTraceJSON(t *testing.T) {
	trace := DiagnosticTrace{
		Success: false,
		URL:     "ldap://dc1.example.org:389",
		Steps: []DiagnosticStep{
			{Label: StepConnect, Status: StepSuccess, Message: "Connected"},
			{Label: StepBind, Status: StepError, Message: "Bind failed", BoundDN: "cn=svc,dc=example,dc=org"},
		},
	}

	raw, err := json.Marshal(trace)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"url": "ldap://dc1.example.org:389",
		"steps": [
			{"step": "connect", "status": "success", "message": "Connected"},
			{"step": "bind", "status": "error", "message": "Bind failed", "boundDn": "cn=svc,dc=example,dc=org"}
		]
	}`, string(raw))
}
