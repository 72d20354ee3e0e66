package ldap

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StepStatus is the outcome of one diagnostic step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepWarning StepStatus = "warning"
	StepError   StepStatus = "error"
	StepInfo    StepStatus = "info"
)

// Labels of the diagnostic steps, in the order they can appear.
const (
	StepConfig  = "config"
	StepConnect = "connect"
	StepBind    = "bind"
	StepSearch  = "search"
)

// DiagnosticEntry is one entry returned by the connection test search.
type DiagnosticEntry struct {
	DN         string              `json:"dn"`
	Attributes map[string][]string `json:"attributes"`
}

// DiagnosticStep records one step of a connection test.
type DiagnosticStep struct {
	Label   string            `json:"step"`
	Status  StepStatus        `json:"status"`
	Message string            `json:"message"`
	BoundDN string            `json:"boundDn,omitempty"`
	BaseDN  string            `json:"baseDn,omitempty"`
	Entries []DiagnosticEntry `json:"entries,omitempty"`
}

// DiagnosticTrace is the step by step explanation returned to an administrator.
// It may contain raw directory attributes and must not be logged or persisted.
type DiagnosticTrace struct {
	Success bool             `json:"success"`
	URL     string           `json:"url,omitempty"`
	Steps   []DiagnosticStep `json:"steps"`
}

// LastStep returns the final recorded step, or a zero step for an empty trace.
func (t *DiagnosticTrace) LastStep() DiagnosticStep {
	if len(t.Steps) == 0 {
		return DiagnosticStep{}
	}
	return t.Steps[len(t.Steps)-1]
}

// HasStep reports whether a step with label was recorded.
func (t *DiagnosticTrace) HasStep(label string) bool {
	for _, s := range t.Steps {
		if s.Label == label {
			return true
		}
	}
	return false
}

func (t *DiagnosticTrace) add(step DiagnosticStep) {
	t.Steps = append(t.Steps, step)
}

// TestConnection checks reachability, the service credentials and the base DN
// of cfg without verifying any user password. It does not require cfg.Enabled,
// so a configuration can be tested before it is switched on.
//
// Every failure is recorded as a step; TestConnection never returns an error.
// The trace is successful only when the search returned at least one entry.
func (b *Bridge) TestConnection(ctx context.Context, cfg DirectoryConfig) (trace DiagnosticTrace) {
	start := time.Now()
	trace.Steps = []DiagnosticStep{}

	defer func() {
		duration := time.Since(start)
		b.observer.ObserveConnectionTest(trace.Success, duration)
		b.logger.Info("ldap_connection_test_completed",
			slog.String("server", trace.URL),
			slog.Bool("success", trace.Success),
			slog.String("last_step", trace.LastStep().Label),
			slog.String("last_status", string(trace.LastStep().Status)),
			slog.Duration("duration", duration))
	}()

	if cfg.Host == "" || cfg.BaseDN == "" {
		trace.add(DiagnosticStep{
			Label:   StepConfig,
			Status:  StepError,
			Message: "Host and base DN are required",
		})
		return trace
	}

	trace.URL = cfg.URL()

	conn, err := b.connect(ctx, trace.URL)
	if err != nil {
		trace.add(DiagnosticStep{
			Label:   StepConnect,
			Status:  StepError,
			Message: fmt.Sprintf("Could not connect to %s: %v", trace.URL, rootCause(err)),
		})
		return trace
	}
	defer b.closeConn(conn, trace.URL)

	trace.add(DiagnosticStep{
		Label:   StepConnect,
		Status:  StepSuccess,
		Message: fmt.Sprintf("Connected to %s", trace.URL),
	})

	if cfg.Anonymous() {
		trace.add(DiagnosticStep{
			Label:   StepBind,
			Status:  StepInfo,
			Message: "No bind DN or password configured, searching anonymously",
		})
	} else {
		if err := b.bindAsReader(conn, cfg); err != nil {
			trace.add(DiagnosticStep{
				Label:   StepBind,
				Status:  StepError,
				Message: fmt.Sprintf("Bind failed: %v", rootCause(err)),
				BoundDN: cfg.BindDN,
			})
			return trace
		}
		trace.add(DiagnosticStep{
			Label:   StepBind,
			Status:  StepSuccess,
			Message: "Bind successful",
			BoundDN: cfg.BindDN,
		})
	}

	if err := checkContext(ctx, "search", trace.URL); err != nil {
		trace.add(DiagnosticStep{
			Label:   StepSearch,
			Status:  StepError,
			Message: fmt.Sprintf("Search not started: %v", rootCause(err)),
			BaseDN:  cfg.BaseDN,
		})
		return trace
	}

	res, err := conn.Search(b.diagnosticSearchRequest(cfg.BaseDN))
	if err != nil {
		wrapped := WrapLDAPError("search", trace.URL, err)
		// A size limit answer still carries the first entries.
		if wrapped.Category != CategorySizeLimit || res == nil || len(res.Entries) == 0 {
			trace.add(DiagnosticStep{
				Label:   StepSearch,
				Status:  StepError,
				Message: fmt.Sprintf("Search under %s failed: %v", cfg.BaseDN, rootCause(err)),
				BaseDN:  cfg.BaseDN,
			})
			return trace
		}
	}

	if res == nil || len(res.Entries) == 0 {
		trace.add(DiagnosticStep{
			Label:   StepSearch,
			Status:  StepWarning,
			Message: fmt.Sprintf("Connection works but no entries were found under %s", cfg.BaseDN),
			BaseDN:  cfg.BaseDN,
		})
		return trace
	}

	entries := make([]DiagnosticEntry, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if entry == nil {
			continue
		}
		entries = append(entries, renderEntry(entry))
		if len(entries) == diagnosticSizeLimit {
			break
		}
	}

	trace.add(DiagnosticStep{
		Label:   StepSearch,
		Status:  StepSuccess,
		Message: fmt.Sprintf("Found %d entries under %s", len(entries), cfg.BaseDN),
		BaseDN:  cfg.BaseDN,
		Entries: entries,
	})
	trace.Success = true

	return trace
}

// rootCause drops the LDAPError decoration so operators see the server's message.
func rootCause(err error) error {
	if enhanced, ok := err.(*LDAPError); ok && enhanced.Err != nil {
		return enhanced.Err
	}
	return err
}
