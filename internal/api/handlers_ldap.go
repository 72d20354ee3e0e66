package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	ldap "github.com/conectseas/directory-auth"
)

func (s *Server) handleGetDirectory(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Directory.Load(r.Context())
	if err != nil {
		s.logger.Error("directory_settings_load_failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

func (s *Server) handlePutDirectory(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.readDirectoryConfig(w, r)
	if !ok {
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Directory.Save(r.Context(), cfg); err != nil {
		s.logger.Error("directory_settings_save_failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.logger.Info("directory_settings_saved",
		slog.String("user", ldap.MaskUsername(currentUser(r).Username)),
		slog.Bool("enabled", cfg.Enabled),
		slog.String("url", cfg.URL()))
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

// handleTestDirectory runs the diagnostic against the request body when one is
// sent, otherwise against the stored configuration. Nothing is saved.
func (s *Server) handleTestDirectory(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.readDirectoryConfig(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Tester.TestConnection(r.Context(), cfg))
}

// readDirectoryConfig decodes a submitted configuration and restores the
// stored bind password behind the redaction placeholder. An empty body yields
// the stored configuration.
func (s *Server) readDirectoryConfig(w http.ResponseWriter, r *http.Request) (ldap.DirectoryConfig, bool) {
	stored, err := s.deps.Directory.Load(r.Context())
	if err != nil {
		s.logger.Error("directory_settings_load_failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return ldap.DirectoryConfig{}, false
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return ldap.DirectoryConfig{}, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return stored, true
	}
	cfg, err := ldap.ParseDirectoryConfig(raw)
	if err != nil {
		s.logger.Debug("directory_settings_rejected", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid directory configuration")
		return ldap.DirectoryConfig{}, false
	}
	return cfg.MergeSecret(stored), true
}
