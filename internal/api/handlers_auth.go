package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/conectseas/directory-auth/internal/auth"
	"github.com/conectseas/directory-auth/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *store.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	res, err := s.deps.Login.Login(r.Context(), auth.LoginRequest{
		Username:  req.Username,
		Password:  req.Password,
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case errors.Is(err, auth.ErrThrottled):
		writeError(w, http.StatusTooManyRequests, "too many attempts")
		return
	default:
		s.logger.Error("login_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Session.Token,
		ExpiresAt: res.Session.ExpiresAt,
		User:      res.User,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Revoke(r.Context(), currentToken(r)); err != nil {
		s.logger.Error("logout_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
