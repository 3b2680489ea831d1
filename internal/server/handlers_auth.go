package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zhstock/dsa/internal/auth"
)

// requireAuth gates mutating endpoints behind a valid session token
// when ADMIN_AUTH_ENABLED is set; a no-op otherwise.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Cfg.AdminAuthEnabled || s.cfg.AuthService == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !s.cfg.AuthService.ValidateToken(token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleAuthStatus implements GET /auth/status.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Cfg.AdminAuthEnabled {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": false, "configured": true})
		return
	}
	configured, err := s.cfg.AuthService.Configured(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true, "configured": configured})
}

type loginRequest struct {
	Password string `json:"password"`
}

// handleAuthLogin implements POST /auth/login (200/401/429).
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.cfg.AuthService.Login(r.Context(), req.Password)
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// handleAuthLogout implements POST /auth/logout. Tokens are stateless
// JWTs with a short TTL, so logout is a client-side no-op acknowledged
// with 200; there is no server-side session to invalidate.
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// handleAuthChangePassword implements POST /auth/change-password.
func (s *Server) handleAuthChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.cfg.AuthService.ChangePassword(r.Context(), req.OldPassword, req.NewPassword); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
