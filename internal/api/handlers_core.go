// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tzustu63/ogacrm-sub001/internal/auth"
	"github.com/tzustu63/ogacrm-sub001/internal/models"
)

// handleLogin exchanges admin credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	token, expiresAt, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.respondError(w, http.StatusUnauthorized, models.ErrKindUnauthorized, "invalid credentials")
			return
		}
		s.respondError(w, http.StatusInternalServerError, models.ErrKindInternal, "login failed")
		return
	}

	s.respondJSON(w, http.StatusOK, models.LoginResponse{Token: token, ExpiresAt: expiresAt})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe; it fails while the database is
// unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, models.ErrKindInternal, "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
