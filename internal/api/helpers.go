// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/tzustu63/ogacrm-sub001/internal/backup"
	"github.com/tzustu63/ogacrm-sub001/internal/models"
)

const maxRequestBody = 1 << 20 // 1 MiB

// respondJSON writes a success envelope.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.APIResponse{Success: true, Data: data}); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes a failure envelope with a machine-readable kind.
func (s *Server) respondError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(models.APIResponse{
		Success: false,
		Error:   &models.APIError{Kind: kind, Message: message},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode error response")
	}
}

// decodeRequest parses and validates a JSON body into v. A false return
// means the error response has already been written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, models.ErrKindValidation, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			s.respondError(w, http.StatusBadRequest, models.ErrKindValidation,
				fmt.Sprintf("field %s failed %s validation", verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		s.respondError(w, http.StatusBadRequest, models.ErrKindValidation, err.Error())
		return false
	}
	return true
}

// respondServiceError maps backup subsystem errors onto HTTP statuses:
// 4xx for not-found and validation-shaped failures, 5xx for subprocess
// and storage failures.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrArtifactNotFound):
		s.respondError(w, http.StatusNotFound, models.ErrKindNotFound, err.Error())
	case errors.Is(err, backup.ErrIntegrityCheckFailed):
		s.respondError(w, http.StatusUnprocessableEntity, models.ErrKindIntegrity, err.Error())
	case errors.Is(err, backup.ErrDumpFailed):
		s.respondError(w, http.StatusInternalServerError, models.ErrKindDumpFailed, err.Error())
	case errors.Is(err, backup.ErrRestoreFailed):
		s.respondError(w, http.StatusInternalServerError, models.ErrKindRestoreFailed, err.Error())
	case errors.Is(err, backup.ErrRestoreIncomplete):
		s.respondError(w, http.StatusInternalServerError, models.ErrKindIncomplete, err.Error())
	case errors.Is(err, backup.ErrCatalogUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, models.ErrKindCatalog, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, models.ErrKindInternal, err.Error())
	}
}
