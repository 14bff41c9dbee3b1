// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* handlers_restore.go - Recovery Endpoints
 *
 * Full and selective restore plus the non-destructive operations an
 * operator uses before committing to one: listing restorable artifacts,
 * previewing table conflicts, and dry-run testing.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tzustu63/ogacrm-sub001/internal/backup"
	"github.com/tzustu63/ogacrm-sub001/internal/models"
)

// handleRestore performs a full restore from the named artifact. An empty
// body restores with safe defaults: validation on, nothing dropped, no
// pre-restore snapshot.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req models.RestoreRequest
	if r.ContentLength > 0 {
		if !s.decodeRequest(w, r, &req) {
			return
		}
	}

	result, err := s.recovery.RestoreFromBackup(r.Context(), chi.URLParam(r, "id"), backup.RestoreOptions{
		DropExisting:              req.DropExisting,
		ExcludeTables:             req.ExcludeTables,
		SkipValidation:            req.SkipValidation,
		CreateBackupBeforeRestore: req.CreateBackupBeforeRestore,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRestoreSelective(w http.ResponseWriter, r *http.Request) {
	var req models.SelectiveRestoreRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	result, err := s.recovery.RestoreSelectiveTables(r.Context(), chi.URLParam(r, "id"), req.Tables, backup.RestoreOptions{
		DropExisting:              req.DropExisting,
		ExcludeTables:             req.ExcludeTables,
		SkipValidation:            req.SkipValidation,
		CreateBackupBeforeRestore: req.CreateBackupBeforeRestore,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRestorableBackups(w http.ResponseWriter, r *http.Request) {
	records, err := s.recovery.GetRestorableBackups()
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handlePreviewRestore(w http.ResponseWriter, r *http.Request) {
	preview, err := s.recovery.PreviewRestore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, preview)
}

func (s *Server) handleTestRestore(w http.ResponseWriter, r *http.Request) {
	result, err := s.recovery.TestRestore(chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
