// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* handlers_backup.go - Backup Endpoints
 *
 * Create, list, inspect, verify, delete, cleanup, and the scheduler
 * surface. Every endpoint here sits behind the admin middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tzustu63/ogacrm-sub001/internal/backup"
	"github.com/tzustu63/ogacrm-sub001/internal/models"
)

// handleCreateBackup takes a manual backup. An empty body uses the
// default options.
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	req := models.CreateBackupRequest{IncludeData: true}
	if r.ContentLength > 0 {
		if !s.decodeRequest(w, r, &req) {
			return
		}
	}

	artifact, err := s.backups.CreateBackup(r.Context(), backup.Options{
		IncludeData:   req.IncludeData,
		IncludeTables: req.IncludeTables,
		ExcludeTables: req.ExcludeTables,
		Compress:      req.Compress,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, artifact)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	records, err := s.backups.ListBackups()
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	record, err := s.backups.GetBackup(chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.backups.DeleteBackup(chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}

// handleVerifyBackup runs the integrity predicate on demand. The check
// itself never fails; only an unknown id is an error.
func (s *Server) handleVerifyBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.backups.GetBackup(id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VerifyResponse{
		BackupID: id,
		Valid:    s.backups.VerifyBackup(record),
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req models.CleanupRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	deleted, err := s.backups.CleanupOldBackups(req.RetentionDays)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.CleanupResponse{Deleted: deleted})
}

func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleUpdateRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	update := backup.ScheduleUpdate{
		Enabled:       req.Enabled,
		RetentionDays: req.RetentionDays,
	}
	if req.IntervalMins != nil {
		interval := time.Duration(*req.IntervalMins) * time.Minute
		update.Interval = &interval
	}
	if req.Options != nil {
		update.Options = &backup.Options{
			IncludeData:   req.Options.IncludeData,
			IncludeTables: req.Options.IncludeTables,
			ExcludeTables: req.Options.ExcludeTables,
			Compress:      req.Options.Compress,
		}
	}

	if err := s.scheduler.UpdateConfig(update); err != nil {
		s.respondError(w, http.StatusBadRequest, models.ErrKindValidation, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleScheduleStart(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Start()
	s.respondJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleScheduleStop(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Stop()
	s.respondJSON(w, http.StatusOK, s.scheduler.Status())
}
