// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the request and response shapes shared by the
// REST layer.
package models

import "time"

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable kind alongside the human-readable
// message.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error kinds surfaced at the REST boundary.
const (
	ErrKindNotFound       = "not_found"
	ErrKindValidation     = "validation_failed"
	ErrKindUnauthorized   = "unauthorized"
	ErrKindDumpFailed     = "dump_failed"
	ErrKindRestoreFailed  = "restore_failed"
	ErrKindIntegrity      = "integrity_check_failed"
	ErrKindIncomplete     = "restore_incomplete"
	ErrKindCatalog        = "catalog_unavailable"
	ErrKindInternal       = "internal_error"
	ErrKindTooManyRequest = "rate_limited"
)

// LoginRequest authenticates the administrator.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateBackupRequest selects what a manual backup includes.
type CreateBackupRequest struct {
	IncludeData   bool     `json:"include_data"`
	IncludeTables []string `json:"include_tables,omitempty" validate:"omitempty,dive,min=1,max=128"`
	ExcludeTables []string `json:"exclude_tables,omitempty" validate:"omitempty,dive,min=1,max=128"`
	Compress      bool     `json:"compress"`
}

// CleanupRequest triggers a manual retention sweep.
type CleanupRequest struct {
	RetentionDays int `json:"retention_days" validate:"required,min=1,max=3650"`
}

// CleanupResponse reports how many artifacts the sweep removed.
type CleanupResponse struct {
	Deleted int `json:"deleted"`
}

// VerifyResponse reports the outcome of an on-demand integrity check.
type VerifyResponse struct {
	BackupID string `json:"backup_id"`
	Valid    bool   `json:"valid"`
}

// ScheduleUpdateRequest is a partial scheduler configuration change.
type ScheduleUpdateRequest struct {
	Enabled       *bool                `json:"enabled,omitempty"`
	IntervalMins  *int                 `json:"interval_minutes,omitempty" validate:"omitempty,min=1,max=10080"`
	RetentionDays *int                 `json:"retention_days,omitempty" validate:"omitempty,min=1,max=3650"`
	Options       *CreateBackupRequest `json:"options,omitempty"`
}

// RestoreRequest controls a full restore.
type RestoreRequest struct {
	DropExisting              bool     `json:"drop_existing"`
	ExcludeTables             []string `json:"exclude_tables,omitempty" validate:"omitempty,dive,min=1,max=128"`
	SkipValidation            bool     `json:"skip_validation"`
	CreateBackupBeforeRestore bool     `json:"create_backup_before_restore"`
}

// SelectiveRestoreRequest controls a restore limited to named tables.
type SelectiveRestoreRequest struct {
	Tables                    []string `json:"tables" validate:"required,min=1,dive,min=1,max=128"`
	DropExisting              bool     `json:"drop_existing"`
	ExcludeTables             []string `json:"exclude_tables,omitempty" validate:"omitempty,dive,min=1,max=128"`
	SkipValidation            bool     `json:"skip_validation"`
	CreateBackupBeforeRestore bool     `json:"create_backup_before_restore"`
}
