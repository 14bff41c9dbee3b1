// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import "time"

// Artifact is a catalog record describing one on-disk backup file.
// Records are immutable after creation; they only ever leave the catalog
// through explicit deletion or retention cleanup.
type Artifact struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
	IsVerified bool      `json:"is_verified"`
	Tables     []string  `json:"tables"`
}

// Options controls what a single backup includes.
type Options struct {
	// IncludeData selects schema+data dumps; false produces schema-only.
	IncludeData bool `json:"include_data"`

	// IncludeTables is an explicit allow-list. Empty means all base tables
	// currently present in the database.
	IncludeTables []string `json:"include_tables,omitempty"`

	// ExcludeTables is subtracted from the effective table list.
	ExcludeTables []string `json:"exclude_tables,omitempty"`

	// Compress is accepted and recorded but currently reserved: artifacts
	// are always written as plain SQL so that selective restore can parse
	// them.
	Compress bool `json:"compress"`
}

// DefaultOptions returns the options applied when a caller supplies none.
func DefaultOptions() Options {
	return Options{IncludeData: true}
}

// RestoreOptions controls how a restore is performed.
type RestoreOptions struct {
	// DropExisting drops the tables selected for restore before replaying
	// the dump.
	DropExisting bool `json:"drop_existing"`

	// SelectiveTables restricts the restore to these tables. Empty means
	// the artifact's full table set.
	SelectiveTables []string `json:"selective_tables,omitempty"`

	// ExcludeTables is subtracted from the selected table set.
	ExcludeTables []string `json:"exclude_tables,omitempty"`

	// SkipValidation disables the integrity check that otherwise runs
	// before any restore. Validation is on by default.
	SkipValidation bool `json:"skip_validation"`

	// CreateBackupBeforeRestore snapshots the current state first and
	// records the new artifact's id as the rollback point.
	CreateBackupBeforeRestore bool `json:"create_backup_before_restore"`
}

// RestoreResult reports the outcome of a restore operation.
type RestoreResult struct {
	Success            bool          `json:"success"`
	BackupID           string        `json:"backup_id"`
	TablesRestored     []string      `json:"tables_restored"`
	Duration           time.Duration `json:"duration"`
	PreRestoreBackupID string        `json:"pre_restore_backup_id,omitempty"`
	Error              string        `json:"error,omitempty"`
}

// ScheduleConfig is the scheduler's runtime-mutable configuration. It is
// not persisted; process restart resets it to the environment defaults.
type ScheduleConfig struct {
	Enabled       bool          `json:"enabled"`
	Interval      time.Duration `json:"interval"`
	RetentionDays int           `json:"retention_days"`
	Options       Options       `json:"options"`
}

// ScheduleUpdate carries a partial configuration change; nil fields keep
// their current value.
type ScheduleUpdate struct {
	Enabled       *bool          `json:"enabled,omitempty"`
	Interval      *time.Duration `json:"interval,omitempty"`
	RetentionDays *int           `json:"retention_days,omitempty"`
	Options       *Options       `json:"options,omitempty"`
}

// SchedulerStatus is a point-in-time snapshot of the scheduler.
type SchedulerStatus struct {
	Running   bool           `json:"running"`
	Config    ScheduleConfig `json:"config"`
	LastRun   *time.Time     `json:"last_run,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
}

// Preview compares an artifact's table set against the live database
// without touching either.
type Preview struct {
	Artifact      Artifact `json:"artifact"`
	CurrentTables []string `json:"current_tables"`
	BackupTables  []string `json:"backup_tables"`
	Conflicts     []string `json:"conflicts"`
}

// TestResult is the outcome of a dry-run restore check. No state is
// mutated; the restore tool is never invoked.
type TestResult struct {
	CanRestore        bool          `json:"can_restore"`
	Issues            []string      `json:"issues"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}
