// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* recovery.go - Recovery Service
 *
 * Restores the database from a cataloged artifact with safety nets: the
 * artifact is integrity-checked before use, the current state can be
 * snapshotted first as a rollback point, target tables can be dropped,
 * and the post-restore table set is verified against what the restore
 * was supposed to produce. Steps run strictly in order and any failure
 * aborts the whole operation; rollback to the pre-restore snapshot is a
 * deliberate, separate operator action.
 */

package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tzustu63/ogacrm-sub001/internal/metrics"
)

// Recovery orchestrates restore operations on top of the backup service.
type Recovery struct {
	service  *Service
	restore  RestoreRunner
	store    TableStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewRecovery wires a recovery service. A nil notifier is replaced with
// NopNotifier.
func NewRecovery(service *Service, restore RestoreRunner, store TableStore, m *metrics.Metrics, notifier Notifier, logger zerolog.Logger) *Recovery {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Recovery{
		service:  service,
		restore:  restore,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "recovery").Logger(),
	}
}

// RestoreFromBackup restores the database from the given artifact.
// Steps, in order: look up the record, verify integrity (unless skipped),
// snapshot the current state if requested, drop target tables if
// requested, replay the dump, and confirm every expected table is
// present. The returned result is populated as far as the operation got,
// alongside any error.
func (r *Recovery) RestoreFromBackup(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()
	result := &RestoreResult{BackupID: id}

	fail := func(err error) (*RestoreResult, error) {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		r.metrics.RecordRestore(false, result.Duration)
		r.logger.Error().Err(err).Str("backup_id", id).Msg("restore failed")
		return result, err
	}

	record, err := r.service.GetBackup(id)
	if err != nil {
		return fail(err)
	}

	if !opts.SkipValidation && !r.service.VerifyBackup(record) {
		return fail(fmt.Errorf("%w: artifact %s", ErrIntegrityCheckFailed, id))
	}

	restoreTables := selectTables(record.Tables, opts.SelectiveTables, opts.ExcludeTables)
	if len(restoreTables) == 0 {
		return fail(fmt.Errorf("no tables selected for restore from artifact %s", id))
	}

	if opts.CreateBackupBeforeRestore {
		pre, err := r.service.CreateBackup(ctx, DefaultOptions())
		if err != nil {
			return fail(fmt.Errorf("pre-restore backup failed: %w", err))
		}
		result.PreRestoreBackupID = pre.ID
		r.logger.Info().
			Str("backup_id", id).
			Str("pre_restore_backup_id", pre.ID).
			Msg("pre-restore snapshot created")
	}

	inputPath, cleanup, err := r.prepareInput(record, restoreTables, opts)
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	if opts.DropExisting {
		targets, err := r.dropTargets(ctx, restoreTables, opts)
		if err != nil {
			return fail(err)
		}
		if err := r.store.DropTables(ctx, targets); err != nil {
			return fail(fmt.Errorf("failed to drop tables before restore: %w", err))
		}
	}

	if err := r.restore.Restore(ctx, RestoreRequest{InputPath: inputPath}); err != nil {
		return fail(err)
	}

	current, err := r.store.ListTables(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to enumerate tables after restore: %w", err))
	}
	if missing := missingTables(restoreTables, current); len(missing) > 0 {
		return fail(fmt.Errorf("%w: missing tables %v", ErrRestoreIncomplete, missing))
	}

	result.Success = true
	result.TablesRestored = restoreTables
	result.Duration = time.Since(start)
	r.metrics.RecordRestore(true, result.Duration)
	r.notifier.RestoreCompleted(result)
	r.logger.Info().
		Str("backup_id", id).
		Strs("tables", restoreTables).
		Dur("duration", result.Duration).
		Msg("restore complete")

	return result, nil
}

// RestoreSelectiveTables restores only the named tables from the
// artifact.
func (r *Recovery) RestoreSelectiveTables(ctx context.Context, id string, tables []string, opts RestoreOptions) (*RestoreResult, error) {
	opts.SelectiveTables = tables
	return r.RestoreFromBackup(ctx, id, opts)
}

// GetRestorableBackups returns the cataloged artifacts that currently
// pass verification, newest first. Unverifiable artifacts are hidden from
// the operator, not deleted.
func (r *Recovery) GetRestorableBackups() ([]Artifact, error) {
	records, err := r.service.ListBackups()
	if err != nil {
		return nil, err
	}
	restorable := make([]Artifact, 0, len(records))
	for i := range records {
		if r.service.VerifyBackup(&records[i]) {
			restorable = append(restorable, records[i])
		}
	}
	return restorable, nil
}

// PreviewRestore compares the artifact's table set against the live
// database without changing either. Conflicts are the tables that exist
// now and would be overwritten.
func (r *Recovery) PreviewRestore(ctx context.Context, id string) (*Preview, error) {
	record, err := r.service.GetBackup(id)
	if err != nil {
		return nil, err
	}

	current, err := r.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tables: %w", err)
	}

	currentSet := make(map[string]bool, len(current))
	for _, t := range current {
		currentSet[t] = true
	}
	conflicts := make([]string, 0)
	for _, t := range record.Tables {
		if currentSet[t] {
			conflicts = append(conflicts, t)
		}
	}

	return &Preview{
		Artifact:      *record,
		CurrentTables: current,
		BackupTables:  record.Tables,
		Conflicts:     conflicts,
	}, nil
}

// TestRestore dry-runs the preconditions of a restore: the integrity
// checks run and their findings are reported, but the restore tool is
// never invoked and nothing is mutated. The duration estimate is a rough
// figure for operator planning.
func (r *Recovery) TestRestore(id string) (*TestResult, error) {
	record, err := r.service.GetBackup(id)
	if err != nil {
		return nil, err
	}

	issues := r.inspectArtifact(record)
	return &TestResult{
		CanRestore:        len(issues) == 0,
		Issues:            issues,
		EstimatedDuration: estimateRestoreDuration(record.SizeBytes),
	}, nil
}

// inspectArtifact runs the individual integrity checks and returns a
// human-readable finding for each failure.
func (r *Recovery) inspectArtifact(record *Artifact) []string {
	issues := make([]string, 0)
	path := r.service.ArtifactPath(record)

	info, err := os.Stat(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("artifact file missing: %v", err))
		return issues
	}
	if info.Size() != record.SizeBytes {
		issues = append(issues, fmt.Sprintf("size mismatch: expected %d bytes, found %d", record.SizeBytes, info.Size()))
	}

	checksum, err := checksumFile(path)
	switch {
	case err != nil:
		issues = append(issues, fmt.Sprintf("unable to read artifact: %v", err))
	case checksum != record.Checksum:
		issues = append(issues, "checksum mismatch: artifact content has changed since creation")
	}

	if err := checkDumpMarkers(path); err != nil {
		issues = append(issues, fmt.Sprintf("malformed dump: %v", err))
	}

	if len(record.Tables) == 0 {
		issues = append(issues, "artifact record lists no tables")
	}
	return issues
}

// prepareInput returns the dump file to replay. Full restores use the
// artifact directly; selective restores rewrite it through FilterDump
// into a temporary file so only the selected tables are replayed.
func (r *Recovery) prepareInput(record *Artifact, restoreTables []string, opts RestoreOptions) (string, func(), error) {
	path := r.service.ArtifactPath(record)
	if len(opts.SelectiveTables) == 0 && len(opts.ExcludeTables) == 0 {
		return path, func() {}, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close() //nolint:errcheck // Read-only handle

	tmp, err := os.CreateTemp(r.service.catalog.Dir(), record.ID+"-selective-*.sql")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create filtered dump: %w", err)
	}

	if err := FilterDump(src, tmp, restoreTables); err != nil {
		tmp.Close()           //nolint:errcheck // Error path cleanup
		os.Remove(tmp.Name()) //nolint:errcheck // Error path cleanup
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // Error path cleanup
		return "", nil, fmt.Errorf("failed to finalize filtered dump: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove filtered dump")
		}
	}
	return tmp.Name(), cleanup, nil
}

// dropTargets decides which tables a destructive restore clears first:
// the selected tables for a selective restore, otherwise every table
// currently present, in both cases minus the deny-list.
func (r *Recovery) dropTargets(ctx context.Context, restoreTables []string, opts RestoreOptions) ([]string, error) {
	if len(opts.SelectiveTables) > 0 {
		return restoreTables, nil
	}
	current, err := r.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tables: %w", err)
	}
	return subtractTables(current, opts.ExcludeTables), nil
}

// selectTables resolves the tables a restore is supposed to produce: the
// allow-list if given, otherwise the artifact's full table set, minus the
// deny-list.
func selectTables(artifactTables, selective, exclude []string) []string {
	tables := artifactTables
	if len(selective) > 0 {
		tables = selective
	}
	return subtractTables(tables, exclude)
}

// missingTables returns the expected tables absent from current.
func missingTables(expected, current []string) []string {
	present := make(map[string]bool, len(current))
	for _, t := range current {
		present[t] = true
	}
	var missing []string
	for _, t := range expected {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// estimateRestoreDuration guesses restore time from artifact size,
// assuming roughly 10 MB/s replay throughput plus fixed startup cost.
func estimateRestoreDuration(sizeBytes int64) time.Duration {
	const bytesPerSecond = 10 << 20
	return 5*time.Second + time.Duration(sizeBytes/bytesPerSecond)*time.Second
}
