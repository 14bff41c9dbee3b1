// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* service.go - Backup Service
 *
 * Orchestrates artifact creation (table selection, dump, checksum,
 * self-verification, catalog update), verification, listing, deletion,
 * and retention cleanup. The catalog is the single source of truth:
 * an artifact file without a catalog record is invisible to every
 * operation here.
 */

package backup

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tzustu63/ogacrm-sub001/internal/metrics"
)

// TableStore enumerates and drops tables in the live database. It is the
// only database access this package performs directly; bulk data movement
// goes through the subprocess runners.
type TableStore interface {
	ListTables(ctx context.Context) ([]string, error)
	DropTables(ctx context.Context, tables []string) error
}

// Service produces, verifies, enumerates, and retires backup artifacts.
type Service struct {
	catalog  *Catalog
	dump     DumpRunner
	store    TableStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewService wires a backup service. A nil notifier is replaced with
// NopNotifier; a nil metrics bundle records nothing.
func NewService(catalog *Catalog, dump DumpRunner, store TableStore, m *metrics.Metrics, notifier Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		catalog:  catalog,
		dump:     dump,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "backup").Logger(),
	}
}

// CreateBackup dumps the selected tables to a fresh artifact file, records
// its size and SHA-256 checksum, runs the self-check, and appends the
// record to the catalog. A failed dump leaves no file and no record
// behind.
func (s *Service) CreateBackup(ctx context.Context, opts Options) (*Artifact, error) {
	start := time.Now()

	tables, err := s.resolveTables(ctx, opts.IncludeTables, opts.ExcludeTables)
	if err != nil {
		return nil, err
	}

	id := newArtifactID(start)
	filename := id + ".sql"
	path := filepath.Join(s.catalog.Dir(), filename)

	s.logger.Info().
		Str("backup_id", id).
		Strs("tables", tables).
		Bool("include_data", opts.IncludeData).
		Msg("creating backup")

	if err := s.dump.Dump(ctx, DumpRequest{
		OutputPath: path,
		Tables:     tables,
		SchemaOnly: !opts.IncludeData,
	}); err != nil {
		s.removeArtifactFile(path)
		s.metrics.RecordBackup(false, time.Since(start), 0)
		s.notifier.BackupFailed(err)
		s.logger.Error().Err(err).Str("backup_id", id).Msg("dump failed")
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		s.removeArtifactFile(path)
		s.metrics.RecordBackup(false, time.Since(start), 0)
		return nil, fmt.Errorf("%w: artifact missing after dump: %v", ErrDumpFailed, err)
	}

	checksum, err := checksumFile(path)
	if err != nil {
		s.removeArtifactFile(path)
		s.metrics.RecordBackup(false, time.Since(start), 0)
		return nil, fmt.Errorf("failed to checksum artifact: %w", err)
	}

	artifact := Artifact{
		ID:        id,
		Filename:  filename,
		SizeBytes: info.Size(),
		Checksum:  checksum,
		CreatedAt: start.UTC(),
		Tables:    tables,
	}
	artifact.IsVerified = s.VerifyBackup(&artifact)

	if err := s.catalog.Add(artifact); err != nil {
		s.removeArtifactFile(path)
		s.metrics.RecordBackup(false, time.Since(start), 0)
		return nil, err
	}

	s.metrics.RecordBackup(true, time.Since(start), artifact.SizeBytes)
	s.notifier.BackupCompleted(&artifact)
	s.logger.Info().
		Str("backup_id", id).
		Int64("size_bytes", artifact.SizeBytes).
		Bool("verified", artifact.IsVerified).
		Dur("duration", time.Since(start)).
		Msg("backup created")

	return &artifact, nil
}

// VerifyBackup checks that the artifact file exists, that its size and
// SHA-256 checksum match the record, and that its content carries the
// dump tool's start and end markers. It never returns an error: any
// mismatch yields false with the reason logged, which makes it usable as
// a cheap trust predicate before restore.
func (s *Service) VerifyBackup(record *Artifact) bool {
	path := s.ArtifactPath(record)
	logger := s.logger.With().Str("backup_id", record.ID).Logger()

	info, err := os.Stat(path)
	if err != nil {
		logger.Warn().Err(err).Msg("verification failed: artifact file missing")
		return false
	}
	if info.Size() != record.SizeBytes {
		logger.Warn().
			Int64("expected", record.SizeBytes).
			Int64("actual", info.Size()).
			Msg("verification failed: size mismatch")
		return false
	}

	checksum, err := checksumFile(path)
	if err != nil {
		logger.Warn().Err(err).Msg("verification failed: unable to read artifact")
		return false
	}
	if checksum != record.Checksum {
		logger.Warn().Msg("verification failed: checksum mismatch")
		return false
	}

	if err := checkDumpMarkers(path); err != nil {
		logger.Warn().Err(err).Msg("verification failed: malformed dump")
		return false
	}

	return true
}

// ListBackups returns all catalog records, newest first. A catalog that
// has never been written is an empty list.
func (s *Service) ListBackups() ([]Artifact, error) {
	return s.catalog.List()
}

// GetBackup returns the record for id, or ErrArtifactNotFound.
func (s *Service) GetBackup(id string) (*Artifact, error) {
	return s.catalog.Get(id)
}

// DeleteBackup removes the catalog record first and the artifact file
// second. Rewriting the catalog first means a failed file removal leaves
// an orphaned file no operation can see, rather than a live record
// pointing at nothing.
func (s *Service) DeleteBackup(id string) error {
	record, err := s.catalog.Get(id)
	if err != nil {
		return err
	}
	if err := s.catalog.Remove(id); err != nil {
		return err
	}

	path := s.ArtifactPath(record)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		// The record is already gone; the leftover file is unreachable.
		s.logger.Warn().Err(err).Str("backup_id", id).Msg("failed to remove artifact file")
	}

	s.logger.Info().Str("backup_id", id).Msg("backup deleted")
	return nil
}

// CleanupOldBackups deletes every record created strictly before
// now - retentionDays and returns how many were removed. Individual
// deletion failures are logged and skipped so one bad record does not
// block the sweep; the operation is idempotent.
func (s *Service) CleanupOldBackups(retentionDays int) (int, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("retention days must be at least 1, got %d", retentionDays)
	}

	records, err := s.catalog.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, record := range records {
		if !record.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.DeleteBackup(record.ID); err != nil {
			s.logger.Warn().Err(err).Str("backup_id", record.ID).Msg("retention cleanup skipped record")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("retention cleanup complete")
	}
	return deleted, nil
}

// ArtifactPath returns the absolute path of the record's artifact file.
func (s *Service) ArtifactPath(record *Artifact) string {
	return filepath.Join(s.catalog.Dir(), record.Filename)
}

// resolveTables computes the effective table list: the allow-list if
// given, otherwise all base tables, minus the deny-list. An empty result
// is an error since an artifact must cover at least one table.
func (s *Service) resolveTables(ctx context.Context, include, exclude []string) ([]string, error) {
	tables := include
	if len(tables) == 0 {
		all, err := s.store.ListTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate tables: %w", err)
		}
		tables = all
	}

	tables = subtractTables(tables, exclude)
	if len(tables) == 0 {
		return nil, errors.New("no tables selected for backup")
	}
	return tables, nil
}

// removeArtifactFile is best-effort cleanup of a partial or orphaned
// artifact.
func (s *Service) removeArtifactFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove partial artifact")
	}
}

// subtractTables returns tables minus the deny-list, preserving order.
func subtractTables(tables, exclude []string) []string {
	if len(exclude) == 0 {
		return tables
	}
	denied := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		denied[t] = true
	}
	var kept []string
	for _, t := range tables {
		if !denied[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

// newArtifactID builds a time-based id with a random suffix to avoid
// collisions between backups taken in the same second.
func newArtifactID(t time.Time) string {
	return fmt.Sprintf("backup_%s_%s", t.UTC().Format("20060102150405"), uuid.New().String()[:8])
}

// checksumFile computes the hex-encoded SHA-256 of the file's content.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkDumpMarkers confirms the file starts and ends with pg_dump's
// sentinel comments. Only the head and tail of the file are read.
func checkDumpMarkers(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	if !scanForMarker(io.LimitReader(f, 4096), dumpStartMarker) {
		return errors.New("missing dump start marker")
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if !scanForMarker(f, dumpEndMarker) {
		return errors.New("missing dump end marker")
	}
	return nil
}

func scanForMarker(r io.Reader, marker string) bool {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if scanner.Text() == marker {
			return true
		}
	}
	return false
}
