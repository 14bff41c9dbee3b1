// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"errors"
	"fmt"
)

// Sentinel errors for the backup and recovery subsystem. Callers match with
// errors.Is; the REST layer maps them onto HTTP status codes.
var (
	// ErrArtifactNotFound indicates the requested backup id has no catalog
	// record.
	ErrArtifactNotFound = errors.New("backup artifact not found")

	// ErrDumpFailed indicates the dump subprocess exited non-zero.
	ErrDumpFailed = errors.New("database dump failed")

	// ErrRestoreFailed indicates the restore subprocess exited non-zero.
	ErrRestoreFailed = errors.New("database restore failed")

	// ErrIntegrityCheckFailed indicates an artifact failed its size,
	// checksum, or format check and must not be used for restore.
	ErrIntegrityCheckFailed = errors.New("backup integrity check failed")

	// ErrRestoreIncomplete indicates the post-restore table set is missing
	// tables the restore was supposed to produce.
	ErrRestoreIncomplete = errors.New("restore incomplete")

	// ErrCatalogUnavailable indicates the catalog file could not be read
	// or written.
	ErrCatalogUnavailable = errors.New("backup catalog unavailable")
)

// SubprocessError wraps a dump or restore failure together with the
// diagnostic text captured from the tool's stderr.
type SubprocessError struct {
	Op     string // "pg_dump" or "psql"
	Stderr string
	Err    error
}

func (e *SubprocessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}
