// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* runner.go - Dump/Restore Subprocess Runners
 *
 * Narrow interfaces around the external pg_dump and psql tools. The
 * orchestration layers depend only on DumpRunner and RestoreRunner, so
 * tests swap in mocks and a future tool change stays localized here.
 * Credentials travel through the subprocess environment (PGPASSWORD),
 * never through argv.
 */

package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/tzustu63/ogacrm-sub001/internal/config"
)

// DumpRequest describes one dump invocation.
type DumpRequest struct {
	// OutputPath is the file the tool writes the dump to.
	OutputPath string

	// Tables is the allow-list passed to the tool. Must be non-empty.
	Tables []string

	// SchemaOnly omits row data from the dump.
	SchemaOnly bool
}

// RestoreRequest describes one restore invocation.
type RestoreRequest struct {
	// InputPath is the dump file to replay.
	InputPath string
}

// DumpRunner produces a dump file from the live database.
type DumpRunner interface {
	Dump(ctx context.Context, req DumpRequest) error
}

// RestoreRunner replays a dump file against the live database.
type RestoreRunner interface {
	Restore(ctx context.Context, req RestoreRequest) error
}

// pgDumpRunner shells out to pg_dump.
type pgDumpRunner struct {
	binPath string
	db      *config.DatabaseConfig
}

// NewPgDumpRunner returns a DumpRunner backed by the pg_dump binary at
// binPath.
func NewPgDumpRunner(binPath string, db *config.DatabaseConfig) DumpRunner {
	return &pgDumpRunner{binPath: binPath, db: db}
}

func (r *pgDumpRunner) Dump(ctx context.Context, req DumpRequest) error {
	args := []string{
		"-h", r.db.Host,
		"-p", strconv.Itoa(r.db.Port),
		"-U", r.db.User,
		"-d", r.db.Name,
		"--format=plain",
		"--no-owner",
		"--no-privileges",
		"--file", req.OutputPath,
	}
	if req.SchemaOnly {
		args = append(args, "--schema-only")
	}
	for _, table := range req.Tables {
		args = append(args, "-t", table)
	}

	if err := runTool(ctx, r.binPath, args, r.db.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrDumpFailed, err)
	}
	return nil
}

// psqlRunner shells out to psql.
type psqlRunner struct {
	binPath string
	db      *config.DatabaseConfig
}

// NewPsqlRunner returns a RestoreRunner backed by the psql binary at
// binPath.
func NewPsqlRunner(binPath string, db *config.DatabaseConfig) RestoreRunner {
	return &psqlRunner{binPath: binPath, db: db}
}

func (r *psqlRunner) Restore(ctx context.Context, req RestoreRequest) error {
	args := []string{
		"-h", r.db.Host,
		"-p", strconv.Itoa(r.db.Port),
		"-U", r.db.User,
		"-d", r.db.Name,
		"-v", "ON_ERROR_STOP=1",
		"-f", req.InputPath,
	}

	if err := runTool(ctx, r.binPath, args, r.db.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return nil
}

// runTool executes the binary with the password injected via PGPASSWORD,
// capturing stderr for diagnostics. The context cancels or times out the
// subprocess.
func runTool(ctx context.Context, binPath string, args []string, password string) error {
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+password)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &SubprocessError{
			Op:     binPath,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}
