// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tzustu63/ogacrm-sub001/internal/config"
)

func testDBConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "ogacrm",
		Password: "secret",
		Name:     "ogacrm",
	}
}

func TestPgDumpRunnerMissingBinary(t *testing.T) {
	runner := NewPgDumpRunner("/nonexistent/pg_dump", testDBConfig())

	err := runner.Dump(context.Background(), DumpRequest{
		OutputPath: filepath.Join(t.TempDir(), "out.sql"),
		Tables:     []string{"schools"},
	})
	if !errors.Is(err, ErrDumpFailed) {
		t.Errorf("Dump() error = %v, want ErrDumpFailed", err)
	}
}

func TestPsqlRunnerMissingBinary(t *testing.T) {
	runner := NewPsqlRunner("/nonexistent/psql", testDBConfig())

	err := runner.Restore(context.Background(), RestoreRequest{
		InputPath: filepath.Join(t.TempDir(), "in.sql"),
	})
	if !errors.Is(err, ErrRestoreFailed) {
		t.Errorf("Restore() error = %v, want ErrRestoreFailed", err)
	}
}

func TestSubprocessErrorFormat(t *testing.T) {
	err := &SubprocessError{
		Op:     "pg_dump",
		Stderr: "pg_dump: error: connection refused",
		Err:    errors.New("exit status 1"),
	}

	msg := err.Error()
	for _, want := range []string{"pg_dump", "exit status 1", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	bare := &SubprocessError{Op: "psql", Err: errors.New("exit status 2")}
	if strings.HasSuffix(bare.Error(), ": ") {
		t.Errorf("Error() = %q has trailing separator with empty stderr", bare.Error())
	}
}
