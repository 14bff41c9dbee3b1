// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tzustu63/ogacrm-sub001/internal/logging"
)

// mockDumpRunner writes a synthetic plain-format dump unless dumpFunc
// overrides it.
type mockDumpRunner struct {
	mu       sync.Mutex
	dumpFunc func(ctx context.Context, req DumpRequest) error
	calls    []DumpRequest
}

func (m *mockDumpRunner) Dump(ctx context.Context, req DumpRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.dumpFunc != nil {
		return m.dumpFunc(ctx, req)
	}
	return writeSyntheticDump(req.OutputPath, req.Tables, !req.SchemaOnly)
}

func (m *mockDumpRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockRestoreRunner records restore invocations.
type mockRestoreRunner struct {
	mu          sync.Mutex
	restoreFunc func(ctx context.Context, req RestoreRequest) error
	calls       []RestoreRequest
}

func (m *mockRestoreRunner) Restore(ctx context.Context, req RestoreRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.restoreFunc != nil {
		return m.restoreFunc(ctx, req)
	}
	return nil
}

// mockTableStore serves a fixed table list and records drops.
type mockTableStore struct {
	mu      sync.Mutex
	tables  []string
	listErr error
	dropErr error
	dropped [][]string
}

func (m *mockTableStore) ListTables(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]string, len(m.tables))
	copy(out, m.tables)
	return out, nil
}

func (m *mockTableStore) DropTables(ctx context.Context, tables []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropErr != nil {
		return m.dropErr
	}
	m.dropped = append(m.dropped, tables)
	return nil
}

type testEnv struct {
	t        *testing.T
	dir      string
	catalog  *Catalog
	dump     *mockDumpRunner
	restore  *mockRestoreRunner
	store    *mockTableStore
	service  *Service
	recovery *Recovery
}

// newTestEnv builds a backup service and recovery service over mocked
// runners and a temp-dir catalog.
func newTestEnv(t *testing.T, tables ...string) *testEnv {
	t.Helper()

	if len(tables) == 0 {
		tables = []string{"schools", "contacts"}
	}

	dir := t.TempDir()
	catalog, err := NewCatalog(dir)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	logger := logging.NewTestLogger(io.Discard)
	env := &testEnv{
		t:       t,
		dir:     dir,
		catalog: catalog,
		dump:    &mockDumpRunner{},
		restore: &mockRestoreRunner{},
		store:   &mockTableStore{tables: tables},
	}
	env.service = NewService(catalog, env.dump, env.store, nil, nil, logger)
	env.recovery = NewRecovery(env.service, env.restore, env.store, nil, nil, logger)
	return env
}

// createBackup takes a backup and fails the test on error.
func (e *testEnv) createBackup(opts Options) *Artifact {
	e.t.Helper()
	artifact, err := e.service.CreateBackup(context.Background(), opts)
	if err != nil {
		e.t.Fatalf("CreateBackup() error = %v", err)
	}
	return artifact
}

// seedArtifact writes a valid synthetic artifact with the given creation
// time directly into the catalog, bypassing the dump runner.
func (e *testEnv) seedArtifact(createdAt time.Time, tables ...string) Artifact {
	e.t.Helper()

	if len(tables) == 0 {
		tables = []string{"schools"}
	}

	id := newArtifactID(createdAt)
	filename := id + ".sql"
	path := e.dir + "/" + filename
	if err := writeSyntheticDump(path, tables, true); err != nil {
		e.t.Fatalf("writeSyntheticDump() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		e.t.Fatalf("Stat() error = %v", err)
	}
	checksum, err := checksumFile(path)
	if err != nil {
		e.t.Fatalf("checksumFile() error = %v", err)
	}

	record := Artifact{
		ID:         id,
		Filename:   filename,
		SizeBytes:  info.Size(),
		Checksum:   checksum,
		CreatedAt:  createdAt.UTC(),
		IsVerified: true,
		Tables:     tables,
	}
	if err := e.catalog.Add(record); err != nil {
		e.t.Fatalf("catalog.Add() error = %v", err)
	}
	return record
}

// writeSyntheticDump produces a file shaped like pg_dump plain output for
// the given tables.
func writeSyntheticDump(path string, tables []string, includeData bool) error {
	return os.WriteFile(path, []byte(syntheticDump(tables, includeData)), 0o600)
}

func syntheticDump(tables []string, includeData bool) string {
	var b strings.Builder
	b.WriteString("--\n-- PostgreSQL database dump\n--\n\n")
	b.WriteString("SET statement_timeout = 0;\nSET client_encoding = 'UTF8';\nSET standard_conforming_strings = on;\n\n")

	for _, table := range tables {
		fmt.Fprintf(&b, "--\n-- Name: %s; Type: TABLE; Schema: public; Owner: -\n--\n\n", table)
		fmt.Fprintf(&b, "CREATE TABLE public.%s (\n    id integer NOT NULL,\n    name text\n);\n\n", table)
		fmt.Fprintf(&b, "--\n-- Name: %s_id_seq; Type: SEQUENCE; Schema: public; Owner: -\n--\n\n", table)
		fmt.Fprintf(&b, "CREATE SEQUENCE public.%s_id_seq AS integer START WITH 1;\n\n", table)
		if includeData {
			fmt.Fprintf(&b, "--\n-- Data for Name: %s; Type: TABLE DATA; Schema: public; Owner: -\n--\n\n", table)
			fmt.Fprintf(&b, "COPY public.%s (id, name) FROM stdin;\n1\talpha\n2\tbeta\n\\.\n\n", table)
		}
		fmt.Fprintf(&b, "--\n-- Name: %s %s_pkey; Type: CONSTRAINT; Schema: public; Owner: -\n--\n\n", table, table)
		fmt.Fprintf(&b, "ALTER TABLE ONLY public.%s\n    ADD CONSTRAINT %s_pkey PRIMARY KEY (id);\n\n", table, table)
	}

	b.WriteString("--\n-- PostgreSQL database dump complete\n--\n")
	return b.String()
}
