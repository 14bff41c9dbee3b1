// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* dumpfilter.go - Selective Dump Filtering
 *
 * pg_dump's plain format cannot be selectively replayed by psql, so
 * selective restore rewrites the dump first: the session preamble is kept
 * verbatim, and object sections are kept only when they belong to an
 * allowed table. Sections are delimited by pg_dump's comment headers
 * ("-- Name: X; Type: T; ..." and "-- Data for Name: X; ..."), which
 * attribute every object to a name.
 */

package backup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Sentinel markers emitted by pg_dump at the start and end of a plain dump.
// Their presence is the lightweight "is this a well-formed dump" check.
const (
	dumpStartMarker = "-- PostgreSQL database dump"
	dumpEndMarker   = "-- PostgreSQL database dump complete"
)

const (
	sectionHeaderPrefix = "-- Name: "
	dataHeaderPrefix    = "-- Data for Name: "
)

// FilterDump copies the dump from r to w, keeping the session preamble,
// the start/end markers, and only the sections attributed to tables in
// the allow-list. Sequence sections named <table>_id_seq follow their
// table.
func FilterDump(r io.Reader, w io.Writer, tables []string) error {
	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[t] = true
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	inSection := false
	keepCurrent := true

	for scanner.Scan() {
		line := scanner.Text()

		if name, ok := sectionName(line); ok {
			inSection = true
			keepCurrent = sectionAllowed(name, allowed)
		} else if strings.TrimSpace(line) == dumpEndMarker {
			// The trailing marker closes whatever section was open.
			inSection = false
			keepCurrent = true
		}

		if !inSection || keepCurrent {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return fmt.Errorf("failed to write filtered dump: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	return nil
}

// sectionName extracts the object name from a pg_dump section header line.
// The second return value is false for non-header lines.
func sectionName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)

	var rest string
	switch {
	case strings.HasPrefix(trimmed, dataHeaderPrefix):
		rest = trimmed[len(dataHeaderPrefix):]
	case strings.HasPrefix(trimmed, sectionHeaderPrefix):
		rest = trimmed[len(sectionHeaderPrefix):]
	default:
		return "", false
	}

	if idx := strings.Index(rest, ";"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest), true
}

// sectionAllowed decides whether a section belongs to an allowed table.
// Constraint and trigger headers name the table first ("schools
// schools_pkey"), and serial sequences are named <table>_id_seq.
func sectionAllowed(name string, allowed map[string]bool) bool {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return false
	}
	owner := fields[0]
	if allowed[owner] {
		return true
	}
	if seq, ok := strings.CutSuffix(owner, "_id_seq"); ok && allowed[seq] {
		return true
	}
	return false
}
