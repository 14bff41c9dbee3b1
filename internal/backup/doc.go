// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup implements the backup and recovery subsystem: verifiable
// PostgreSQL snapshots taken via pg_dump, a durable JSON catalog of
// artifacts, SHA-256 integrity checks, timer-driven scheduling with
// retention cleanup, and full or selective restore with preview, dry-run
// test, and backup-before-restore safety.
//
// The package is organized around a small set of collaborators:
//
//   - Catalog: the durable artifact record store (catalog.json beside the
//     artifact files, read then rewritten wholesale on every mutation).
//   - DumpRunner / RestoreRunner: narrow subprocess interfaces around
//     pg_dump and psql, mockable in tests.
//   - Service: orchestrates artifact creation, verification, listing,
//     deletion, and retention cleanup.
//   - Scheduler: a stopped/running state machine that fires backup cycles
//     on a fixed, runtime-mutable interval.
//   - Recovery: orchestrates restore with integrity validation, optional
//     pre-restore snapshot, optional table drops, and post-restore
//     verification.
//
// Single-process, single-writer usage is assumed for the catalog; the
// business schema is treated opaquely as named tables.
package backup
