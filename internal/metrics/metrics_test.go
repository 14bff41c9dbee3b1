// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBackupOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordBackup(true, 2*time.Second, 1024)
	m.RecordBackup(false, time.Second, 0)

	if got := testutil.ToFloat64(m.BackupsTotal.WithLabelValues(StatusSuccess)); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BackupsTotal.WithLabelValues(StatusFailure)); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BackupSizeBytes); got != 1024 {
		t.Errorf("size gauge = %v, want 1024", got)
	}
}

func TestRecordRestoreOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRestore(true, time.Second)
	m.RecordRestore(true, time.Second)
	m.RecordRestore(false, time.Second)

	if got := testutil.ToFloat64(m.RestoresTotal.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RestoresTotal.WithLabelValues(StatusFailure)); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// All recorders must be no-ops on a nil bundle.
	m.RecordBackup(true, time.Second, 10)
	m.RecordRestore(false, time.Second)
	m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)
}
