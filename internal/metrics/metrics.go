// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics defines the Prometheus collectors exported by the
// server: backup/restore outcomes and HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for operation outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics bundles the server's collectors. A nil *Metrics is valid and
// records nothing, so components can run unmetered in tests.
type Metrics struct {
	BackupsTotal    *prometheus.CounterVec
	BackupDuration  prometheus.Histogram
	BackupSizeBytes prometheus.Gauge
	LastBackupTime  prometheus.Gauge
	RestoresTotal   *prometheus.CounterVec
	RestoreDuration prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors with reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BackupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ogacrm_backups_total",
			Help: "Backup operations by outcome.",
		}, []string{"status"}),
		BackupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ogacrm_backup_duration_seconds",
			Help:    "Time spent creating a backup.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		BackupSizeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ogacrm_backup_size_bytes",
			Help: "Size of the most recently created backup artifact.",
		}),
		LastBackupTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ogacrm_last_backup_timestamp_seconds",
			Help: "Unix time of the last successful backup.",
		}),
		RestoresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ogacrm_restores_total",
			Help: "Restore operations by outcome.",
		}, []string{"status"}),
		RestoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ogacrm_restore_duration_seconds",
			Help:    "Time spent restoring from a backup.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ogacrm_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ogacrm_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordBackup records one backup attempt.
func (m *Metrics) RecordBackup(success bool, duration time.Duration, sizeBytes int64) {
	if m == nil {
		return
	}
	if success {
		m.BackupsTotal.WithLabelValues(StatusSuccess).Inc()
		m.BackupSizeBytes.Set(float64(sizeBytes))
		m.LastBackupTime.SetToCurrentTime()
	} else {
		m.BackupsTotal.WithLabelValues(StatusFailure).Inc()
	}
	m.BackupDuration.Observe(duration.Seconds())
}

// RecordRestore records one restore attempt.
func (m *Metrics) RecordRestore(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusFailure
	if success {
		status = StatusSuccess
	}
	m.RestoresTotal.WithLabelValues(status).Inc()
	m.RestoreDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
