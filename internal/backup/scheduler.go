// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* scheduler.go - Backup Scheduler
 *
 * A two-state (stopped/running) machine that fires backup cycles on a
 * fixed interval. Each cycle is CreateBackup with the configured options
 * followed by retention cleanup; cycle failures are logged and swallowed
 * so one bad backup never kills the schedule. Configuration is mutable at
 * runtime; changing it while running stops and restarts the timer so the
 * new interval takes effect immediately.
 *
 * Cycles run in their own goroutines, so a dump that outlasts the
 * interval overlaps with the next tick. Each overlapping cycle produces
 * its own independent artifact.
 */

package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler performs unattended backups plus retention cleanup on a fixed
// interval.
type Scheduler struct {
	service *Service
	logger  zerolog.Logger

	mu      sync.Mutex
	cfg     ScheduleConfig
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lastRun   *time.Time
	lastError string
	nextRun   *time.Time
}

// NewScheduler returns a stopped scheduler with the given defaults.
func NewScheduler(service *Service, cfg ScheduleConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		cfg:     cfg,
		logger:  logger.With().Str("component", "backup_scheduler").Logger(),
	}
}

// Start arms the repeating timer and fires one cycle immediately. Starting
// a running scheduler, or one whose configuration disables scheduling, is
// a logged no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug().Msg("scheduler already running")
		return
	}
	if !s.cfg.Enabled {
		s.logger.Info().Msg("scheduled backups disabled by configuration")
		return
	}

	s.stopCh = make(chan struct{})
	s.running = true
	next := time.Now().Add(s.cfg.Interval)
	s.nextRun = &next

	s.wg.Add(1)
	go s.run(s.stopCh, s.cfg.Interval)

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("backup scheduler started")
}

// Stop disarms the timer and waits for the timer goroutine to exit.
// Stopping a stopped scheduler is a no-op. In-flight backup cycles are
// not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.nextRun = nil
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("backup scheduler stopped")
}

// UpdateConfig validates and merges a partial configuration change. If the
// scheduler was running it is stopped and restarted so the new settings
// take effect immediately; a stopped scheduler stays stopped.
func (s *Scheduler) UpdateConfig(update ScheduleUpdate) error {
	if err := validateUpdate(update); err != nil {
		return err
	}

	s.mu.Lock()
	wasRunning := s.running
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	s.mu.Lock()
	if update.Enabled != nil {
		s.cfg.Enabled = *update.Enabled
	}
	if update.Interval != nil {
		s.cfg.Interval = *update.Interval
	}
	if update.RetentionDays != nil {
		s.cfg.RetentionDays = *update.RetentionDays
	}
	if update.Options != nil {
		s.cfg.Options = *update.Options
	}
	s.mu.Unlock()

	if wasRunning {
		s.Start()
	}
	return nil
}

// Status reports whether the timer is armed and the effective
// configuration.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running:   s.running,
		Config:    s.cfg,
		LastError: s.lastError,
	}
	if s.lastRun != nil {
		t := *s.lastRun
		status.LastRun = &t
	}
	if s.nextRun != nil {
		t := *s.nextRun
		status.NextRun = &t
	}
	return status
}

// run owns the timer. It fires one cycle immediately, then one per tick
// until stopCh closes.
func (s *Scheduler) run(stopCh chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	go s.runCycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			next := time.Now().Add(interval)
			s.nextRun = &next
			s.mu.Unlock()

			go s.runCycle()
		}
	}
}

// runCycle performs one backup plus retention cleanup. Failures are
// recorded in the status and logged, never propagated.
func (s *Scheduler) runCycle() {
	s.mu.Lock()
	opts := s.cfg.Options
	retention := s.cfg.RetentionDays
	s.mu.Unlock()

	now := time.Now().UTC()
	ctx := context.Background()

	var cycleErr error
	artifact, err := s.service.CreateBackup(ctx, opts)
	if err != nil {
		cycleErr = fmt.Errorf("scheduled backup failed: %w", err)
		s.logger.Error().Err(err).Msg("scheduled backup failed")
	} else {
		s.logger.Info().Str("backup_id", artifact.ID).Msg("scheduled backup complete")
	}

	if deleted, err := s.service.CleanupOldBackups(retention); err != nil {
		if cycleErr == nil {
			cycleErr = fmt.Errorf("retention cleanup failed: %w", err)
		}
		s.logger.Error().Err(err).Msg("retention cleanup failed")
	} else if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("retention cleanup removed expired backups")
	}

	s.mu.Lock()
	s.lastRun = &now
	if cycleErr != nil {
		s.lastError = cycleErr.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
}

func validateUpdate(update ScheduleUpdate) error {
	if update.Interval != nil && *update.Interval < time.Minute {
		return fmt.Errorf("schedule interval must be at least one minute, got %s", *update.Interval)
	}
	if update.RetentionDays != nil && *update.RetentionDays < 1 {
		return fmt.Errorf("retention days must be at least 1, got %d", *update.RetentionDays)
	}
	return nil
}
