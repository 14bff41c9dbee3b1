// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tzustu63/ogacrm-sub001/internal/logging"
)

func testScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Enabled:       true,
		Interval:      time.Hour,
		RetentionDays: 7,
		Options:       DefaultOptions(),
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestScheduler(t *testing.T, cfg ScheduleConfig) (*testEnv, *Scheduler) {
	t.Helper()
	env := newTestEnv(t)
	sched := NewScheduler(env.service, cfg, logging.NewTestLogger(io.Discard))
	t.Cleanup(sched.Stop)
	return env, sched
}

func TestSchedulerStartFiresImmediateCycle(t *testing.T) {
	env, sched := newTestScheduler(t, testScheduleConfig())

	sched.Start()

	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 1
	}, "scheduler did not fire an immediate backup cycle")

	status := sched.Status()
	if !status.Running {
		t.Error("Status().Running = false after Start()")
	}
	if status.NextRun == nil {
		t.Error("Status().NextRun = nil while running")
	}
}

func TestSchedulerStartWhenDisabled(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.Enabled = false
	env, sched := newTestScheduler(t, cfg)

	sched.Start()

	if sched.Status().Running {
		t.Error("Status().Running = true for disabled scheduler")
	}
	time.Sleep(50 * time.Millisecond)
	if env.dump.callCount() != 0 {
		t.Error("disabled scheduler took a backup")
	}
}

func TestSchedulerStartTwiceIsNoop(t *testing.T) {
	env, sched := newTestScheduler(t, testScheduleConfig())

	sched.Start()
	sched.Start()

	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 1
	}, "scheduler did not fire an immediate backup cycle")

	// A second Start must not have armed a second timer loop; with an
	// hour-long interval only the immediate cycle can have fired.
	time.Sleep(100 * time.Millisecond)
	if got := env.dump.callCount(); got != 1 {
		t.Errorf("dump called %d times after double Start(), want 1", got)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	_, sched := newTestScheduler(t, testScheduleConfig())

	sched.Stop() // stopping a stopped scheduler is a no-op

	sched.Start()
	sched.Stop()
	sched.Stop()

	if sched.Status().Running {
		t.Error("Status().Running = true after Stop()")
	}
}

func TestSchedulerCycleFailureKeepsRunning(t *testing.T) {
	env, sched := newTestScheduler(t, testScheduleConfig())
	env.dump.dumpFunc = func(ctx context.Context, req DumpRequest) error {
		return errors.New("disk full")
	}

	sched.Start()

	waitFor(t, 2*time.Second, func() bool {
		return sched.Status().LastError != ""
	}, "cycle failure not recorded in status")

	if !sched.Status().Running {
		t.Error("scheduler stopped after a failed cycle, want still running")
	}
}

func TestSchedulerTicksRepeatedly(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.Interval = 30 * time.Millisecond
	env, sched := newTestScheduler(t, cfg)

	sched.Start()

	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 3
	}, "scheduler did not keep ticking")
}

func TestSchedulerUpdateConfigValidation(t *testing.T) {
	_, sched := newTestScheduler(t, testScheduleConfig())

	badInterval := 10 * time.Second
	if err := sched.UpdateConfig(ScheduleUpdate{Interval: &badInterval}); err == nil {
		t.Error("UpdateConfig() accepted sub-minute interval")
	}

	badRetention := 0
	if err := sched.UpdateConfig(ScheduleUpdate{RetentionDays: &badRetention}); err == nil {
		t.Error("UpdateConfig() accepted zero retention")
	}
}

func TestSchedulerUpdateConfigMergesPartial(t *testing.T) {
	_, sched := newTestScheduler(t, testScheduleConfig())

	newRetention := 14
	if err := sched.UpdateConfig(ScheduleUpdate{RetentionDays: &newRetention}); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	cfg := sched.Status().Config
	if cfg.RetentionDays != 14 {
		t.Errorf("RetentionDays = %d, want 14", cfg.RetentionDays)
	}
	if cfg.Interval != time.Hour {
		t.Errorf("Interval = %s, want unchanged 1h", cfg.Interval)
	}
	if !cfg.Enabled {
		t.Error("Enabled flipped by partial update")
	}
}

func TestSchedulerUpdateConfigRestartsWhenRunning(t *testing.T) {
	env, sched := newTestScheduler(t, testScheduleConfig())

	sched.Start()
	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 1
	}, "scheduler did not fire an immediate backup cycle")

	newInterval := 2 * time.Minute
	if err := sched.UpdateConfig(ScheduleUpdate{Interval: &newInterval}); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	status := sched.Status()
	if !status.Running {
		t.Error("scheduler not running after config update, want restarted")
	}
	if status.Config.Interval != newInterval {
		t.Errorf("Interval = %s, want %s", status.Config.Interval, newInterval)
	}

	// The restart fires a fresh immediate cycle.
	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 2
	}, "restarted scheduler did not fire an immediate cycle")
}

func TestSchedulerUpdateDisableStopsOnRestart(t *testing.T) {
	env, sched := newTestScheduler(t, testScheduleConfig())

	sched.Start()
	waitFor(t, 2*time.Second, func() bool {
		return env.dump.callCount() >= 1
	}, "scheduler did not fire an immediate backup cycle")

	disabled := false
	if err := sched.UpdateConfig(ScheduleUpdate{Enabled: &disabled}); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	if sched.Status().Running {
		t.Error("scheduler still running after being disabled via update")
	}
}

func TestSchedulerStatusWhenStopped(t *testing.T) {
	cfg := testScheduleConfig()
	_, sched := newTestScheduler(t, cfg)

	status := sched.Status()
	if status.Running {
		t.Error("Status().Running = true for never-started scheduler")
	}
	if status.NextRun != nil {
		t.Error("Status().NextRun set for stopped scheduler")
	}
	if status.Config.Interval != cfg.Interval {
		t.Errorf("Config.Interval = %s, want %s", status.Config.Interval, cfg.Interval)
	}
}
