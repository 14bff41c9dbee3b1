// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* main.go - Server Entry Point
 *
 * Wires configuration, logging, the database pool, the backup subsystem,
 * and the HTTP server, then runs until SIGINT/SIGTERM with a graceful
 * drain.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tzustu63/ogacrm-sub001/internal/api"
	"github.com/tzustu63/ogacrm-sub001/internal/auth"
	"github.com/tzustu63/ogacrm-sub001/internal/backup"
	"github.com/tzustu63/ogacrm-sub001/internal/config"
	"github.com/tzustu63/ogacrm-sub001/internal/database"
	"github.com/tzustu63/ogacrm-sub001/internal/logging"
	"github.com/tzustu63/ogacrm-sub001/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})
	logger := logging.Logger()
	logger.Info().Msg("starting ogacrm backup server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.New(ctx, &cfg.Database)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close() //nolint:errcheck // Process is exiting

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	catalog, err := backup.NewCatalog(cfg.Backup.Dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Backup.Dir).Msg("failed to open backup catalog")
	}

	dumpRunner := backup.NewPgDumpRunner(cfg.Backup.PgDumpPath, &cfg.Database)
	restoreRunner := backup.NewPsqlRunner(cfg.Backup.PsqlPath, &cfg.Database)

	service := backup.NewService(catalog, dumpRunner, db, m, nil, logger)
	recovery := backup.NewRecovery(service, restoreRunner, db, m, nil, logger)
	scheduler := backup.NewScheduler(service, backup.ScheduleConfig{
		Enabled:       cfg.Backup.ScheduleEnabled,
		Interval:      cfg.Backup.Interval,
		RetentionDays: cfg.Backup.RetentionDays,
		Options:       backup.Options{IncludeData: cfg.Backup.IncludeData},
	}, logger)

	if cfg.Backup.Enabled {
		scheduler.Start()
	}
	defer scheduler.Stop()

	server := api.NewServer(cfg, api.Deps{
		Backups:   service,
		Recovery:  recovery,
		Scheduler: scheduler,
		Auth:      auth.NewManager(&cfg.Auth),
		DB:        db,
		Metrics:   m,
		Registry:  registry,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
	logger.Info().Msg("server stopped")
}
