// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

/* server.go - HTTP Server and Routing
 *
 * The REST surface over the backup subsystem. All backup and restore
 * endpoints are administrator-only behind the JWT middleware; health,
 * readiness, metrics, and login are open. Handlers depend on narrow
 * interfaces so tests can swap in function-field mocks.
 */

// Package api exposes the backup and recovery operations over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tzustu63/ogacrm-sub001/internal/auth"
	"github.com/tzustu63/ogacrm-sub001/internal/backup"
	"github.com/tzustu63/ogacrm-sub001/internal/config"
	"github.com/tzustu63/ogacrm-sub001/internal/metrics"
	"github.com/tzustu63/ogacrm-sub001/internal/middleware"
)

// BackupManager is the slice of the backup service the handlers use.
type BackupManager interface {
	CreateBackup(ctx context.Context, opts backup.Options) (*backup.Artifact, error)
	VerifyBackup(record *backup.Artifact) bool
	ListBackups() ([]backup.Artifact, error)
	GetBackup(id string) (*backup.Artifact, error)
	DeleteBackup(id string) error
	CleanupOldBackups(retentionDays int) (int, error)
}

// RecoveryManager is the slice of the recovery service the handlers use.
type RecoveryManager interface {
	RestoreFromBackup(ctx context.Context, id string, opts backup.RestoreOptions) (*backup.RestoreResult, error)
	RestoreSelectiveTables(ctx context.Context, id string, tables []string, opts backup.RestoreOptions) (*backup.RestoreResult, error)
	GetRestorableBackups() ([]backup.Artifact, error)
	PreviewRestore(ctx context.Context, id string) (*backup.Preview, error)
	TestRestore(id string) (*backup.TestResult, error)
}

// ScheduleManager controls the backup scheduler.
type ScheduleManager interface {
	Start()
	Stop()
	UpdateConfig(update backup.ScheduleUpdate) error
	Status() backup.SchedulerStatus
}

// Pinger reports database liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the server needs.
type Deps struct {
	Backups   BackupManager
	Recovery  RecoveryManager
	Scheduler ScheduleManager
	Auth      *auth.Manager
	DB        Pinger
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Logger    zerolog.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	httpServer *http.Server
	backups    BackupManager
	recovery   RecoveryManager
	scheduler  ScheduleManager
	auth       *auth.Manager
	db         Pinger
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewServer builds the router and wires all routes.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		backups:   deps.Backups,
		recovery:  deps.Recovery,
		scheduler: deps.Scheduler,
		auth:      deps.Auth,
		db:        deps.DB,
		validate:  validator.New(),
		logger:    deps.Logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))
	r.Use(middleware.RequestLogger(s.logger))
	if deps.Metrics != nil {
		r.Use(middleware.Prometheus(deps.Metrics))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin(cfg.Auth.Mode))

			r.Route("/backups", func(r chi.Router) {
				r.Post("/", s.handleCreateBackup)
				r.Get("/", s.handleListBackups)
				r.Post("/cleanup", s.handleCleanup)

				r.Route("/schedule", func(r chi.Router) {
					r.Get("/", s.handleScheduleStatus)
					r.Put("/", s.handleScheduleUpdate)
					r.Post("/start", s.handleScheduleStart)
					r.Post("/stop", s.handleScheduleStop)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetBackup)
					r.Delete("/", s.handleDeleteBackup)
					r.Get("/verify", s.handleVerifyBackup)
				})
			})

			r.Route("/restore", func(r chi.Router) {
				r.Get("/available", s.handleRestorableBackups)

				r.Route("/{id}", func(r chi.Router) {
					r.Post("/", s.handleRestore)
					r.Post("/tables", s.handleRestoreSelective)
					r.Get("/preview", s.handlePreviewRestore)
					r.Post("/test", s.handleTestRestore)
				})
			})
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
