/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: channel and track catalog
// management, slot strategies, assignment runs, and saved sequences.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/audit"
	"github.com/friendsincode/bragi_sequencer/internal/auth"
	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/logbuffer"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/sequences"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
	"github.com/friendsincode/bragi_sequencer/internal/strategies"
)

// API exposes HTTP handlers.
type API struct {
	db          *gorm.DB
	jwtSecret   []byte
	strategySvc *strategies.Service
	assignSvc   *sequencing.Service
	sequenceSvc *sequences.Service
	catalogSvc  *catalog.Accessor
	auditSvc    *audit.Service
	bus         events.Broker
	logBuf      *logbuffer.Buffer
	logger      zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, strategySvc *strategies.Service, assignSvc *sequencing.Service, sequenceSvc *sequences.Service, catalogSvc *catalog.Accessor, auditSvc *audit.Service, bus events.Broker, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	return &API{
		db:          db,
		jwtSecret:   jwtSecret,
		strategySvc: strategySvc,
		assignSvc:   assignSvc,
		sequenceSvc: sequenceSvc,
		catalogSvc:  catalogSvc,
		auditSvc:    auditSvc,
		bus:         bus,
		logBuf:      logBuf,
		logger:      logger,
	}
}

// Routes mounts all API routes onto the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		// Public endpoints (no auth required)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Route("/channels", func(r chi.Router) {
				r.Get("/", a.handleChannelsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleChannelsCreate)
				r.Route("/{channelID}", func(r chi.Router) {
					r.Get("/", a.handleChannelsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Patch("/", a.handleChannelsUpdate)
					r.Get("/snapshot", a.handleChannelSnapshot)
					r.Get("/memberships", a.handleMembershipsList)
				})
			})

			pr.Route("/tracks", func(r chi.Router) {
				r.Get("/", a.handleTracksList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Post("/", a.handleTracksCreate)
				r.Route("/{trackID}", func(r chi.Router) {
					r.Get("/", a.handleTracksGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Patch("/", a.handleTracksUpdate)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleTracksDelete)
				})
			})

			pr.Route("/strategies", func(r chi.Router) {
				r.Get("/", a.handleStrategiesList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Post("/", a.handleStrategiesCreate)
				r.Route("/{strategyID}", func(r chi.Router) {
					r.Get("/", a.handleStrategiesGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Put("/", a.handleStrategiesUpdate)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleStrategiesDelete)
					r.Post("/assign", a.handleStrategyAssign)
					r.Get("/runs", a.handleStrategyRuns)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Post("/sequences", a.handleSequenceSave)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleCurator)).Post("/sequences/{sequenceID}/load", a.handleSequenceLoad)
				})
			})

			pr.Route("/sequences", func(r chi.Router) {
				r.Get("/", a.handleSequencesList)
				r.Get("/{sequenceID}", a.handleSequencesGet)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/{sequenceID}", a.handleSequenceDelete)
			})

			pr.Route("/runs", func(r chi.Router) {
				r.Get("/", a.handleRunsList)
				r.Get("/{runID}", a.handleRunsGet)
			})

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{keyID}", a.handleAPIKeysRevoke)
			})

			pr.With(a.requireRoles(models.RoleAdmin)).Get("/audit", a.handleAuditList)

			pr.Route("/logs", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin))
				r.Get("/", a.handleLogsList)
				r.Get("/components", a.handleLogsComponents)
				r.Get("/stats", a.handleLogsStats)
			})
		})
	})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	return auth.RequireRole(allowed...)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
