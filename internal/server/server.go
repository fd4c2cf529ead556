/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/api"
	"github.com/friendsincode/bragi_sequencer/internal/audit"
	"github.com/friendsincode/bragi_sequencer/internal/cache"
	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/config"
	"github.com/friendsincode/bragi_sequencer/internal/db"
	"github.com/friendsincode/bragi_sequencer/internal/eventbus"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/logbuffer"
	"github.com/friendsincode/bragi_sequencer/internal/sequences"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
	"github.com/friendsincode/bragi_sequencer/internal/storage"
	"github.com/friendsincode/bragi_sequencer/internal/strategies"
	"github.com/friendsincode/bragi_sequencer/internal/telemetry"
	"github.com/friendsincode/bragi_sequencer/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db        *gorm.DB
	cache     *cache.Cache
	logBuffer *logbuffer.Buffer
	bus       events.Broker
	api       *api.API
	catalog   *catalog.Accessor
	assignSvc *sequencing.Service
	auditSvc  *audit.Service
	tracer    *telemetry.TracerProvider
	updates   *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("bragi-sequencer-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	tracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "bragi-sequencer",
		ServiceVersion: version.Version,
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
		Enabled:        s.cfg.TracingEnabled,
		SampleRate:     s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("tracing initialization failed, continuing without tracing")
	} else {
		s.tracer = tracer
		s.DeferClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.tracer.Shutdown(ctx)
		})
	}

	s.bus = s.buildBus()

	// Redis cache for reducing database load
	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	entityCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = entityCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	s.catalog = catalog.NewAccessor(database, catalog.AllowAll, s.cfg.MaxSnapshotSize, s.logger)

	scorer := sequencing.NewScorer(s.cfg.ExactBoostThreshold)
	engine := sequencing.New(scorer, s.logger)
	s.assignSvc = sequencing.NewService(database, s.catalog, engine, s.bus, s.logger)

	strategySvc := strategies.NewService(database, s.bus, s.logger)

	archive, err := s.buildArchive()
	if err != nil {
		return err
	}
	sequenceSvc := sequences.NewService(database, archive, s.bus, s.logger)

	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), strategySvc, s.assignSvc, sequenceSvc, s.catalog, s.auditSvc, s.bus, s.logBuffer, s.logger)

	s.updates = version.NewChecker(s.logger)

	return nil
}

// buildBus selects the event transport: NATS when configured, then Redis,
// otherwise the in-process bus.
func (s *Server) buildBus() events.Broker {
	nodeID := s.cfg.InstanceID
	if nodeID == "" {
		host, _ := os.Hostname()
		nodeID = host
	}

	if s.cfg.NATSAddr != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSAddr
		bus, err := eventbus.NewNATSBus(natsCfg, nodeID, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("NATS bus initialization failed, using in-memory bus")
			return events.NewBus()
		}
		s.DeferClose(bus.Close)
		return bus
	}

	if s.cfg.RedisAddr != "" {
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		bus, err := eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Redis bus initialization failed, using in-memory bus")
			return events.NewBus()
		}
		s.DeferClose(bus.Close)
		return bus
	}

	return events.NewBus()
}

// buildArchive constructs the saved-sequence archive store, or nil when
// archiving is disabled.
func (s *Server) buildArchive() (storage.ObjectStore, error) {
	switch s.cfg.ArchiveBackend {
	case "s3":
		store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Endpoint:  s.cfg.S3Endpoint,
			Region:    s.cfg.S3Region,
			Bucket:    s.cfg.S3Bucket,
			AccessKey: s.cfg.S3AccessKeyID,
			SecretKey: s.cfg.S3SecretAccessKey,
			PathStyle: s.cfg.S3UsePathStyle,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize s3 archive: %w", err)
		}
		s.logger.Info().Str("bucket", s.cfg.S3Bucket).Msg("sequence archive using S3")
		return store, nil
	case "fs":
		store, err := storage.NewFSStore(s.cfg.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("initialize filesystem archive: %w", err)
		}
		s.logger.Info().Str("dir", s.cfg.ArchiveDir).Msg("sequence archive using filesystem")
		return store, nil
	default:
		return nil, nil
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metricsServer.Shutdown(ctx)
		cancel()
	}
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// Audit trail consumer
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	// Database connection pool metrics
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	// Release update checker
	if s.updates != nil {
		s.updates.Start(ctx)
	}

	// Cache invalidation listener
	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}

	// Standalone metrics listener, useful when the API port sits behind
	// an authenticating proxy.
	if s.cfg.MetricsBind != "" {
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           telemetry.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Str("bind", s.cfg.MetricsBind).Msg("metrics listener exited")
			}
		}()
	}
}

// runCacheInvalidationListener subscribes to cache events and invalidates
// cached entities accordingly.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	channelCreated := s.bus.Subscribe(events.EventChannelCreated)
	channelUpdated := s.bus.Subscribe(events.EventChannelUpdated)
	channelDeleted := s.bus.Subscribe(events.EventChannelDeleted)
	strategyCached := s.bus.Subscribe(events.EventStrategyCached)
	strategyRemoved := s.bus.Subscribe(events.EventStrategyRemoved)
	sequenceSaved := s.bus.Subscribe(events.EventSequenceSaved)
	sequenceDeleted := s.bus.Subscribe(events.EventSequenceDeleted)

	defer func() {
		s.bus.Unsubscribe(events.EventChannelCreated, channelCreated)
		s.bus.Unsubscribe(events.EventChannelUpdated, channelUpdated)
		s.bus.Unsubscribe(events.EventChannelDeleted, channelDeleted)
		s.bus.Unsubscribe(events.EventStrategyCached, strategyCached)
		s.bus.Unsubscribe(events.EventStrategyRemoved, strategyRemoved)
		s.bus.Unsubscribe(events.EventSequenceSaved, sequenceSaved)
		s.bus.Unsubscribe(events.EventSequenceDeleted, sequenceDeleted)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidateChannel := func(payload events.Payload) {
		s.cache.InvalidateChannelList(ctx)
		if channelID, ok := payload["channel_id"].(string); ok {
			s.cache.InvalidateChannel(ctx, channelID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case payload := <-channelCreated:
			invalidateChannel(payload)

		case payload := <-channelUpdated:
			invalidateChannel(payload)

		case payload := <-channelDeleted:
			invalidateChannel(payload)

		case payload := <-strategyCached:
			if strategyID, ok := payload["strategy_id"].(string); ok {
				s.cache.InvalidateStrategy(ctx, strategyID)
			}

		case payload := <-strategyRemoved:
			if strategyID, ok := payload["strategy_id"].(string); ok {
				s.cache.InvalidateStrategy(ctx, strategyID)
			}

		case payload := <-sequenceSaved:
			if sequenceID, ok := payload["sequence_id"].(string); ok {
				s.cache.InvalidateSequence(ctx, sequenceID)
			}

		case payload := <-sequenceDeleted:
			if sequenceID, ok := payload["sequence_id"].(string); ok {
				s.cache.InvalidateSequence(ctx, sequenceID)
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info := s.updates.Info()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version":          info.CurrentVersion,
			"latest":           info.LatestVersion,
			"update_available": info.UpdateAvailable,
		})
	})

	s.api.Routes(s.router)
}
