/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/telemetry"
)

var (
	// ErrStrategyNotFound indicates the strategy id resolves to nothing.
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrInvalidDocument indicates a stored document that fails to decode.
	ErrInvalidDocument = errors.New("invalid strategy document")
	// ErrRunNotFound indicates the run id resolves to nothing.
	ErrRunNotFound = errors.New("assignment run not found")
)

// Service runs assignments end to end: load strategy, snapshot the
// catalog, run the engine, persist the run record.
type Service struct {
	db      *gorm.DB
	catalog *catalog.Accessor
	engine  *Engine
	bus     events.Broker
	logger  zerolog.Logger
}

// NewService creates the assignment service.
func NewService(db *gorm.DB, accessor *catalog.Accessor, engine *Engine, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		catalog: accessor,
		engine:  engine,
		bus:     bus,
		logger:  logger.With().Str("component", "sequencing_service").Logger(),
	}
}

// Assign materializes the sequence for one strategy and records the run.
// Catalog unavailability is a hard failure; slot starvation is not.
func (s *Service) Assign(ctx context.Context, strategyID string) (*models.AssignmentRun, AssignResult, error) {
	start := time.Now()

	var strategy models.SlotStrategy
	if err := s.db.WithContext(ctx).First(&strategy, "id = ?", strategyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, AssignResult{}, ErrStrategyNotFound
		}
		return nil, AssignResult{}, fmt.Errorf("load strategy: %w", err)
	}

	doc, err := ParseDocument(strategy.Document)
	if err != nil {
		return nil, AssignResult{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	snapshot, err := s.catalog.Snapshot(ctx, strategy.ChannelID, strategy.EnergyTier)
	if err != nil {
		telemetry.AssignmentRunsTotal.WithLabelValues("catalog_error").Inc()
		return nil, AssignResult{}, err
	}
	telemetry.CatalogSnapshotSize.Observe(float64(len(snapshot)))

	req := AssignRequest{Doc: doc, Candidates: snapshot}
	if len(doc.Groups) == 0 {
		members, err := s.catalog.LegacyMembers(ctx, strategy.ChannelID, strategy.EnergyTier)
		if err != nil {
			telemetry.AssignmentRunsTotal.WithLabelValues("catalog_error").Inc()
			return nil, AssignResult{}, err
		}
		req.LegacyMembers = members
	}

	result := s.engine.AssignSequence(ctx, req)

	run := &models.AssignmentRun{
		ID:         uuid.NewString(),
		StrategyID: strategy.ID,
		ChannelID:  strategy.ChannelID,
		EnergyTier: strategy.EnergyTier,
		Candidates: len(snapshot),
		Assigned:   len(result.Assignments),
		Starved:    len(result.Unassigned),
	}
	run.Result = encodeResult(result)
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, AssignResult{}, fmt.Errorf("persist run: %w", err)
	}

	outcome := "complete"
	if len(result.Unassigned) > 0 {
		outcome = "starved"
	}
	telemetry.AssignmentRunsTotal.WithLabelValues(outcome).Inc()
	telemetry.AssignmentStarvedSlots.Add(float64(len(result.Unassigned)))
	telemetry.AssignmentDuration.Observe(time.Since(start).Seconds())

	s.bus.Publish(events.EventStrategyAssigned, events.Payload{
		"strategy_id": strategy.ID,
		"channel_id":  strategy.ChannelID,
		"tier":        string(strategy.EnergyTier),
		"run_id":      run.ID,
		"assigned":    len(result.Assignments),
		"starved":     len(result.Unassigned),
	})

	s.logger.Info().
		Str("strategy_id", strategy.ID).
		Str("run_id", run.ID).
		Int("candidates", len(snapshot)).
		Int("assigned", len(result.Assignments)).
		Int("starved", len(result.Unassigned)).
		Dur("elapsed", time.Since(start)).
		Msg("assignment run complete")

	return run, result, nil
}

// Runs lists recent assignment runs, newest first. An empty strategy id
// lists runs across all strategies.
func (s *Service) Runs(ctx context.Context, strategyID string, limit int) ([]models.AssignmentRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if strategyID != "" {
		query = query.Where("strategy_id = ?", strategyID)
	}
	var runs []models.AssignmentRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Run returns one assignment run.
func (s *Service) Run(ctx context.Context, runID string) (*models.AssignmentRun, error) {
	var run models.AssignmentRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run: %w", err)
	}
	return &run, nil
}

func encodeResult(result AssignResult) map[string]any {
	assignments := make([]any, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		assignments = append(assignments, map[string]any{
			"slot":     a.Slot,
			"track_id": a.TrackID,
			"score":    a.Score,
		})
	}
	unassigned := make([]any, 0, len(result.Unassigned))
	for _, slot := range result.Unassigned {
		unassigned = append(unassigned, slot)
	}
	return map[string]any{
		"assignments": assignments,
		"unassigned":  unassigned,
	}
}
