/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequences manages named snapshots of strategy configuration
// documents: saving, loading them back onto strategies, and deleting
// them without breaking the strategies that reference them.
package sequences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
	"github.com/friendsincode/bragi_sequencer/internal/storage"
	"github.com/friendsincode/bragi_sequencer/internal/telemetry"
)

var (
	// ErrSequenceNotFound indicates the sequence id resolves to nothing.
	ErrSequenceNotFound = errors.New("saved sequence not found")
	// ErrStrategyNotFound indicates the strategy id resolves to nothing.
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrEmptyName rejects saves without a display name.
	ErrEmptyName = errors.New("sequence name must not be empty")
)

// Service provides saved-sequence operations. The object store is
// optional; when present every snapshot is archived alongside the
// database row.
type Service struct {
	db      *gorm.DB
	archive storage.ObjectStore
	bus     events.Broker
	logger  zerolog.Logger
}

// NewService creates the saved-sequence service. archive may be nil.
func NewService(db *gorm.DB, archive storage.ObjectStore, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		archive: archive,
		bus:     bus,
		logger:  logger.With().Str("component", "sequences").Logger(),
	}
}

// Save snapshots the strategy's current document under the given name.
// The snapshot is a deep copy; later edits to the strategy never leak
// into it. The strategy is marked as sourced from the new sequence.
func (s *Service) Save(ctx context.Context, strategyID, name string) (*models.SavedSequence, error) {
	if name == "" {
		telemetry.SequenceOperationsTotal.WithLabelValues("save", "error").Inc()
		return nil, ErrEmptyName
	}

	var strategy models.SlotStrategy
	if err := s.db.WithContext(ctx).First(&strategy, "id = ?", strategyID).Error; err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("save", "error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	doc, err := sequencing.ParseDocument(strategy.Document)
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("save", "error").Inc()
		return nil, fmt.Errorf("decode strategy document: %w", err)
	}
	snapshot, err := sequencing.EncodeDocument(doc)
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("save", "error").Inc()
		return nil, fmt.Errorf("snapshot document: %w", err)
	}

	seq := &models.SavedSequence{
		ID:         uuid.NewString(),
		Name:       name,
		Document:   snapshot,
		ChannelID:  strategy.ChannelID,
		EnergyTier: strategy.EnergyTier,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(seq).Error; err != nil {
			return fmt.Errorf("persist sequence: %w", err)
		}
		updates := map[string]any{
			"source_sequence_id":   seq.ID,
			"source_sequence_name": seq.Name,
		}
		if err := tx.Model(&models.SlotStrategy{}).Where("id = ?", strategy.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("mark strategy source: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("save", "error").Inc()
		return nil, err
	}

	s.archivePut(ctx, seq)

	telemetry.SequenceOperationsTotal.WithLabelValues("save", "ok").Inc()
	s.bus.Publish(events.EventSequenceSaved, events.Payload{
		"sequence_id": seq.ID,
		"strategy_id": strategy.ID,
		"name":        seq.Name,
	})
	s.logger.Info().Str("sequence_id", seq.ID).Str("strategy_id", strategy.ID).Str("name", name).Msg("sequence saved")
	return seq, nil
}

// Load applies a saved sequence onto a strategy, replacing its document,
// slot count, and repeat window with deep copies of the snapshot. The
// strategy records the sequence as its source.
func (s *Service) Load(ctx context.Context, strategyID, sequenceID string) (*models.SlotStrategy, error) {
	var seq models.SavedSequence
	if err := s.db.WithContext(ctx).First(&seq, "id = ?", sequenceID).Error; err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("load", "error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("load sequence: %w", err)
	}

	var strategy models.SlotStrategy
	if err := s.db.WithContext(ctx).First(&strategy, "id = ?", strategyID).Error; err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("load", "error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	doc, err := sequencing.ParseDocument(seq.Document)
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("decode sequence document: %w", err)
	}
	copied, err := sequencing.EncodeDocument(doc)
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("copy sequence document: %w", err)
	}

	strategy.Document = copied
	strategy.SlotCount = doc.SlotCount
	strategy.RepeatWindow = doc.RepeatWindow
	strategy.SourceSequenceID = &seq.ID
	strategy.SourceSequenceName = seq.Name

	if err := s.db.WithContext(ctx).Save(&strategy).Error; err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("apply sequence: %w", err)
	}

	telemetry.SequenceOperationsTotal.WithLabelValues("load", "ok").Inc()
	s.bus.Publish(events.EventSequenceLoaded, events.Payload{
		"sequence_id": seq.ID,
		"strategy_id": strategy.ID,
	})
	s.logger.Info().Str("sequence_id", seq.ID).Str("strategy_id", strategy.ID).Msg("sequence loaded")
	return &strategy, nil
}

// Delete removes a saved sequence. Strategies referencing it keep
// working and keep their denormalized source name; only the id reference
// is nulled.
func (s *Service) Delete(ctx context.Context, sequenceID string) error {
	var seq models.SavedSequence
	if err := s.db.WithContext(ctx).First(&seq, "id = ?", sequenceID).Error; err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("delete", "error").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSequenceNotFound
		}
		return fmt.Errorf("load sequence: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SlotStrategy{}).
			Where("source_sequence_id = ?", seq.ID).
			Update("source_sequence_id", nil).Error; err != nil {
			return fmt.Errorf("detach strategies: %w", err)
		}
		if err := tx.Delete(&models.SavedSequence{}, "id = ?", seq.ID).Error; err != nil {
			return fmt.Errorf("delete sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.SequenceOperationsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}

	if s.archive != nil {
		if err := s.archive.Delete(ctx, archiveKey(seq.ID)); err != nil {
			s.logger.Warn().Err(err).Str("sequence_id", seq.ID).Msg("archive delete failed")
		}
	}

	telemetry.SequenceOperationsTotal.WithLabelValues("delete", "ok").Inc()
	s.bus.Publish(events.EventSequenceDeleted, events.Payload{
		"sequence_id": seq.ID,
		"name":        seq.Name,
	})
	s.logger.Info().Str("sequence_id", seq.ID).Msg("sequence deleted")
	return nil
}

// Get returns one saved sequence.
func (s *Service) Get(ctx context.Context, sequenceID string) (*models.SavedSequence, error) {
	var seq models.SavedSequence
	if err := s.db.WithContext(ctx).First(&seq, "id = ?", sequenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("load sequence: %w", err)
	}
	return &seq, nil
}

// List returns saved sequences, optionally filtered by channel, newest
// first.
func (s *Service) List(ctx context.Context, channelID string) ([]models.SavedSequence, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if channelID != "" {
		query = query.Where("channel_id = ?", channelID)
	}
	var seqs []models.SavedSequence
	if err := query.Find(&seqs).Error; err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	return seqs, nil
}

// archivePut writes the snapshot to the object store. Archive failures
// never fail the save; the database row is the source of truth.
func (s *Service) archivePut(ctx context.Context, seq *models.SavedSequence) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(seq)
	if err != nil {
		s.logger.Warn().Err(err).Str("sequence_id", seq.ID).Msg("archive encode failed")
		return
	}
	if err := s.archive.Put(ctx, archiveKey(seq.ID), data); err != nil {
		s.logger.Warn().Err(err).Str("sequence_id", seq.ID).Msg("archive put failed")
	}
}

func archiveKey(sequenceID string) string {
	return "sequences/" + sequenceID + ".json"
}
