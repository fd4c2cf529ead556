/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package strategies manages slot strategy configuration: one strategy
// per channel and energy tier, validated at write time.
package strategies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
)

var (
	// ErrStrategyNotFound indicates the strategy was not found.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrChannelNotFound indicates the channel was not found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrDuplicateStrategy indicates the channel/tier pair already has a
	// strategy.
	ErrDuplicateStrategy = errors.New("strategy already exists for channel and tier")

	// ErrInvalidTier rejects unknown energy tiers.
	ErrInvalidTier = errors.New("invalid energy tier")
)

// Service manages slot strategies.
type Service struct {
	db     *gorm.DB
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a strategy service.
func NewService(db *gorm.DB, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "strategies").Logger(),
	}
}

// Create validates and stores a new strategy for a channel/tier pair.
func (s *Service) Create(ctx context.Context, channelID string, tier models.EnergyTier, doc sequencing.Document) (*models.SlotStrategy, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var channel models.Channel
	if err := s.db.WithContext(ctx).First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SlotStrategy{}).
		Where("channel_id = ? AND energy_tier = ?", channelID, tier).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check strategy uniqueness: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateStrategy
	}

	raw, err := sequencing.EncodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	strategy := &models.SlotStrategy{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		EnergyTier:   tier,
		SlotCount:    doc.SlotCount,
		RepeatWindow: doc.RepeatWindow,
		Document:     raw,
	}
	if err := s.db.WithContext(ctx).Create(strategy).Error; err != nil {
		return nil, fmt.Errorf("create strategy: %w", err)
	}

	s.bus.Publish(events.EventStrategyCreated, events.Payload{
		"strategy_id": strategy.ID,
		"channel_id":  channelID,
		"tier":        string(tier),
	})
	s.logger.Info().Str("strategy_id", strategy.ID).Str("channel_id", channelID).Str("tier", string(tier)).Msg("strategy created")
	return strategy, nil
}

// Update validates and replaces a strategy's document. Editing breaks
// the link to any saved sequence the strategy was loaded from.
func (s *Service) Update(ctx context.Context, strategyID string, doc sequencing.Document) (*models.SlotStrategy, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var strategy models.SlotStrategy
	if err := s.db.WithContext(ctx).First(&strategy, "id = ?", strategyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	raw, err := sequencing.EncodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	strategy.Document = raw
	strategy.SlotCount = doc.SlotCount
	strategy.RepeatWindow = doc.RepeatWindow
	strategy.SourceSequenceID = nil
	strategy.SourceSequenceName = ""

	if err := s.db.WithContext(ctx).Save(&strategy).Error; err != nil {
		return nil, fmt.Errorf("update strategy: %w", err)
	}

	s.bus.Publish(events.EventStrategyUpdated, events.Payload{
		"strategy_id": strategy.ID,
		"channel_id":  strategy.ChannelID,
		"tier":        string(strategy.EnergyTier),
	})
	s.logger.Info().Str("strategy_id", strategy.ID).Msg("strategy updated")
	return &strategy, nil
}

// Get returns one strategy by id.
func (s *Service) Get(ctx context.Context, strategyID string) (*models.SlotStrategy, error) {
	var strategy models.SlotStrategy
	if err := s.db.WithContext(ctx).First(&strategy, "id = ?", strategyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	return &strategy, nil
}

// GetByChannelTier returns the strategy bound to a channel/tier pair.
func (s *Service) GetByChannelTier(ctx context.Context, channelID string, tier models.EnergyTier) (*models.SlotStrategy, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	var strategy models.SlotStrategy
	err := s.db.WithContext(ctx).
		First(&strategy, "channel_id = ? AND energy_tier = ?", channelID, tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	return &strategy, nil
}

// List returns strategies, optionally filtered by channel.
func (s *Service) List(ctx context.Context, channelID string) ([]models.SlotStrategy, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if channelID != "" {
		query = query.Where("channel_id = ?", channelID)
	}
	var list []models.SlotStrategy
	if err := query.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	return list, nil
}

// Delete removes a strategy.
func (s *Service) Delete(ctx context.Context, strategyID string) error {
	result := s.db.WithContext(ctx).Delete(&models.SlotStrategy{}, "id = ?", strategyID)
	if result.Error != nil {
		return fmt.Errorf("delete strategy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStrategyNotFound
	}
	s.bus.Publish(events.EventStrategyRemoved, events.Payload{"strategy_id": strategyID})
	s.logger.Info().Str("strategy_id", strategyID).Msg("strategy deleted")
	return nil
}
