/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog provides the read-only view over the track dataset used
// as matching input by the sequencing engine.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// ErrUnavailable indicates the catalog could not be read. Callers must
// treat the whole run as failed rather than assign from a partial set.
var ErrUnavailable = errors.New("track catalog unavailable")

// ErrAccessDenied indicates the access policy rejected the read.
var ErrAccessDenied = errors.New("catalog access denied")

// AccessPolicy decides whether a caller may read the catalog for a
// channel. It replaces the row-level policies of the hosted platform with
// an explicit check injected into the read path.
type AccessPolicy func(ctx context.Context, channelID string) error

// AllowAll is the policy used when no authorization layer is configured.
func AllowAll(context.Context, string) error { return nil }

// Accessor performs bulk snapshot reads of the track catalog.
type Accessor struct {
	db      *gorm.DB
	policy  AccessPolicy
	maxSize int
	logger  zerolog.Logger
}

// NewAccessor creates a catalog accessor. maxSize caps the snapshot to
// guard against pathological catalogs; 0 disables the cap.
func NewAccessor(db *gorm.DB, policy AccessPolicy, maxSize int, logger zerolog.Logger) *Accessor {
	if policy == nil {
		policy = AllowAll
	}
	return &Accessor{
		db:      db,
		policy:  policy,
		maxSize: maxSize,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// Snapshot fetches all non-soft-deleted tracks flagged for the given
// energy tier in one query. The result is a frozen candidate set for the
// duration of an assignment run; the engine never re-queries per slot.
func (a *Accessor) Snapshot(ctx context.Context, channelID string, tier models.EnergyTier) ([]models.Track, error) {
	if err := a.policy(ctx, channelID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown energy tier %q", ErrUnavailable, tier)
	}

	query := a.db.WithContext(ctx)
	switch tier {
	case models.TierLow:
		query = query.Where("energy_low = ?", true)
	case models.TierMedium:
		query = query.Where("energy_medium = ?", true)
	case models.TierHigh:
		query = query.Where("energy_high = ?", true)
	}
	if a.maxSize > 0 {
		query = query.Limit(a.maxSize)
	}

	var tracks []models.Track
	if err := query.Order("id ASC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	a.logger.Debug().
		Str("channel_id", channelID).
		Str("tier", string(tier)).
		Int("tracks", len(tracks)).
		Msg("catalog snapshot fetched")

	return tracks, nil
}

// LegacyMembers returns the direct-assignment track ids for a channel and
// tier. Used instead of rule filtering for strategies with no rule groups.
func (a *Accessor) LegacyMembers(ctx context.Context, channelID string, tier models.EnergyTier) ([]int64, error) {
	var rows []models.PlaylistMembership
	err := a.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Where("energy_tier = ?", tier).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TrackID)
	}
	return ids, nil
}
