/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencing

import (
	"math"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// DefaultExactThreshold is the near-equality cutoff for exact-mode boosts
// when the config does not override it.
const DefaultExactThreshold = 0.95

// Scorer ranks candidate tracks by weighted closeness to a slot's target
// profile.
type Scorer struct {
	exactThreshold float64
}

// NewScorer creates a scorer. threshold outside (0,1] falls back to
// DefaultExactThreshold.
func NewScorer(threshold float64) Scorer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultExactThreshold
	}
	return Scorer{exactThreshold: threshold}
}

// ScoreTrack computes the aggregate slot score for one track: the sum of
// per-field weighted closeness over the slot's targets. A track missing a
// targeted field contributes zero for that field.
func (s Scorer) ScoreTrack(slot SlotSpec, boosts map[string]BoostSpec, t models.Track) float64 {
	var score float64
	for field, target := range slot.Targets {
		value, ok := catalog.Number(t, field)
		if !ok {
			continue
		}
		span, ok := catalog.Range(field)
		if !ok || span <= 0 {
			continue
		}

		closeness := 1 - math.Abs(value-target)/span
		if closeness < 0 {
			closeness = 0
		} else if closeness > 1 {
			closeness = 1
		}

		weight := 1.0
		if boost, has := boosts[field]; has {
			if boost.Mode == BoostExact && closeness < s.exactThreshold {
				continue
			}
			if boost.Weight >= MinBoostWeight && boost.Weight <= MaxBoostWeight {
				weight = float64(boost.Weight)
			}
		}

		score += closeness * weight
	}
	return score
}
