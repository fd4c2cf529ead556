/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequencing implements the slot assignment engine: rule-filtered,
// score-ranked track selection for the numbered slots of a channel/tier
// strategy.
package sequencing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/rules"
)

// Engine assigns tracks to slots for one strategy at a time.
type Engine struct {
	scorer Scorer
	logger zerolog.Logger
}

// New creates a slot assignment engine.
func New(scorer Scorer, logger zerolog.Logger) *Engine {
	return &Engine{
		scorer: scorer,
		logger: logger.With().Str("component", "sequencing").Logger(),
	}
}

// AssignRequest carries everything one assignment run needs: the strategy
// document, a frozen catalog snapshot, and the legacy membership ids used
// when the strategy predates rule groups.
type AssignRequest struct {
	Doc           Document
	Candidates    []models.Track
	LegacyMembers []int64
}

// SlotAssignment is one committed (slot, track) pair.
type SlotAssignment struct {
	Slot    int     `json:"slot"`
	TrackID int64   `json:"track_id"`
	Score   float64 `json:"score"`
}

// AssignResult is the ordered sequence plus any starved slot indices.
// Starvation is degraded-but-usable, never an error.
type AssignResult struct {
	Assignments []SlotAssignment `json:"assignments"`
	Unassigned  []int            `json:"unassigned"`
}

// AssignSequence fills slots 1..SlotCount in index order. Candidates are
// filtered once up front (rule groups, or legacy membership for rule-less
// strategies); each slot then excludes tracks used within the repeat
// window, scores the remainder, and commits the best. Ties break toward
// the lowest track id so runs are reproducible.
func (e *Engine) AssignSequence(ctx context.Context, req AssignRequest) AssignResult {
	eligible := e.eligibleCandidates(req)

	slotCount := req.Doc.SlotCount
	window := req.Doc.RepeatWindow
	if window < 0 {
		window = 0
	}

	result := AssignResult{}
	// recent[i] holds the track committed at slot index i+1, 0 if starved.
	recent := make([]int64, 0, slotCount)

	for index := 1; index <= slotCount; index++ {
		if err := ctx.Err(); err != nil {
			e.logger.Warn().Int("slot", index).Msg("assignment cancelled mid-run")
			for rest := index; rest <= slotCount; rest++ {
				result.Unassigned = append(result.Unassigned, rest)
			}
			break
		}

		excluded := recentWindow(recent, window)
		best, ok := e.selectTrack(req.Doc, index, eligible, excluded)
		if !ok {
			result.Unassigned = append(result.Unassigned, index)
			recent = append(recent, 0)
			continue
		}

		result.Assignments = append(result.Assignments, best)
		recent = append(recent, best.TrackID)
	}

	e.logger.Debug().
		Int("slots", slotCount).
		Int("assigned", len(result.Assignments)).
		Int("starved", len(result.Unassigned)).
		Msg("sequence assigned")

	return result
}

// eligibleCandidates applies the strategy-level filter once for the whole
// run. Zero rule groups means legacy membership is the sole candidate
// source; with no membership either, nothing is eligible.
func (e *Engine) eligibleCandidates(req AssignRequest) []models.Track {
	if len(req.Doc.Groups) == 0 {
		if len(req.LegacyMembers) == 0 {
			return nil
		}
		members := make(map[int64]struct{}, len(req.LegacyMembers))
		for _, id := range req.LegacyMembers {
			members[id] = struct{}{}
		}
		eligible := make([]models.Track, 0, len(req.LegacyMembers))
		for _, track := range req.Candidates {
			if _, ok := members[track.ID]; ok {
				eligible = append(eligible, track)
			}
		}
		return eligible
	}

	eligible := make([]models.Track, 0, len(req.Candidates))
	for _, track := range req.Candidates {
		if rules.Match(req.Doc.Groups, track) {
			eligible = append(eligible, track)
		}
	}
	return eligible
}

// selectTrack scores every non-excluded candidate for one slot and picks
// the winner. Slots without a spec score every candidate zero, so the
// tie-break alone decides; that keeps sparse documents usable.
func (e *Engine) selectTrack(doc Document, index int, candidates []models.Track, excluded map[int64]struct{}) (SlotAssignment, bool) {
	slot, _ := doc.SlotByIndex(index)
	boosts := doc.BoostsFor(index)

	var (
		found bool
		best  SlotAssignment
	)
	for _, track := range candidates {
		if _, skip := excluded[track.ID]; skip {
			continue
		}
		score := e.scorer.ScoreTrack(slot, boosts, track)
		if !found || score > best.Score || (score == best.Score && track.ID < best.TrackID) {
			best = SlotAssignment{Slot: index, TrackID: track.ID, Score: score}
			found = true
		}
	}
	return best, found
}

// recentWindow collects the track ids committed in the last `window` slot
// positions. Starved positions occupy the window but exclude nothing.
func recentWindow(recent []int64, window int) map[int64]struct{} {
	if window == 0 {
		return nil
	}
	excluded := make(map[int64]struct{}, window)
	start := len(recent) - window
	if start < 0 {
		start = 0
	}
	for _, id := range recent[start:] {
		if id != 0 {
			excluded[id] = struct{}{}
		}
	}
	return excluded
}
