/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencing

import (
	"encoding/json"

	"github.com/friendsincode/bragi_sequencer/internal/rules"
)

// Strategy configuration bounds enforced at write time.
const (
	MaxSlots       = 60
	MinBoostWeight = 1
	MaxBoostWeight = 5
)

// BoostMode selects how a boosted field scores.
type BoostMode string

const (
	// BoostNear rewards continuous closeness to the target.
	BoostNear BoostMode = "near"
	// BoostExact only counts closeness above the near-equality threshold.
	BoostExact BoostMode = "exact"
)

// SlotSpec is one numbered slot with its target profile. Index runs 1..N
// and defines playback order.
type SlotSpec struct {
	Index   int                `json:"index"`
	Targets map[string]float64 `json:"targets"`
}

// BoostSpec weights one continuous field's contribution to a slot score.
type BoostSpec struct {
	Slot   int       `json:"slot"`
	Field  string    `json:"field"`
	Mode   BoostMode `json:"mode"`
	Weight int       `json:"weight"`
}

// Document is the full strategy configuration shipped via JSON: the only
// input the assignment engine requires to run.
type Document struct {
	SlotCount    int           `json:"slot_count"`
	RepeatWindow int           `json:"repeat_window"`
	Slots        []SlotSpec    `json:"slots"`
	Boosts       []BoostSpec   `json:"boosts"`
	Groups       []rules.Group `json:"groups"`
}

// ParseDocument decodes a stored jsonb map into a typed Document.
func ParseDocument(raw map[string]any) (Document, error) {
	bytes, err := json.Marshal(raw)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// EncodeDocument converts a typed Document back into the stored jsonb
// shape. The marshal round trip also yields a deep copy, which save and
// load rely on for snapshot isolation.
func EncodeDocument(doc Document) (map[string]any, error) {
	bytes, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SlotByIndex returns the slot spec for an index, if defined.
func (d Document) SlotByIndex(index int) (SlotSpec, bool) {
	for _, slot := range d.Slots {
		if slot.Index == index {
			return slot, true
		}
	}
	return SlotSpec{}, false
}

// BoostsFor collects the boosts declared for one slot, keyed by field.
func (d Document) BoostsFor(index int) map[string]BoostSpec {
	boosts := make(map[string]BoostSpec)
	for _, boost := range d.Boosts {
		if boost.Slot == index {
			boosts[boost.Field] = boost
		}
	}
	return boosts
}
