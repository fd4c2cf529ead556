/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package strategies

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/rules"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
)

// ErrInvalidStrategy wraps all write-time validation failures.
var ErrInvalidStrategy = errors.New("invalid strategy")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStrategy, fmt.Sprintf(format, args...))
}

// ValidateDocument enforces structural bounds on a strategy document
// before it is stored. The engine assumes documents that reach it have
// passed here, so rejection happens at write time, not run time.
func ValidateDocument(doc sequencing.Document) error {
	if doc.SlotCount < 1 || doc.SlotCount > sequencing.MaxSlots {
		return invalid("slot_count %d out of range 1..%d", doc.SlotCount, sequencing.MaxSlots)
	}
	if doc.RepeatWindow < 0 || doc.RepeatWindow >= doc.SlotCount {
		return invalid("repeat_window %d out of range 0..%d", doc.RepeatWindow, doc.SlotCount-1)
	}

	seen := make(map[int]struct{}, len(doc.Slots))
	for _, slot := range doc.Slots {
		if slot.Index < 1 || slot.Index > doc.SlotCount {
			return invalid("slot index %d out of range 1..%d", slot.Index, doc.SlotCount)
		}
		if _, dup := seen[slot.Index]; dup {
			return invalid("duplicate slot index %d", slot.Index)
		}
		seen[slot.Index] = struct{}{}

		for field := range slot.Targets {
			if !catalog.IsContinuous(field) {
				return invalid("slot %d targets non-continuous field %q", slot.Index, field)
			}
		}
	}

	boostKeys := make(map[string]struct{}, len(doc.Boosts))
	for _, boost := range doc.Boosts {
		if boost.Slot < 1 || boost.Slot > doc.SlotCount {
			return invalid("boost slot %d out of range 1..%d", boost.Slot, doc.SlotCount)
		}
		if !catalog.IsContinuous(boost.Field) {
			return invalid("boost on non-continuous field %q", boost.Field)
		}
		if boost.Mode != sequencing.BoostNear && boost.Mode != sequencing.BoostExact {
			return invalid("unknown boost mode %q", boost.Mode)
		}
		if boost.Weight < sequencing.MinBoostWeight || boost.Weight > sequencing.MaxBoostWeight {
			return invalid("boost weight %d out of range %d..%d", boost.Weight, sequencing.MinBoostWeight, sequencing.MaxBoostWeight)
		}
		key := fmt.Sprintf("%d/%s", boost.Slot, boost.Field)
		if _, dup := boostKeys[key]; dup {
			return invalid("duplicate boost for slot %d field %q", boost.Slot, boost.Field)
		}
		boostKeys[key] = struct{}{}
	}

	for gi, group := range doc.Groups {
		if group.Logic != rules.LogicAnd && group.Logic != rules.LogicOr {
			return invalid("group %d has unknown logic %q", gi, group.Logic)
		}
		for ri, rule := range group.Rules {
			if err := validateRule(rule); err != nil {
				return invalid("group %d rule %d: %v", gi, ri, err)
			}
		}
	}

	return nil
}

func validateRule(rule rules.Rule) error {
	if rule.Field == "" {
		return errors.New("missing field")
	}
	if !rule.Op.Valid() {
		return fmt.Errorf("unknown operator %q", rule.Op)
	}

	switch rule.Op {
	case rules.OpIn, rules.OpNotIn:
		values, ok := rule.Value.([]any)
		if !ok || len(values) == 0 {
			return fmt.Errorf("%s requires a non-empty list", rule.Op)
		}
	case rules.OpBetween:
		bounds, ok := rule.Value.([]any)
		if !ok || len(bounds) != 2 {
			return errors.New("between requires exactly two bounds")
		}
		lo, loOK := toFloat(bounds[0])
		hi, hiOK := toFloat(bounds[1])
		if !loOK || !hiOK {
			return errors.New("between bounds must be numeric")
		}
		if lo > hi {
			return fmt.Errorf("between bounds inverted: %v > %v", lo, hi)
		}
	case rules.OpGTE, rules.OpLTE:
		if _, ok := toFloat(rule.Value); !ok {
			return fmt.Errorf("%s requires a numeric comparison value", rule.Op)
		}
	case rules.OpExists:
		// no comparison value needed
	default:
		if rule.Value == nil {
			return fmt.Errorf("%s requires a comparison value", rule.Op)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
