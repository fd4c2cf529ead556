/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rules implements the filter-rule interpreter used to decide
// which catalog tracks a slot strategy may draw from.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// Operator is the closed set of rule comparison kinds. Anything outside
// this set evaluates false; a broken rule excludes tracks rather than
// admitting everything.
type Operator string

const (
	OpEquals    Operator = "eq"
	OpNotEquals Operator = "neq"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpGTE       Operator = "gte"
	OpLTE       Operator = "lte"
	OpBetween   Operator = "between"
	OpExists    Operator = "exists"
)

// Valid reports whether the operator is one of the known kinds.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpGTE, OpLTE, OpBetween, OpExists:
		return true
	}
	return false
}

// Rule is one filter condition against a track field.
type Rule struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

// GroupLogic selects how a group combines its child rules.
type GroupLogic string

const (
	LogicAnd GroupLogic = "and"
	LogicOr  GroupLogic = "or"
)

// Group is an ordered filter group. Groups combine with implicit AND
// across a strategy.
type Group struct {
	Logic GroupLogic `json:"logic"`
	Rules []Rule     `json:"rules"`
}

// Evaluate applies one operator to a comparison value and a field value.
// It never errors: NULL fields, cast failures, malformed comparison
// values, and unknown operators all evaluate false.
func Evaluate(op Operator, comparison any, fv catalog.FieldValue) bool {
	if op == OpExists {
		return fv.Present && strings.TrimSpace(fv.Text) != ""
	}
	if !fv.Present {
		// Absence satisfies nothing, negative comparisons included.
		return false
	}

	switch op {
	case OpEquals:
		return fv.Text == toString(comparison)
	case OpNotEquals:
		return fv.Text != toString(comparison)
	case OpIn:
		set, ok := toStringSlice(comparison)
		return ok && contains(set, fv.Text)
	case OpNotIn:
		set, ok := toStringSlice(comparison)
		return ok && !contains(set, fv.Text)
	case OpGTE:
		val, limit, ok := numericPair(fv, comparison)
		return ok && val >= limit
	case OpLTE:
		val, limit, ok := numericPair(fv, comparison)
		return ok && val <= limit
	case OpBetween:
		val, ok := fieldNumber(fv)
		if !ok {
			return false
		}
		lo, hi, ok := toRange(comparison)
		return ok && val >= lo && val <= hi
	}
	return false
}

// MatchGroup evaluates one group against a track. AND mode is true iff no
// rule evaluated false; OR mode is true iff at least one rule evaluated
// true. A group with zero rules is vacuously true.
func MatchGroup(g Group, t models.Track) bool {
	if len(g.Rules) == 0 {
		return true
	}

	if g.Logic == LogicOr {
		for _, rule := range g.Rules {
			if Evaluate(rule.Op, rule.Value, catalog.Lookup(t, rule.Field)) {
				return true
			}
		}
		return false
	}

	for _, rule := range g.Rules {
		if !Evaluate(rule.Op, rule.Value, catalog.Lookup(t, rule.Field)) {
			return false
		}
	}
	return true
}

// Match combines all groups with logical AND, short-circuiting on the
// first failing group. A strategy with zero groups matches no tracks:
// assignment requires explicit rules or legacy playlist membership, never
// a default.
func Match(groups []Group, t models.Track) bool {
	if len(groups) == 0 {
		return false
	}
	for _, group := range groups {
		if !MatchGroup(group, t) {
			return false
		}
	}
	return true
}

func fieldNumber(fv catalog.FieldValue) (float64, bool) {
	if fv.Numeric {
		return fv.Number, true
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(fv.Text), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func numericPair(fv catalog.FieldValue, comparison any) (val, limit float64, ok bool) {
	val, ok = fieldNumber(fv)
	if !ok {
		return 0, 0, false
	}
	limit, ok = toFloat(comparison)
	if !ok {
		return 0, 0, false
	}
	return val, limit, true
}

func toRange(value any) (lo, hi float64, ok bool) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []float64:
		for _, f := range v {
			items = append(items, f)
		}
	}
	if len(items) != 2 {
		return 0, 0, false
	}
	lo, okLo := toFloat(items[0])
	hi, okHi := toFloat(items[1])
	if !okLo || !okHi || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}
