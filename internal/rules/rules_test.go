package rules

import (
	"testing"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func sampleTrack() models.Track {
	return models.Track{
		ID:         1,
		Title:      "Aurora",
		Artist:     "Skald",
		Genre:      "ambient",
		MusicalKey: "Am",
		Tempo:      floatPtr(120),
		Intensity:  floatPtr(0.4),
	}
}

func TestEvaluateOperators(t *testing.T) {
	track := sampleTrack()

	tests := []struct {
		name  string
		field string
		op    Operator
		value any
		want  bool
	}{
		{"eq match", "genre", OpEquals, "ambient", true},
		{"eq mismatch", "genre", OpEquals, "metal", false},
		{"neq mismatch is true", "genre", OpNotEquals, "metal", true},
		{"neq match is false", "genre", OpNotEquals, "ambient", false},
		{"in member", "artist", OpIn, []any{"Skald", "Vali"}, true},
		{"in non-member", "artist", OpIn, []any{"Vali"}, false},
		{"not_in non-member", "artist", OpNotIn, []any{"Vali"}, true},
		{"not_in member", "artist", OpNotIn, []any{"Skald"}, false},
		{"gte satisfied", "tempo", OpGTE, 100.0, true},
		{"gte boundary", "tempo", OpGTE, 120.0, true},
		{"gte failed", "tempo", OpGTE, 121.0, false},
		{"lte satisfied", "tempo", OpLTE, 130.0, true},
		{"lte failed", "tempo", OpLTE, 100.0, false},
		{"between inside", "tempo", OpBetween, []any{100.0, 130.0}, true},
		{"between boundary", "tempo", OpBetween, []any{120.0, 130.0}, true},
		{"between outside", "tempo", OpBetween, []any{130.0, 140.0}, false},
		{"between inverted bounds", "tempo", OpBetween, []any{140.0, 100.0}, false},
		{"between wrong arity", "tempo", OpBetween, []any{100.0}, false},
		{"exists set field", "key", OpExists, nil, true},
		{"numeric equality via text", "tempo", OpEquals, 120, true},
		{"unknown operator", "genre", Operator("like"), "amb%", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.op, tt.value, catalog.Lookup(track, tt.field))
			if got != tt.want {
				t.Fatalf("Evaluate(%s %s %v) = %v, want %v", tt.field, tt.op, tt.value, got, tt.want)
			}
		})
	}
}

func TestEvaluateFailsClosedOnNull(t *testing.T) {
	track := models.Track{ID: 2, Genre: ""}

	// Tempo is nil and genre empty: every comparison over them is false,
	// including the negative ones.
	cases := []struct {
		field string
		op    Operator
		value any
	}{
		{"tempo", OpGTE, 0.0},
		{"tempo", OpLTE, 999.0},
		{"tempo", OpBetween, []any{0.0, 999.0}},
		{"genre", OpEquals, ""},
		{"genre", OpNotEquals, "metal"},
		{"genre", OpNotIn, []any{"metal"}},
		{"tempo", OpExists, nil},
		{"genre", OpExists, nil},
	}
	for _, c := range cases {
		if Evaluate(c.op, c.value, catalog.Lookup(track, c.field)) {
			t.Errorf("Evaluate(%s %s %v) on absent field = true, want false", c.field, c.op, c.value)
		}
	}
}

func TestEvaluateUnknownFieldFailsClosed(t *testing.T) {
	track := sampleTrack()
	if Evaluate(OpExists, nil, catalog.Lookup(track, "mood")) {
		t.Fatal("unknown field should not satisfy exists")
	}
	if Evaluate(OpNotEquals, "anything", catalog.Lookup(track, "mood")) {
		t.Fatal("unknown field should not satisfy neq")
	}
}

func TestMatchGroupLogic(t *testing.T) {
	track := sampleTrack()

	andGroup := Group{Logic: LogicAnd, Rules: []Rule{
		{Field: "genre", Op: OpEquals, Value: "ambient"},
		{Field: "tempo", Op: OpGTE, Value: 100.0},
	}}
	if !MatchGroup(andGroup, track) {
		t.Fatal("expected AND group to match")
	}

	andGroup.Rules[1].Value = 200.0
	if MatchGroup(andGroup, track) {
		t.Fatal("expected AND group to fail when one rule fails")
	}

	orGroup := Group{Logic: LogicOr, Rules: []Rule{
		{Field: "genre", Op: OpEquals, Value: "metal"},
		{Field: "tempo", Op: OpGTE, Value: 100.0},
	}}
	if !MatchGroup(orGroup, track) {
		t.Fatal("expected OR group to match on second rule")
	}

	orGroup.Rules[1].Value = 200.0
	if MatchGroup(orGroup, track) {
		t.Fatal("expected OR group to fail when no rule passes")
	}
}

func TestMatchGroupEmptyIsVacuouslyTrue(t *testing.T) {
	if !MatchGroup(Group{Logic: LogicAnd}, sampleTrack()) {
		t.Fatal("empty group should match")
	}
}

func TestMatchZeroGroupsMatchesNothing(t *testing.T) {
	if Match(nil, sampleTrack()) {
		t.Fatal("zero groups must not match any track")
	}
}

func TestMatchCombinesGroupsWithAnd(t *testing.T) {
	track := sampleTrack()

	groups := []Group{
		{Logic: LogicAnd, Rules: []Rule{{Field: "genre", Op: OpEquals, Value: "ambient"}}},
		{Logic: LogicOr, Rules: []Rule{
			{Field: "artist", Op: OpEquals, Value: "Skald"},
			{Field: "artist", Op: OpEquals, Value: "Vali"},
		}},
	}
	if !Match(groups, track) {
		t.Fatal("expected both groups to pass")
	}

	groups[0].Rules[0].Value = "metal"
	if Match(groups, track) {
		t.Fatal("expected failing group to veto the match")
	}
}
