package sequencing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/rules"
)

func testEngine() *Engine {
	return New(NewScorer(DefaultExactThreshold), zerolog.Nop())
}

func ruleAll() []rules.Group {
	// Matches every track that has a title.
	return []rules.Group{{Logic: rules.LogicAnd, Rules: []rules.Rule{
		{Field: "artist", Op: rules.OpExists},
	}}}
}

func namedTracks(ids ...int64) []models.Track {
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, models.Track{ID: id, Artist: "someone"})
	}
	return tracks
}

func assignedIDs(result AssignResult) []int64 {
	ids := make([]int64, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		ids = append(ids, a.TrackID)
	}
	return ids
}

func TestAssignSequenceDeterministicTieBreak(t *testing.T) {
	engine := testEngine()

	// No slot targets: every candidate scores zero, so the lowest id wins
	// each slot.
	req := AssignRequest{
		Doc: Document{
			SlotCount:    3,
			RepeatWindow: 1,
			Groups:       ruleAll(),
		},
		Candidates: namedTracks(30, 10, 20),
	}

	result := engine.AssignSequence(context.Background(), req)
	want := []int64{10, 20, 10}
	got := assignedIDs(result)
	if len(got) != len(want) {
		t.Fatalf("assigned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assigned %v, want %v", got, want)
		}
	}

	// Same input, same output.
	again := assignedIDs(engine.AssignSequence(context.Background(), req))
	for i := range got {
		if got[i] != again[i] {
			t.Fatalf("second run %v differs from first %v", again, got)
		}
	}
}

func TestAssignSequencePrefersHigherScore(t *testing.T) {
	engine := testEngine()

	intensity := func(id int64, v float64) models.Track {
		return models.Track{ID: id, Artist: "someone", Intensity: &v}
	}

	req := AssignRequest{
		Doc: Document{
			SlotCount: 1,
			Slots: []SlotSpec{
				{Index: 1, Targets: map[string]float64{"intensity": 0.9}},
			},
			Groups: ruleAll(),
		},
		Candidates: []models.Track{
			intensity(1, 0.2),
			intensity(2, 0.85),
			intensity(3, 0.5),
		},
	}

	result := engine.AssignSequence(context.Background(), req)
	if len(result.Assignments) != 1 || result.Assignments[0].TrackID != 2 {
		t.Fatalf("assignments = %+v, want track 2 in slot 1", result.Assignments)
	}
}

func TestAssignSequenceRepeatWindowExcludesRecent(t *testing.T) {
	engine := testEngine()

	req := AssignRequest{
		Doc: Document{
			SlotCount:    4,
			RepeatWindow: 2,
			Groups:       ruleAll(),
		},
		Candidates: namedTracks(1, 2, 3),
	}

	got := assignedIDs(engine.AssignSequence(context.Background(), req))
	want := []int64{1, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assigned %v, want %v", got, want)
		}
	}
}

func TestAssignSequenceStarvationIsNonFatal(t *testing.T) {
	engine := testEngine()

	// Two candidates, window of two: slot 3 has nobody left.
	req := AssignRequest{
		Doc: Document{
			SlotCount:    3,
			RepeatWindow: 2,
			Groups:       ruleAll(),
		},
		Candidates: namedTracks(1, 2),
	}

	result := engine.AssignSequence(context.Background(), req)
	if len(result.Assignments) != 2 {
		t.Fatalf("assignments = %+v, want 2", result.Assignments)
	}
	if len(result.Unassigned) != 1 || result.Unassigned[0] != 3 {
		t.Fatalf("unassigned = %v, want [3]", result.Unassigned)
	}
}

func TestAssignSequenceStarvedSlotOccupiesWindowPosition(t *testing.T) {
	engine := testEngine()

	// One candidate, window of one: slot 1 commits track 1, slot 2
	// starves, and the starved position ages track 1 out of the window so
	// slot 3 can use it again.
	req := AssignRequest{
		Doc: Document{
			SlotCount:    3,
			RepeatWindow: 1,
			Groups:       ruleAll(),
		},
		Candidates: namedTracks(1),
	}

	result := engine.AssignSequence(context.Background(), req)
	got := assignedIDs(result)
	if len(got) != 2 || got[0] != 1 || got[1] != 1 {
		t.Fatalf("assignments = %+v, want track 1 in slots 1 and 3", result.Assignments)
	}
	if len(result.Unassigned) != 1 || result.Unassigned[0] != 2 {
		t.Fatalf("unassigned = %v, want [2]", result.Unassigned)
	}
	if result.Assignments[1].Slot != 3 {
		t.Fatalf("second assignment slot = %d, want 3", result.Assignments[1].Slot)
	}
}

func TestAssignSequenceZeroWindowAllowsImmediateRepeat(t *testing.T) {
	engine := testEngine()

	req := AssignRequest{
		Doc: Document{
			SlotCount:    3,
			RepeatWindow: 0,
			Groups:       ruleAll(),
		},
		Candidates: namedTracks(7),
	}

	got := assignedIDs(engine.AssignSequence(context.Background(), req))
	want := []int64{7, 7, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assigned %v, want %v", got, want)
		}
	}
}

func TestAssignSequenceLegacyMembershipOnly(t *testing.T) {
	engine := testEngine()

	// No rule groups: only the membership list is eligible.
	req := AssignRequest{
		Doc: Document{
			SlotCount:    2,
			RepeatWindow: 1,
		},
		Candidates:    namedTracks(1, 2, 3, 4),
		LegacyMembers: []int64{2, 4},
	}

	got := assignedIDs(engine.AssignSequence(context.Background(), req))
	want := []int64{2, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assigned %v, want %v", got, want)
		}
	}
}

func TestAssignSequenceNoGroupsNoMembersStarvesEverything(t *testing.T) {
	engine := testEngine()

	req := AssignRequest{
		Doc: Document{
			SlotCount:    3,
			RepeatWindow: 1,
		},
		Candidates: namedTracks(1, 2, 3),
	}

	result := engine.AssignSequence(context.Background(), req)
	if len(result.Assignments) != 0 {
		t.Fatalf("assignments = %+v, want none", result.Assignments)
	}
	if len(result.Unassigned) != 3 {
		t.Fatalf("unassigned = %v, want all three slots", result.Unassigned)
	}
}

func TestAssignSequenceRuleFilterRestrictsCandidates(t *testing.T) {
	engine := testEngine()

	tracks := []models.Track{
		{ID: 1, Artist: "someone", Genre: "ambient"},
		{ID: 2, Artist: "someone", Genre: "metal"},
		{ID: 3, Artist: "someone", Genre: "ambient"},
	}

	req := AssignRequest{
		Doc: Document{
			SlotCount:    2,
			RepeatWindow: 1,
			Groups: []rules.Group{{Logic: rules.LogicAnd, Rules: []rules.Rule{
				{Field: "genre", Op: rules.OpEquals, Value: "ambient"},
			}}},
		},
		Candidates: tracks,
	}

	got := assignedIDs(engine.AssignSequence(context.Background(), req))
	want := []int64{1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assigned %v, want %v", got, want)
		}
	}
}

func TestAssignSequenceCancelledContextStarvesRemainder(t *testing.T) {
	engine := testEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := AssignRequest{
		Doc: Document{
			SlotCount: 3,
			Groups:    ruleAll(),
		},
		Candidates: namedTracks(1, 2),
	}

	result := engine.AssignSequence(ctx, req)
	if len(result.Assignments) != 0 {
		t.Fatalf("assignments = %+v, want none after cancellation", result.Assignments)
	}
	if len(result.Unassigned) != 3 {
		t.Fatalf("unassigned = %v, want all slots", result.Unassigned)
	}
}
