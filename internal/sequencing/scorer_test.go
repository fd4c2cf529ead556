package sequencing

import (
	"math"
	"testing"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreTrackCloseness(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"intensity": 0.8}}

	tests := []struct {
		name      string
		intensity float64
		want      float64
	}{
		{"exact hit", 0.8, 1.0},
		{"quarter off", 0.55, 0.75},
		{"full span off clamps to zero", -0.2, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := models.Track{ID: 1, Intensity: floatPtr(tt.intensity)}
			got := scorer.ScoreTrack(slot, nil, track)
			if !almostEqual(got, tt.want) {
				t.Fatalf("ScoreTrack = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreTrackTempoUsesBPMSpan(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"tempo": 120}}

	track := models.Track{ID: 1, Tempo: floatPtr(95)}
	// |95-120|/250 = 0.1 distance over the BPM span.
	want := 0.9
	if got := scorer.ScoreTrack(slot, nil, track); !almostEqual(got, want) {
		t.Fatalf("ScoreTrack = %v, want %v", got, want)
	}
}

func TestScoreTrackMissingFieldContributesZero(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{
		"intensity": 0.5,
		"valence":   0.5,
	}}

	track := models.Track{ID: 1, Intensity: floatPtr(0.5)} // valence nil
	if got := scorer.ScoreTrack(slot, nil, track); !almostEqual(got, 1.0) {
		t.Fatalf("ScoreTrack = %v, want 1.0 (only intensity counts)", got)
	}
}

func TestScoreTrackSumsAcrossTargets(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{
		"intensity": 0.6,
		"valence":   0.4,
	}}

	track := models.Track{ID: 1, Intensity: floatPtr(0.6), Valence: floatPtr(0.4)}
	if got := scorer.ScoreTrack(slot, nil, track); !almostEqual(got, 2.0) {
		t.Fatalf("ScoreTrack = %v, want 2.0", got)
	}
}

func TestScoreTrackNearBoostMultipliesWeight(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"intensity": 0.8}}
	boosts := map[string]BoostSpec{
		"intensity": {Slot: 1, Field: "intensity", Mode: BoostNear, Weight: 3},
	}

	track := models.Track{ID: 1, Intensity: floatPtr(0.55)} // closeness 0.75
	if got := scorer.ScoreTrack(slot, boosts, track); !almostEqual(got, 2.25) {
		t.Fatalf("ScoreTrack = %v, want 2.25", got)
	}
}

func TestScoreTrackExactBoostGatesOnThreshold(t *testing.T) {
	scorer := NewScorer(0.95)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"intensity": 0.8}}
	boosts := map[string]BoostSpec{
		"intensity": {Slot: 1, Field: "intensity", Mode: BoostExact, Weight: 5},
	}

	// Closeness 0.96: above threshold, counts at weight 5.
	near := models.Track{ID: 1, Intensity: floatPtr(0.84)}
	if got := scorer.ScoreTrack(slot, boosts, near); !almostEqual(got, 0.96*5) {
		t.Fatalf("ScoreTrack above threshold = %v, want %v", got, 0.96*5)
	}

	// Closeness 0.8: below threshold, the field contributes nothing.
	far := models.Track{ID: 2, Intensity: floatPtr(0.6)}
	if got := scorer.ScoreTrack(slot, boosts, far); !almostEqual(got, 0) {
		t.Fatalf("ScoreTrack below threshold = %v, want 0", got)
	}
}

func TestScoreTrackExactBoostCustomThreshold(t *testing.T) {
	scorer := NewScorer(0.5)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"intensity": 0.8}}
	boosts := map[string]BoostSpec{
		"intensity": {Slot: 1, Field: "intensity", Mode: BoostExact, Weight: 2},
	}

	track := models.Track{ID: 1, Intensity: floatPtr(0.4)} // closeness 0.6
	if got := scorer.ScoreTrack(slot, boosts, track); !almostEqual(got, 1.2) {
		t.Fatalf("ScoreTrack = %v, want 1.2", got)
	}
}

func TestScoreTrackOutOfBoundsWeightFallsBackToOne(t *testing.T) {
	scorer := NewScorer(DefaultExactThreshold)
	slot := SlotSpec{Index: 1, Targets: map[string]float64{"intensity": 0.8}}
	boosts := map[string]BoostSpec{
		"intensity": {Slot: 1, Field: "intensity", Mode: BoostNear, Weight: 9},
	}

	track := models.Track{ID: 1, Intensity: floatPtr(0.8)}
	if got := scorer.ScoreTrack(slot, boosts, track); !almostEqual(got, 1.0) {
		t.Fatalf("ScoreTrack = %v, want 1.0", got)
	}
}

func TestNewScorerRejectsInvalidThreshold(t *testing.T) {
	for _, bad := range []float64{0, -1, 1.5} {
		s := NewScorer(bad)
		if s.exactThreshold != DefaultExactThreshold {
			t.Fatalf("NewScorer(%v) threshold = %v, want default", bad, s.exactThreshold)
		}
	}
}
