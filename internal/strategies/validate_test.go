package strategies

import (
	"errors"
	"testing"

	"github.com/friendsincode/bragi_sequencer/internal/rules"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
)

func validDoc() sequencing.Document {
	return sequencing.Document{
		SlotCount:    4,
		RepeatWindow: 2,
		Slots: []sequencing.SlotSpec{
			{Index: 1, Targets: map[string]float64{"intensity": 0.8}},
			{Index: 2, Targets: map[string]float64{"tempo": 120}},
		},
		Boosts: []sequencing.BoostSpec{
			{Slot: 1, Field: "intensity", Mode: sequencing.BoostNear, Weight: 3},
		},
		Groups: []rules.Group{
			{Logic: rules.LogicAnd, Rules: []rules.Rule{
				{Field: "genre", Op: rules.OpEquals, Value: "ambient"},
			}},
		},
	}
}

func TestValidateDocumentAccepts(t *testing.T) {
	if err := ValidateDocument(validDoc()); err != nil {
		t.Fatalf("ValidateDocument = %v, want nil", err)
	}
}

func TestValidateDocumentRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sequencing.Document)
	}{
		{"zero slot count", func(d *sequencing.Document) { d.SlotCount = 0 }},
		{"slot count over max", func(d *sequencing.Document) { d.SlotCount = sequencing.MaxSlots + 1 }},
		{"negative repeat window", func(d *sequencing.Document) { d.RepeatWindow = -1 }},
		{"repeat window equals slot count", func(d *sequencing.Document) { d.RepeatWindow = d.SlotCount }},
		{"slot index zero", func(d *sequencing.Document) { d.Slots[0].Index = 0 }},
		{"slot index beyond count", func(d *sequencing.Document) { d.Slots[0].Index = d.SlotCount + 1 }},
		{"duplicate slot index", func(d *sequencing.Document) { d.Slots[1].Index = 1 }},
		{"categorical slot target", func(d *sequencing.Document) {
			d.Slots[0].Targets = map[string]float64{"genre": 1}
		}},
		{"boost slot out of range", func(d *sequencing.Document) { d.Boosts[0].Slot = 99 }},
		{"boost on categorical field", func(d *sequencing.Document) { d.Boosts[0].Field = "artist" }},
		{"unknown boost mode", func(d *sequencing.Document) { d.Boosts[0].Mode = "fuzzy" }},
		{"boost weight zero", func(d *sequencing.Document) { d.Boosts[0].Weight = 0 }},
		{"boost weight over max", func(d *sequencing.Document) { d.Boosts[0].Weight = 6 }},
		{"duplicate boost", func(d *sequencing.Document) {
			d.Boosts = append(d.Boosts, d.Boosts[0])
		}},
		{"unknown group logic", func(d *sequencing.Document) { d.Groups[0].Logic = "xor" }},
		{"rule missing field", func(d *sequencing.Document) { d.Groups[0].Rules[0].Field = "" }},
		{"unknown operator", func(d *sequencing.Document) { d.Groups[0].Rules[0].Op = "like" }},
		{"eq without value", func(d *sequencing.Document) { d.Groups[0].Rules[0].Value = nil }},
		{"in with empty list", func(d *sequencing.Document) {
			d.Groups[0].Rules[0] = rules.Rule{Field: "genre", Op: rules.OpIn, Value: []any{}}
		}},
		{"between with one bound", func(d *sequencing.Document) {
			d.Groups[0].Rules[0] = rules.Rule{Field: "tempo", Op: rules.OpBetween, Value: []any{100.0}}
		}},
		{"between non-numeric bounds", func(d *sequencing.Document) {
			d.Groups[0].Rules[0] = rules.Rule{Field: "tempo", Op: rules.OpBetween, Value: []any{"a", "b"}}
		}},
		{"between inverted bounds", func(d *sequencing.Document) {
			d.Groups[0].Rules[0] = rules.Rule{Field: "tempo", Op: rules.OpBetween, Value: []any{130.0, 100.0}}
		}},
		{"gte non-numeric", func(d *sequencing.Document) {
			d.Groups[0].Rules[0] = rules.Rule{Field: "tempo", Op: rules.OpGTE, Value: "fast"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(&doc)
			err := ValidateDocument(doc)
			if err == nil {
				t.Fatal("ValidateDocument = nil, want error")
			}
			if !errors.Is(err, ErrInvalidStrategy) {
				t.Fatalf("error %v does not wrap ErrInvalidStrategy", err)
			}
		})
	}
}

func TestValidateDocumentAllowsExistsWithoutValue(t *testing.T) {
	doc := validDoc()
	doc.Groups[0].Rules[0] = rules.Rule{Field: "key", Op: rules.OpExists}
	if err := ValidateDocument(doc); err != nil {
		t.Fatalf("ValidateDocument = %v, want nil", err)
	}
}
