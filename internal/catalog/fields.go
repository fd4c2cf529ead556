/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"strconv"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// FieldValue is one track field as seen by the rule evaluator and scorer.
// Present is false when the underlying column is NULL or the text field is
// empty; absence never satisfies a comparison.
type FieldValue struct {
	Text    string
	Number  float64
	Numeric bool
	Present bool
}

// Continuous field names accepted in slot targets and numeric rules.
const (
	FieldTempo      = "tempo"
	FieldSpeed      = "speed"
	FieldIntensity  = "intensity"
	FieldBrightness = "brightness"
	FieldComplexity = "complexity"
	FieldValence    = "valence"
	FieldArousal    = "arousal"
)

// Categorical field names accepted in rules.
const (
	FieldGenre        = "genre"
	FieldArtist       = "artist"
	FieldCatalogClass = "catalog"
	FieldMusicalKey   = "key"
	FieldEnergyLow    = "energy_low"
	FieldEnergyMedium = "energy_medium"
	FieldEnergyHigh   = "energy_high"
)

// fieldRanges maps continuous fields to their value span, used to
// normalize closeness. Tempo is raw BPM; everything else arrives
// normalized from analysis.
var fieldRanges = map[string]float64{
	FieldTempo:      250,
	FieldSpeed:      1,
	FieldIntensity:  1,
	FieldBrightness: 1,
	FieldComplexity: 1,
	FieldValence:    1,
	FieldArousal:    1,
}

// Range returns the normalization span for a continuous field.
func Range(field string) (float64, bool) {
	span, ok := fieldRanges[field]
	return span, ok
}

// IsContinuous reports whether the field carries a numeric analysis value.
func IsContinuous(field string) bool {
	_, ok := fieldRanges[field]
	return ok
}

// Lookup resolves a field name against one track. Unknown fields resolve
// as absent, which makes every rule on them fail closed.
func Lookup(t models.Track, field string) FieldValue {
	switch field {
	case FieldGenre:
		return textValue(t.Genre)
	case FieldArtist:
		return textValue(t.Artist)
	case FieldCatalogClass:
		return textValue(t.CatalogClass)
	case FieldMusicalKey:
		return textValue(t.MusicalKey)
	case FieldEnergyLow:
		return flagValue(t.EnergyLow)
	case FieldEnergyMedium:
		return flagValue(t.EnergyMedium)
	case FieldEnergyHigh:
		return flagValue(t.EnergyHigh)
	case FieldTempo:
		return numberValue(t.Tempo)
	case FieldSpeed:
		return numberValue(t.Speed)
	case FieldIntensity:
		return numberValue(t.Intensity)
	case FieldBrightness:
		return numberValue(t.Brightness)
	case FieldComplexity:
		return numberValue(t.Complexity)
	case FieldValence:
		return numberValue(t.Valence)
	case FieldArousal:
		return numberValue(t.Arousal)
	}
	return FieldValue{}
}

// Number resolves a continuous field, reporting ok only when it is set.
func Number(t models.Track, field string) (float64, bool) {
	fv := Lookup(t, field)
	if !fv.Present || !fv.Numeric {
		return 0, false
	}
	return fv.Number, true
}

func textValue(s string) FieldValue {
	return FieldValue{Text: s, Present: s != ""}
}

func flagValue(b bool) FieldValue {
	return FieldValue{Text: strconv.FormatBool(b), Present: true}
}

func numberValue(v *float64) FieldValue {
	if v == nil {
		return FieldValue{}
	}
	return FieldValue{
		Text:    strconv.FormatFloat(*v, 'f', -1, 64),
		Number:  *v,
		Numeric: true,
		Present: true,
	}
}
