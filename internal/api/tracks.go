/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// trackPayload is the writable subset of a track.
type trackPayload struct {
	Title        *string  `json:"title"`
	Artist       *string  `json:"artist"`
	Genre        *string  `json:"genre"`
	CatalogClass *string  `json:"catalog_class"`
	MusicalKey   *string  `json:"musical_key"`
	EnergyLow    *bool    `json:"energy_low"`
	EnergyMedium *bool    `json:"energy_medium"`
	EnergyHigh   *bool    `json:"energy_high"`
	Tempo        *float64 `json:"tempo"`
	Speed        *float64 `json:"speed"`
	Intensity    *float64 `json:"intensity"`
	Brightness   *float64 `json:"brightness"`
	Complexity   *float64 `json:"complexity"`
	Valence      *float64 `json:"valence"`
	Arousal      *float64 `json:"arousal"`
}

func (p trackPayload) apply(t *models.Track) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.Genre != nil {
		t.Genre = *p.Genre
	}
	if p.CatalogClass != nil {
		t.CatalogClass = *p.CatalogClass
	}
	if p.MusicalKey != nil {
		t.MusicalKey = *p.MusicalKey
	}
	if p.EnergyLow != nil {
		t.EnergyLow = *p.EnergyLow
	}
	if p.EnergyMedium != nil {
		t.EnergyMedium = *p.EnergyMedium
	}
	if p.EnergyHigh != nil {
		t.EnergyHigh = *p.EnergyHigh
	}
	if p.Tempo != nil {
		t.Tempo = p.Tempo
	}
	if p.Speed != nil {
		t.Speed = p.Speed
	}
	if p.Intensity != nil {
		t.Intensity = p.Intensity
	}
	if p.Brightness != nil {
		t.Brightness = p.Brightness
	}
	if p.Complexity != nil {
		t.Complexity = p.Complexity
	}
	if p.Valence != nil {
		t.Valence = p.Valence
	}
	if p.Arousal != nil {
		t.Arousal = p.Arousal
	}
}

func (a *API) handleTracksList(w http.ResponseWriter, r *http.Request) {
	query := a.db.WithContext(r.Context()).Order("id ASC")

	if genre := r.URL.Query().Get("genre"); genre != "" {
		query = query.Where("genre = ?", genre)
	}
	if artist := r.URL.Query().Get("artist"); artist != "" {
		query = query.Where("artist = ?", artist)
	}
	if tier := models.EnergyTier(r.URL.Query().Get("tier")); tier.Valid() {
		switch tier {
		case models.TierLow:
			query = query.Where("energy_low = ?", true)
		case models.TierMedium:
			query = query.Where("energy_medium = ?", true)
		case models.TierHigh:
			query = query.Where("energy_high = ?", true)
		}
	}

	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	var tracks []models.Track
	if err := query.Limit(limit).Find(&tracks).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleTracksCreate(w http.ResponseWriter, r *http.Request) {
	var payload trackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if payload.Title == nil || *payload.Title == "" {
		writeError(w, http.StatusBadRequest, "title_required")
		return
	}

	var track models.Track
	payload.apply(&track)

	if err := a.db.WithContext(r.Context()).Create(&track).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (a *API) handleTracksGet(w http.ResponseWriter, r *http.Request) {
	track, ok := a.loadTrack(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (a *API) handleTracksUpdate(w http.ResponseWriter, r *http.Request) {
	track, ok := a.loadTrack(w, r)
	if !ok {
		return
	}

	var payload trackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	payload.apply(track)

	if err := a.db.WithContext(r.Context()).Save(track).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventTrackUpdated, events.Payload{"track_id": track.ID})
	writeJSON(w, http.StatusOK, track)
}

func (a *API) handleTracksDelete(w http.ResponseWriter, r *http.Request) {
	track, ok := a.loadTrack(w, r)
	if !ok {
		return
	}

	if err := a.db.WithContext(r.Context()).Delete(track).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventTrackDeleted, events.Payload{"track_id": track.ID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) loadTrack(w http.ResponseWriter, r *http.Request) (*models.Track, bool) {
	trackID, err := strconv.ParseInt(chi.URLParam(r, "trackID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_track_id")
		return nil, false
	}

	var track models.Track
	err = a.db.WithContext(r.Context()).First(&track, "id = ?", trackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return nil, false
	}
	return &track, true
}
