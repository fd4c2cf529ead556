/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func (a *API) handleChannelsList(w http.ResponseWriter, r *http.Request) {
	var channels []models.Channel
	if err := a.db.WithContext(r.Context()).Order("name ASC").Find(&channels).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (a *API) handleChannelsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	channel := models.Channel{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := a.db.WithContext(r.Context()).Create(&channel).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventChannelCreated, events.Payload{"channel_id": channel.ID})
	writeJSON(w, http.StatusCreated, channel)
}

func (a *API) handleChannelsGet(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var channel models.Channel
	err := a.db.WithContext(r.Context()).First(&channel, "id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (a *API) handleChannelsUpdate(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var channel models.Channel
	err := a.db.WithContext(r.Context()).First(&channel, "id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name_required")
			return
		}
		channel.Name = *req.Name
	}
	if req.Description != nil {
		channel.Description = *req.Description
	}

	if err := a.db.WithContext(r.Context()).Save(&channel).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventChannelUpdated, events.Payload{"channel_id": channel.ID})
	writeJSON(w, http.StatusOK, channel)
}

// handleChannelSnapshot exposes the tier-filtered catalog read used by
// assignment runs, mainly for curator inspection.
func (a *API) handleChannelSnapshot(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	tier := models.EnergyTier(r.URL.Query().Get("tier"))
	if !tier.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_tier")
		return
	}

	tracks, err := a.catalogSvc.Snapshot(r.Context(), channelID, tier)
	if err != nil {
		if errors.Is(err, catalog.ErrAccessDenied) {
			writeError(w, http.StatusForbidden, "access_denied")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleMembershipsList(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	tier := models.EnergyTier(r.URL.Query().Get("tier"))
	if !tier.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_tier")
		return
	}

	ids, err := a.catalogSvc.LegacyMembers(r.Context(), channelID, tier)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"track_ids": ids})
}
