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

	"github.com/friendsincode/bragi_sequencer/internal/auth"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/sequences"
)

func (a *API) handleSequenceSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	strategyID := chi.URLParam(r, "strategyID")
	seq, err := a.sequenceSvc.Save(r.Context(), strategyID, req.Name)
	if err != nil {
		a.writeSequenceError(w, err)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.bus.Publish(events.EventAuditSequenceSave, events.Payload{
			"user_id":       claims.UserID,
			"resource_type": "sequence",
			"resource_id":   seq.ID,
			"strategy_id":   strategyID,
			"name":          seq.Name,
		})
	}

	writeJSON(w, http.StatusCreated, seq)
}

func (a *API) handleSequenceLoad(w http.ResponseWriter, r *http.Request) {
	strategyID := chi.URLParam(r, "strategyID")
	sequenceID := chi.URLParam(r, "sequenceID")

	strategy, err := a.sequenceSvc.Load(r.Context(), strategyID, sequenceID)
	if err != nil {
		a.writeSequenceError(w, err)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.bus.Publish(events.EventAuditSequenceLoad, events.Payload{
			"user_id":       claims.UserID,
			"resource_type": "sequence",
			"resource_id":   sequenceID,
			"strategy_id":   strategyID,
		})
	}

	writeJSON(w, http.StatusOK, strategy)
}

func (a *API) handleSequencesList(w http.ResponseWriter, r *http.Request) {
	list, err := a.sequenceSvc.List(r.Context(), r.URL.Query().Get("channel_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSequencesGet(w http.ResponseWriter, r *http.Request) {
	seq, err := a.sequenceSvc.Get(r.Context(), chi.URLParam(r, "sequenceID"))
	if err != nil {
		a.writeSequenceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

func (a *API) handleSequenceDelete(w http.ResponseWriter, r *http.Request) {
	sequenceID := chi.URLParam(r, "sequenceID")
	if err := a.sequenceSvc.Delete(r.Context(), sequenceID); err != nil {
		a.writeSequenceError(w, err)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.bus.Publish(events.EventAuditSequenceDelete, events.Payload{
			"user_id":       claims.UserID,
			"resource_type": "sequence",
			"resource_id":   sequenceID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) writeSequenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sequences.ErrSequenceNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, sequences.ErrStrategyNotFound):
		writeError(w, http.StatusNotFound, "strategy_not_found")
	case errors.Is(err, sequences.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name_required")
	default:
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
