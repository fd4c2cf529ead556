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

	"github.com/friendsincode/bragi_sequencer/internal/auth"
	"github.com/friendsincode/bragi_sequencer/internal/catalog"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
	"github.com/friendsincode/bragi_sequencer/internal/strategies"
)

type strategyRequest struct {
	ChannelID  string              `json:"channel_id"`
	EnergyTier string              `json:"energy_tier"`
	Document   sequencing.Document `json:"document"`
}

func (a *API) handleStrategiesList(w http.ResponseWriter, r *http.Request) {
	list, err := a.strategySvc.List(r.Context(), r.URL.Query().Get("channel_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleStrategiesCreate(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	strategy, err := a.strategySvc.Create(r.Context(), req.ChannelID, models.EnergyTier(req.EnergyTier), req.Document)
	if err != nil {
		a.writeStrategyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, strategy)
}

func (a *API) handleStrategiesGet(w http.ResponseWriter, r *http.Request) {
	strategy, err := a.strategySvc.Get(r.Context(), chi.URLParam(r, "strategyID"))
	if err != nil {
		a.writeStrategyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (a *API) handleStrategiesUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document sequencing.Document `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	strategy, err := a.strategySvc.Update(r.Context(), chi.URLParam(r, "strategyID"), req.Document)
	if err != nil {
		a.writeStrategyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (a *API) handleStrategiesDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.strategySvc.Delete(r.Context(), chi.URLParam(r, "strategyID")); err != nil {
		a.writeStrategyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleStrategyAssign(w http.ResponseWriter, r *http.Request) {
	strategyID := chi.URLParam(r, "strategyID")

	run, result, err := a.assignSvc.Assign(r.Context(), strategyID)
	if err != nil {
		switch {
		case errors.Is(err, sequencing.ErrStrategyNotFound):
			writeError(w, http.StatusNotFound, "not_found")
		case errors.Is(err, sequencing.ErrInvalidDocument):
			writeError(w, http.StatusUnprocessableEntity, "invalid_document")
		case errors.Is(err, catalog.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "catalog_unavailable")
		case errors.Is(err, catalog.ErrAccessDenied):
			writeError(w, http.StatusForbidden, "access_denied")
		default:
			writeError(w, http.StatusInternalServerError, "assign_error")
		}
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.bus.Publish(events.EventAuditStrategyAssign, events.Payload{
			"user_id":       claims.UserID,
			"resource_type": "strategy",
			"resource_id":   strategyID,
			"run_id":        run.ID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"assignments": result.Assignments,
		"unassigned":  result.Unassigned,
		"candidates":  run.Candidates,
	})
}

func (a *API) handleStrategyRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	runs, err := a.assignSvc.Runs(r.Context(), chi.URLParam(r, "strategyID"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *API) handleRunsList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	runs, err := a.assignSvc.Runs(r.Context(), r.URL.Query().Get("strategy_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *API) handleRunsGet(w http.ResponseWriter, r *http.Request) {
	run, err := a.assignSvc.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, sequencing.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *API) writeStrategyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategies.ErrStrategyNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, strategies.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, "channel_not_found")
	case errors.Is(err, strategies.ErrDuplicateStrategy):
		writeError(w, http.StatusConflict, "duplicate_strategy")
	case errors.Is(err, strategies.ErrInvalidTier):
		writeError(w, http.StatusBadRequest, "invalid_tier")
	case errors.Is(err, strategies.ErrInvalidStrategy):
		writeError(w, http.StatusUnprocessableEntity, "invalid_strategy")
	default:
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
