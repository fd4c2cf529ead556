/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/bragi_sequencer/internal/logbuffer"
)

func (a *API) handleLogsList(w http.ResponseWriter, r *http.Request) {
	if a.logBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}

	params := logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		ChannelID:  r.URL.Query().Get("channel_id"),
		Search:     r.URL.Query().Get("q"),
		Limit:      200,
		Descending: true,
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			params.Since = since
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 1000 {
			params.Limit = limit
		}
	}

	entries := a.logBuf.Query(params)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (a *API) handleLogsComponents(w http.ResponseWriter, r *http.Request) {
	if a.logBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": a.logBuf.GetComponents()})
}

func (a *API) handleLogsStats(w http.ResponseWriter, r *http.Request) {
	if a.logBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}
	writeJSON(w, http.StatusOK, a.logBuf.Stats())
}
