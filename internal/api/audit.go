/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/bragi_sequencer/internal/audit"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filters := audit.QueryFilters{}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filters.UserID = &userID
	}
	if action := r.URL.Query().Get("action"); action != "" {
		auditAction := models.AuditAction(action)
		filters.Action = &auditAction
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.StartTime = &since
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filters.Offset = offset
		}
	}

	logs, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": logs,
		"total":   total,
	})
}
