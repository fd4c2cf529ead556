/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/auth"
	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
)

const tokenTTL = 12 * time.Hour

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "credentials_required")
		return
	}

	var user models.User
	err := a.db.WithContext(r.Context()).First(&user, "email = ?", req.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if user.Suspended {
		writeError(w, http.StatusUnauthorized, "account_suspended")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
	}, tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue token")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"role":  user.Role,
	})
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := auth.ListAPIKeys(a.db, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
		Days int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.Days <= 0 || req.Days > 365 {
		req.Days = 90
	}

	plaintext, apiKey, err := auth.GenerateAPIKey(claims.UserID, req.Name, time.Duration(req.Days)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "keygen_error")
		return
	}
	if err := a.db.WithContext(r.Context()).Create(apiKey).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventAuditAPIKeyCreate, events.Payload{
		"user_id":       claims.UserID,
		"resource_type": "apikey",
		"resource_id":   apiKey.ID,
		"name":          req.Name,
	})

	// Plaintext is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     apiKey.ID,
		"key":    plaintext,
		"prefix": apiKey.KeyPrefix,
	})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if err := auth.RevokeAPIKey(a.db, keyID, claims.UserID); err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.bus.Publish(events.EventAuditAPIKeyRevoke, events.Payload{
		"user_id":       claims.UserID,
		"resource_type": "apikey",
		"resource_id":   keyID,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
