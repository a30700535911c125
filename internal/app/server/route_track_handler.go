package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"ipwarden/internal/auth"
	"ipwarden/internal/trust"
)

type trackRequest struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	UserID    uint64 `json:"user_id"`
}

func trackVisit(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// A bearer token wins over the body so the wiki cannot attribute a
	// visit to someone else by accident.
	if tokenUser := auth.UserIDFromRequest(r); tokenUser != 0 {
		req.UserID = tokenUser
	}

	profile, err := svc.Touch(r.Context(), req.IP, req.UserAgent, req.UserID)
	if err != nil {
		if errors.Is(err, trust.ErrInvalidIP) {
			writeError(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		log.Error("Could not record visit", "error", err.Error())
		writeError(w, "Could not record visit", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		// Empty IP is tracked as nothing at all.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hash":       profile.Hash,
		"status":     profile.Status,
		"is_bot":     profile.IsBot,
		"bot_reason": profile.BotReason,
	})
}

type activityRequest struct {
	IP      string `json:"ip"`
	Kind    string `json:"kind"`
	Excerpt string `json:"excerpt"`
}

func recordActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := svc.RecordActivity(r.Context(), req.IP, req.Kind, req.Excerpt); err != nil {
		if errors.Is(err, trust.ErrInvalidIP) {
			writeError(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
