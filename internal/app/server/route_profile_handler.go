package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"ipwarden/internal/domain"
	"ipwarden/internal/trust"
)

func getProfile(w http.ResponseWriter, r *http.Request) {
	view, err := svc.GetProfile(r.Context(), r.PathValue("key"))
	if err != nil {
		switch {
		case errors.Is(err, trust.ErrUnknownProfile):
			writeError(w, "Profile not found", http.StatusNotFound)
		case errors.Is(err, trust.ErrInvalidIP):
			writeError(w, "Invalid IP or hash", http.StatusBadRequest)
		default:
			log.Error("Could not load profile", "error", err.Error())
			writeError(w, "Could not load profile", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func refreshProfile(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"

	profile, err := svc.RefreshNow(r.Context(), r.PathValue("key"), force)
	if err != nil {
		log.Error("Could not refresh profile", "error", err.Error())
		writeError(w, "Could not refresh profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, "Profile not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func getReviewPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeError(w, "Invalid page", http.StatusBadRequest)
		return
	}

	result, err := svc.ListForReview(r.Context(), page)
	if err != nil {
		log.Error("Could not load review queue", "error", err.Error())
		writeError(w, "Could not load review queue", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func markSafe(w http.ResponseWriter, r *http.Request) {
	applyOverride(w, r, func(hash string) (*domain.IPProfile, error) {
		return svc.MarkSafe(r.Context(), hash)
	})
}

func markBanned(w http.ResponseWriter, r *http.Request) {
	applyOverride(w, r, func(hash string) (*domain.IPProfile, error) {
		return svc.MarkBanned(r.Context(), hash)
	})
}

func clearOverride(w http.ResponseWriter, r *http.Request) {
	applyOverride(w, r, func(hash string) (*domain.IPProfile, error) {
		return svc.ClearOverride(r.Context(), hash)
	})
}

func applyOverride(w http.ResponseWriter, r *http.Request, apply func(string) (*domain.IPProfile, error)) {
	profile, err := apply(r.PathValue("hash"))
	if err != nil {
		if errors.Is(err, trust.ErrUnknownProfile) {
			writeError(w, "Profile not found", http.StatusNotFound)
			return
		}
		log.Error("Could not apply override", "error", err.Error())
		writeError(w, "Could not apply override", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hash":     profile.Hash,
		"status":   profile.Status,
		"override": profile.Override,
	})
}
