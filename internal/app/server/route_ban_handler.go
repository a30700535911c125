package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"ipwarden/internal/access"
	"ipwarden/internal/trust"
)

type ipBanRequest struct {
	IP     string `json:"ip"`
	Scope  string `json:"scope"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func createIPBan(w http.ResponseWriter, r *http.Request) {
	var req ipBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ban, err := svc.BanIP(r.Context(), req.IP, req.Scope, req.Value, req.Reason)
	if err != nil {
		if errors.Is(err, trust.ErrInvalidIP) {
			writeError(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, ban)
}

type userBanRequest struct {
	UserID uint64 `json:"user_id"`
	Scope  string `json:"scope"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func createUserBan(w http.ResponseWriter, r *http.Request) {
	var req userBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ban, err := svc.BanUserAction(r.Context(), req.UserID, req.Scope, req.Value, req.Reason)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, ban)
}

type liftBanRequest struct {
	Subject string `json:"subject"`
	ID      uint64 `json:"id"`
}

func liftBan(w http.ResponseWriter, r *http.Request) {
	var req liftBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		lifted bool
		err    error
	)
	switch req.Subject {
	case access.SubjectIP:
		lifted, err = svc.LiftIPBan(r.Context(), req.ID)
	case access.SubjectUser:
		lifted, err = svc.LiftUserBan(r.Context(), req.ID)
	default:
		writeError(w, "Subject must be \"ip\" or \"user\"", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("Could not lift ban", "error", err.Error())
		writeError(w, "Could not lift ban", http.StatusInternalServerError)
		return
	}
	if !lifted {
		writeError(w, "Ban not found or already lifted", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func checkAccess(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	ip := query.Get("ip")
	if ip == "" {
		writeError(w, "Missing ip parameter", http.StatusBadRequest)
		return
	}

	var userID uint64
	if raw := query.Get("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, "Invalid user_id", http.StatusBadRequest)
			return
		}
		userID = parsed
	}

	var tags []string
	if raw := query.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	decision, err := svc.ResolveAccess(r.Context(), ip, userID, query.Get("action"), tags)
	if err != nil {
		log.Error("Could not resolve access", "error", err.Error())
		writeError(w, "Could not resolve access", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}
