package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"ipwarden/internal/auth"
	"ipwarden/internal/trust"
)

// svc is set once by OpenRoutes; route tests assign it directly.
var svc *trust.Service

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newRouter() *http.ServeMux {
	router := http.NewServeMux()

	// Wiki-facing surface.
	router.HandleFunc("POST /track", trackVisit)
	router.HandleFunc("POST /activity", recordActivity)
	router.HandleFunc("GET /access", checkAccess)

	// Moderation surface. Reads only need a signed-in account; anything that
	// mutates state stays admin-only.
	router.Handle("GET /profiles/{key}", auth.RequireAuth(http.HandlerFunc(getProfile)))
	router.Handle("POST /profiles/{key}/refresh", auth.IsAdmin(http.HandlerFunc(refreshProfile)))
	router.Handle("GET /review/{page}", auth.RequireAuth(http.HandlerFunc(getReviewPage)))
	router.Handle("POST /profiles/{hash}/safe", auth.IsAdmin(http.HandlerFunc(markSafe)))
	router.Handle("POST /profiles/{hash}/banned", auth.IsAdmin(http.HandlerFunc(markBanned)))
	router.Handle("POST /profiles/{hash}/clear", auth.IsAdmin(http.HandlerFunc(clearOverride)))

	router.Handle("POST /bans/ip", auth.IsAdmin(http.HandlerFunc(createIPBan)))
	router.Handle("POST /bans/user", auth.IsAdmin(http.HandlerFunc(createUserBan)))
	router.Handle("POST /bans/lift", auth.IsAdmin(http.HandlerFunc(liftBan)))

	return router
}

func OpenRoutes(port int, service *trust.Service) error {
	svc = service

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: enableCORS(newRouter()),
	}

	log.Infof("Starting ipwarden backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
