package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"

	"ipwarden/internal/auth"
	"ipwarden/internal/database"
	"ipwarden/internal/domain"
	"ipwarden/internal/reputation"
	"ipwarden/internal/trust"
)

type stubQuerier struct {
	report *reputation.Report
}

func (q stubQuerier) Query(_ context.Context, _ string) *reputation.Report {
	return q.report
}

func setupRouteTest(t *testing.T) *http.ServeMux {
	t.Helper()
	t.Setenv("JWT_SECRET", "route-test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	if _, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithMigrations(
			domain.IPProfile{},
			domain.IPBan{},
			domain.UserActionBan{},
			domain.IPActivity{},
		),
	); err != nil {
		t.Fatalf("setup test database: %v", err)
	}
	t.Cleanup(func() {
		database.DB = nil
		svc = nil
	})

	svc = trust.NewService(
		trust.WithScheduler(func(task func()) { task() }),
		trust.WithQuerier(stubQuerier{report: &reputation.Report{
			IPAPI: &reputation.IPAPIResult{IsVPN: true},
			Spam:  &reputation.SpamResult{},
			Geo:   &reputation.GeoResult{Country: "NL"},
		}}),
	)

	return newRouter()
}

func adminHeader(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueToken(1, "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + token
}

func TestTrackAndGetProfile(t *testing.T) {
	router := setupRouteTest(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track",
		strings.NewReader(`{"ip":"203.0.113.1","user_agent":"curl/8.4.0"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("track status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"is_bot":true`) {
		t.Fatalf("track body = %s, want bot verdict", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/profiles/203.0.113.1", nil)
	req.Header.Set("Authorization", adminHeader(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"is_vpn":true`) {
		t.Fatalf("profile body = %s, want the refreshed VPN flag", rec.Body.String())
	}
}

func TestTrackRejectsBadInput(t *testing.T) {
	router := setupRouteTest(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track",
		strings.NewReader(`{"ip":"not-an-ip"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track",
		strings.NewReader(`{broken`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	router := setupRouteTest(t)

	for _, target := range []string{"/profiles/203.0.113.1", "/review/1"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401 without a token", target, rec.Code)
		}
	}

	userToken, err := auth.IssueToken(2, "user")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/bans/ip", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for non-admin", rec.Code)
	}

	// Reads only need a signed-in account, not the admin role.
	req = httptest.NewRequest(http.MethodGet, "/review/1", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("review status = %d for signed-in non-admin, want 200", rec.Code)
	}
}

func TestOverrideEndpoints(t *testing.T) {
	router := setupRouteTest(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track",
		strings.NewReader(`{"ip":"203.0.113.2"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("track status = %d", rec.Code)
	}

	hash := svc.Hash("203.0.113.2")
	req := httptest.NewRequest(http.MethodPost, "/profiles/"+hash+"/safe", nil)
	req.Header.Set("Authorization", adminHeader(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("safe status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"safe"`) {
		t.Fatalf("body = %s, want safe status", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/profiles/deadbeef/clear", nil)
	req.Header.Set("Authorization", adminHeader(t))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown hash status = %d, want 404", rec.Code)
	}
}

func TestBanLifecycleOverHTTP(t *testing.T) {
	router := setupRouteTest(t)
	admin := adminHeader(t)

	req := httptest.NewRequest(http.MethodPost, "/bans/ip",
		strings.NewReader(`{"ip":"203.0.113.3","scope":"global","reason":"vandalism"}`))
	req.Header.Set("Authorization", admin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ban status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?ip=203.0.113.3&action=comment", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("access status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"banned":true`) {
		t.Fatalf("access body = %s, want banned", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/bans/lift", strings.NewReader(`{"subject":"ip","id":1}`))
	req.Header.Set("Authorization", admin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("lift status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?ip=203.0.113.3&action=comment", nil))
	if !strings.Contains(rec.Body.String(), `"banned":false`) {
		t.Fatalf("access body = %s, want allowed after lift", rec.Body.String())
	}
}

func TestAccessValidation(t *testing.T) {
	router := setupRouteTest(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without ip", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?ip=203.0.113.4&user_id=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad user_id", rec.Code)
	}
}
