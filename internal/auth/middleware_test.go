package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIsAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	adminToken, err := IssueToken(1, "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	userToken, err := IssueToken(2, "user")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"non-admin", "Bearer " + userToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			IsAdmin(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestUserIDFromRequest(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	token, err := IssueToken(42, "user")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if got := UserIDFromRequest(req); got != 42 {
		t.Fatalf("user id = %d, want 42", got)
	}

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserIDFromRequest(anon); got != 0 {
		t.Fatalf("anonymous user id = %d, want 0", got)
	}
}
