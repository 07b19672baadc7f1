package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"  Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("extractBearerToken(%q): expected error", tc.header)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("extractBearerToken(%q) = %q, %v; want %q", tc.header, got, err, tc.want)
		}
	}
}

func TestWithAuthAttachesActor(t *testing.T) {
	t.Setenv("RELIEF_AUTH_SECRET", "test-secret")
	identity.ResetSecretForTests()

	user := identity.User{ID: "u-1", FullName: "Owen Clarke", Role: identity.RoleLogisticsOfficer, HubID: "hub-1"}
	token, err := identity.GenerateToken(user, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	api := &API{}
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := identity.ActorFromContext(r.Context())
		if !ok {
			t.Fatal("actor missing from context")
		}
		if got.ID != "u-1" || got.Role != identity.RoleLogisticsOfficer || got.HubID != "hub-1" {
			t.Fatalf("unexpected actor: %+v", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/needs-lists", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestWithAuthRejectsBadToken(t *testing.T) {
	t.Setenv("RELIEF_AUTH_SECRET", "test-secret")
	identity.ResetSecretForTests()

	api := &API{}
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/needs-lists", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPublicPathsSkipAuth(t *testing.T) {
	api := &API{}
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/auth/token"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("path %s: expected 200, got %d", path, rr.Code)
		}
	}
}
