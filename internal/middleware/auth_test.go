package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quality-backend/internal/auth"
	"quality-backend/internal/config"
)

func authSetup() (*AuthMiddleware, *auth.Service) {
	svc := auth.NewService(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "identity.test",
	})
	return NewAuthMiddleware(svc), svc
}

func TestAuthenticateValidToken(t *testing.T) {
	mw, svc := authSetup()

	token, err := svc.SignToken(42, "inspector@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	var gotUserID uint
	var gotOK bool
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = GetUserID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quality/revisions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !gotOK || gotUserID != 42 {
		t.Errorf("Expected user ID 42 in context, got %d (ok=%v)", gotUserID, gotOK)
	}
}

func TestAuthenticateMissingHeader(t *testing.T) {
	mw, _ := authSetup()

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quality/revisions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateBadHeaderFormat(t *testing.T) {
	mw, svc := authSetup()

	token, _ := svc.SignToken(1, "a@b.c", time.Hour)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached with a malformed header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quality/revisions", nil)
	req.Header.Set("Authorization", "Token "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	mw, svc := authSetup()

	token, err := svc.SignToken(1, "a@b.c", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quality/revisions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
