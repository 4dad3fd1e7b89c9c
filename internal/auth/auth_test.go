package auth

import (
	"errors"
	"testing"
	"time"

	"quality-backend/internal/config"
)

func testService() *Service {
	return NewService(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "identity.test",
	})
}

func TestValidateToken(t *testing.T) {
	svc := testService()

	userID := uint(7)
	email := "inspector@example.com"

	token, err := svc.SignToken(userID, email, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected user ID %d, got %d", userID, claims.UserID)
	}

	if claims.Email != email {
		t.Errorf("Expected email %s, got %s", email, claims.Email)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := testService()

	token, err := svc.SignToken(1, "test@example.com", -1*time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	_, err = svc.ValidateToken(token)
	if err == nil {
		t.Error("Should reject expired token")
	}
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	other := NewService(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "somewhere-else",
	})

	token, err := other.SignToken(1, "test@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := testService().ValidateToken(token); err == nil {
		t.Error("Should reject token from a different issuer")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	other := NewService(&config.JWTConfig{
		Secret: "some-other-secret",
		Issuer: "identity.test",
	})

	token, err := other.SignToken(1, "test@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := testService().ValidateToken(token); err == nil {
		t.Error("Should reject token signed with a different secret")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := testService().ValidateToken("not-a-token"); err == nil {
		t.Error("Should reject a malformed token")
	}
}
