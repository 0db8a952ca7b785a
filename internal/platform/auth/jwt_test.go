package auth

import (
	"testing"
	"time"

	"pushhook/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	token, err := svc.GenerateAccessToken("user1", "ana@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user1" || claims.Email != "ana@example.com" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	other := NewTokenService(config.JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Hour})
	expired := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: -time.Minute})

	foreign, _ := other.GenerateAccessToken("user1", "")
	old, _ := expired.GenerateAccessToken("user1", "")

	for name, token := range map[string]string{"garbage": "not-a-jwt", "wrong secret": foreign, "expired": old} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}
