package security

import (
	"context"
	"testing"
	"time"

	"contest_registry/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Fatal("expected password to match")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("expected mismatch")
	}
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	InitJWT()

	token, err := GenerateToken(42, "editor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	decoded, err := jwtauth.VerifyToken(TokenAuth, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, err := decoded.AsMap(context.Background())
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	id, err := GetUserIDFromClaims(claims)
	if err != nil || id != 42 {
		t.Fatalf("user id = %d, %v", id, err)
	}
	role, err := GetUserRoleFromClaims(claims)
	if err != nil || role != "editor" {
		t.Fatalf("role = %q, %v", role, err)
	}
}

func TestGetUserIDFromClaimsRejectsGarbage(t *testing.T) {
	if _, err := GetUserIDFromClaims(map[string]interface{}{"user_id": "abc"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := GetUserIDFromClaims(map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing claim")
	}
}
