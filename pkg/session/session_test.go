package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestSessionExposesClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{
		"sub": "user-7",
		"exp": exp.Unix(),
	})

	s := New(tok)
	if !s.HasToken() {
		t.Fatal("expected token to be held")
	}
	if s.Subject() != "user-7" {
		t.Fatalf("unexpected subject %q", s.Subject())
	}
	if !s.ExpiresAt().Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, s.ExpiresAt())
	}
}

func TestExpiredReflectsExpClaim(t *testing.T) {
	past := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	future := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	if !New(past).Expired(time.Now()) {
		t.Fatal("expected past exp to report expired")
	}
	if New(future).Expired(time.Now()) {
		t.Fatal("expected future exp to report not expired")
	}
}

func TestOpaqueTokenKeptWithoutClaims(t *testing.T) {
	s := New("  opaque-api-key  ")
	if s.Token() != "opaque-api-key" {
		t.Fatalf("expected trimmed opaque token, got %q", s.Token())
	}
	if s.Subject() != "" {
		t.Fatalf("expected no subject for opaque token, got %q", s.Subject())
	}
	if s.Expired(time.Now()) {
		t.Fatal("opaque token must never report expired")
	}
}

func TestEmptyToken(t *testing.T) {
	s := New("")
	if s.HasToken() {
		t.Fatal("expected no token")
	}
	if s.Expired(time.Now()) {
		t.Fatal("empty session must not report expired")
	}
}
