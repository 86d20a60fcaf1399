package security

import (
	"testing"
	"time"
)

func TestTokenIssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 15*time.Minute)

	token, expiresAt, err := issuer.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Error("expiry should be in the future")
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "user@example.com")
	}
}

func TestTokenRejectedByOtherSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Minute)
	other := NewTokenIssuer("secret-b", time.Minute)

	token, _, err := issuer.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Validate(token); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	// NewTokenIssuer replaces non-positive TTLs with the default, so build
	// the issuer directly with a tiny lifetime and wait it out.
	issuer := &TokenIssuer{secret: []byte("test-secret"), ttl: time.Millisecond}

	token, _, err := issuer.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Validate(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	if _, err := issuer.Validate("not.a.jwt"); err == nil {
		t.Error("garbage token should not validate")
	}
}
