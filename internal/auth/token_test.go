package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "super-secret-test-key"

func TestGenerateAndParseToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	userID := uuid.New()

	token, err := issuer.Generate(userID, "coach", "trainer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != userID {
		t.Errorf("UserID: got %s, want %s", got, userID)
	}
	if claims.Role != "trainer" {
		t.Errorf("Role: got %q, want %q", claims.Role, "trainer")
	}
	if claims.Username != "coach" {
		t.Errorf("Username: got %q, want %q", claims.Username, "coach")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer(testSecret).Generate(uuid.New(), "u", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, _, err := NewTokenIssuer("wrong-secret").Parse(token); err == nil {
		t.Fatal("expected error for invalid secret, got nil")
	}
}

func TestParseToken_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	issuer.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	token, err := issuer.Generate(uuid.New(), "u", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, _, err := NewTokenIssuer(testSecret).Parse(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	if _, _, err := NewTokenIssuer(testSecret).Parse("not.a.real.token"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}
