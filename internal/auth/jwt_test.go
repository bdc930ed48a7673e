package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("user-1", "teacher", "edclub", "test-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}

	claims, err := Parse(pair.AccessToken, "test-key", "edclub")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Role != "teacher" {
		t.Errorf("role = %q, want teacher", claims.Role)
	}
}

func TestParseWrongKey(t *testing.T) {
	pair, err := Issue("user-1", "student", "edclub", "key-a", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "key-b", "edclub"); err == nil {
		t.Error("expected error for token signed with a different key")
	}
}

func TestParseIssuerMismatch(t *testing.T) {
	pair, err := Issue("user-1", "student", "other-issuer", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "edclub"); err == nil {
		t.Error("expected issuer mismatch error")
	}
}

func TestParseExpired(t *testing.T) {
	pair, err := Issue("user-1", "student", "edclub", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "edclub"); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("not.a.token", "test-key", "edclub"); err == nil {
		t.Error("expected error for malformed token")
	}
}
