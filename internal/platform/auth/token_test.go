package auth

import (
	"testing"
	"time"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), "clinicbill-test")
	now := time.Now().Truncate(time.Second)

	signed, exp, err := tokens.Issue("user-1", "a@example.com", time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("expected exp %v, got %v", now.Add(time.Hour), exp)
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	got, err := tokens.ExpiresAt(signed)
	if err != nil || !got.Equal(exp) {
		t.Errorf("ExpiresAt = %v, %v; want %v", got, err, exp)
	}
}

func TestTokens_ParseRejectsWrongSecret(t *testing.T) {
	signed, _, err := NewTokens([]byte("one"), "").Issue("u", "e@x.io", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewTokens([]byte("two"), "").Parse(signed); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestTokens_ParseUnverifiedWithoutSecret(t *testing.T) {
	signed, _, err := NewTokens([]byte("one"), "").Issue("u", "e@x.io", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := NewTokens(nil, "").Parse(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "u" {
		t.Errorf("expected subject u, got %s", claims.Subject)
	}
}

func TestTokens_IssueRequiresSecret(t *testing.T) {
	if _, _, err := NewTokens(nil, "").Issue("u", "e", time.Hour, time.Now()); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestTokens_ExpiredTokenStillParses(t *testing.T) {
	tokens := NewTokens([]byte("s"), "")
	signed, _, err := tokens.Issue("u", "e@x.io", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tokens.Parse(signed); err != nil {
		t.Fatalf("expired tokens must still decode for refresh scheduling: %v", err)
	}
}
