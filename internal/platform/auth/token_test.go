package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/expohall/expohall-api/internal/platform/auth"
)

func TestNewMagicToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := auth.NewMagicToken()
		if err != nil {
			t.Fatalf("NewMagicToken: %v", err)
		}
		// 32 bytes, base64url without padding
		if len(tok) != 43 {
			t.Fatalf("token length = %d, want 43", len(tok))
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token %q is not URL-safe", tok)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestMagicTokenExpiry(t *testing.T) {
	ttl := 336 * time.Hour
	exp := auth.MagicTokenExpiry(ttl)

	if exp.Location() != time.UTC {
		t.Errorf("expiry not in UTC: %v", exp.Location())
	}
	want := time.Now().UTC().Add(ttl)
	if d := exp.Sub(want); d < -time.Second || d > time.Second {
		t.Errorf("expiry off by %v", d)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	const secret = "test-secret"

	tok, err := auth.NewCompanySession(42, "booth@example.com", secret, time.Hour)
	if err != nil {
		t.Fatalf("NewCompanySession: %v", err)
	}

	claims, err := auth.Parse(tok, secret)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != 42 || claims.Email != "booth@example.com" || claims.Role != "company" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := auth.Parse(tok, "other-secret"); err == nil {
		t.Error("token parsed with wrong secret")
	}
}

func TestAdminSessionRole(t *testing.T) {
	tok, err := auth.NewAdminSession(1, "root@example.com", "s", time.Hour)
	if err != nil {
		t.Fatalf("NewAdminSession: %v", err)
	}
	claims, err := auth.Parse(tok, "s")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Role != "admin" || claims.Scope != "admin:full" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	tok, err := auth.NewAccessToken(1, "a@b.c", "company", "", "s", -time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := auth.Parse(tok, "s"); err == nil {
		t.Error("expired token accepted")
	}
}
