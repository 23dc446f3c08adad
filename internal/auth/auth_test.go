package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestTOTPTempTokenRoundTrip(t *testing.T) {
	a := New(nil, "test-secret")

	tokenStr, err := a.GenerateTOTPTempToken(42, "alice", true)
	if err != nil {
		t.Fatalf("generate temp token: %v", err)
	}

	claims, err := a.ValidateTOTPTempToken(tokenStr)
	if err != nil {
		t.Fatalf("validate temp token: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || !claims.IsAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTOTPTempTokenRejectsRegularIssuer(t *testing.T) {
	a := New(nil, "test-secret")

	// A token from the regular issuer must not pass the 2FA gate
	now := time.Now()
	claims := &Claims{
		UserID:   1,
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := a.ValidateTOTPTempToken(tokenStr); err == nil {
		t.Error("expected rejection of non-TOTP issuer")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	a := New(nil, "secret-one")
	b := New(nil, "secret-two")

	tokenStr, err := a.GenerateTOTPTempToken(1, "alice", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := b.validateToken(tokenStr); err == nil {
		t.Error("expected signature verification failure")
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/management", nil)
	if got := extractToken(r); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer abc123")
	if got := extractToken(r); got != "abc123" {
		t.Errorf("expected abc123, got %q", got)
	}

	r2 := httptest.NewRequest("GET", "/api/v1/management?token=qp-token", nil)
	if got := extractToken(r2); got != "qp-token" {
		t.Errorf("expected qp-token, got %q", got)
	}
}

func TestNewBackupCodes(t *testing.T) {
	plain, hashed, err := newBackupCodes(10)
	if err != nil {
		t.Fatalf("newBackupCodes: %v", err)
	}
	if len(plain) != 10 || len(hashed) != 10 {
		t.Fatalf("got %d plain, %d hashed", len(plain), len(hashed))
	}

	seen := map[string]bool{}
	for i, code := range plain {
		if len(code) != 8 {
			t.Errorf("code %q is %d chars, want 8", code, len(code))
		}
		if seen[code] {
			t.Errorf("duplicate code %q", code)
		}
		seen[code] = true
		if bcrypt.CompareHashAndPassword([]byte(hashed[i]), []byte(code)) != nil {
			t.Errorf("hash %d does not match its code", i)
		}
	}
}
