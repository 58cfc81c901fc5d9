package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)

	tok, err := m.Generate("p-1", "device-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.PlayerID != "p-1" || claims.UserID != "device-1" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Subject != "p-1" {
		t.Errorf("subject = %q, want p-1", claims.Subject)
	}
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	issued := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	tok, err := m.Generate("p-1", "device-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	b := NewTokenManager("fedcba9876543210fedcba9876543210", time.Hour)

	tok, _ := a.Generate("p-1", "device-1")
	if _, err := b.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenMissing(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	if _, err := m.Validate(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}
	if _, err := m.Validate("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
