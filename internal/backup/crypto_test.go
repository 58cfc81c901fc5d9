package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	if !bytes.Equal(DeriveKey("caña", salt), DeriveKey("caña", salt)) {
		t.Error("same passphrase and salt should produce the same key")
	}
	if bytes.Equal(DeriveKey("caña", salt), DeriveKey("jarra", salt)) {
		t.Error("different passphrases should produce different keys")
	}
	if n := len(DeriveKey("caña", salt)); n != keySize {
		t.Errorf("key length = %d, want %d", n, keySize)
	}
}

func TestSealOpen(t *testing.T) {
	original := []byte("SQLite format 3\x00 pretend database bytes")

	sealed, err := Seal(original, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, original) {
		t.Error("sealed output leaks plaintext")
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed output should start with the magic header")
	}

	again, _ := Seal(original, "correct horse")
	if bytes.Equal(sealed, again) {
		t.Error("two seals should use different salts and nonces")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("round trip = %q, want %q", got, original)
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, _ := Seal([]byte("data"), "right")
	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrPassphrase) {
		t.Errorf("err = %v, want ErrPassphrase", err)
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, _ := Seal([]byte("data"), "right")
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, "right"); !errors.Is(err, ErrPassphrase) {
		t.Errorf("err = %v, want ErrPassphrase", err)
	}
}

func TestOpenNotSealed(t *testing.T) {
	if _, err := Open([]byte("short"), "x"); !errors.Is(err, ErrNotSealed) {
		t.Errorf("err = %v, want ErrNotSealed", err)
	}
	if _, err := Open(bytes.Repeat([]byte{'A'}, 64), "x"); !errors.Is(err, ErrNotSealed) {
		t.Errorf("err = %v, want ErrNotSealed", err)
	}
}

func TestSealEmptyPassphrase(t *testing.T) {
	if _, err := Seal([]byte("data"), ""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}
