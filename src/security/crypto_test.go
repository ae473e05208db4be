package security

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := "PKTEST-abc123-secret"

	sealed, err := EncryptString(secret)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if strings.Contains(sealed, secret) {
		t.Fatal("ciphertext must not contain the plaintext")
	}

	opened, err := DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if opened != secret {
		t.Fatalf("round trip mismatch: %q != %q", opened, secret)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	a, err := EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	b, err := EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same input must differ by nonce")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	sealed, err := EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if _, err := DecryptString("not-base64!!!"); err == nil {
		t.Fatal("expected error for invalid encoding")
	}
	if _, err := DecryptString(sealed[:len(sealed)-8] + "AAAAAAA="); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}
