package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Broker API keys are stored encrypted with XChaCha20-Poly1305 and only
// decrypted in memory right before a connector is built.

func cipherFromConfig() (key []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(GetConfig().BrokerCRKey)
	if err != nil {
		return nil, fmt.Errorf("invalid broker credentials key: %w", err)
	}
	if len(raw) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("broker credentials key must be %d bytes, got %d", chacha20poly1305.KeySize, len(raw))
	}
	return raw, nil
}

// EncryptString seals a plaintext credential for storage. Output is
// base64(nonce || ciphertext).
func EncryptString(plaintext string) (string, error) {
	key, err := cipherFromConfig()
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a credential sealed by EncryptString.
func DecryptString(encoded string) (string, error) {
	key, err := cipherFromConfig()
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted credential encoding: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("encrypted credential too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}
