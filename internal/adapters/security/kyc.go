package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// KYCDecrypter opens onboarding payloads sealed with XChaCha20-Poly1305.
// Wire format: base64(nonce || ciphertext+tag). Any failure, padding,
// auth or otherwise, surfaces as domain.ErrDecryptionFailed so the
// onboarding flow fails fast without leaking cipher detail.
type KYCDecrypter struct {
	key []byte
}

func NewKYCDecrypter(key []byte) (*KYCDecrypter, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("kyc key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &KYCDecrypter{key: append([]byte(nil), key...)}, nil
}

func (d *KYCDecrypter) Decrypt(_ context.Context, encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: payload is not valid base64", domain.ErrDecryptionFailed)
	}
	if len(raw) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("%w: payload too short", domain.ErrDecryptionFailed)
	}

	aead, err := chacha20poly1305.NewX(d.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	nonce := raw[:chacha20poly1305.NonceSizeX]
	ciphertext := raw[chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

// Encrypt seals a plaintext payload in the decrypter's wire format. Used by
// local tooling and tests to produce inputs the service accepts.
func (d *KYCDecrypter) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(d.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// NewRandomKYCKey generates a fresh 32-byte key for local/dev runtimes where
// a static key is intentionally absent.
func NewRandomKYCKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.New("generate kyc key")
	}
	return key, nil
}
