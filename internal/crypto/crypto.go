// Package crypto seals configuration secrets at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingKey      = errors.New("encryption key is required")
	ErrInvalidKey      = errors.New("encryption key must be 32 bytes, raw or base64")
	ErrSealedTooShort  = errors.New("sealed value too short")
	ErrPurposeMismatch = errors.New("sealed value does not match purpose or key")
)

// PurposeWebhookSecret binds sealed values to the Stripe webhook signing
// secret so ciphertext for another setting cannot be swapped in.
const PurposeWebhookSecret = "stripe-webhook-secret"

// Sealer encrypts values for one purpose. The purpose is authenticated as
// additional data and must match on Open.
type Sealer struct {
	aead    cipher.AEAD
	purpose []byte
}

// NewSealer accepts a 32-byte key, either raw or standard base64 encoded.
func NewSealer(key, purpose string) (*Sealer, error) {
	keyBytes, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead, purpose: []byte(purpose)}, nil
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), s.purpose)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return "", ErrSealedTooShort
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], s.purpose)
	if err != nil {
		return "", ErrPurposeMismatch
	}
	return string(plaintext), nil
}

func decodeKey(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if len(key) == 32 {
		return []byte(key), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(decoded) != 32 {
		return nil, ErrInvalidKey
	}
	return decoded, nil
}
