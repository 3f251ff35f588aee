// Package cryptox seals secrets (OAuth tokens) before they reach storage and
// derives purpose-bound keys from the single server secret.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each purpose yields an independent key from the same secret.
const (
	PurposeTokenSealing = "dataimport/token-sealing/v1"
	PurposeOAuthState   = "dataimport/oauth-state/v1"
)

var ErrEmptySecret = errors.New("empty secret")

// DeriveKey expands secret into a 32-byte key bound to purpose using
// HKDF-SHA256.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sealer encrypts and decrypts small payloads with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer for the given 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromSecret derives the token-sealing key from secret.
func NewSealerFromSecret(secret string) (*Sealer, error) {
	key, err := DeriveKey([]byte(secret), PurposeTokenSealing)
	if err != nil {
		return nil, err
	}
	return NewSealer(key)
}

// Seal encrypts plaintext with a fresh random nonce. The ciphertext and
// nonce are returned separately, matching the storage layout.
func (s *Sealer) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return s.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open reverses Seal. Tampered ciphertext or a wrong key yields an error.
func (s *Sealer) Open(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
