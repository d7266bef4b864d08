// Package cryptox provides the crypto primitives of the openpass security
// subsystem: an authenticated-encryption envelope, the salted lookup hash
// used to index members by email, and HKDF expansion of the master secret
// into independent key domains.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/openpass-dev/openpass/internal/common"
)

const nonceSize = 12

// Encrypt seals plaintext with AES-256-GCM under key and returns a single
// self-contained envelope: nonce || ciphertext. A fresh random nonce is
// generated per call, so encrypting the same plaintext twice yields
// different envelopes.
//
// The key must be 16, 24, or 32 bytes (AES-128/192/256).
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens an envelope produced by Encrypt. A truncated envelope, a
// flipped bit anywhere in it, or a different key all fail with
// common.ErrIntegrity; no partial plaintext is ever returned.
func Decrypt(envelope, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	if len(envelope) < nonceSize {
		return nil, common.ErrIntegrity
	}

	nonce, ciphertext := envelope[:nonceSize], envelope[nonceSize:]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrIntegrity
	}

	return plaintext, nil
}
