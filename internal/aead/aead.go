// Package aead wraps AES-256-GCM, the sole authenticated encryption
// primitive used throughout the vault engine (sealing, file locking,
// key wrapping for Shamir shares).
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
)

const (
	// KeyLength is the AES-256 key size in bytes.
	KeyLength = 32
	// IVLength is the GCM nonce size in bytes.
	IVLength = 12
	// TagLength is the GCM authentication tag size in bytes.
	TagLength = 16
)

// ErrAuth is returned whenever a GCM authentication tag fails to
// verify, whether due to a wrong key, a wrong IV, or tampered
// ciphertext. The engine never distinguishes these cases.
var ErrAuth = errors.New("aead: authentication failed")

// ErrUnavailable is returned only if the host cannot supply AES-GCM.
var ErrUnavailable = errors.New("aead: primitive unavailable")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, errors.New("aead: key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrUnavailable
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrUnavailable
	}
	return gcm, nil
}

// NewIV draws a fresh 12-byte IV from the host CSPRNG. A fresh IV is
// generated at every seal boundary; callers must never reuse one.
func NewIV() ([]byte, error) {
	iv := make([]byte, IVLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, ErrUnavailable
	}
	return iv, nil
}

// Seal encrypts plaintext under key/iv with no associated data,
// returning ciphertext‖tag concatenated.
func Seal(key, iv, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVLength {
		return nil, errors.New("aead: iv must be 12 bytes")
	}
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

// Open decrypts ciphertext‖tag under key/iv, returning ErrAuth on any
// tag mismatch.
func Open(key, iv, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVLength {
		return nil, errors.New("aead: iv must be 12 bytes")
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuth
	}
	return plaintext, nil
}

// SealFresh generates a fresh IV and seals plaintext under key,
// returning iv and ciphertext‖tag separately.
func SealFresh(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	iv, err = NewIV()
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = Seal(key, iv, plaintext)
	if err != nil {
		return nil, nil, err
	}
	return iv, ciphertext, nil
}

// Zero overwrites data with zeros. The sealer uses it on derived keys
// once they are no longer needed.
// Uses a compiler-barrier comparison so the zeroing is not optimized
// away, matching the technique used throughout this codebase.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
	dummy := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, dummy)
}
