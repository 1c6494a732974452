// Package kdf implements the two key derivation primitives the vault
// engine is built on: Argon2id for current-format vaults, and PBKDF2
// for the legacy formats the opener must still be able to read.
package kdf

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// ErrKdfUnavailable is returned only when the host environment cannot
// supply the underlying primitive. It is never returned for a
// value-dependent reason (bad password, bad salt length, ...).
var ErrKdfUnavailable = errors.New("kdf: primitive unavailable")

// Argon2id parameters fixed for all V3/V3.5 vault keys.
const (
	Argon2Time      uint32 = 3
	Argon2MemoryKiB uint32 = 64 * 1024
	Argon2Threads   uint8  = 1
	Argon2KeyLen    uint32 = 32
)

// Legacy PBKDF2 configurations used by the vault opener's strategy
// ladder (see internal/sealer).
const (
	IterationsV2V1 = 210000
	IterationsV0   = 100000
)

// DomainSeparatorV1 is prepended to the on-disk salt for the
// "domain-separated" legacy PBKDF2 strategies.
const DomainSeparatorV1 = "BASTION_VAULT_V1::"

// Argon2idDerive derives a 32-byte key from password and salt using the
// fixed parameters above.
func Argon2idDerive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, Argon2Time, Argon2MemoryKiB, Argon2Threads, Argon2KeyLen)
}

// HashKind selects the HMAC hash underlying PBKDF2.
type HashKind int

const (
	SHA256 HashKind = iota
	SHA512
)

func newHash(kind HashKind) func() hash.Hash {
	switch kind {
	case SHA512:
		return sha512.New
	default:
		return sha256.New
	}
}

// PBKDF2Derive derives length bytes from password and salt using the
// given hash and iteration count.
func PBKDF2Derive(password, salt []byte, iterations int, kind HashKind, length int) []byte {
	return pbkdf2.Key(password, salt, iterations, length, newHash(kind))
}

// DomainSeparatedSalt returns the salt used by the "domain-separated"
// legacy open strategies: the 18-byte ASCII prefix concatenated with
// the on-disk salt.
func DomainSeparatedSalt(saltOnDisk []byte) []byte {
	out := make([]byte, 0, len(DomainSeparatorV1)+len(saltOnDisk))
	out = append(out, []byte(DomainSeparatorV1)...)
	out = append(out, saltOnDisk...)
	return out
}
