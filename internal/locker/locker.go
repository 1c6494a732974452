// Package locker implements the per-file random key encryption
// described in §4.6: each file gets its own AES-256 key, a
// magic-prefixed binary artifact, and a registry entry the vault keeps
// track of separately from the artifact itself.
package locker

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bastion-vault/bastion/internal/aead"
)

// Magic is the 8-byte prefix every locker artifact begins with.
const Magic = "BASTION1"

// idFieldLength is the fixed, space-padded ASCII width of the id field
// inside an artifact.
const idFieldLength = 36

var (
	// ErrMagic is returned when an artifact's magic bytes do not match.
	ErrMagic = errors.New("locker: bad magic")
	// ErrAuth is returned when the locker's AEAD authentication fails.
	ErrAuth = errors.New("locker: authentication failed")
)

// Registry is the in-vault record describing one encrypted artifact;
// it mirrors vaultstate.Resonance but keeps this package independent
// of the vault state package.
type Registry struct {
	ID        string
	Timestamp int64
	Label     string
	Size      int64
	Mime      string
	Key       string // hex-encoded 32-byte AES key
	Hash      string // hex-encoded SHA-256 of plaintext
	Embedded  bool
}

// Encrypt generates a fresh 36-character id and AES-256 key, encrypts
// bytes under a fresh IV, and returns the on-disk artifact together
// with the registry entry the caller should store in the vault.
func Encrypt(plaintext []byte, label, mime string) (artifact []byte, reg Registry, err error) {
	id := uuid.NewString()
	key := make([]byte, aead.KeyLength)
	if _, err = rand.Read(key); err != nil {
		return nil, Registry{}, err
	}

	sum := sha256.Sum256(plaintext)

	iv, ciphertext, err := aead.SealFresh(key, plaintext)
	if err != nil {
		return nil, Registry{}, err
	}

	artifact = buildArtifact(id, iv, ciphertext)

	reg = Registry{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Label:     label,
		Size:      int64(len(plaintext)),
		Mime:      mime,
		Key:       hex.EncodeToString(key),
		Hash:      hex.EncodeToString(sum[:]),
	}
	return artifact, reg, nil
}

func buildArtifact(id string, iv, ciphertext []byte) []byte {
	out := make([]byte, 0, len(Magic)+idFieldLength+len(iv)+len(ciphertext))
	out = append(out, []byte(Magic)...)
	out = append(out, spacePad(id, idFieldLength)...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return out
}

func spacePad(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

// ArtifactID extracts the 36-char id embedded in an artifact without
// decrypting it, so a caller can resolve a registry entry before
// calling Decrypt.
func ArtifactID(artifact []byte) (string, error) {
	if len(artifact) < len(Magic)+idFieldLength {
		return "", ErrMagic
	}
	if string(artifact[:len(Magic)]) != Magic {
		return "", ErrMagic
	}
	idField := artifact[len(Magic) : len(Magic)+idFieldLength]
	return trimPadding(idField), nil
}

func trimPadding(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// Decrypt verifies the magic, extracts the IV, and decrypts the
// remainder under the given key. The caller is responsible for
// resolving key from a registry entry matching the artifact's id; the
// engine performs no implicit lookup.
func Decrypt(artifact, key []byte) ([]byte, error) {
	headerLen := len(Magic) + idFieldLength
	if len(artifact) < headerLen+aead.IVLength {
		return nil, ErrMagic
	}
	if string(artifact[:len(Magic)]) != Magic {
		return nil, ErrMagic
	}

	iv := artifact[headerLen : headerLen+aead.IVLength]
	ciphertext := artifact[headerLen+aead.IVLength:]

	plaintext, err := aead.Open(key, iv, ciphertext)
	if err != nil {
		return nil, ErrAuth
	}
	return plaintext, nil
}
