// Package sealer implements the vault sealer/opener (§4.3): it turns a
// vaultstate.State and a password into a single opaque, versioned,
// base64 blob, and back, trying every legacy strategy a previously
// produced blob could have been sealed with.
package sealer

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/bastion-vault/bastion/internal/aead"
	"github.com/bastion-vault/bastion/internal/kdf"
	"github.com/bastion-vault/bastion/internal/serial"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

// Header bytes identifying the version ladder. Absence of a header
// (bare [salt][iv][ciphertext]) indicates a pre-V2 blob.
const (
	headerMagic = "BSTN"
	versionV4   = 0x04 // current: Argon2id + frame/pad
	versionV3   = 0x03 // Argon2id, no framing
	versionV2   = 0x02 // PBKDF2-210k domain-separated, headered
)

const (
	saltLength = 16
)

var (
	// ErrCorruptBlob is returned for invalid base64, an overall
	// length shorter than header+salt+IV+tag, or an unrecognized
	// version byte after the header magic.
	ErrCorruptBlob = errors.New("sealer: corrupt blob")
	// ErrCorruptState is returned when AEAD authentication succeeded
	// but the post-frame JSON failed to parse.
	ErrCorruptState = errors.New("sealer: corrupt state after decrypt")
	// ErrOpenFailed is returned when every strategy in the ladder
	// rejected authentication. It is, by design, indistinguishable
	// from a wrong password.
	ErrOpenFailed = errors.New("sealer: open failed (wrong password or corrupt blob)")
)

// minCiphertextLen is the minimum length of a valid ciphertext: the
// GCM tag alone, which is what an empty unframed plaintext encrypts to.
const minCiphertextLen = aead.TagLength

// Seal encodes state, frames it, derives an Argon2id key over a fresh
// salt, encrypts it under a fresh IV, and returns the base64-encoded
// V4 blob.
func Seal(state *vaultstate.State, password []byte) (string, error) {
	payload := serial.CanonicalSerialize(state)
	framed := serial.Frame(payload)

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := kdf.Argon2idDerive(password, salt)
	defer aead.Zero(key)

	iv, ciphertext, err := aead.SealFresh(key, framed)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, 5+saltLength+aead.IVLength+len(ciphertext))
	out = append(out, []byte(headerMagic)...)
	out = append(out, versionV4)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenResult is returned by Open on success.
type OpenResult struct {
	State         *vaultstate.State
	SourceVersion int
	Legacy        bool
}

// strategy describes one entry in the open ladder (§4.3 table).
type strategy struct {
	sourceVersion int
	deriveKey     func(password, salt []byte) []byte
	deframe       bool
}

func argon2Strategy(sv int, deframe bool) strategy {
	return strategy{
		sourceVersion: sv,
		deriveKey:     kdf.Argon2idDerive,
		deframe:       deframe,
	}
}

func pbkdf2Strategy(sv, iterations int, domainSeparated bool) strategy {
	return strategy{
		sourceVersion: sv,
		deriveKey: func(password, salt []byte) []byte {
			effectiveSalt := salt
			if domainSeparated {
				effectiveSalt = kdf.DomainSeparatedSalt(salt)
			}
			return kdf.PBKDF2Derive(password, effectiveSalt, iterations, kdf.SHA256, aead.KeyLength)
		},
		deframe: false,
	}
}

// Open tries strategies in the order of §4.3's table; the first that
// authenticates wins. If the blob carries a recognized header byte,
// only the matching strategy is attempted — legacy strategies are
// tried only when no header is present.
func Open(blob string, password []byte) (*OpenResult, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrCorruptBlob
	}

	headered := len(raw) >= 5 && string(raw[:4]) == headerMagic
	var version byte
	var rest []byte
	if headered {
		version = raw[4]
		rest = raw[5:]
	} else {
		rest = raw
	}

	if len(rest) < saltLength+aead.IVLength+minCiphertextLen {
		return nil, ErrCorruptBlob
	}

	salt := rest[:saltLength]
	iv := rest[saltLength : saltLength+aead.IVLength]
	ciphertext := rest[saltLength+aead.IVLength:]

	var candidates []strategy
	if headered {
		switch version {
		case versionV4:
			candidates = []strategy{argon2Strategy(4, true)}
		case versionV3:
			candidates = []strategy{argon2Strategy(3, false)}
		case versionV2:
			candidates = []strategy{pbkdf2Strategy(2, kdf.IterationsV2V1, true)}
		default:
			return nil, ErrCorruptBlob
		}
	} else {
		candidates = []strategy{
			pbkdf2Strategy(1, kdf.IterationsV2V1, true),
			pbkdf2Strategy(0, kdf.IterationsV2V1, false),
			pbkdf2Strategy(0, kdf.IterationsV0, false),
		}
	}

	for _, strat := range candidates {
		key := strat.deriveKey(password, salt)
		plaintext, err := aead.Open(key, iv, ciphertext)
		aead.Zero(key)
		if err != nil {
			continue
		}

		payload := plaintext
		if strat.deframe {
			payload, err = serial.Deframe(plaintext)
			if err != nil {
				return nil, err
			}
		}

		state, err := parseState(payload)
		if err != nil {
			return nil, ErrCorruptState
		}

		return &OpenResult{
			State:         state,
			SourceVersion: strat.sourceVersion,
			Legacy:        strat.sourceVersion < 4,
		}, nil
	}

	return nil, ErrOpenFailed
}

// parseState decodes the canonical JSON-like text back into a State.
// The canonical encoding is a valid subset of JSON, so encoding/json
// can parse it even though it was not used to produce it.
func parseState(payload []byte) (*vaultstate.State, error) {
	var s vaultstate.State
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	if s.Locker == nil {
		s.Locker = []vaultstate.Resonance{}
	}
	if s.Contacts == nil {
		s.Contacts = []vaultstate.Contact{}
	}
	if s.Notes == nil {
		s.Notes = []vaultstate.Note{}
	}
	if s.Configs == nil {
		s.Configs = []vaultstate.Config{}
	}
	return &s, nil
}
