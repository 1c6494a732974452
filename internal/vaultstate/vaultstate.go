// Package vaultstate defines the in-memory record the vault engine
// seals and opens: the master entropy, the monotonic version, and the
// four ordered sequences of entries a vault holds.
package vaultstate

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntropyLength is the size in bytes of the master entropy.
const EntropyLength = 32

// ErrEntropyImmutable is returned by any attempt to change entropy on
// a state that already has one.
var ErrEntropyImmutable = errors.New("vaultstate: entropy is immutable after creation")

// Config is a login spec: a single site/service credential entry.
// Field order here matches the canonical serialization order in §4.4
// of the specification. The JSON tags are used when the sealer decodes
// an opened payload; the canonical encoder in internal/serial does not
// use encoding/json.
type Config struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Category       string `json:"category"`
	Version        int    `json:"version"`
	Length         int    `json:"length"`
	UseSymbols     bool   `json:"useSymbols"`
	CustomPassword string `json:"customPassword"`
	BreachStats    int    `json:"breachStats"`
	Compromised    bool   `json:"compromised"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
	UsageCount     int    `json:"usageCount"`
	SortOrder      int    `json:"sortOrder"`

	// TOTPSecret is a supplemented field (base32 TOTP secret, empty by
	// default). It is not part of the base specification's field list
	// and is appended after the fixed schema, sorted lexicographically
	// among unknown fields, per §4.4.
	TOTPSecret string `json:"totpSecret,omitempty"`
}

// Note is a freeform secure note.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Contact is a stored contact record.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Resonance is a locker registry entry: the record pairing a
// file-locker artifact's identifier with its key, hash, and metadata.
type Resonance struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
	Size      int64  `json:"size"`
	Mime      string `json:"mime"`
	Key       string `json:"key"`  // hex-encoded 32-byte AES key
	Hash      string `json:"hash"` // hex-encoded SHA-256 of plaintext
	Embedded  bool   `json:"embedded"`
}

// State is the full vault state: the record that is canonically
// serialized, framed, and sealed.
type State struct {
	Version      int    `json:"version"`
	Entropy      string `json:"entropy"` // hex of the 32-byte master entropy
	Flags        int    `json:"flags"`
	LastModified int64  `json:"lastModified"`

	Locker   []Resonance `json:"locker"`
	Contacts []Contact   `json:"contacts"`
	Notes    []Note      `json:"notes"`
	Configs  []Config    `json:"configs"`
}

// New creates a fresh vault state with newly generated master entropy.
// Entropy is generated exactly once, here, and is never regenerated by
// any other operation in this package.
func New() (*State, error) {
	entropy := make([]byte, EntropyLength)
	if _, err := rand.Read(entropy); err != nil {
		return nil, err
	}
	now := nowMillis()
	return &State{
		Version:      1,
		Entropy:      hex.EncodeToString(entropy),
		Flags:        0,
		LastModified: now,
		Locker:       []Resonance{},
		Contacts:     []Contact{},
		Notes:        []Note{},
		Configs:      []Config{},
	}, nil
}

// NewFromEntropy creates a fresh, empty vault state seeded with a
// previously generated entropy value (hex-encoded), instead of
// generating new entropy. This is how a shard backup ceremony
// recovery rebuilds a vault: the master entropy recovered from
// trustee shares reproduces every password internal/generator ever
// derived from it, even though the original vault file and its
// collections are gone.
func NewFromEntropy(entropyHex string) (*State, error) {
	raw, err := hex.DecodeString(entropyHex)
	if err != nil {
		return nil, fmt.Errorf("vaultstate: invalid entropy: %w", err)
	}
	if len(raw) != EntropyLength {
		return nil, fmt.Errorf("vaultstate: entropy must be %d bytes, got %d", EntropyLength, len(raw))
	}
	return &State{
		Version:      1,
		Entropy:      entropyHex,
		Flags:        0,
		LastModified: nowMillis(),
		Locker:       []Resonance{},
		Contacts:     []Contact{},
		Notes:        []Note{},
		Configs:      []Config{},
	}, nil
}

// SetEntropy always fails: entropy is fixed at creation and never
// changes for the life of a vault.
func (s *State) SetEntropy(entropyHex string) error {
	return ErrEntropyImmutable
}

// nowMillis is the single place that reads wall-clock time so tests can
// reason about it; the spec measures lastModified in milliseconds since
// epoch.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Touch bumps version and lastModified. Every mutation on an open vault
// calls this so that version strictly increases.
func (s *State) Touch() {
	s.Version++
	s.LastModified = nowMillis()
}

// AddConfig appends a new login spec with a fresh random ID, preserving
// insertion order.
func (s *State) AddConfig(c Config) Config {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := nowMillis()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.Configs = append(s.Configs, c)
	s.Touch()
	return c
}

// FindConfig returns the index of the config with the given ID, or -1.
func (s *State) FindConfig(id string) int {
	for i := range s.Configs {
		if s.Configs[i].ID == id {
			return i
		}
	}
	return -1
}

// RotateConfig increments a single login spec's rotation counter,
// which deterministically changes its derived password for the same
// (service, user) pair without touching customPassword.
func (s *State) RotateConfig(id string) error {
	i := s.FindConfig(id)
	if i < 0 {
		return errors.New("vaultstate: config not found")
	}
	s.Configs[i].Version++
	s.Configs[i].UpdatedAt = nowMillis()
	s.Touch()
	return nil
}

// RemoveConfig deletes the config with the given ID, preserving the
// order of the remaining entries.
func (s *State) RemoveConfig(id string) error {
	i := s.FindConfig(id)
	if i < 0 {
		return errors.New("vaultstate: config not found")
	}
	s.Configs = append(s.Configs[:i], s.Configs[i+1:]...)
	s.Touch()
	return nil
}

// AddResonance appends a new locker registry entry, preserving
// insertion order.
func (s *State) AddResonance(r Resonance) Resonance {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = nowMillis()
	}
	s.Locker = append(s.Locker, r)
	s.Touch()
	return r
}

// FindResonance returns the registry entry with the given ID, or false.
func (s *State) FindResonance(id string) (Resonance, bool) {
	for _, r := range s.Locker {
		if r.ID == id {
			return r, true
		}
	}
	return Resonance{}, false
}

// Equal reports whether two states are logically equal. It is used by
// tests asserting round-trip fidelity; production code should instead
// compare canonical serializations.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Version != o.Version || s.Entropy != o.Entropy || s.Flags != o.Flags || s.LastModified != o.LastModified {
		return false
	}
	if len(s.Configs) != len(o.Configs) || len(s.Notes) != len(o.Notes) ||
		len(s.Contacts) != len(o.Contacts) || len(s.Locker) != len(o.Locker) {
		return false
	}
	for i := range s.Configs {
		if s.Configs[i] != o.Configs[i] {
			return false
		}
	}
	for i := range s.Notes {
		if s.Notes[i] != o.Notes[i] {
			return false
		}
	}
	for i := range s.Contacts {
		if s.Contacts[i] != o.Contacts[i] {
			return false
		}
	}
	for i := range s.Locker {
		if s.Locker[i] != o.Locker[i] {
			return false
		}
	}
	return true
}
