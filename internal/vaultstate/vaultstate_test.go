package vaultstate

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesDistinctEntropy(t *testing.T) {
	s1, err := New()
	require.NoError(t, err)
	s2, err := New()
	require.NoError(t, err)

	assert.NotEqual(t, s1.Entropy, s2.Entropy)
	raw, err := hex.DecodeString(s1.Entropy)
	require.NoError(t, err)
	assert.Len(t, raw, EntropyLength)
}

func TestNewInitializesEmptyCollections(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Version)
	assert.Empty(t, s.Configs)
	assert.Empty(t, s.Notes)
	assert.Empty(t, s.Contacts)
	assert.Empty(t, s.Locker)
}

func TestTouchIncrementsVersionAndBumpsTimestamp(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	before := s.LastModified
	v := s.Version
	s.Touch()
	assert.Equal(t, v+1, s.Version)
	assert.GreaterOrEqual(t, s.LastModified, before)
}

func TestAddConfigAssignsIDAndTimestamps(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	v := s.Version

	c := s.AddConfig(Config{Name: "github", Username: "alice", Length: 20})
	assert.NotEmpty(t, c.ID)
	assert.NotZero(t, c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.Equal(t, v+1, s.Version)
	assert.Len(t, s.Configs, 1)
}

func TestAddConfigPreservesSuppliedID(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	c := s.AddConfig(Config{ID: "fixed-id", Name: "aws"})
	assert.Equal(t, "fixed-id", c.ID)
}

func TestFindConfigReturnsIndexOrNegativeOne(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	c := s.AddConfig(Config{Name: "github"})
	assert.Equal(t, 0, s.FindConfig(c.ID))
	assert.Equal(t, -1, s.FindConfig("does-not-exist"))
}

func TestRotateConfigIncrementsVersionField(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	c := s.AddConfig(Config{Name: "github"})

	require.NoError(t, s.RotateConfig(c.ID))
	i := s.FindConfig(c.ID)
	assert.Equal(t, 1, s.Configs[i].Version)
}

func TestRotateConfigUnknownIDErrors(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.Error(t, s.RotateConfig("missing"))
}

func TestRemoveConfigDeletesEntry(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	a := s.AddConfig(Config{Name: "a"})
	b := s.AddConfig(Config{Name: "b"})

	require.NoError(t, s.RemoveConfig(a.ID))
	assert.Equal(t, -1, s.FindConfig(a.ID))
	assert.NotEqual(t, -1, s.FindConfig(b.ID))
	assert.Len(t, s.Configs, 1)
}

func TestRemoveConfigUnknownIDErrors(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.Error(t, s.RemoveConfig("missing"))
}

func TestAddResonanceAssignsIDAndTimestamp(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	r := s.AddResonance(Resonance{Label: "contract.pdf", Size: 1024})
	assert.NotEmpty(t, r.ID)
	assert.NotZero(t, r.Timestamp)
	assert.Len(t, s.Locker, 1)
}

func TestFindResonanceFoundAndNotFound(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	r := s.AddResonance(Resonance{Label: "x"})

	found, ok := s.FindResonance(r.ID)
	assert.True(t, ok)
	assert.Equal(t, r.ID, found.ID)

	_, ok = s.FindResonance("missing")
	assert.False(t, ok)
}

func TestNewFromEntropyReproducesGivenEntropy(t *testing.T) {
	original, err := New()
	require.NoError(t, err)

	rebuilt, err := NewFromEntropy(original.Entropy)
	require.NoError(t, err)
	assert.Equal(t, original.Entropy, rebuilt.Entropy)
	assert.Empty(t, rebuilt.Configs)
}

func TestNewFromEntropyRejectsMalformedHex(t *testing.T) {
	_, err := NewFromEntropy("not-hex")
	assert.Error(t, err)
}

func TestNewFromEntropyRejectsWrongLength(t *testing.T) {
	_, err := NewFromEntropy("aabb")
	assert.Error(t, err)
}

func TestSetEntropyAlwaysFails(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetEntropy(hex.EncodeToString(make([]byte, EntropyLength))), ErrEntropyImmutable)
}

func TestEqualDetectsDivergence(t *testing.T) {
	s1, err := New()
	require.NoError(t, err)
	s2, err := New()
	require.NoError(t, err)

	assert.True(t, s1.Equal(s1))
	assert.False(t, s1.Equal(s2)) // distinct random entropy
	assert.False(t, s1.Equal(nil))

	dup := *s1
	assert.True(t, s1.Equal(&dup))

	dup.AddConfig(Config{Name: "extra"})
	assert.False(t, s1.Equal(&dup))
}
