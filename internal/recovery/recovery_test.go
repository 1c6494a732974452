package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRecoverRoundTripViaShardStrings(t *testing.T) {
	result, err := Setup("vault-master-entropy", 5, 3)
	require.NoError(t, err)
	require.Len(t, result.Shares, 5)

	shardStrings := []string{result.Shares[0].Shard, result.Shares[2].Shard, result.Shares[4].Shard}
	secret, err := Recover(shardStrings)
	require.NoError(t, err)
	assert.Equal(t, "vault-master-entropy", secret)
}

func TestSetupEachShareHasDistinctMnemonic(t *testing.T) {
	result, err := Setup("x", 4, 2)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, sh := range result.Shares {
		assert.NotEmpty(t, sh.Mnemonic)
		assert.False(t, seen[sh.Mnemonic], "mnemonics should not collide across shares")
		seen[sh.Mnemonic] = true
	}
}

func TestSetupShareMetadataMatchesShard(t *testing.T) {
	result, err := Setup("metadata-check", 5, 3)
	require.NoError(t, err)

	for _, sh := range result.Shares {
		assert.Equal(t, 3, sh.Threshold)
		assert.NotEmpty(t, sh.SetID)
		assert.NotEmpty(t, sh.PayloadHex)
	}
}

func TestRecoverFromMnemonicsRoundTrip(t *testing.T) {
	result, err := Setup("mnemonic-secret", 5, 3)
	require.NoError(t, err)

	entries := make([]MnemonicEntry, 0, 3)
	for _, sh := range []Share{result.Shares[0], result.Shares[1], result.Shares[3]} {
		entries = append(entries, MnemonicEntry{
			Mnemonic:   sh.Mnemonic,
			SetID:      sh.SetID,
			Threshold:  sh.Threshold,
			Index:      sh.Index,
			PayloadHex: sh.PayloadHex,
		})
	}

	secret, err := RecoverFromMnemonics(entries)
	require.NoError(t, err)
	assert.Equal(t, "mnemonic-secret", secret)
}

func TestRecoverFromMnemonicsRejectsTamperedPhrase(t *testing.T) {
	result, err := Setup("tamper-check", 5, 3)
	require.NoError(t, err)

	entries := make([]MnemonicEntry, 0, 3)
	for i, sh := range []Share{result.Shares[0], result.Shares[1], result.Shares[2]} {
		m := sh.Mnemonic
		if i == 0 {
			m = "abandon " + m // corrupt the phrase
		}
		entries = append(entries, MnemonicEntry{
			Mnemonic:   m,
			SetID:      sh.SetID,
			Threshold:  sh.Threshold,
			Index:      sh.Index,
			PayloadHex: sh.PayloadHex,
		})
	}

	_, err = RecoverFromMnemonics(entries)
	assert.Error(t, err)
}

func TestRecoverBelowThresholdFails(t *testing.T) {
	result, err := Setup("below-threshold", 5, 3)
	require.NoError(t, err)

	_, err = Recover([]string{result.Shares[0].Shard, result.Shares[1].Shard})
	assert.Error(t, err)
}

func TestShardToMnemonicRejectsNonCanonicalString(t *testing.T) {
	_, _, err := shardToMnemonic("not-a-shard")
	assert.ErrorIs(t, err, ErrNotCanonicalShard)
}

func TestMnemonicToShardRejectsBadChecksum(t *testing.T) {
	_, err := mnemonicToShard("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		shardInfo{SetID: "aabbccdd", K: 3, X: 1, PayloadHex: "00"})
	// "about" ends the 12-word all-zero BIP39 vector; the 24-word one
	// ends in "art", so this phrase fails only its checksum.
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
	// A word outside the wordlist is rejected as well.
	_, err = mnemonicToShard("zzzznotaword abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		shardInfo{SetID: "aabbccdd", K: 3, X: 1, PayloadHex: "00"})
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestSplitJoinShardRoundTrip(t *testing.T) {
	result, err := Setup("split-join", 3, 2)
	require.NoError(t, err)

	yBytes, info, err := splitShard(result.Shares[0].Shard)
	require.NoError(t, err)
	rejoined := joinShard(yBytes, info)
	assert.Equal(t, result.Shares[0].Shard, rejoined)
}
