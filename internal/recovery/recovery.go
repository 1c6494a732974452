// Package recovery implements the shard backup ceremony: splitting a
// vault's master entropy into Shamir shares that trustees can hold
// independently, and reconstructing it later from any sufficient
// subset. It builds entirely on internal/shamir; the only thing this
// package adds is a printable, hand-transcribable BIP39 rendering of
// each share so a trustee can write theirs on paper instead of copying
// the dense canonical shard string.
package recovery

import (
	"fmt"

	"github.com/bastion-vault/bastion/internal/shamir"
)

// DefaultShardCount and DefaultThreshold are the suggested (n, k) for
// a new ceremony when the caller has no stronger preference.
const (
	DefaultShardCount = 5
	DefaultThreshold  = 3
)

// Share is one trustee's portion of a completed ceremony: the
// canonical shard string (for machine-readable storage) and its
// mnemonic rendering plus metadata (for a printed handout).
type Share struct {
	Shard      string
	Mnemonic   string
	SetID      string
	Threshold  int
	Index      int
	PayloadHex string
}

// SetupResult is a completed shard backup ceremony.
type SetupResult struct {
	Shares []Share
}

// Setup splits secret into n shares with threshold k, rendering each
// share's value as a 24-word mnemonic phrase.
func Setup(secret string, n, k int) (*SetupResult, error) {
	shards, err := shamir.Split(secret, n, k)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, len(shards))
	for i, s := range shards {
		mnemonic, info, err := shardToMnemonic(s)
		if err != nil {
			return nil, fmt.Errorf("recovery: failed to render share %d: %w", i+1, err)
		}
		shares[i] = Share{
			Shard:      s,
			Mnemonic:   mnemonic,
			SetID:      info.SetID,
			Threshold:  info.K,
			Index:      info.X,
			PayloadHex: info.PayloadHex,
		}
	}

	return &SetupResult{Shares: shares}, nil
}

// Recover reconstructs the secret from canonical shard strings, e.g.
// SetupResult.Shares[i].Shard values collected from trustees.
func Recover(shardStrings []string) (string, error) {
	return shamir.Combine(shardStrings)
}

// MnemonicEntry is what a trustee supplies back at recovery time: the
// phrase they transcribed plus the metadata line printed alongside it.
type MnemonicEntry struct {
	Mnemonic   string
	SetID      string
	Threshold  int
	Index      int
	PayloadHex string
}

// RecoverFromMnemonics reconstructs the secret from trustee-transcribed
// mnemonic phrases, each paired with the non-secret metadata that was
// printed alongside it at setup time.
func RecoverFromMnemonics(entries []MnemonicEntry) (string, error) {
	shardStrings := make([]string, len(entries))
	for i, e := range entries {
		s, err := mnemonicToShard(e.Mnemonic, shardInfo{
			SetID:      e.SetID,
			K:          e.Threshold,
			X:          e.Index,
			PayloadHex: e.PayloadHex,
		})
		if err != nil {
			return "", fmt.Errorf("recovery: entry %d: %w", i+1, err)
		}
		shardStrings[i] = s
	}
	return shamir.Combine(shardStrings)
}
