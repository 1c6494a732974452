package recovery

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/bastion-vault/bastion/internal/shamir"
)

// shardInfo is the parsed, non-secret metadata of a canonical shard
// string, kept alongside its mnemonic rendering so the share can be
// reassembled later.
type shardInfo struct {
	SetID      string
	K          int
	X          int
	PayloadHex string
}

// splitShard parses a canonical shamir shard string into its share
// value and surrounding metadata. It duplicates shamir's own parsing
// logic rather than reaching into its unexported Shard type, since the
// textual shard format is itself a stable, documented contract.
func splitShard(shardString string) (yBytes []byte, info shardInfo, err error) {
	if !strings.HasPrefix(shardString, shamir.Prefix) {
		return nil, shardInfo{}, ErrNotCanonicalShard
	}
	parts := strings.Split(strings.TrimPrefix(shardString, shamir.Prefix), "_")
	if len(parts) != 5 {
		return nil, shardInfo{}, ErrMalformedShard
	}

	k, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, shardInfo{}, ErrMalformedShard
	}
	x, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, shardInfo{}, ErrMalformedShard
	}
	yBytes, err = hex.DecodeString(parts[3])
	if err != nil {
		return nil, shardInfo{}, ErrMalformedShard
	}

	return yBytes, shardInfo{SetID: parts[0], K: k, X: x, PayloadHex: parts[4]}, nil
}

// joinShard renders a share value and its metadata back into the
// canonical shard string shamir.Combine expects.
func joinShard(yBytes []byte, info shardInfo) string {
	return fmt.Sprintf("%s%s_%d_%d_%s_%s", shamir.Prefix, info.SetID, info.K, info.X, hex.EncodeToString(yBytes), info.PayloadHex)
}

// shardToMnemonic renders a shard's 32-byte share value as a 24-word
// BIP39 phrase, for a trustee to write down by hand instead of copying
// the dense canonical string.
func shardToMnemonic(shardString string) (mnemonic string, info shardInfo, err error) {
	yBytes, info, err := splitShard(shardString)
	if err != nil {
		return "", shardInfo{}, err
	}
	mnemonic, err = bip39.NewMnemonic(yBytes)
	if err != nil {
		return "", shardInfo{}, fmt.Errorf("recovery: failed to render mnemonic: %w", err)
	}
	return mnemonic, info, nil
}

// mnemonicToShard reverses shardToMnemonic: given the phrase a trustee
// transcribed and the metadata line printed alongside it, reconstructs
// the canonical shard string shamir.Combine accepts.
func mnemonicToShard(mnemonic string, info shardInfo) (string, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", ErrInvalidMnemonic
	}
	yBytes, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return joinShard(yBytes, info), nil
}
