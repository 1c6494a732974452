package recovery

import "errors"

var (
	// ErrNotCanonicalShard is returned when a string handed to a
	// mnemonic-rendering function isn't a canonical shamir shard.
	ErrNotCanonicalShard = errors.New("recovery: not a canonical shard string")
	// ErrMalformedShard mirrors shamir's own malformed-shard condition,
	// detected here before ever delegating into that package.
	ErrMalformedShard = errors.New("recovery: malformed shard string")
	// ErrInvalidMnemonic is returned when a trustee's transcribed
	// phrase fails the BIP39 checksum.
	ErrInvalidMnemonic = errors.New("recovery: invalid mnemonic")
)
