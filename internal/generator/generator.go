// Package generator implements the deterministic, stateless password
// generator (§4.5): a PBKDF2-SHA512 stream over the master entropy,
// salted per (service, username, rotation), consumed through unbiased
// rejection sampling over a glyph pool.
package generator

import (
	"encoding/hex"
	"strings"

	"github.com/bastion-vault/bastion/internal/kdf"
)

const (
	lowerGlyphs  = "abcdefghijklmnopqrstuvwxyz"
	upperGlyphs  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitGlyphs  = "0123456789"
	symbolGlyphs = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// iterations is the PBKDF2-SHA512 iteration count for the
	// generator stream, per §4.5 step 2.
	iterations = 210000

	// surplusFactor provides rejection-sampling headroom: the spec
	// fixes this at ×32 (not the ×4 some source revisions used) to
	// make buffer exhaustion negligible for every glyph pool and every
	// length up to 128.
	surplusFactor = 32
)

// Pool builds the glyph pool for a given symbol flag: lowercase,
// uppercase, and digits always; the symbol set is appended only when
// useSymbols is true.
func Pool(useSymbols bool) string {
	pool := lowerGlyphs + upperGlyphs + digitGlyphs
	if useSymbols {
		pool += symbolGlyphs
	}
	return pool
}

// salt builds the context-salted string mixed into the KDF, per §4.5
// step 1.
func salt(service, username string, rotation int) []byte {
	var b strings.Builder
	b.WriteString("BASTION_GENERATOR_V2::")
	b.WriteString(strings.ToLower(service))
	b.WriteString("::")
	b.WriteString(strings.ToLower(username))
	b.WriteString("::v")
	b.WriteString(itoa(rotation))
	return []byte(b.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Derive produces a length-L password deterministically from the
// master entropy (hex-encoded, as stored on vaultstate.State) and the
// (service, username, rotation) context. If customPassword is
// non-empty, it is returned verbatim and the generator is bypassed
// entirely, per §4.5's final paragraph.
func Derive(entropyHex, service, username string, rotation, length int, useSymbols bool, customPassword string) string {
	if customPassword != "" {
		return customPassword
	}

	pool := Pool(useSymbols)
	s := salt(service, username, rotation)

	entropyBytes, err := hex.DecodeString(entropyHex)
	if err != nil {
		// Not a well-formed hex string: fall back to its raw UTF-8
		// bytes so the function stays total rather than panicking.
		entropyBytes = []byte(entropyHex)
	}

	dkLen := length * surplusFactor
	buf := kdf.PBKDF2Derive(entropyBytes, s, iterations, kdf.SHA512, dkLen)

	poolLen := len(pool)
	limit := 256 - (256 % poolLen)

	out := make([]byte, 0, length)
	for _, b := range buf {
		if len(out) == length {
			break
		}
		if int(b) < limit {
			out = append(out, pool[int(b)%poolLen])
		}
	}
	return string(out)
}
