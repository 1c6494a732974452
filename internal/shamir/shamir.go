// Package shamir implements the threshold secret sharer (§4.7): an
// (n, k) Shamir split over the secp256k1 base field, wrapping an
// AES-256-GCM session key that in turn encrypts the secret string.
//
// Field arithmetic is done with math/big rather than a curve library's
// field-element type (e.g. btcec/v2's FieldVal, which the retrieval
// pack's MPC example depends on for exactly this prime): FieldVal's
// API is built around the specific fixed-magnitude, lazy-reduction
// tricks secp256k1 point arithmetic needs, not generic signed
// polynomial coefficients and Lagrange interpolation over arbitrary
// negative numerators. math/big.Int's Exp/ModInverse/Mod are the
// direct, auditable tools for that, and correctness here matters more
// than dependency count.
package shamir

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/bastion-vault/bastion/internal/aead"
)

// LegacyPrefix marks the GF(2^8) shard format from a previous protocol
// revision. combine recognizes it only to reject it.
const LegacyPrefix = "bst_s1_"

// Prefix is the canonical shard prefix for this protocol version.
const Prefix = "bst_p256_"

var (
	ErrLegacyShardUnsupported = errors.New("shamir: legacy GF(2^8) shard format is not supported by this version")
	ErrShardMismatch          = errors.New("shamir: shards disagree on setId, k, or payload")
	ErrShardDuplicate         = errors.New("shamir: duplicate shard x value")
	ErrThresholdUnmet         = errors.New("shamir: fewer than k distinct shards supplied")
	ErrShardAuth              = errors.New("shamir: reconstructed key failed to authenticate payload")
	ErrMalformedShard         = errors.New("shamir: malformed shard string")
)

// P is the field modulus: 2^256 - 2^32 - 977 (the secp256k1 base
// field prime).
var P = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 256)
	p.Sub(p, new(big.Int).Lsh(big.NewInt(1), 32))
	p.Sub(p, big.NewInt(977))
	return p
}()

// Shard is one point on the Shamir polynomial, textually encoded.
type Shard struct {
	SetID      string
	K          int
	X          int
	Y          *big.Int
	PayloadHex string
}

// String renders the shard in its canonical textual form:
// bst_p256_<setId>_<k>_<x>_<yhex>_<payloadhex>.
func (s Shard) String() string {
	yHex := hex.EncodeToString(leftPad32(s.Y))
	return fmt.Sprintf("%s%s_%d_%d_%s_%s", Prefix, s.SetID, s.K, s.X, yHex, s.PayloadHex)
}

func leftPad32(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// randomFieldElement draws a uniform element of [1, P-1]. Rejection
// sampling over 32 random bytes keeps the distribution uniform
// despite P not being a power of two.
func randomFieldElement() (*big.Int, error) {
	for {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(buf)
		if v.Sign() == 0 || v.Cmp(P) >= 0 {
			continue
		}
		return v, nil
	}
}

// Split generates a random 32-byte AES session key, wraps secretString
// under it with AES-256-GCM, and splits the key into n Shamir shares
// with threshold k using a random degree-(k-1) polynomial over P.
func Split(secretString string, n, k int) ([]string, error) {
	if k < 1 || n < k {
		return nil, fmt.Errorf("shamir: invalid (n=%d, k=%d)", n, k)
	}

	sessionKey := make([]byte, aead.KeyLength)
	if _, err := rand.Read(sessionKey); err != nil {
		return nil, err
	}

	iv, ciphertext, err := aead.SealFresh(sessionKey, []byte(secretString))
	if err != nil {
		return nil, err
	}
	payload := append(append([]byte{}, iv...), ciphertext...)
	payloadHex := hex.EncodeToString(payload)

	secretInt := new(big.Int).SetBytes(sessionKey)
	secretInt.Mod(secretInt, P)

	coeffs := make([]*big.Int, k-1)
	for i := range coeffs {
		c, err := randomFieldElement()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	setIDBytes := make([]byte, 4)
	if _, err := rand.Read(setIDBytes); err != nil {
		return nil, err
	}
	setID := hex.EncodeToString(setIDBytes)

	shards := make([]string, n)
	for x := 1; x <= n; x++ {
		y := evalPolynomial(secretInt, coeffs, x)
		shards[x-1] = Shard{SetID: setID, K: k, X: x, Y: y, PayloadHex: payloadHex}.String()
	}
	return shards, nil
}

// evalPolynomial computes f(x) = secret + c1*x + c2*x^2 + ... mod P.
func evalPolynomial(secret *big.Int, coeffs []*big.Int, x int) *big.Int {
	result := new(big.Int).Set(secret)
	xBig := big.NewInt(int64(x))
	power := big.NewInt(1)
	for _, c := range coeffs {
		power.Mod(new(big.Int).Mul(power, xBig), P)
		term := new(big.Int).Mul(c, power)
		term.Mod(term, P)
		result.Add(result, term)
		result.Mod(result, P)
	}
	return result
}

// parseShard parses the canonical textual form.
func parseShard(s string) (Shard, error) {
	if strings.HasPrefix(s, LegacyPrefix) {
		return Shard{}, ErrLegacyShardUnsupported
	}
	if !strings.HasPrefix(s, Prefix) {
		return Shard{}, ErrMalformedShard
	}
	rest := strings.TrimPrefix(s, Prefix)
	parts := strings.Split(rest, "_")
	if len(parts) != 5 {
		return Shard{}, ErrMalformedShard
	}
	setID, kStr, xStr, yHex, payloadHex := parts[0], parts[1], parts[2], parts[3], parts[4]

	k, err := strconv.Atoi(kStr)
	if err != nil {
		return Shard{}, ErrMalformedShard
	}
	x, err := strconv.Atoi(xStr)
	if err != nil {
		return Shard{}, ErrMalformedShard
	}
	yBytes, err := hex.DecodeString(yHex)
	if err != nil {
		return Shard{}, ErrMalformedShard
	}
	y := new(big.Int).SetBytes(yBytes)

	return Shard{SetID: setID, K: k, X: x, Y: y, PayloadHex: payloadHex}, nil
}

// Combine parses shards, validates consistency, Lagrange-interpolates
// the session key at x=0, and decrypts the wrapped secret.
func Combine(shardStrings []string) (string, error) {
	if len(shardStrings) == 0 {
		return "", ErrThresholdUnmet
	}

	shards := make([]Shard, 0, len(shardStrings))
	for _, s := range shardStrings {
		parsed, err := parseShard(s)
		if err != nil {
			return "", err
		}
		shards = append(shards, parsed)
	}

	setID := shards[0].SetID
	k := shards[0].K
	payloadHex := shards[0].PayloadHex
	seen := map[int]bool{}
	deduped := make([]Shard, 0, len(shards))
	for _, sh := range shards {
		if sh.SetID != setID || sh.K != k || sh.PayloadHex != payloadHex {
			return "", ErrShardMismatch
		}
		if seen[sh.X] {
			return "", ErrShardDuplicate
		}
		seen[sh.X] = true
		deduped = append(deduped, sh)
	}

	if len(deduped) < k {
		return "", ErrThresholdUnmet
	}
	// Only the first k shards are needed for interpolation; extras are
	// tolerated as long as they are consistent (checked above).
	points := deduped[:k]

	secretInt := interpolateAtZero(points)
	sessionKey := leftPad32(secretInt)

	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return "", ErrMalformedShard
	}
	if len(payload) < aead.IVLength {
		return "", ErrMalformedShard
	}
	iv := payload[:aead.IVLength]
	ciphertext := payload[aead.IVLength:]

	plaintext, err := aead.Open(sessionKey, iv, ciphertext)
	if err != nil {
		return "", ErrShardAuth
	}
	return string(plaintext), nil
}

// interpolateAtZero computes the Lagrange interpolation of points at
// x=0: s = sum_j y_j * prod_{m != j} (-x_m) / (x_j - x_m), mod P.
// Modular inverses use Fermat's little theorem via big.Int.Exp, since
// P is prime.
func interpolateAtZero(points []Shard) *big.Int {
	result := big.NewInt(0)
	pMinus2 := new(big.Int).Sub(P, big.NewInt(2))

	for j, pj := range points {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		xj := big.NewInt(int64(pj.X))

		for m, pm := range points {
			if m == j {
				continue
			}
			xm := big.NewInt(int64(pm.X))

			negXm := new(big.Int).Neg(xm)
			negXm.Mod(negXm, P)
			numerator.Mul(numerator, negXm)
			numerator.Mod(numerator, P)

			diff := new(big.Int).Sub(xj, xm)
			diff.Mod(diff, P)
			denominator.Mul(denominator, diff)
			denominator.Mod(denominator, P)
		}

		invDenominator := new(big.Int).Exp(denominator, pMinus2, P)
		term := new(big.Int).Mul(pj.Y, numerator)
		term.Mod(term, P)
		term.Mul(term, invDenominator)
		term.Mod(term, P)

		result.Add(result, term)
		result.Mod(result, P)
	}
	return result
}
