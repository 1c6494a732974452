// Package totp implements the TOTP attachment supplemented feature: a
// pure, stateless function that turns a base32 secret on a Config
// entry into the current one-time code. It carries no state of its
// own — the secret lives on vaultstate.Config, consistent with the
// core's "no internal mutable shared state" rule.
package totp

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	gootp "github.com/pquerna/otp/totp"
)

// standard TOTP parameters: SHA1, 6 digits, 30-second step. The spec's
// Config schema stores a bare secret with no per-credential algorithm
// override, so every code is generated with these fixed parameters.
const period = 30

// ValidateSecret reports whether secret is a well-formed base32 TOTP
// secret by attempting to generate a code from it.
func ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("totp: secret cannot be empty")
	}
	for _, c := range secret {
		upperAlpha := c >= 'A' && c <= 'Z'
		base32Digit := c >= '2' && c <= '7'
		padding := c == '='
		if !upperAlpha && !base32Digit && !padding {
			return fmt.Errorf("totp: invalid base32 character %q in secret", c)
		}
	}
	if _, err := gootp.GenerateCode(secret, time.Now()); err != nil {
		return fmt.Errorf("totp: invalid secret: %w", err)
	}
	return nil
}

// GenerateCode returns the current code for secret and the number of
// seconds until it rotates.
func GenerateCode(secret string) (code string, remainingSeconds int, err error) {
	if secret == "" {
		return "", 0, fmt.Errorf("totp: no secret configured")
	}

	now := time.Now()
	code, err = gootp.GenerateCodeCustom(secret, now, gootp.ValidateOpts{
		Period:    period,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", 0, fmt.Errorf("totp: failed to generate code: %w", err)
	}

	elapsed := int(now.Unix() % period)
	return code, period - elapsed, nil
}

// BuildURI renders the standard otpauth:// URI an authenticator app
// scans to import secret, labeled with accountName under issuer.
func BuildURI(secret, issuer, accountName string) string {
	label := accountName
	if issuer != "" {
		label = fmt.Sprintf("%s:%s", issuer, accountName)
	}
	params := url.Values{}
	params.Set("secret", secret)
	if issuer != "" {
		params.Set("issuer", issuer)
	}
	params.Set("algorithm", "SHA1")
	params.Set("digits", "6")
	params.Set("period", "30")
	return fmt.Sprintf("otpauth://totp/%s?%s", url.PathEscape(label), params.Encode())
}
