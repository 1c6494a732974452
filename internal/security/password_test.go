package security

import (
	"strings"
	"testing"
	"time"
)

func TestPassphrasePolicyValidateMinLength(t *testing.T) {
	policy := DefaultPassphrasePolicy

	tests := []struct {
		name       string
		passphrase []byte
		wantErr    bool
	}{
		{"valid 12 chars", []byte("Password123!"), false},
		{"too short 11 chars", []byte("Password12!"), true},
		{"too short 8 chars", []byte("Pass123!"), true},
		{"empty", []byte(""), true},
		{"nil", nil, true},
		{"exactly minimum", []byte("Abcdefgh123!"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.passphrase)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPassphrasePolicyValidateRequiresEachClass(t *testing.T) {
	policy := DefaultPassphrasePolicy

	tests := []struct {
		name       string
		passphrase string
		wantSubstr string
	}{
		{"no uppercase", "password123!", "uppercase"},
		{"no lowercase", "PASSWORD123!", "lowercase"},
		{"no digit", "Password!!!!", "digit"},
		{"no symbol", "Password1234", "special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate([]byte(tt.passphrase))
			if err == nil {
				t.Fatalf("Validate(%q) should have failed", tt.passphrase)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestPassphrasePolicyValidateAllClassesPresentPasses(t *testing.T) {
	policy := DefaultPassphrasePolicy
	if err := policy.Validate([]byte("Str0ng!Passphrase")); err != nil {
		t.Errorf("Validate() should pass a compliant passphrase: %v", err)
	}
}

func TestPassphrasePolicyValidateUnicodeCountsRunesNotBytes(t *testing.T) {
	policy := DefaultPassphrasePolicy
	// 12 multi-byte runes, each counts as one character.
	if err := policy.Validate([]byte("Pässwörd123!")); err != nil {
		t.Errorf("Validate() should count runes, not bytes: %v", err)
	}
}

func TestPassphraseStrengthWeak(t *testing.T) {
	policy := DefaultPassphrasePolicy
	tests := [][]byte{
		[]byte(""),
		[]byte("short"),
		[]byte("alllowercase1234567"),
		[]byte("ALLUPPERCASE1234567"),
	}
	for _, p := range tests {
		if got := policy.Strength(p); got != StrengthWeak {
			t.Errorf("Strength(%q) = %v, want Weak", p, got)
		}
	}
}

func TestPassphraseStrengthMedium(t *testing.T) {
	policy := DefaultPassphrasePolicy
	if got := policy.Strength([]byte("Medium1234567!!!")); got != StrengthMedium {
		t.Errorf("Strength() = %v, want Medium", got)
	}
}

func TestPassphraseStrengthStrong(t *testing.T) {
	policy := DefaultPassphrasePolicy
	if got := policy.Strength([]byte("ThisIsAVeryLongAndStrongPassphrase1234!!!")); got != StrengthStrong {
		t.Errorf("Strength() = %v, want Strong", got)
	}
}

func TestPassphraseStrengthStringer(t *testing.T) {
	tests := map[PassphraseStrength]string{
		StrengthWeak:             "Weak",
		StrengthMedium:           "Medium",
		StrengthStrong:           "Strong",
		PassphraseStrength(99):   "Unknown",
	}
	for strength, want := range tests {
		if got := strength.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestValidationRateLimiterAllowsFirstTwoFailures(t *testing.T) {
	rl := NewValidationRateLimiter()
	if err := rl.CheckAndRecordFailure(); err != nil {
		t.Errorf("1st failure should not trigger cooldown: %v", err)
	}
	if err := rl.CheckAndRecordFailure(); err != nil {
		t.Errorf("2nd failure should not trigger cooldown: %v", err)
	}
}

func TestValidationRateLimiterTriggersCooldownOnThirdFailure(t *testing.T) {
	rl := NewValidationRateLimiter()
	_ = rl.CheckAndRecordFailure()
	_ = rl.CheckAndRecordFailure()
	if err := rl.CheckAndRecordFailure(); err == nil {
		t.Error("3rd failure should trigger cooldown")
	}
	if err := rl.CheckAndRecordFailure(); err == nil {
		t.Error("a further attempt during cooldown should also fail")
	}
}

func TestValidationRateLimiterResetClearsState(t *testing.T) {
	rl := NewValidationRateLimiter()
	_ = rl.CheckAndRecordFailure()
	_ = rl.CheckAndRecordFailure()
	_ = rl.CheckAndRecordFailure()
	rl.Reset()
	if err := rl.CheckAndRecordFailure(); err != nil {
		t.Errorf("after Reset(), a fresh failure should not be in cooldown: %v", err)
	}
}

func TestValidationRateLimiterForgetsOldFailures(t *testing.T) {
	rl := NewValidationRateLimiter()
	_ = rl.CheckAndRecordFailure()
	rl.lastFailure = time.Now().Add(-31 * time.Second)
	if err := rl.CheckAndRecordFailure(); err != nil {
		t.Errorf("failures older than 30s should not count toward cooldown: %v", err)
	}
}
