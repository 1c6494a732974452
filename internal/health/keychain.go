package health

import (
	"context"

	"github.com/bastion-vault/bastion/internal/keychain"
)

// KeychainChecker checks whether the OS keychain backend is reachable
// for the given vault identity.
type KeychainChecker struct {
	vaultID string
}

// NewKeychainChecker creates a new keychain checker.
func NewKeychainChecker(vaultID string) HealthChecker {
	return &KeychainChecker{vaultID: vaultID}
}

// Name returns the check name.
func (k *KeychainChecker) Name() string {
	return "keychain"
}

// Run executes the keychain check.
func (k *KeychainChecker) Run(ctx context.Context) CheckResult {
	svc := keychain.New(k.vaultID)
	if err := svc.Ping(); err != nil {
		return CheckResult{
			Name:           k.Name(),
			Status:         CheckWarning,
			Message:        "OS keychain is not available",
			Recommendation: "vault will prompt for the passphrase every run; this is expected on headless systems",
			Details: KeychainCheckDetails{
				Available:   false,
				AccessError: err.Error(),
			},
		}
	}

	return CheckResult{
		Name:    k.Name(),
		Status:  CheckPass,
		Message: "OS keychain is available",
		Details: KeychainCheckDetails{Available: true},
	}
}
