package keychain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the identifier used for keychain storage
	ServiceName = "bastion-vault"
	// AccountName is the base account identifier for the master passphrase.
	// For vault-specific entries, this becomes "master-passphrase-<vaultID>"
	AccountName = "master-passphrase"
)

var (
	// ErrKeychainUnavailable indicates the system keychain is not available
	ErrKeychainUnavailable = errors.New("system keychain is not available")
	// ErrPasswordNotFound indicates no password is stored in the keychain
	ErrPasswordNotFound = errors.New("password not found in keychain")
)

// KeychainService provides cross-platform system keychain integration
type KeychainService struct {
	available bool
	vaultID   string // Unique identifier for vault-specific keychain entries
}

// New creates a new KeychainService for a specific vault.
// The vaultID should be the vault directory name (e.g., "my-vault").
// Pass empty string for global/legacy behavior.
func New(vaultID string) *KeychainService {
	return &KeychainService{
		vaultID: sanitizeVaultID(vaultID),
	}
}

// sanitizeVaultID normalizes vault ID for safe use as keychain account name.
// Keeps alphanumeric, dash, underscore; replaces others with underscore.
func sanitizeVaultID(vaultID string) string {
	if vaultID == "" || vaultID == "." {
		return ""
	}

	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, vaultID)

	if safe == "" {
		return ""
	}
	return safe
}

// accountName returns the keychain account name for this vault.
// Returns "master-passphrase-<vaultID>" for vault-specific entries,
// or "master-passphrase" for global/legacy entries.
func (ks *KeychainService) accountName() string {
	if ks.vaultID == "" {
		return AccountName
	}
	return fmt.Sprintf("%s-%s", AccountName, ks.vaultID)
}

// Ping tests if the system keychain is accessible.
// It returns ErrKeychainUnavailable if the keychain is not accessible.
func (ks *KeychainService) Ping() error {
	if ks.available {
		return nil
	}

	// Try to set and immediately delete a test value
	testAccount := "bastion-availability-test"
	err := keyring.Set(ServiceName, testAccount, "test")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
	}

	// Clean up test entry
	_ = keyring.Delete(ServiceName, testAccount)

	ks.available = true
	return nil
}

// IsAvailable returns whether the system keychain is available
func (ks *KeychainService) IsAvailable() bool {
	// Check availability on demand if not already cached
	if !ks.available {
		_ = ks.Ping() // Update cached availability status
	}
	return ks.available
}

// Store saves the master password to the system keychain.
// Uses vault-specific account name if vaultID was provided.
// Returns error if the keychain is not accessible.
func (ks *KeychainService) Store(password string) error {
	err := keyring.Set(ServiceName, ks.accountName(), password)
	if err != nil {
		return fmt.Errorf("failed to store password in keychain: %w", err)
	}

	return nil
}

// Retrieve gets the master password from the system keychain.
// Uses vault-specific account name if vaultID was provided.
// Returns ErrPasswordNotFound if no password is stored; any other
// backend failure (including an inaccessible keychain) is returned
// wrapped, not as ErrKeychainUnavailable.
func (ks *KeychainService) Retrieve() (string, error) {
	password, err := keyring.Get(ServiceName, ks.accountName())
	if err != nil {
		// Only go-keyring's ErrNotFound is normalized to
		// ErrPasswordNotFound
		if err == keyring.ErrNotFound {
			return "", ErrPasswordNotFound
		}
		return "", fmt.Errorf("failed to retrieve password from keychain: %w", err)
	}

	return password, nil
}

// Delete removes the master password from the system keychain.
// Uses vault-specific account name if vaultID was provided.
// Returns error if the keychain is not accessible.
// Does not return an error if the password doesn't exist.
func (ks *KeychainService) Delete() error {
	err := keyring.Delete(ServiceName, ks.accountName())
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete password from keychain: %w", err)
	}

	return nil
}

// Clear is an alias for Delete for consistency with other services
func (ks *KeychainService) Clear() error {
	return ks.Delete()
}
