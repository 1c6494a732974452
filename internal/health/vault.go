package health

import (
	"context"
	"fmt"
	"os"

	"github.com/bastion-vault/bastion/internal/storage"
)

// VaultChecker checks vault file presence, permissions, and that its
// persisted layout parses.
type VaultChecker struct {
	vaultPath string
}

// NewVaultChecker creates a new vault checker.
func NewVaultChecker(vaultPath string) HealthChecker {
	return &VaultChecker{vaultPath: vaultPath}
}

// Name returns the check name.
func (v *VaultChecker) Name() string {
	return "vault"
}

// Run executes the vault check.
func (v *VaultChecker) Run(ctx context.Context) CheckResult {
	details := VaultCheckDetails{Path: v.vaultPath}

	info, err := os.Stat(v.vaultPath)
	if os.IsNotExist(err) {
		details.Exists = false
		return CheckResult{
			Name:    v.Name(),
			Status:  CheckWarning,
			Message: "vault file does not exist yet",
			Details: details,
		}
	}
	if err != nil {
		details.Error = err.Error()
		return CheckResult{
			Name:           v.Name(),
			Status:         CheckError,
			Message:        fmt.Sprintf("cannot access vault file: %v", err),
			Recommendation: "check the vault path and file permissions",
			Details:        details,
		}
	}

	details.Exists = true
	details.Size = info.Size()
	details.Permissions = fmt.Sprintf("%#o", info.Mode().Perm())
	if info.Mode().Perm()&0077 != 0 {
		return CheckResult{
			Name:           v.Name(),
			Status:         CheckWarning,
			Message:        fmt.Sprintf("vault file permissions are %s, expected 0600", details.Permissions),
			Recommendation: fmt.Sprintf("chmod 600 %s", v.vaultPath),
			Details:        details,
		}
	}

	svc, err := storage.New(v.vaultPath)
	if err != nil {
		details.Error = err.Error()
		return CheckResult{
			Name:    v.Name(),
			Status:  CheckError,
			Message: fmt.Sprintf("cannot open vault storage: %v", err),
			Details: details,
		}
	}

	blobs, err := svc.LoadBlobs()
	if err != nil {
		details.Readable = false
		details.Error = err.Error()
		return CheckResult{
			Name:           v.Name(),
			Status:         CheckError,
			Message:        fmt.Sprintf("vault file is not readable: %v", err),
			Recommendation: "restore from the .backup file alongside the vault, if present",
			Details:        details,
		}
	}

	details.Readable = true
	details.IdentityCount = len(blobs)
	return CheckResult{
		Name:    v.Name(),
		Status:  CheckPass,
		Message: fmt.Sprintf("vault file is readable (%d identities)", len(blobs)),
		Details: details,
	}
}
