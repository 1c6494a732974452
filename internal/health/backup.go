package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

const backupStaleAfter = 24 * time.Hour

// BackupChecker looks for the ".backup" file storage.Service leaves
// behind after a save, and flags it if it has gone stale (meaning a
// rollback may be needed or the backup can be cleared).
type BackupChecker struct {
	vaultDir  string
	vaultPath string
}

// NewBackupChecker creates a new backup checker.
func NewBackupChecker(vaultDir, vaultPath string) HealthChecker {
	return &BackupChecker{vaultDir: vaultDir, vaultPath: vaultPath}
}

// Name returns the check name.
func (b *BackupChecker) Name() string {
	return "backup"
}

// Run executes the backup check.
func (b *BackupChecker) Run(ctx context.Context) CheckResult {
	details := BackupCheckDetails{VaultDir: b.vaultDir}

	backupPath := b.vaultPath + ".backup"
	info, err := os.Stat(backupPath)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    b.Name(),
			Status:  CheckPass,
			Message: "no backup file present",
			Details: details,
		}
	}
	if err != nil {
		return CheckResult{
			Name:    b.Name(),
			Status:  CheckError,
			Message: fmt.Sprintf("cannot inspect backup file: %v", err),
			Details: details,
		}
	}

	age := time.Since(info.ModTime())
	status := "recent"
	if age > backupStaleAfter {
		status = "old"
		details.OldBackups = 1
	}

	details.BackupFiles = []BackupFile{{
		Path:       backupPath,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		AgeHours:   age.Hours(),
		Status:     status,
	}}

	if status == "old" {
		return CheckResult{
			Name:           b.Name(),
			Status:         CheckWarning,
			Message:        fmt.Sprintf("backup file is %.0f hours old", age.Hours()),
			Recommendation: fmt.Sprintf("remove %s if the current vault is healthy", backupPath),
			Details:        details,
		}
	}

	return CheckResult{
		Name:    b.Name(),
		Status:  CheckPass,
		Message: "backup file is present and recent",
		Details: details,
	}
}
