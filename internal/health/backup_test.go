package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackupCheckerNoBackupPasses(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault.bastion")

	result := NewBackupChecker(dir, vaultPath).Run(context.Background())
	if result.Status != CheckPass {
		t.Errorf("status = %s, want pass when no backup exists", result.Status)
	}
}

func TestBackupCheckerRecentBackupPasses(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault.bastion")
	require.NoError(t, os.WriteFile(vaultPath+".backup", []byte("old contents"), 0600))

	result := NewBackupChecker(dir, vaultPath).Run(context.Background())
	if result.Status != CheckPass {
		t.Errorf("status = %s, want pass for a fresh backup", result.Status)
	}
}

func TestBackupCheckerStaleBackupWarns(t *testing.T) {
	dir := t.TempDir()
	vaultPath := filepath.Join(dir, "vault.bastion")
	backupPath := vaultPath + ".backup"
	require.NoError(t, os.WriteFile(backupPath, []byte("old contents"), 0600))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(backupPath, stale, stale))

	result := NewBackupChecker(dir, vaultPath).Run(context.Background())
	if result.Status != CheckWarning {
		t.Errorf("status = %s, want warning for a stale backup", result.Status)
	}
	details, ok := result.Details.(BackupCheckDetails)
	if !ok {
		t.Fatalf("details type = %T", result.Details)
	}
	if details.OldBackups != 1 {
		t.Errorf("OldBackups = %d, want 1", details.OldBackups)
	}
}
