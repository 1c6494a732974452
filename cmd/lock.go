package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/locker"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

var lockCmd = &cobra.Command{
	Use:   "lock <file>",
	Short: "Encrypt a file under its own random key and register it in the vault",
	Args:  cobra.ExactArgs(1),
	RunE:  runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
}

// lockerDir is the directory, alongside the vault file, where
// encrypted artifacts are stored. The vault itself holds only the
// Resonance registry entry (key, hash, label) -- never the ciphertext.
func lockerDir(vaultPath string) string {
	return filepath.Join(filepath.Dir(vaultPath), "lockers")
}

func runLock(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	plaintext, err := os.ReadFile(inputPath) // #nosec G304 -- user-supplied path is the explicit subject of this command
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	label := filepath.Base(inputPath)
	mimeType := mime.TypeByExtension(filepath.Ext(inputPath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	artifact, reg, err := locker.Encrypt(plaintext, label, mimeType)
	if err != nil {
		return fmt.Errorf("failed to encrypt file: %w", err)
	}

	vaultPath := GetVaultPath()
	password, err := resolvePassword(vaultPath)
	if err != nil {
		return err
	}
	uv, err := openVault(vaultPath, password)
	if err != nil {
		return err
	}

	dir := lockerDir(vaultPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create locker directory: %w", err)
	}
	artifactPath := filepath.Join(dir, reg.ID+".bstn")
	if err := os.WriteFile(artifactPath, artifact, 0600); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	uv.state.AddResonance(vaultstate.Resonance{
		ID:    reg.ID,
		Label: reg.Label,
		Size:  reg.Size,
		Mime:  reg.Mime,
		Key:   reg.Key,
		Hash:  reg.Hash,
	})

	if err := uv.save(password); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventLockerEncrypt, security.OutcomeSuccess, label)

	fmt.Printf("Locked %s as %s (artifact: %s)\n", inputPath, reg.ID, artifactPath)
	return nil
}
