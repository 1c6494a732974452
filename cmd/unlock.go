package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/locker"
	"github.com/bastion-vault/bastion/internal/security"
)

var unlockOutput string

var unlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Decrypt a locked file back to plaintext",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

func init() {
	unlockCmd.Flags().StringVar(&unlockOutput, "out", "", "output path (default: the artifact's original label, in the current directory)")
	rootCmd.AddCommand(unlockCmd)
}

func runUnlock(cmd *cobra.Command, args []string) error {
	id := args[0]
	vaultPath := GetVaultPath()

	password, err := resolvePassword(vaultPath)
	if err != nil {
		return err
	}
	uv, err := openVault(vaultPath, password)
	if err != nil {
		return err
	}

	reg, found := uv.state.FindResonance(id)
	if !found {
		return fmt.Errorf("no locked file with id %q", id)
	}

	key, err := hex.DecodeString(reg.Key)
	if err != nil {
		return fmt.Errorf("corrupt registry entry: %w", err)
	}

	artifactPath := filepath.Join(lockerDir(vaultPath), reg.ID+".bstn")
	artifact, err := os.ReadFile(artifactPath) // #nosec G304 -- path is derived from the vault's own registry, not user input
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	plaintext, err := locker.Decrypt(artifact, key)
	if err != nil {
		logger, _ := auditLogger(vaultPath)
		logEvent(logger, security.EventLockerDecrypt, security.OutcomeFailure, reg.Label)
		return fmt.Errorf("failed to decrypt: %w", err)
	}

	outPath := unlockOutput
	if outPath == "" {
		outPath = reg.Label
	}
	if err := os.WriteFile(outPath, plaintext, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventLockerDecrypt, security.OutcomeSuccess, reg.Label)

	fmt.Printf("Wrote %s\n", outPath)
	return nil
}
