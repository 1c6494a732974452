package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/keychain"
	"github.com/bastion-vault/bastion/internal/sealer"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/storage"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new, empty vault",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()

	svc, err := storage.New(vaultPath)
	if err != nil {
		return err
	}
	if svc.Exists() {
		return fmt.Errorf("a vault already exists at %s", vaultPath)
	}

	fmt.Println("Choose a master passphrase. This is the only secret the vault needs --")
	fmt.Println("everything else is derived from it, and it cannot be recovered if lost")
	fmt.Println("(unless you complete a shard backup ceremony with 'bastion shard setup').")
	fmt.Print("Passphrase: ")
	password, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()

	if err := security.DefaultPassphrasePolicy.Validate(password); err != nil {
		return fmt.Errorf("passphrase too weak: %w", err)
	}

	fmt.Print("Confirm passphrase: ")
	confirm, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()
	if string(password) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}

	state, err := vaultstate.New()
	if err != nil {
		return fmt.Errorf("failed to initialize vault state: %w", err)
	}

	sealed, err := sealer.Seal(state, password)
	if err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}
	if err := svc.SaveBlobs([]string{sealed}); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}

	fmt.Printf("Vault created at %s\n", vaultPath)

	if keychainEnabled() {
		ks := keychain.New(getVaultID(vaultPath))
		if err := ks.Store(string(password)); err != nil {
			fmt.Printf("warning: could not store passphrase in OS keychain: %v\n", err)
		} else {
			fmt.Println("Passphrase stored in OS keychain.")
		}
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventVaultSeal, security.OutcomeSuccess, "init")

	return nil
}
