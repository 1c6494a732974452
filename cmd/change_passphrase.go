package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/keychain"
	"github.com/bastion-vault/bastion/internal/security"
)

var changePassphraseCmd = &cobra.Command{
	Use:   "change-passphrase",
	Short: "Change the vault's master passphrase",
	Args:  cobra.NoArgs,
	RunE:  runChangePassphrase,
}

func init() {
	rootCmd.AddCommand(changePassphraseCmd)
}

func runChangePassphrase(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()

	fmt.Print("Current passphrase: ")
	current, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()

	uv, err := openVault(vaultPath, current)
	if err != nil {
		logger, _ := auditLogger(vaultPath)
		logEvent(logger, security.EventVaultPassphraseChange, security.OutcomeFailure, "change-passphrase")
		return err
	}

	fmt.Print("New passphrase: ")
	next, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()
	if err := security.DefaultPassphrasePolicy.Validate(next); err != nil {
		return fmt.Errorf("passphrase too weak: %w", err)
	}

	fmt.Print("Confirm new passphrase: ")
	confirm, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()
	if string(next) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}

	if err := uv.save(next); err != nil {
		return err
	}

	if keychainEnabled() {
		ks := keychain.New(getVaultID(vaultPath))
		if err := ks.Store(string(next)); err != nil {
			fmt.Printf("warning: could not update OS keychain entry: %v\n", err)
		}
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventVaultPassphraseChange, security.OutcomeSuccess, "change-passphrase")

	fmt.Println("Passphrase changed.")
	return nil
}
