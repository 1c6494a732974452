package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/keychain"
	"github.com/bastion-vault/bastion/internal/security"
)

var keychainCmd = &cobra.Command{
	Use:   "keychain",
	Short: "Manage OS keychain storage of the master passphrase",
}

var keychainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the OS keychain is available and in use",
	Args:  cobra.NoArgs,
	RunE:  runKeychainStatus,
}

var keychainEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Store the current vault's passphrase in the OS keychain",
	Args:  cobra.NoArgs,
	RunE:  runKeychainEnable,
}

var keychainDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the current vault's passphrase from the OS keychain",
	Args:  cobra.NoArgs,
	RunE:  runKeychainDisable,
}

func init() {
	keychainCmd.AddCommand(keychainStatusCmd, keychainEnableCmd, keychainDisableCmd)
	rootCmd.AddCommand(keychainCmd)
}

func runKeychainStatus(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()
	ks := keychain.New(getVaultID(vaultPath))

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventKeychainStatus, security.OutcomeAttempt, "status")

	if err := ks.Ping(); err != nil {
		fmt.Println("OS keychain: unavailable")
		fmt.Printf("  %v\n", err)
		return nil
	}
	fmt.Println("OS keychain: available")

	if _, err := ks.Retrieve(); err == nil {
		fmt.Println("Passphrase: stored")
	} else {
		fmt.Println("Passphrase: not stored")
	}
	return nil
}

func runKeychainEnable(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()

	fmt.Print("Passphrase: ")
	password, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()

	if _, err := openVault(vaultPath, password); err != nil {
		return err
	}

	ks := keychain.New(getVaultID(vaultPath))
	if err := ks.Store(string(password)); err != nil {
		return fmt.Errorf("failed to store passphrase: %w", err)
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventKeychainEnable, security.OutcomeSuccess, "enable")

	fmt.Println("Passphrase stored in OS keychain. Future commands won't prompt for it.")
	return nil
}

func runKeychainDisable(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()
	ks := keychain.New(getVaultID(vaultPath))
	if err := ks.Delete(); err != nil {
		return fmt.Errorf("failed to remove passphrase from keychain: %w", err)
	}
	fmt.Println("Passphrase removed from OS keychain.")
	return nil
}
