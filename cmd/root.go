// Package cmd implements the Bastion command-line interface: the
// Cobra command tree wiring the core engine packages (storage,
// sealer, vaultstate, generator, locker, recovery, keychain, security,
// totp, health) into a scriptable vault tool.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/config"
)

var (
	vaultPathFlag string
	verboseFlag   bool
	jsonFlag      bool
)

// rootCmd is the base command every other command attaches to.
var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion is an offline, zero-knowledge personal vault",
	Long: `Bastion stores passwords, notes, contacts, and encrypted files in a
single local vault file. Everything it derives -- passwords, keys,
audit signatures -- comes from a master passphrase you supply; nothing
is ever sent over the network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; main calls this and exits on error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&vaultPathFlag, "vault", "", "path to the vault file (default: from config, or ~/.bastion/vault.dat)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose diagnostic logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit machine-readable JSON output where supported")
}

// initConfig loads the Viper-backed settings file before any command
// runs, matching the teacher's cobra.OnInitialize wiring.
func initConfig() {
	cfg, result := config.Load()
	if result != nil && !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "config: %s: %s\n", e.Field, e.Message)
		}
	}
	loadedConfig = cfg
	if path, err := config.GetConfigPath(); err == nil {
		logVerbose("loaded config from %s", path)
	}
}

var loadedConfig *config.Config

// IsVerbose reports whether -v/--verbose was passed.
func IsVerbose() bool {
	return verboseFlag
}

// IsJSON reports whether --json was passed.
func IsJSON() bool {
	return jsonFlag
}

// GetVaultPath resolves the active vault path: the --vault flag, then
// the config file's vault_path, then the default location.
func GetVaultPath() string {
	if vaultPathFlag != "" {
		return vaultPathFlag
	}
	if loadedConfig != nil && loadedConfig.VaultPath != "" {
		return loadedConfig.VaultPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "vault.dat"
	}
	return filepath.Join(home, ".bastion", "vault.dat")
}

// keychainEnabled reports whether the config file opted into storing
// the passphrase in the OS keychain.
func keychainEnabled() bool {
	return loadedConfig != nil && loadedConfig.KeychainEnabled
}

// auditLogEnabled reports whether the config file opted into
// tamper-evident audit logging.
func auditLogEnabled() bool {
	return loadedConfig == nil || loadedConfig.AuditLogEnabled
}
