package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/generator"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

var getClipboard bool

var getCmd = &cobra.Command{
	Use:   "get <service>",
	Short: "Retrieve a stored login's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getClipboard, "clipboard", false, "copy the password to the clipboard instead of printing it")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	service := args[0]
	vaultPath := GetVaultPath()

	password, err := resolvePassword(vaultPath)
	if err != nil {
		return err
	}

	uv, err := openVault(vaultPath, password)
	if err != nil {
		return err
	}

	entry, found := findConfigByName(uv.state, service)
	if !found {
		return fmt.Errorf("no login entry named %q", service)
	}

	entry.UsageCount++
	i := uv.state.FindConfig(entry.ID)
	uv.state.Configs[i] = entry
	uv.state.Touch()
	if err := uv.save(password); err != nil {
		return err
	}

	derived := generator.Derive(uv.state.Entropy, entry.Name, entry.Username, entry.Version, entry.Length, entry.UseSymbols, entry.CustomPassword)

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventVaultOpen, security.OutcomeSuccess, service)

	if getClipboard {
		if err := clipboard.WriteAll(derived); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Println("Password copied to clipboard.")
		return nil
	}

	if IsJSON() {
		fmt.Printf("{\"name\":%q,\"username\":%q,\"password\":%q}\n", entry.Name, entry.Username, derived)
	} else {
		fmt.Printf("Username: %s\nPassword: %s\n", entry.Username, derived)
	}
	return nil
}

func findConfigByName(state *vaultstate.State, name string) (vaultstate.Config, bool) {
	for _, c := range state.Configs {
		if c.Name == name {
			return c, true
		}
	}
	return vaultstate.Config{}, false
}
