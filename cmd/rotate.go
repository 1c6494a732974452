package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/generator"
	"github.com/bastion-vault/bastion/internal/security"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <service>",
	Short: "Rotate a login's derived password without changing the master passphrase",
	Args:  cobra.ExactArgs(1),
	RunE:  runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
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

	if err := uv.state.RotateConfig(entry.ID); err != nil {
		return err
	}
	if err := uv.save(password); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventConfigRotate, security.OutcomeSuccess, service)

	rotated, _ := findConfigByName(uv.state, service)
	derived := generator.Derive(uv.state.Entropy, rotated.Name, rotated.Username, rotated.Version, rotated.Length, rotated.UseSymbols, rotated.CustomPassword)

	fmt.Printf("Rotated %q to version %d\n", service, rotated.Version)
	if !IsJSON() {
		fmt.Printf("New password: %s\n", derived)
	} else {
		fmt.Printf("{\"name\":%q,\"version\":%d,\"password\":%q}\n", rotated.Name, rotated.Version, derived)
	}
	return nil
}
