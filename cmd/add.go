package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/generator"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

var (
	addUsername   string
	addCategory   string
	addLength     int
	addSymbols    bool
	addCustomPass string
)

var addCmd = &cobra.Command{
	Use:   "add <service>",
	Short: "Add a new login entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addUsername, "username", "", "username or email for this login")
	addCmd.Flags().StringVar(&addCategory, "category", "", "free-form grouping label")
	addCmd.Flags().IntVar(&addLength, "length", 20, "generated password length")
	addCmd.Flags().BoolVar(&addSymbols, "symbols", true, "include symbols in the generated password")
	addCmd.Flags().StringVar(&addCustomPass, "custom-password", "", "store this literal password instead of generating one")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	entry := vaultstate.Config{
		Name:           service,
		Username:       addUsername,
		Category:       addCategory,
		Length:         addLength,
		UseSymbols:     addSymbols,
		CustomPassword: addCustomPass,
	}
	added := uv.state.AddConfig(entry)

	if err := uv.save(password); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventConfigAdd, security.OutcomeSuccess, service)

	fmt.Printf("Added %q (id %s)\n", service, added.ID)

	derived := generator.Derive(uv.state.Entropy, added.Name, added.Username, added.Version, added.Length, added.UseSymbols, added.CustomPassword)
	if IsJSON() {
		fmt.Printf("{\"id\":%q,\"name\":%q,\"password\":%q}\n", added.ID, added.Name, derived)
	} else {
		fmt.Printf("Password: %s\n", derived)
	}

	return nil
}
