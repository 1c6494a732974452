package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/security"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <service>",
	Short: "Remove a stored login entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if !deleteForce {
		ok, err := promptYesNo(fmt.Sprintf("Delete %q? This cannot be undone", service), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := uv.state.RemoveConfig(entry.ID); err != nil {
		return err
	}
	if err := uv.save(password); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventConfigDelete, security.OutcomeSuccess, service)

	fmt.Printf("Deleted %q\n", service)
	return nil
}
