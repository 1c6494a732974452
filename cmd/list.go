package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored login entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()

	password, err := resolvePassword(vaultPath)
	if err != nil {
		return err
	}

	uv, err := openVault(vaultPath, password)
	if err != nil {
		return err
	}

	if len(uv.state.Configs) == 0 {
		fmt.Println("No login entries yet. Add one with 'bastion add <service>'.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	header := []string{"Service", "Username", "Category", "Rotations", "Last updated"}

	var data [][]string
	for _, c := range uv.state.Configs {
		data = append(data, []string{
			c.Name,
			c.Username,
			c.Category,
			fmt.Sprintf("%d", c.Version),
			formatRelativeTime(millisToTime(c.UpdatedAt)),
		})
	}

	table.Header(header)
	_ = table.Bulk(data)
	_ = table.Render()

	fmt.Printf("\nTotal: %d entries\n", len(uv.state.Configs))
	return nil
}

// millisToTime converts a vaultstate millisecond-epoch timestamp to a
// time.Time for display formatting.
func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
