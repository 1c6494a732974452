package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/config"
	"github.com/bastion-vault/bastion/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run read-only diagnostic checks against the vault installation",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()
	configPath, _ := config.GetConfigPath()

	opts := health.CheckOptions{
		VaultID:    getVaultID(vaultPath),
		VaultPath:  vaultPath,
		VaultDir:   filepath.Dir(vaultPath),
		ConfigPath: configPath,
	}

	report := health.RunChecks(context.Background(), opts)

	if IsJSON() {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printHealthReport(report)
	}

	os.Exit(report.Summary.DetermineExitCode())
	return nil
}

func printHealthReport(report health.HealthReport) {
	for _, check := range report.Checks {
		var marker string
		switch check.Status {
		case health.CheckPass:
			marker = color.GreenString("[ok]")
		case health.CheckWarning:
			marker = color.YellowString("[warn]")
		case health.CheckError:
			marker = color.RedString("[error]")
		}
		fmt.Printf("%s %s: %s\n", marker, check.Name, check.Message)
		if check.Recommendation != "" {
			fmt.Printf("       %s\n", check.Recommendation)
		}
	}
	fmt.Printf("\n%d passed, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Warnings, report.Summary.Errors)
}
