package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/security"
)

var verifyAuditCmd = &cobra.Command{
	Use:   "verify-audit",
	Short: "Verify the HMAC signature of every entry in the audit log",
	Args:  cobra.NoArgs,
	RunE:  runVerifyAudit,
}

func init() {
	rootCmd.AddCommand(verifyAuditCmd)
}

func runVerifyAudit(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()
	logPath := getAuditLogPath(vaultPath)

	f, err := os.Open(logPath) // #nosec G304 -- path is derived from config/flags, not external input
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No audit log found; nothing to verify.")
			return nil
		}
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	key, err := security.GetOrCreateAuditKey(getVaultID(vaultPath))
	if err != nil {
		return fmt.Errorf("failed to load audit key: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var total, failed int
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		total++

		var entry security.AuditLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			failed++
			fmt.Printf("entry %d: malformed JSON: %v\n", total, err)
			continue
		}
		if err := entry.Verify(key); err != nil {
			failed++
			fmt.Printf("entry %d (%s at %s): %v\n", total, entry.EventType, entry.Timestamp, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if failed == 0 {
		fmt.Printf("Verified %d entries, all signatures valid.\n", total)
		return nil
	}
	return fmt.Errorf("%d of %d entries failed signature verification", failed, total)
}
