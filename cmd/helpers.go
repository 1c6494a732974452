package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Package-level scanner for test-mode stdin reading, shared across all
// stdin reads so piped input isn't split across independent readers.
var (
	testStdinScanner *bufio.Scanner
	scannerOnce      sync.Once
)

func isTestMode() bool {
	return os.Getenv("BASTION_TEST") == "1"
}

func readLine() (string, error) {
	scannerOnce.Do(func() {
		testStdinScanner = bufio.NewScanner(os.Stdin)
	})
	if !testStdinScanner.Scan() {
		if err := testStdinScanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("no input provided")
	}
	return testStdinScanner.Text(), nil
}

// readLineInput reads a line from stdin, trimmed of surrounding
// whitespace.
func readLineInput() (string, error) {
	if isTestMode() {
		return readLine()
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a passphrase from stdin without echoing it when
// stdin is a terminal; in test mode or when piped, it reads a plain
// line so commands stay scriptable.
func readPassword() ([]byte, error) {
	if isTestMode() {
		line, err := readLine()
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		return []byte(line), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		return []byte(strings.TrimSuffix(line, "\n")), nil
	}

	passwordBytes, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passwordBytes, nil
}

// promptYesNo prompts for a yes/no confirmation, using defaultYes when
// the user presses enter without typing anything.
func promptYesNo(prompt string, defaultYes bool) (bool, error) {
	if defaultYes {
		fmt.Printf("%s (Y/n): ", prompt)
	} else {
		fmt.Printf("%s (y/N): ", prompt)
	}

	response, err := readLineInput()
	if err != nil {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))

	switch response {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return defaultYes, nil
	}
}

// getVaultID derives the keychain/audit scoping identity for a vault
// path from the directory it lives in.
func getVaultID(vaultPath string) string {
	return filepath.Base(filepath.Dir(vaultPath))
}

// getAuditLogPath returns the audit log path alongside the vault,
// honoring BASTION_AUDIT_LOG for a custom location.
func getAuditLogPath(vaultPath string) string {
	if p := os.Getenv("BASTION_AUDIT_LOG"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(vaultPath), "audit.log")
}

// logVerbose logs to stderr only when verbose mode is enabled.
func logVerbose(format string, args ...interface{}) {
	if IsVerbose() {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// formatRelativeTime renders a timestamp as a human-friendly relative
// duration, e.g. "3 hours ago".
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		return "in the future"
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return pluralize(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return pluralize(int(d.Hours()), "hour") + " ago"
	case d < 7*24*time.Hour:
		return pluralize(int(d.Hours()/24), "day") + " ago"
	case d < 30*24*time.Hour:
		return pluralize(int(d.Hours()/(24*7)), "week") + " ago"
	case d < 365*24*time.Hour:
		return pluralize(int(d.Hours()/(24*30)), "month") + " ago"
	default:
		return pluralize(int(d.Hours()/(24*365)), "year") + " ago"
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// formatSize renders a byte count as a human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// displayMnemonic renders a 24-word BIP39 phrase as a 4x6 grid, used
// when printing shard backup ceremony shares for transcription.
func displayMnemonic(mnemonic string) {
	words := strings.Fields(mnemonic)
	if len(words) != 24 {
		fmt.Printf("invalid mnemonic: expected 24 words, got %d\n", len(words))
		return
	}
	for row := 0; row < 6; row++ {
		line := ""
		for col := 0; col < 4; col++ {
			idx := col*6 + row
			line += fmt.Sprintf("%3d. %-12s ", idx+1, words[idx])
		}
		fmt.Println(line)
	}
}
