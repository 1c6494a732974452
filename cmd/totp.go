package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/totp"
)

var totpQRFile string

var totpCmd = &cobra.Command{
	Use:   "totp",
	Short: "Attach and read two-factor codes on a login entry",
}

var totpAttachCmd = &cobra.Command{
	Use:   "attach <service> <secret>",
	Short: "Attach a base32 TOTP secret to a login entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runTOTPAttach,
}

var totpShowCmd = &cobra.Command{
	Use:   "show <service>",
	Short: "Print the current TOTP code for a login entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTOTPShow,
}

func init() {
	totpAttachCmd.Flags().StringVar(&totpQRFile, "qr-file", "", "also write a scannable QR code PNG to this path")
	totpCmd.AddCommand(totpAttachCmd, totpShowCmd)
	rootCmd.AddCommand(totpCmd)
}

func runTOTPAttach(cmd *cobra.Command, args []string) error {
	service, secret := args[0], args[1]
	if err := totp.ValidateSecret(secret); err != nil {
		return err
	}

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
	entry.TOTPSecret = secret
	entry.UpdatedAt = time.Now().UnixMilli()
	i := uv.state.FindConfig(entry.ID)
	uv.state.Configs[i] = entry
	uv.state.Touch()

	if err := uv.save(password); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventTOTPAttach, security.OutcomeSuccess, service)

	uri := totp.BuildURI(secret, "Bastion", service)
	fmt.Printf("TOTP attached to %q.\n", service)

	qrterminal.GenerateWithConfig(uri, qrterminal.Config{
		Level:     qrterminal.L,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})

	if totpQRFile != "" {
		if err := qrcode.WriteFile(uri, qrcode.Medium, 256, totpQRFile); err != nil {
			return fmt.Errorf("failed to write QR code file: %w", err)
		}
		fmt.Printf("QR code written to %s\n", totpQRFile)
	}

	return nil
}

func runTOTPShow(cmd *cobra.Command, args []string) error {
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
	if entry.TOTPSecret == "" {
		return fmt.Errorf("%q has no TOTP secret attached", service)
	}

	code, remaining, err := totp.GenerateCode(entry.TOTPSecret)
	if err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventTOTPAccess, security.OutcomeSuccess, service)

	if IsJSON() {
		fmt.Printf("{\"code\":%q,\"remainingSeconds\":%d}\n", code, remaining)
	} else {
		fmt.Printf("Code: %s (valid for %ds)\n", code, remaining)
	}
	return nil
}
