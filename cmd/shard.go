package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bastion-vault/bastion/internal/recovery"
	"github.com/bastion-vault/bastion/internal/sealer"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/storage"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

var (
	shardCount     int
	shardThreshold int
	shardCollect   int
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Split or recover the vault's master entropy with Shamir secret sharing",
}

var shardSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Split the vault's master entropy into trustee shares",
	Args:  cobra.NoArgs,
	RunE:  runShardSetup,
}

var shardRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Rebuild a vault from trustee mnemonic shares",
	Args:  cobra.NoArgs,
	RunE:  runShardRecover,
}

func init() {
	shardSetupCmd.Flags().IntVar(&shardCount, "shards", recovery.DefaultShardCount, "total number of trustee shares")
	shardSetupCmd.Flags().IntVar(&shardThreshold, "threshold", recovery.DefaultThreshold, "number of shares required to recover")
	shardRecoverCmd.Flags().IntVar(&shardCollect, "threshold", recovery.DefaultThreshold, "number of mnemonic shares you will enter")
	shardCmd.AddCommand(shardSetupCmd, shardRecoverCmd)
	rootCmd.AddCommand(shardCmd)
}

func runShardSetup(cmd *cobra.Command, args []string) error {
	vaultPath := GetVaultPath()
	password, err := resolvePassword(vaultPath)
	if err != nil {
		return err
	}

	uv, err := openVault(vaultPath, password)
	if err != nil {
		return err
	}

	result, err := recovery.Setup(uv.state.Entropy, shardCount, shardThreshold)
	if err != nil {
		return fmt.Errorf("failed to split entropy: %w", err)
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventShamirSplit, security.OutcomeSuccess, fmt.Sprintf("%d-of-%d", shardThreshold, shardCount))

	fmt.Printf("Generated %d shares, %d needed to recover. Give one share to each trustee.\n\n", shardCount, shardThreshold)
	for _, share := range result.Shares {
		fmt.Printf("--- Share %d/%d (set %s) ---\n", share.Index, shardCount, share.SetID)
		displayMnemonic(share.Mnemonic)
		fmt.Printf("metadata: setID=%s threshold=%d index=%d payload=%s\n\n",
			share.SetID, share.Threshold, share.Index, share.PayloadHex)
	}
	fmt.Println("Record each share's metadata line alongside its mnemonic -- both are required to recover.")

	return nil
}

func runShardRecover(cmd *cobra.Command, args []string) error {
	entries := make([]recovery.MnemonicEntry, 0, shardCollect)
	for i := 1; i <= shardCollect; i++ {
		fmt.Printf("Share %d/%d\n", i, shardCollect)
		fmt.Print("  mnemonic (24 words): ")
		mnemonic, err := readLineInput()
		if err != nil {
			return err
		}
		fmt.Print("  setID: ")
		setID, err := readLineInput()
		if err != nil {
			return err
		}
		fmt.Print("  threshold: ")
		thresholdStr, err := readLineInput()
		if err != nil {
			return err
		}
		threshold, err := strconv.Atoi(thresholdStr)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", thresholdStr, err)
		}
		fmt.Print("  index: ")
		indexStr, err := readLineInput()
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(indexStr)
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", indexStr, err)
		}
		fmt.Print("  payload: ")
		payload, err := readLineInput()
		if err != nil {
			return err
		}

		entries = append(entries, recovery.MnemonicEntry{
			Mnemonic:   mnemonic,
			SetID:      setID,
			Threshold:  threshold,
			Index:      index,
			PayloadHex: payload,
		})
	}

	entropyHex, err := recovery.RecoverFromMnemonics(entries)
	if err != nil {
		return fmt.Errorf("failed to recover entropy: %w", err)
	}

	state, err := vaultstate.NewFromEntropy(entropyHex)
	if err != nil {
		return err
	}

	vaultPath := GetVaultPath()
	svc, err := storage.New(vaultPath)
	if err != nil {
		return err
	}
	if svc.Exists() {
		return fmt.Errorf("a vault already exists at %s; move it aside before recovering into this path", vaultPath)
	}

	fmt.Print("Choose a new passphrase for the recovered vault: ")
	password, err := readPassword()
	if err != nil {
		return err
	}
	fmt.Println()
	if err := security.DefaultPassphrasePolicy.Validate(password); err != nil {
		return fmt.Errorf("passphrase too weak: %w", err)
	}

	sealed, err := sealer.Seal(state, password)
	if err != nil {
		return err
	}
	if err := svc.SaveBlobs([]string{sealed}); err != nil {
		return err
	}

	logger, _ := auditLogger(vaultPath)
	logEvent(logger, security.EventShamirCombine, security.OutcomeSuccess, "recover")

	fmt.Printf("Recovered vault written to %s. Re-add your logins with 'bastion add' -- generated\n", vaultPath)
	fmt.Println("passwords for the same (service, username, rotation) will match what you had before.")
	return nil
}
