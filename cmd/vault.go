package cmd

import (
	"fmt"
	"time"

	"github.com/bastion-vault/bastion/internal/keychain"
	"github.com/bastion-vault/bastion/internal/sealer"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/storage"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

// unlockedVault bundles the pieces most commands need after a vault
// has been opened: the decrypted state, the index of its blob within
// the file (for re-sealing to the same slot), and the full blob list.
type unlockedVault struct {
	svc   *storage.Service
	state *vaultstate.State
	blobs []string
	index int
}

// openVault loads the vault file at path and tries password against
// every stored blob, returning the first that authenticates. A vault
// file holds one blob per identity; most installations have exactly
// one.
//
// Per the upgrade policy, a blob opened via a pre-v4 strategy is
// immediately re-sealed in the current format before openVault
// returns, so every command -- not just ones that happen to mutate
// state -- carries the vault forward off a legacy format.
func openVault(path string, password []byte) (*unlockedVault, error) {
	svc, err := storage.New(path)
	if err != nil {
		return nil, err
	}
	if !svc.Exists() {
		return nil, fmt.Errorf("no vault found at %s (run 'bastion init' first)", path)
	}

	blobs, err := svc.LoadBlobs()
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}
	if len(blobs) == 0 {
		return nil, storage.ErrIdentityNotFound
	}

	for i, blob := range blobs {
		result, err := sealer.Open(blob, password)
		if err != nil {
			continue
		}
		uv := &unlockedVault{svc: svc, state: result.State, blobs: blobs, index: i}
		if result.Legacy {
			logVerbose("vault opened via legacy format (source version %d); re-sealing", result.SourceVersion)
			if err := uv.save(password); err != nil {
				return nil, fmt.Errorf("failed to re-seal legacy vault: %w", err)
			}
		}
		return uv, nil
	}
	return nil, sealer.ErrOpenFailed
}

// save re-seals uv.state under password into its original blob slot
// and atomically writes the file back.
func (uv *unlockedVault) save(password []byte) error {
	sealed, err := sealer.Seal(uv.state, password)
	if err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}
	uv.blobs[uv.index] = sealed
	return uv.svc.SaveBlobs(uv.blobs)
}

// resolvePassword returns the vault passphrase: from the OS keychain
// when enabled and available, otherwise by prompting on stdin.
func resolvePassword(vaultPath string) ([]byte, error) {
	if keychainEnabled() {
		ks := keychain.New(getVaultID(vaultPath))
		if stored, err := ks.Retrieve(); err == nil {
			return []byte(stored), nil
		}
	}
	fmt.Print("Passphrase: ")
	password, err := readPassword()
	if err != nil {
		return nil, err
	}
	fmt.Println()
	return password, nil
}

// auditLogger opens this vault's audit logger when auditing is
// enabled in config; it returns nil, nil when auditing is off so
// callers can treat a nil logger as a silent no-op.
func auditLogger(vaultPath string) (*security.AuditLogger, error) {
	if !auditLogEnabled() {
		return nil, nil
	}
	logPath := getAuditLogPath(vaultPath)
	vaultID := getVaultID(vaultPath)
	logger, err := security.NewAuditLogger(logPath, vaultID)
	if err != nil {
		logVerbose("audit logger unavailable: %v", err)
		return nil, nil
	}
	return logger, nil
}

// logEvent appends an audit entry if logger is non-nil, swallowing
// the error after logging it verbosely -- auditing must never block a
// vault operation from completing.
func logEvent(logger *security.AuditLogger, eventType, outcome, subject string) {
	if logger == nil {
		return
	}
	entry := &security.AuditLogEntry{
		EventType: eventType,
		Outcome:   outcome,
		Subject:   subject,
	}
	entry.Timestamp = time.Now()
	if err := logger.Log(entry); err != nil {
		logVerbose("failed to write audit entry: %v", err)
	}
}
