package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"
)

// AuditLogEntry is a single tamper-evident record of a vault lifecycle
// event. The HMAC signature covers timestamp, event type, outcome, and
// subject, in that fixed order, so an attacker who can edit the log
// file cannot also forge a matching signature without the audit key.
type AuditLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	Outcome       string    `json:"outcome"`
	Subject       string    `json:"subject"` // config name, locker label, or shard set id -- never a secret
	HMACSignature []byte    `json:"hmac_signature"`
}

// Event type constants, one per vault lifecycle operation this engine
// exposes.
const (
	EventVaultSeal             = "vault_seal"
	EventVaultOpen             = "vault_open"
	EventVaultPassphraseChange = "vault_passphrase_change"
	EventConfigAdd             = "config_add"
	EventConfigRotate          = "config_rotate"
	EventConfigDelete          = "config_delete"
	EventLockerEncrypt         = "locker_encrypt"
	EventLockerDecrypt         = "locker_decrypt"
	EventShamirSplit           = "shamir_split"
	EventShamirCombine         = "shamir_combine"
	EventTOTPAttach            = "totp_attach"
	EventTOTPAccess            = "totp_access"
	EventKeychainEnable        = "keychain_enable"
	EventKeychainStatus        = "keychain_status"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAttempt = "attempt"
)

// AuditLogger appends signed, JSON-lines entries to a log file and
// rotates it once it grows past maxSizeBytes.
type AuditLogger struct {
	filePath     string
	maxSizeBytes int64
	currentSize  int64
	auditKey     []byte
}

// Sign computes the entry's HMAC-SHA256 signature under key.
func (e *AuditLogEntry) Sign(key []byte) {
	mac := hmac.New(sha256.New, key)
	mac.Write(e.canonicalBytes())
	e.HMACSignature = mac.Sum(nil)
}

// Verify reports whether the entry's signature matches key, in
// constant time.
func (e *AuditLogEntry) Verify(key []byte) error {
	mac := hmac.New(sha256.New, key)
	mac.Write(e.canonicalBytes())
	expected := mac.Sum(nil)

	if !hmac.Equal(e.HMACSignature, expected) {
		return fmt.Errorf("audit: signature verification failed at %s", e.Timestamp)
	}
	return nil
}

func (e *AuditLogEntry) canonicalBytes() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s",
		e.Timestamp.Format(time.RFC3339Nano), e.EventType, e.Outcome, e.Subject))
}

// ShouldRotate reports whether the log has grown past its size limit.
func (l *AuditLogger) ShouldRotate() bool {
	return l.currentSize >= l.maxSizeBytes
}

// Rotate renames the current log to ".old", deleting any prior ".old"
// file older than 7 days, then starts a fresh empty log.
func (l *AuditLogger) Rotate() error {
	oldPath := l.filePath + ".old"
	if info, err := os.Stat(oldPath); err == nil {
		if time.Since(info.ModTime()) > 7*24*time.Hour {
			if err := os.Remove(oldPath); err != nil {
				fmt.Fprintf(os.Stderr, "audit: failed to prune old log: %v\n", err)
			}
		}
	}

	if err := os.Rename(l.filePath, oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("audit: failed to rotate log: %w", err)
	}

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to create new log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audit: failed to close new log: %w", err)
	}

	l.currentSize = 0
	return nil
}

// Log signs entry, rotates the log if it has grown too large, and
// appends the entry as one JSON line.
func (l *AuditLogger) Log(entry *AuditLogEntry) error {
	entry.Sign(l.auditKey)

	if l.ShouldRotate() {
		if err := l.Rotate(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal entry: %w", err)
	}

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: failed to write entry: %w", err)
	}

	l.currentSize += int64(len(data) + 1)
	return nil
}

const (
	auditKeyService = "bastion-vault-audit"
	auditKeyLength  = 32
	auditSaltLength = 32
)

// GenerateAuditSalt creates a new random salt for password-derived
// audit key mode.
func GenerateAuditSalt() ([]byte, error) {
	salt := make([]byte, auditSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("audit: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveAuditKey derives an audit HMAC key from the vault passphrase
// and a salt, independent of the OS keychain, so the log can be
// verified on a machine where the vault was never unlocked via
// keychain-backed mode.
func DeriveAuditKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("audit: passphrase is empty")
	}
	if len(salt) != auditSaltLength {
		return nil, fmt.Errorf("audit: invalid salt length: got %d, want %d", len(salt), auditSaltLength)
	}
	return pbkdf2.Key(passphrase, salt, 100000, auditKeyLength, sha256.New), nil
}

// GetOrCreateAuditKey fetches the identity's audit key from the OS
// keychain, generating and storing a fresh one on first use.
func GetOrCreateAuditKey(identityID string) ([]byte, error) {
	keyHex, err := keyring.Get(auditKeyService, identityID)
	if err == nil {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to decode stored key: %w", err)
		}
		if len(key) != auditKeyLength {
			return nil, fmt.Errorf("audit: invalid stored key length: got %d, want %d", len(key), auditKeyLength)
		}
		return key, nil
	}

	key := make([]byte, auditKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("audit: failed to generate key: %w", err)
	}
	if err := keyring.Set(auditKeyService, identityID, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("audit: failed to store key in keychain: %w", err)
	}
	return key, nil
}

// DeleteAuditKey removes the identity's audit key from the OS
// keychain. Absence is not an error.
func DeleteAuditKey(identityID string) error {
	if err := keyring.Delete(auditKeyService, identityID); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("audit: failed to delete key: %w", err)
	}
	return nil
}

// NewAuditLogger opens (or creates) a logger whose key is pulled from
// the OS keychain under identityID.
func NewAuditLogger(filePath, identityID string) (*AuditLogger, error) {
	key, err := GetOrCreateAuditKey(identityID)
	if err != nil {
		return nil, err
	}
	return newLoggerWithKey(filePath, key)
}

// NewAuditLoggerPortable derives the audit key from the vault
// passphrase instead of the keychain, so the log stays verifiable
// when the vault file is copied to a machine with no keychain entry
// for it. When existingSalt is nil a fresh salt is generated and
// returned for the caller to persist alongside the vault.
func NewAuditLoggerPortable(filePath, passphrase, existingSalt []byte) (*AuditLogger, []byte, error) {
	salt := existingSalt
	if len(salt) == 0 {
		var err error
		salt, err = GenerateAuditSalt()
		if err != nil {
			return nil, nil, err
		}
	}
	key, err := DeriveAuditKey(passphrase, salt)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLoggerWithKey(filePath, key)
	return logger, salt, err
}

func newLoggerWithKey(filePath string, key []byte) (*AuditLogger, error) {
	var currentSize int64
	if info, err := os.Stat(filePath); err == nil {
		currentSize = info.Size()
	}
	return &AuditLogger{
		filePath:     filePath,
		maxSizeBytes: 10 * 1024 * 1024,
		currentSize:  currentSize,
		auditKey:     key,
	}, nil
}
