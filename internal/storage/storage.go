// Package storage implements the persisted layout of §6: a vault file
// is the ASCII prefix "BASTION_V3::" followed by base64 of a JSON
// array of sealed blobs, one per identity. It adapts the teacher's
// atomic-save technique (temp file, re-read-and-compare verification
// before commit, automatic backup, crash rollback) to that multi-blob
// layout instead of a single encrypted record.
package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastion-vault/bastion/internal/sealer"
)

const (
	// FilePrefix is written on every save; on read, both the prefixed
	// form and a bare JSON array (without the prefix, for backward
	// compatibility with files this engine did not produce) are
	// accepted.
	FilePrefix = "BASTION_V3::"

	// Permissions is the POSIX mode the vault file should carry. The
	// core surfaces the requirement; enforcing it is the host's job.
	Permissions = 0600

	backupSuffix = ".backup"
	tempSuffix   = ".tmp"
)

var (
	ErrVaultNotFound    = errors.New("storage: vault file not found")
	ErrVaultCorrupted   = errors.New("storage: vault file corrupted")
	ErrIdentityNotFound = errors.New("storage: no blob in the file authenticated with the given password")
)

// Service reads and atomically writes a multi-identity vault file.
type Service struct {
	path string
}

// New creates a Service bound to path, ensuring its parent directory
// exists.
func New(path string) (*Service, error) {
	if path == "" {
		return nil, errors.New("storage: empty vault path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("storage: failed to create vault directory: %w", err)
	}
	return &Service{path: path}, nil
}

// Exists reports whether the vault file is present.
func (s *Service) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// LoadBlobs reads and parses the vault file into its ordered list of
// sealed blobs, accepting both the prefixed and bare-array forms.
func (s *Service) LoadBlobs() ([]string, error) {
	raw, err := os.ReadFile(s.path) // #nosec G304 -- path is owned by this Service, set at construction
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("storage: %w", err)
	}

	body := string(raw)
	if len(body) >= len(FilePrefix) && body[:len(FilePrefix)] == FilePrefix {
		body = body[len(FilePrefix):]
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, ErrVaultCorrupted
		}
		var blobs []string
		if err := json.Unmarshal(decoded, &blobs); err != nil {
			return nil, ErrVaultCorrupted
		}
		return blobs, nil
	}

	// Backward compatibility: a bare JSON array, or a single bare blob.
	var blobs []string
	if err := json.Unmarshal(raw, &blobs); err == nil {
		return blobs, nil
	}
	return []string{body}, nil
}

// SaveBlobs atomically writes blobs to the vault file in the prefixed
// form, keeping a rolling backup of the previous contents and rolling
// back automatically if the final rename fails.
func (s *Service) SaveBlobs(blobs []string) error {
	encoded, err := json.Marshal(blobs)
	if err != nil {
		return fmt.Errorf("storage: failed to marshal blob array: %w", err)
	}
	contents := FilePrefix + base64.StdEncoding.EncodeToString(encoded)

	s.cleanupOrphanedTempFiles()

	tempPath := s.tempFileName()
	if err := writeFile(tempPath, []byte(contents)); err != nil {
		return err
	}
	defer func() { _ = os.Remove(tempPath) }()

	// Verification: every blob we are about to commit must itself be
	// parseable back into the same array we just wrote, so a partial
	// or truncated write is never promoted to the live vault file.
	if err := verifyTempFile(tempPath, blobs); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	backupPath := s.path + backupSuffix
	if s.Exists() {
		if err := os.Rename(s.path, backupPath); err != nil {
			return fmt.Errorf("storage: failed to create backup: %w", err)
		}
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		// Roll back: restore the backup we just created.
		_ = os.Rename(backupPath, s.path)
		return fmt.Errorf("storage: failed to commit vault file, rolled back: %w", err)
	}

	return nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, Permissions) // #nosec G304 -- path generated internally
	if err != nil {
		return fmt.Errorf("storage: failed to open temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("storage: failed to write temp file: %w", err)
	}
	return f.Sync()
}

func verifyTempFile(path string, want []string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- path generated internally
	if err != nil {
		return fmt.Errorf("storage: verification read failed: %w", err)
	}
	body := string(raw)[len(FilePrefix):]
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return fmt.Errorf("storage: verification decode failed: %w", err)
	}
	var got []string
	if err := json.Unmarshal(decoded, &got); err != nil {
		return fmt.Errorf("storage: verification parse failed: %w", err)
	}
	if len(got) != len(want) {
		return errors.New("storage: verification mismatch")
	}
	for i := range got {
		if got[i] != want[i] {
			return errors.New("storage: verification mismatch")
		}
	}
	return nil
}

func (s *Service) tempFileName() string {
	return fmt.Sprintf("%s%s.%d", s.path, tempSuffix, time.Now().UnixNano())
}

func (s *Service) cleanupOrphanedTempFiles() {
	matches, err := filepath.Glob(s.path + tempSuffix + ".*")
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// OpenAny tries every blob in the file against password, in order, and
// returns the first that authenticates — "the first that authenticates
// is the active one" per §9's version-negotiation note.
func (s *Service) OpenAny(password []byte) (*sealer.OpenResult, int, error) {
	blobs, err := s.LoadBlobs()
	if err != nil {
		return nil, -1, err
	}
	for i, blob := range blobs {
		res, err := sealer.Open(blob, password)
		if err == nil {
			return res, i, nil
		}
	}
	return nil, -1, ErrIdentityNotFound
}
