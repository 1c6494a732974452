package security

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestAuditLogEntrySignPopulatesSignature(t *testing.T) {
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventVaultOpen, Outcome: OutcomeSuccess}
	entry.Sign(randomKey(t))
	if len(entry.HMACSignature) == 0 {
		t.Error("Sign() did not populate HMACSignature")
	}
}

func TestAuditLogEntryVerifySucceedsWithSameKey(t *testing.T) {
	key := randomKey(t)
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventConfigAdd, Outcome: OutcomeSuccess, Subject: "example.com"}
	entry.Sign(key)
	if err := entry.Verify(key); err != nil {
		t.Errorf("Verify() failed for valid signature: %v", err)
	}
}

func TestAuditLogEntryVerifyFailsWithWrongKey(t *testing.T) {
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventVaultOpen, Outcome: OutcomeSuccess}
	entry.Sign(randomKey(t))
	if err := entry.Verify(randomKey(t)); err == nil {
		t.Error("Verify() should fail with a different key")
	}
}

func TestAuditLogEntryTamperDetectionEventType(t *testing.T) {
	key := randomKey(t)
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventVaultOpen, Outcome: OutcomeSuccess}
	entry.Sign(key)
	entry.EventType = EventVaultSeal
	if err := entry.Verify(key); err == nil {
		t.Error("Verify() should fail after tampering with EventType")
	}
}

func TestAuditLogEntryTamperDetectionOutcome(t *testing.T) {
	key := randomKey(t)
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventConfigAdd, Outcome: OutcomeSuccess, Subject: "example.com"}
	entry.Sign(key)
	entry.Outcome = OutcomeFailure
	if err := entry.Verify(key); err == nil {
		t.Error("Verify() should fail after tampering with Outcome")
	}
}

func TestAuditLogEntryTamperDetectionSubject(t *testing.T) {
	key := randomKey(t)
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventConfigAdd, Outcome: OutcomeSuccess, Subject: "original.com"}
	entry.Sign(key)
	entry.Subject = "tampered.com"
	if err := entry.Verify(key); err == nil {
		t.Error("Verify() should fail after tampering with Subject")
	}
}

func TestAuditLogEntryTamperDetectionTimestamp(t *testing.T) {
	key := randomKey(t)
	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventVaultOpen, Outcome: OutcomeSuccess}
	entry.Sign(key)
	entry.Timestamp = entry.Timestamp.Add(time.Hour)
	if err := entry.Verify(key); err == nil {
		t.Error("Verify() should fail after tampering with Timestamp")
	}
}

func TestAuditLoggerShouldRotate(t *testing.T) {
	logger := &AuditLogger{maxSizeBytes: 10 * 1024 * 1024, currentSize: 5 * 1024 * 1024}
	if logger.ShouldRotate() {
		t.Error("ShouldRotate() should be false under threshold")
	}
	logger.currentSize = 10*1024*1024 + 1
	if !logger.ShouldRotate() {
		t.Error("ShouldRotate() should be true over threshold")
	}
}

func TestAuditLoggerRotate(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "audit.log")
	if err := os.WriteFile(logPath, []byte("prior log content"), 0600); err != nil {
		t.Fatalf("failed to seed log file: %v", err)
	}

	logger := &AuditLogger{filePath: logPath, maxSizeBytes: 100, currentSize: 200, auditKey: randomKey(t)}
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate() failed: %v", err)
	}

	if _, err := os.Stat(logPath + ".old"); os.IsNotExist(err) {
		t.Error("Rotate() did not create .old file")
	}
	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Rotate() did not create a new log: %v", err)
	}
	if info.Size() != 0 {
		t.Error("Rotate() left the new log non-empty")
	}
	if logger.currentSize != 0 {
		t.Errorf("Rotate() did not reset currentSize, got %d", logger.currentSize)
	}
}

func TestAuditLoggerRotatePrunesOldLogAfterSevenDays(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "audit.log")
	oldPath := logPath + ".old"

	if err := os.WriteFile(logPath, []byte("current"), 0600); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}
	if err := os.WriteFile(oldPath, []byte("ancient"), 0600); err != nil {
		t.Fatalf("failed to seed old log: %v", err)
	}
	stale := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("failed to backdate old log: %v", err)
	}

	logger := &AuditLogger{filePath: logPath, maxSizeBytes: 1, currentSize: 2, auditKey: randomKey(t)}
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate() failed: %v", err)
	}

	if _, err := os.Stat(oldPath); err != nil {
		t.Error("Rotate() should have replaced the pruned .old with the rotated current log")
	}
}

func TestAuditLoggerLogWritesSignedJSONLine(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "audit.log")
	logger := &AuditLogger{filePath: logPath, maxSizeBytes: 10 * 1024 * 1024, auditKey: randomKey(t)}

	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventConfigAdd, Outcome: OutcomeSuccess, Subject: "example.com"}
	if err := logger.Log(entry); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if len(content) == 0 {
		t.Error("log file is empty after Log()")
	}
	if content[len(content)-1] != '\n' {
		t.Error("Log() should terminate the entry with a newline")
	}
}

func TestAuditLoggerLogTriggersRotation(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "audit.log")
	logger := &AuditLogger{filePath: logPath, maxSizeBytes: 1, currentSize: 2, auditKey: randomKey(t)}

	entry := &AuditLogEntry{Timestamp: time.Now(), EventType: EventVaultOpen, Outcome: OutcomeSuccess}
	if err := logger.Log(entry); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if _, err := os.Stat(logPath + ".old"); os.IsNotExist(err) {
		t.Error("Log() should have rotated before writing once over threshold")
	}
}

func TestDeriveAuditKeyDeterministic(t *testing.T) {
	salt, err := GenerateAuditSalt()
	if err != nil {
		t.Fatalf("GenerateAuditSalt() failed: %v", err)
	}
	k1, err := DeriveAuditKey([]byte("correct-horse"), salt)
	if err != nil {
		t.Fatalf("DeriveAuditKey() failed: %v", err)
	}
	k2, err := DeriveAuditKey([]byte("correct-horse"), salt)
	if err != nil {
		t.Fatalf("DeriveAuditKey() failed: %v", err)
	}
	if string(k1) != string(k2) {
		t.Error("DeriveAuditKey() is not deterministic for the same passphrase and salt")
	}
}

func TestDeriveAuditKeyRejectsEmptyPassphrase(t *testing.T) {
	salt, _ := GenerateAuditSalt()
	if _, err := DeriveAuditKey(nil, salt); err == nil {
		t.Error("DeriveAuditKey() should reject an empty passphrase")
	}
}

func TestDeriveAuditKeyRejectsWrongSaltLength(t *testing.T) {
	if _, err := DeriveAuditKey([]byte("x"), []byte("too-short")); err == nil {
		t.Error("DeriveAuditKey() should reject a malformed salt")
	}
}
