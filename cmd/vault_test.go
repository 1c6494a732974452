package cmd

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastion-vault/bastion/internal/aead"
	"github.com/bastion-vault/bastion/internal/config"
	"github.com/bastion-vault/bastion/internal/kdf"
	"github.com/bastion-vault/bastion/internal/sealer"
	"github.com/bastion-vault/bastion/internal/security"
	"github.com/bastion-vault/bastion/internal/serial"
	"github.com/bastion-vault/bastion/internal/storage"
	"github.com/bastion-vault/bastion/internal/vaultstate"
)

func seedVault(t *testing.T, vaultPath string, password []byte) *vaultstate.State {
	t.Helper()
	state, err := vaultstate.New()
	require.NoError(t, err)

	sealed, err := sealer.Seal(state, password)
	require.NoError(t, err)

	svc, err := storage.New(vaultPath)
	require.NoError(t, err)
	require.NoError(t, svc.SaveBlobs([]string{sealed}))

	return state
}

func TestOpenVaultSucceedsWithCorrectPassword(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	password := []byte("correct horse battery staple 9!")
	seedVault(t, vaultPath, password)

	uv, err := openVault(vaultPath, password)
	require.NoError(t, err)
	assert.Equal(t, 0, uv.index)
	assert.Len(t, uv.blobs, 1)
	assert.Empty(t, uv.state.Configs)
}

func TestOpenVaultRejectsWrongPassword(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	seedVault(t, vaultPath, []byte("correct horse battery staple 9!"))

	_, err := openVault(vaultPath, []byte("wrong password entirely 123!"))
	assert.Error(t, err)
}

func TestOpenVaultMissingFile(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "does-not-exist.dat")
	_, err := openVault(vaultPath, []byte("anything"))
	assert.Error(t, err)
}

func TestOpenVaultTriesEveryBlob(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	passwordA := []byte("identity a passphrase is long!!")
	passwordB := []byte("identity b passphrase is long!!")

	stateA, err := vaultstate.New()
	require.NoError(t, err)
	stateB, err := vaultstate.New()
	require.NoError(t, err)

	sealedA, err := sealer.Seal(stateA, passwordA)
	require.NoError(t, err)
	sealedB, err := sealer.Seal(stateB, passwordB)
	require.NoError(t, err)

	svc, err := storage.New(vaultPath)
	require.NoError(t, err)
	require.NoError(t, svc.SaveBlobs([]string{sealedA, sealedB}))

	uv, err := openVault(vaultPath, passwordB)
	require.NoError(t, err)
	assert.Equal(t, 1, uv.index)
	assert.Equal(t, stateB.Entropy, uv.state.Entropy)
}

func TestUnlockedVaultSaveReseatsSameSlot(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	password := []byte("correct horse battery staple 9!")
	seedVault(t, vaultPath, password)

	uv, err := openVault(vaultPath, password)
	require.NoError(t, err)

	uv.state.AddConfig(vaultstate.Config{Name: "example.com", Username: "alice"})
	require.NoError(t, uv.save(password))
	require.Len(t, uv.blobs, 1)

	reopened, err := openVault(vaultPath, password)
	require.NoError(t, err)
	require.Len(t, reopened.state.Configs, 1)
	assert.Equal(t, "example.com", reopened.state.Configs[0].Name)
}

// legacyBlob hand-builds a V2-header blob the way a pre-v4 release
// would have sealed it, mirroring internal/sealer's own legacy test
// fixture but using only the package's exported primitives.
func legacyBlob(t *testing.T, password []byte, state *vaultstate.State) string {
	t.Helper()
	payload := serial.CanonicalSerialize(state)

	salt := make([]byte, 16)
	for i := range salt {
		salt[i] = byte(i + 1)
	}
	effSalt := kdf.DomainSeparatedSalt(salt)
	key := kdf.PBKDF2Derive(password, effSalt, kdf.IterationsV2V1, kdf.SHA256, aead.KeyLength)
	iv, ct, err := aead.SealFresh(key, payload)
	require.NoError(t, err)

	raw := append([]byte("BSTN"), 0x02)
	raw = append(raw, salt...)
	raw = append(raw, iv...)
	raw = append(raw, ct...)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestOpenVaultReSealsLegacyBlob(t *testing.T) {
	vaultPath := filepath.Join(t.TempDir(), "vault.dat")
	password := []byte("legacy vault passphrase, long!!")

	state, err := vaultstate.New()
	require.NoError(t, err)
	state.AddConfig(vaultstate.Config{Name: "legacy.example", Username: "bob"})

	blob := legacyBlob(t, password, state)

	svc, err := storage.New(vaultPath)
	require.NoError(t, err)
	require.NoError(t, svc.SaveBlobs([]string{blob}))

	uv, err := openVault(vaultPath, password)
	require.NoError(t, err)
	require.Len(t, uv.state.Configs, 1)
	assert.Equal(t, "legacy.example", uv.state.Configs[0].Name)

	// The caller must never see the legacy blob again -- openVault is
	// required to re-seal it in the current format before returning.
	reloaded, err := svc.LoadBlobs()
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.NotEqual(t, blob, reloaded[0])

	result, err := sealer.Open(reloaded[0], password)
	require.NoError(t, err)
	assert.Equal(t, 4, result.SourceVersion)
	assert.False(t, result.Legacy)
	assert.True(t, state.Equal(result.State))
}

func TestAuditLoggerNoopWhenDisabled(t *testing.T) {
	orig := loadedConfig
	defer func() { loadedConfig = orig }()

	loadedConfig = &config.Config{AuditLogEnabled: false}

	logger, err := auditLogger(filepath.Join(t.TempDir(), "vault.dat"))
	require.NoError(t, err)
	assert.Nil(t, logger)

	// logEvent on a nil logger must be a safe no-op.
	logEvent(logger, security.EventVaultSeal, security.OutcomeSuccess, "test")
}
