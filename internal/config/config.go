// Package config loads the ~/.config/bastion/config.yml settings file
// with Viper: the vault file location and whether the OS keychain and
// audit log are enabled by default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the root settings object.
type Config struct {
	VaultPath       string `mapstructure:"vault_path"`
	KeychainEnabled bool   `mapstructure:"keychain_enabled"`
	AuditLogEnabled bool   `mapstructure:"audit_log_enabled"`

	LoadErrors []string `mapstructure:"-"`
}

// ValidationResult is the outcome of checking configuration correctness.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

type ValidationError struct {
	Field   string
	Message string
}

type ValidationWarning struct {
	Field   string
	Message string
}

// GetDefaults returns the default configuration.
func GetDefaults() *Config {
	return &Config{
		VaultPath:       "",
		KeychainEnabled: true,
		AuditLogEnabled: true,
		LoadErrors:      []string{},
	}
}

// GetConfigPath returns the OS-appropriate config file path, honoring
// BASTION_CONFIG for tests and overrides.
func GetConfigPath() (string, error) {
	if envPath := os.Getenv("BASTION_CONFIG"); envPath != "" {
		return envPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".bastion")
	} else {
		configDir = filepath.Join(configDir, "bastion")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("config: cannot create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

// GetDefaultConfigTemplate returns the default config file content with
// explanatory comments, suitable for writing out on first run.
func GetDefaultConfigTemplate() string {
	return `# Bastion vault configuration.
# All settings are optional; missing values fall back to the defaults below.

# Path to the vault file. Empty means the platform default location.
vault_path: ""

# Store the master passphrase in the OS keychain when the vault is created
# or its passphrase is changed, so later commands don't re-prompt.
keychain_enabled: true

# Append a signed, tamper-evident record of vault lifecycle events
# (open, seal, passphrase change, shard ceremonies) to an audit log.
audit_log_enabled: true
`
}

func shouldLogConfig() bool {
	return os.Getenv("BASTION_TEST") == ""
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(configPath string) (*Config, *ValidationResult) {
	if shouldLogConfig() {
		fmt.Fprintf(os.Stderr, "[config] loading from: %s\n", configPath)
	}

	fileInfo, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return GetDefaults(), &ValidationResult{Valid: true}
	}
	if err != nil {
		return GetDefaults(), &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "config_file", Message: fmt.Sprintf("cannot access config file: %v", err)}},
		}
	}

	const maxFileSize = 100 * 1024
	if fileInfo.Size() > maxFileSize {
		return GetDefaults(), &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "config_file",
				Message: fmt.Sprintf("config file too large (size: %d KB, max: 100 KB)", fileInfo.Size()/1024),
			}},
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	defaults := GetDefaults()
	v.SetDefault("vault_path", defaults.VaultPath)
	v.SetDefault("keychain_enabled", defaults.KeychainEnabled)
	v.SetDefault("audit_log_enabled", defaults.AuditLogEnabled)

	if err := v.ReadInConfig(); err != nil {
		return GetDefaults(), &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "config_file", Message: fmt.Sprintf("failed to parse YAML: %v", err)}},
		}
	}

	warnings := detectUnknownFields(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return GetDefaults(), &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "config_file", Message: fmt.Sprintf("failed to unmarshal config: %v", err)}},
		}
	}

	result := cfg.Validate()
	result.Warnings = append(result.Warnings, warnings...)

	if !result.Valid {
		return GetDefaults(), result
	}
	return &cfg, result
}

// Load loads configuration from the default config path.
func Load() (*Config, *ValidationResult) {
	configPath, err := GetConfigPath()
	if err != nil {
		return GetDefaults(), &ValidationResult{
			Valid:    true,
			Warnings: []ValidationWarning{{Field: "config_path", Message: fmt.Sprintf("cannot determine config path: %v", err)}},
		}
	}
	return LoadFromPath(configPath)
}

// Validate validates the configuration.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
	result = c.validateVaultPath(result)
	if len(result.Errors) > 0 {
		result.Valid = false
	}
	return result
}

func (c *Config) validateVaultPath(result *ValidationResult) *ValidationResult {
	if c.VaultPath == "" {
		return result
	}

	if containsNullByte(c.VaultPath) {
		result.Errors = append(result.Errors, ValidationError{Field: "vault_path", Message: "path contains null byte"})
		return result
	}

	expandedPath := os.ExpandEnv(c.VaultPath)
	if len(expandedPath) > 0 && expandedPath[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			expandedPath = filepath.Join(home, expandedPath[1:])
		}
	}

	if !filepath.IsAbs(expandedPath) && !isPathWithVariable(c.VaultPath) && !filepath.IsAbs(c.VaultPath) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "vault_path",
			Message: fmt.Sprintf("relative path %q will be resolved relative to home directory", c.VaultPath),
		})
	}

	if filepath.IsAbs(expandedPath) {
		parentDir := filepath.Dir(expandedPath)
		if _, err := os.Stat(parentDir); err != nil {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "vault_path",
				Message: fmt.Sprintf("parent directory %q does not exist or is not accessible", parentDir),
			})
		}
	}

	return result
}

func detectUnknownFields(v *viper.Viper) []ValidationWarning {
	knownFields := map[string]bool{
		"vault_path":        true,
		"keychain_enabled":  true,
		"audit_log_enabled": true,
	}

	var warnings []ValidationWarning
	for _, key := range v.AllKeys() {
		if !knownFields[key] {
			warnings = append(warnings, ValidationWarning{Field: key, Message: fmt.Sprintf("unknown field %q (ignored)", key)})
		}
	}
	return warnings
}

func containsNullByte(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\x00' {
			return true
		}
	}
	return false
}

func isPathWithVariable(path string) bool {
	if len(path) > 0 && path[0] == '~' {
		return true
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '$' || path[i] == '%' {
			return true
		}
	}
	return false
}
