package health

import (
	"context"
	"fmt"
	"os"

	"github.com/bastion-vault/bastion/internal/config"
)

// ConfigChecker checks that the config file, if present, parses and
// contains no unrecognized fields.
type ConfigChecker struct {
	configPath string
}

// NewConfigChecker creates a new config checker.
func NewConfigChecker(configPath string) HealthChecker {
	return &ConfigChecker{configPath: configPath}
}

// Name returns the check name.
func (c *ConfigChecker) Name() string {
	return "config"
}

// Run executes the config check.
func (c *ConfigChecker) Run(ctx context.Context) CheckResult {
	_, statErr := os.Stat(c.configPath)
	_, result := config.LoadFromPath(c.configPath)

	details := ConfigCheckDetails{
		Path:   c.configPath,
		Exists: statErr == nil,
		Valid:  result.Valid,
	}
	for _, e := range result.Errors {
		details.Errors = append(details.Errors, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	for _, w := range result.Warnings {
		details.UnknownKeys = append(details.UnknownKeys, fmt.Sprintf("%s: %s", w.Field, w.Message))
	}

	if !result.Valid {
		return CheckResult{
			Name:           c.Name(),
			Status:         CheckError,
			Message:        "config file failed to load",
			Recommendation: "fix or remove the config file so defaults apply",
			Details:        details,
		}
	}
	if len(result.Warnings) > 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  CheckWarning,
			Message: fmt.Sprintf("config loaded with %d warning(s)", len(result.Warnings)),
			Details: details,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  CheckPass,
		Message: "config file is valid",
		Details: details,
	}
}
