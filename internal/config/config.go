// Package config loads deployment settings from a TOML file with environment
// fallbacks and validates them before any remote call is made.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrMissingKey = errors.New("config: missing required key")

// Env fallbacks consulted when a key is absent from the file.
const (
	EnvTenantID           = "FABRIC_TENANT_ID"
	EnvClientID           = "FABRIC_CLIENT_ID"
	EnvClientSecret       = "FABRIC_CLIENT_SECRET"
	EnvCapacityID         = "FABRIC_CAPACITY_ID"
	EnvWorkspaceName      = "FABRIC_WORKSPACE_NAME"
	EnvWorkspaceID        = "FABRIC_WORKSPACE_ID"
	EnvSourcePath         = "FABRIC_SOURCE_PATH"
	EnvSourceRepo         = "FABRIC_SOURCE_REPO"
	EnvSourceBranch       = "FABRIC_SOURCE_BRANCH"
	EnvSkipRoleAssignment = "FABRIC_SKIP_ROLE_ASSIGNMENT"
)

// Config is the validated run configuration.
type Config struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CapacityID   string `toml:"capacity_id"`

	WorkspaceName string `toml:"workspace_name"`
	WorkspaceID   string `toml:"workspace_id"`

	SourceWorkspaceName string `toml:"source_workspace_name"`
	SourceWorkspaceID   string `toml:"source_workspace_id"`

	SourcePath   string `toml:"source_path"`
	SourceRepo   string `toml:"source_repo"`
	SourceBranch string `toml:"source_branch"`

	SkipRoleAssignment bool `toml:"skip_role_assignment"`
	DryRun             bool `toml:"dry_run"`

	ItemDelay   Duration `toml:"item_delay"`
	HTTPTimeout Duration `toml:"http_timeout"`

	ReportPath   string `toml:"report_path"`
	ReportFormat string `toml:"report_format"`

	StatusAddr string `toml:"status_addr"`
}

// Duration parses TOML strings like "2s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", data, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Default() Config {
	return Config{
		SourceBranch: "main",
		ItemDelay:    Duration(2 * time.Second),
		HTTPTimeout:  Duration(15 * time.Second),
		ReportPath:   "deployment_report.json",
		ReportFormat: "json",
	}
}

// Load reads the optional TOML file at path (empty path skips the file),
// applies environment fallbacks, runs any caller overrides (flags, local
// override files), and validates. Any missing required key is a fatal
// configuration error.
func Load(path string, overrides ...func(*Config) error) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvFallbacks(&cfg)
	for _, override := range overrides {
		if err := override(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyEnvFallbacks(cfg *Config) {
	fallback(&cfg.TenantID, EnvTenantID)
	fallback(&cfg.ClientID, EnvClientID)
	fallback(&cfg.ClientSecret, EnvClientSecret)
	fallback(&cfg.CapacityID, EnvCapacityID)
	fallback(&cfg.WorkspaceName, EnvWorkspaceName)
	fallback(&cfg.WorkspaceID, EnvWorkspaceID)
	fallback(&cfg.SourcePath, EnvSourcePath)
	fallback(&cfg.SourceRepo, EnvSourceRepo)
	fallback(&cfg.SourceBranch, EnvSourceBranch)

	if !cfg.SkipRoleAssignment {
		if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvSkipRoleAssignment))); err == nil {
			cfg.SkipRoleAssignment = v
		}
	}
}

func fallback(target *string, env string) {
	if strings.TrimSpace(*target) == "" {
		*target = strings.TrimSpace(os.Getenv(env))
	}
}

func (c Config) Validate() error {
	// A dry run never touches the remote service, so only the source tree
	// settings are required.
	if !c.DryRun {
		required := []struct {
			key   string
			value string
		}{
			{"tenant_id", c.TenantID},
			{"client_id", c.ClientID},
			{"client_secret", c.ClientSecret},
			{"capacity_id", c.CapacityID},
			{"workspace_name", c.WorkspaceName},
		}
		var missing []string
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				missing = append(missing, r.key)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
		}
	}

	if c.SourcePath == "" && c.SourceRepo == "" {
		return fmt.Errorf("%w: source_path or source_repo", ErrMissingKey)
	}
	switch c.ReportFormat {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("config: unknown report_format %q", c.ReportFormat)
	}
	return nil
}
