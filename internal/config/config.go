// Package config defines configuration structures for the falconadmin tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"falconadmin/internal/falcon"
	"falconadmin/internal/report"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "falconadmin.yaml"

// Environment overrides.
const (
	EnvClientID     = "FALCON_CLIENT_ID"
	EnvClientSecret = "FALCON_CLIENT_SECRET"
	EnvCloud        = "FALCON_CLOUD"
	EnvMemberCID    = "FALCON_MEMBER_CID"
)

const (
	defaultCloud     = "us-1"
	defaultAuditLog  = "revoke_roles.log"
	defaultRoleSet   = "default"
	defaultOutputDir = "."
)

// Config represents the complete falconadmin configuration.
type Config struct {
	Falcon    Falcon    `yaml:"falcon"`
	Retry     Retry     `yaml:"retry"`
	HostCheck HostCheck `yaml:"hostcheck"`
	Revoke    Revoke    `yaml:"revoke"`
	Export    Export    `yaml:"export"`
}

// Falcon holds API credentials.
type Falcon struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Cloud        string `yaml:"cloud"`
	MemberCID    string `yaml:"member_cid,omitempty"`
}

// Retry configures retries of rate limited and network failures.
type Retry struct {
	Attempts       int      `yaml:"attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// HostCheck configures the host list input.
type HostCheck struct {
	InputDir  string `yaml:"input_dir"`
	InputFile string `yaml:"input_file"`
}

// Revoke lists the users and the named role sets to remove from them.
type Revoke struct {
	RoleSets map[string][]string `yaml:"role_sets"`
	Users    []string            `yaml:"users"`
	AuditLog string              `yaml:"audit_log"`
}

// Export configures the role export.
type Export struct {
	OutputDir string `yaml:"output_dir"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML accepts "1s", "500ms" and similar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a Config with every optional field filled in.
func Default() *Config {
	return &Config{
		Falcon: Falcon{Cloud: defaultCloud},
		Retry: Retry{
			Attempts:       falcon.DefaultAttempts,
			InitialBackoff: Duration(falcon.DefaultInitialBackoff),
			MaxBackoff:     Duration(falcon.DefaultMaxBackoff),
		},
		HostCheck: HostCheck{InputFile: report.DefaultHostList},
		Revoke:    Revoke{AuditLog: defaultAuditLog},
		Export:    Export{OutputDir: defaultOutputDir},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
		// Config file not found; using env vars or defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping defaults for fields the document omits.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Falcon.Cloud == "" {
		cfg.Falcon.Cloud = defaultCloud
	}
	if cfg.HostCheck.InputFile == "" {
		cfg.HostCheck.InputFile = report.DefaultHostList
	}
	if cfg.Revoke.AuditLog == "" {
		cfg.Revoke.AuditLog = defaultAuditLog
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = defaultOutputDir
	}
	return nil
}

// ApplyEnv overrides credentials from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Falcon.ClientID = getEnv(getenv, EnvClientID, c.Falcon.ClientID)
	c.Falcon.ClientSecret = getEnv(getenv, EnvClientSecret, c.Falcon.ClientSecret)
	c.Falcon.Cloud = getEnv(getenv, EnvCloud, c.Falcon.Cloud)
	c.Falcon.MemberCID = getEnv(getenv, EnvMemberCID, c.Falcon.MemberCID)
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := strings.TrimSpace(getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// HasCredentials reports whether both client ID and secret are set.
func (c *Config) HasCredentials() bool {
	return c.Falcon.ClientID != "" && c.Falcon.ClientSecret != ""
}

// Credentials returns the API credentials.
func (c *Config) Credentials() falcon.Credentials {
	return falcon.Credentials{
		ClientID:     c.Falcon.ClientID,
		ClientSecret: c.Falcon.ClientSecret,
		Cloud:        c.Falcon.Cloud,
		MemberCID:    c.Falcon.MemberCID,
	}
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() falcon.RetryPolicy {
	return falcon.RetryPolicy{
		Attempts:       uint(c.Retry.Attempts),
		InitialBackoff: time.Duration(c.Retry.InitialBackoff),
		MaxBackoff:     time.Duration(c.Retry.MaxBackoff),
	}
}

// RoleSet returns the role IDs of the named set.
func (c *Config) RoleSet(name string) ([]string, error) {
	if name == "" {
		name = defaultRoleSet
	}
	roles, ok := c.Revoke.RoleSets[name]
	if !ok {
		return nil, fmt.Errorf("role set %q not found in config", name)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("role set %q is empty", name)
	}
	return roles, nil
}

// Validate checks the fields every tool relies on.
func (c *Config) Validate() error {
	var errs []error
	if !c.HasCredentials() {
		errs = append(errs, fmt.Errorf("falcon client_id and client_secret are required (or set %s and %s)", EnvClientID, EnvClientSecret))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, errors.New("retry.attempts must be at least 1"))
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("retry backoff must not be negative"))
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		errs = append(errs, errors.New("retry.max_backoff must not be less than retry.initial_backoff"))
	}
	return errors.Join(errs...)
}
