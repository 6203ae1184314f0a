package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

// DefaultChecklistURL is the pull request guideline page linked from every body.
const DefaultChecklistURL = "https://qualitytrade.atlassian.net/wiki/spaces/BDT/pages/2708307969/Pull+request+guidelines"

// Config represents the application configuration.
// Repository information is derived from git, not configuration.
type Config struct {
	DefaultTargetBranch string          `mapstructure:"default_target_branch"`
	Jira                JiraConfig      `mapstructure:"jira"`
	GitHub              GitHubConfig    `mapstructure:"github"`
	Reviewers           ReviewersConfig `mapstructure:"reviewers"`
	PR                  PRConfig        `mapstructure:"pr"`
	Identity            IdentityConfig  `mapstructure:"identity"`
	Log                 LogConfig       `mapstructure:"log"`
}

// JiraConfig holds Jira link configuration
type JiraConfig struct {
	BaseURL     string   `mapstructure:"base_url"`     // Browse URL ticket ids are appended to
	ProjectKeys []string `mapstructure:"project_keys"` // When set, only these ticket prefixes are recognized
}

// AcceptsTicket reports whether a ticket id belongs to a configured project.
// Every ticket is accepted when no project keys are configured.
func (j JiraConfig) AcceptsTicket(id string) bool {
	if len(j.ProjectKeys) == 0 {
		return true
	}
	key, _, _ := strings.Cut(id, "-")
	return slices.ContainsFunc(j.ProjectKeys, func(k string) bool {
		return strings.EqualFold(k, key)
	})
}

// UserMapping pins a commit email to a GitHub handle.
type UserMapping struct {
	Email  string `mapstructure:"email"`
	Handle string `mapstructure:"handle"`
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	AuthMethod string        `mapstructure:"auth_method"` // "token", "oauth", "gh_cli"
	ClientID   string        `mapstructure:"client_id"`   // OAuth app client ID (for device flow)
	Token      string        `mapstructure:"token"`       // For token auth (PRC_GITHUB_TOKEN env var takes precedence)
	UserMap    []UserMapping `mapstructure:"user_map"`    // Seed email -> handle mappings
}

// ReviewersConfig holds reviewer selection configuration
type ReviewersConfig struct {
	IgnoredAuthors []string            `mapstructure:"ignored_authors"` // Names, emails or handles never offered
	Groups         map[string][]string `mapstructure:"groups"`          // @name -> handles
}

// PRConfig holds pull request body and flow settings
type PRConfig struct {
	ChecklistURL string `mapstructure:"checklist_url"`
	Confirm      bool   `mapstructure:"confirm"` // Ask before creating
}

// IdentityConfig holds the persisted handle store location
type IdentityConfig struct {
	StorePath string `mapstructure:"store_path"`
}

// LogConfig holds diagnostic logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// Valid enumerations.
var (
	ValidAuthMethods = []string{"gh_cli", "token", "oauth"}
	ValidLogLevels   = []string{"debug", "info", "warn", "error"}
	ValidLogFormats  = []string{"console", "json"}
)

// Load loads the configuration from viper's merged sources.
func Load() (*Config, error) {
	config := &Config{}

	setDefaults()

	if err := viper.Unmarshal(config); err != nil {
		return nil, prcerrors.NewConfigErrorWithCause("", "failed to unmarshal config", err)
	}

	if err := expandPaths(config); err != nil {
		return nil, errors.Wrap(err, "failed to expand paths")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// CheckSecurityWarnings returns warnings for tokens stored in config files.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if config.GitHub.Token != "" && os.Getenv("PRC_GITHUB_TOKEN") == "" && os.Getenv("GITHUB_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in config file. For security, use PRC_GITHUB_TOKEN environment variable or 'gh auth login' instead.",
		})
	}

	return warnings
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.GitHub.AuthMethod != "" && !slices.Contains(ValidAuthMethods, c.GitHub.AuthMethod) {
		return prcerrors.NewConfigError("github.auth_method",
			"must be one of: "+strings.Join(ValidAuthMethods, ", "))
	}
	if c.Log.Level != "" && !slices.Contains(ValidLogLevels, strings.ToLower(c.Log.Level)) {
		return prcerrors.NewConfigError("log.level",
			"must be one of: "+strings.Join(ValidLogLevels, ", "))
	}
	if c.Log.Format != "" && !slices.Contains(ValidLogFormats, strings.ToLower(c.Log.Format)) {
		return prcerrors.NewConfigError("log.format",
			"must be one of: "+strings.Join(ValidLogFormats, ", "))
	}
	for i, m := range c.GitHub.UserMap {
		if m.Email == "" || m.Handle == "" {
			return prcerrors.NewConfigError("github.user_map",
				fmt.Sprintf("entry %d needs both email and handle", i+1))
		}
	}
	for name := range c.Reviewers.Groups {
		if strings.TrimSpace(name) == "" {
			return prcerrors.NewConfigError("reviewers.groups", "group names must not be empty")
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	viper.SetDefault("default_target_branch", "main")

	viper.SetDefault("jira.base_url", "https://qualitytrade.atlassian.net/browse/")
	viper.SetDefault("jira.project_keys", []string{})

	viper.SetDefault("github.auth_method", "gh_cli")
	viper.SetDefault("github.client_id", "")
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.user_map", []UserMapping{})

	viper.SetDefault("reviewers.ignored_authors", []string{})
	viper.SetDefault("reviewers.groups", map[string][]string{})

	viper.SetDefault("pr.checklist_url", DefaultChecklistURL)
	viper.SetDefault("pr.confirm", true)

	viper.SetDefault("identity.store_path", filepath.Join(homeDir, ".config", "prc", "handles.toml"))

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "console")
}

// expandPaths expands ~ in path-valued settings
func expandPaths(config *Config) error {
	var err error
	config.Identity.StorePath, err = expandPath(config.Identity.StorePath)
	return err
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}
