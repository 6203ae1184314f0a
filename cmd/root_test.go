package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/workflow"
)

func TestRootCommandStructure(t *testing.T) {
	// Not parallel - accesses global rootCmd
	cmd := rootCmd

	if cmd.Use != "prc" {
		t.Errorf("root command Use = %q, want %q", cmd.Use, "prc")
	}
	if cmd.Short == "" {
		t.Error("root command should have Short description")
	}
	for _, keyword := range []string{"pull request", "submit"} {
		if !strings.Contains(cmd.Long, keyword) {
			t.Errorf("root command Long description should mention %q", keyword)
		}
	}
	if cmd.RunE == nil {
		t.Error("root command should run the interactive flow")
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := rootCmd

	configFlag := cmd.PersistentFlags().Lookup("config")
	if configFlag == nil {
		t.Fatal("root command should have --config persistent flag")
	}
	if configFlag.Shorthand != "C" {
		t.Errorf("--config shorthand = %q, want %q", configFlag.Shorthand, "C")
	}
	if !strings.Contains(configFlag.Usage, "$HOME/.config/prc") {
		t.Error("--config usage should mention default config location")
	}

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	if verboseFlag == nil {
		t.Fatal("root command should have --verbose persistent flag")
	}
	if verboseFlag.DefValue != "false" {
		t.Errorf("--verbose default should be 'false', got %q", verboseFlag.DefValue)
	}

	for _, name := range []string{"dry-run", "draft"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("root command should have --%s flag", name)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	registered := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		registered[strings.Split(sub.Use, " ")[0]] = true
	}

	for _, expected := range []string{"data", "describe", "preview", "submit", "auth"} {
		if !registered[expected] {
			t.Errorf("root command should have %q subcommand registered", expected)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"aborted", workflow.ErrAborted, 0},
		{"wrapped abort", errors.Wrap(workflow.ErrAborted, "confirm"), 0},
		{"reported", errAlreadyReported, 1},
		{"workflow error", prcerrors.NewWorkflowError("preflight", "not a git repository"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestInitConfig_WithCustomConfigFile(t *testing.T) {
	// Don't run in parallel - modifies global viper state
	resetConfig()
	defer resetConfig()

	tmpDir := t.TempDir()
	configContent := `default_target_branch = "develop"

[jira]
base_url = "https://jira.example.com/browse/"

[pr]
confirm = false
`
	customConfigPath := filepath.Join(tmpDir, "custom-config.toml")
	if err := os.WriteFile(customConfigPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write custom config: %v", err)
	}
	t.Chdir(tmpDir)

	oldCfgFile := cfgFile
	cfgFile = customConfigPath
	defer func() { cfgFile = oldCfgFile }()

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}

	if appConfig.DefaultTargetBranch != "develop" {
		t.Errorf("DefaultTargetBranch = %q, want %q", appConfig.DefaultTargetBranch, "develop")
	}
	if appConfig.Jira.BaseURL != "https://jira.example.com/browse/" {
		t.Errorf("Jira.BaseURL = %q", appConfig.Jira.BaseURL)
	}
	if appConfig.PR.Confirm {
		t.Error("PR.Confirm should be false")
	}
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	resetConfig()
	defer resetConfig()
	t.Chdir(t.TempDir())

	oldCfgFile := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "missing.toml")
	defer func() { cfgFile = oldCfgFile }()

	if err := initConfig(); err == nil {
		t.Error("initConfig() should fail when an explicit config file is missing")
	}
}

func TestInitConfig_NoConfigFile(t *testing.T) {
	resetConfig()
	defer resetConfig()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Chdir(tmpDir)

	oldCfgFile := cfgFile
	cfgFile = ""
	defer func() { cfgFile = oldCfgFile }()

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if got := viper.GetString("default_target_branch"); got != "main" {
		t.Errorf("default_target_branch = %q, want %q", got, "main")
	}
	if !appConfig.PR.Confirm {
		t.Error("PR.Confirm should default to true")
	}
}
