package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/prc/pkg/bootstrap"
	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/workflow"
)

var cfgFile string
var verbose bool
var appConfig *config.Config

var runOpts struct {
	DryRun bool
	Draft  bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prc",
	Short: "prc - interactive pull request creator",
	Long: `prc creates one or more pull requests from the current branch.

It suggests target branches from the branch naming conventions (feature,
hotfix, release stages), collects Jira tickets, a title, a description and
reviewers, then opens a pull request for every target.

Run without a subcommand in a terminal for the interactive flow. The data,
describe, preview and submit subcommands serve editor and launcher
integrations with JSON or YAML output.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context(), os.Stdin, os.Stdout)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Pre-parse global flags so a broken config is reported before cobra runs.
	cfgFile, verbose = bootstrap.PreParseGlobalFlags(os.Args)

	if err := initConfig(); err != nil {
		fmt.Fprintln(os.Stderr, prcerrors.FormatUserError(err))
		os.Exit(1)
	}

	ctx, stop := signalContext()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode reports err and maps it to the process exit status. Declining the
// confirmation is not a failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, workflow.ErrAborted):
		return 0
	case errors.Is(err, errAlreadyReported):
		return 1
	default:
		fmt.Fprintln(os.Stderr, prcerrors.FormatUserError(err))
		return 1
	}
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/prc/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().BoolVar(&runOpts.DryRun, "dry-run", false, "Print the gh commands instead of creating pull requests")
	rootCmd.Flags().BoolVarP(&runOpts.Draft, "draft", "d", false, "Create draft pull requests")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, verbose, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig returns the already loaded configuration or loads it if it hasn't been yet.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	bootstrap.Reset()
	viper.Reset()
}
