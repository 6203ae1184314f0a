package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/ui"
)

var newTokenCache = github.NewTokenCache

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect or clear GitHub authentication",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which GitHub account prc acts as",
	Long: `Show the configured auth method and the login prc acts as.

With auth_method = "oauth" and no cached token this starts the device flow.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runAuthStatus(ctx, cmd.OutOrStdout())
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached OAuth token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthLogout(cmd.OutOrStdout())
	},
}

func init() {
	authCmd.AddCommand(authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(ctx context.Context, out io.Writer) error {
	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = d.logger.Sync() }()

	console := ui.NewConsole(out)
	method := d.cfg.GitHub.AuthMethod
	if method == "" {
		method = string(github.AuthGHCLI)
	}
	console.Printf("Auth method: %s\n", method)

	if !d.github.IsAuthenticated(ctx) {
		return prcerrors.NewGitHubError("Auth", "not authenticated with GitHub")
	}
	login, err := d.github.CurrentUser(ctx)
	if err != nil {
		return err
	}
	console.Successf("Logged in as %s", login)
	return nil
}

func runAuthLogout(out io.Writer) error {
	if err := newTokenCache().Clear(); err != nil {
		return err
	}
	ui.NewConsole(out).Successf("Cached GitHub token removed.")
	return nil
}
