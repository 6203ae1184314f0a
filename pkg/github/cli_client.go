package github

import (
	"context"
	"encoding/json"
	"net/url"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
)

// CLIClient implements the Client interface using the gh CLI.
// This is the primary implementation as most users have gh CLI installed
// and it handles authentication automatically.
type CLIClient struct {
	dir    string
	runner git.CommandRunner
	retry  prcerrors.RetryConfig
	logger *zap.Logger
}

// CLIClientOption is a functional option for configuring CLIClient.
type CLIClientOption func(*CLIClient)

// WithRunner replaces the command runner (for testing).
func WithRunner(runner git.CommandRunner) CLIClientOption {
	return func(c *CLIClient) {
		c.runner = runner
	}
}

// WithToken runs gh with GITHUB_TOKEN set to token.
func WithToken(token string) CLIClientOption {
	return func(c *CLIClient) {
		if r, ok := c.runner.(*git.ExecRunner); ok && token != "" {
			r.Env = append(r.Env, "GITHUB_TOKEN="+token)
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *zap.Logger) CLIClientOption {
	return func(c *CLIClient) {
		c.logger = logger
	}
}

// WithCLIRetry overrides the retry policy for read-only calls.
func WithCLIRetry(cfg prcerrors.RetryConfig) CLIClientOption {
	return func(c *CLIClient) {
		c.retry = cfg
	}
}

// NewCLIClient creates a new gh CLI-based GitHub client running in dir.
func NewCLIClient(dir string, opts ...CLIClientOption) (*CLIClient, error) {
	c := &CLIClient{
		dir:    dir,
		runner: &git.ExecRunner{},
		retry:  prcerrors.DefaultRetryConfig(),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if r, ok := c.runner.(*git.ExecRunner); ok {
		if r.Logger == nil {
			r.Logger = c.logger
		}
		if _, err := exec.LookPath("gh"); err != nil {
			return nil, prcerrors.NewGitHubErrorWithCause("NewCLIClient", "gh CLI not found in PATH", err)
		}
	}

	return c, nil
}

// IsAuthenticated checks if gh CLI is authenticated with GitHub.
func (c *CLIClient) IsAuthenticated(ctx context.Context) bool {
	_, err := c.runGH(ctx, "auth", "status")
	return err == nil
}

// CurrentUser returns the login gh is authenticated as.
func (c *CLIClient) CurrentUser(ctx context.Context) (string, error) {
	out, err := prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		return c.runGH(ctx, "api", "user", "--jq", ".login")
	})
	if err != nil {
		return "", prcerrors.NewGitHubErrorWithCause("CurrentUser", "failed to get authenticated user", err)
	}
	return strings.TrimSpace(out), nil
}

// ListOpenPRs lists open pull requests from head into base.
func (c *CLIClient) ListOpenPRs(ctx context.Context, head, base string) ([]PRInfo, error) {
	args := []string{
		"pr", "list",
		"--head", head,
		"--base", base,
		"--state", "open",
		"--json", strings.Join(prJSONFields, ","),
	}

	c.logger.Debug("listing PRs", zap.String("head", head), zap.String("base", base))

	out, err := prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		return c.runGH(ctx, args...)
	})
	if err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("ListOpenPRs", "failed to list PRs", err)
	}

	var prs []PRInfo
	if strings.TrimSpace(out) == "" {
		return prs, nil
	}
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("ListOpenPRs", "failed to parse PR list response", err)
	}
	return prs, nil
}

// CreatePR creates a new pull request using gh pr create. It is never retried.
func (c *CLIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if err := opts.validate("CreatePR"); err != nil {
		return nil, err
	}

	// Always pass --body (even if empty) because gh requires both --title and --body
	// when running non-interactively
	args := []string{
		"pr", "create",
		"--head", opts.HeadBranch,
		"--base", opts.BaseBranch,
		"--title", opts.Title,
		"--body", opts.Body,
	}
	if opts.Draft {
		args = append(args, "--draft")
	}
	if len(opts.Reviewers) > 0 {
		args = append(args, "--reviewer", strings.Join(opts.Reviewers, ","))
	}

	c.logger.Debug("creating PR", zap.String("head", opts.HeadBranch), zap.String("base", opts.BaseBranch),
		zap.Strings("reviewers", opts.Reviewers))

	out, err := c.runGH(ctx, args...)
	if err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("CreatePR", "failed to create PR", err)
	}

	// gh pr create prints the PR URL last
	var prURL string
	if fields := strings.Fields(out); len(fields) > 0 {
		prURL = fields[len(fields)-1]
	}

	info := &PRInfo{
		Title:      opts.Title,
		URL:        prURL,
		State:      "open",
		HeadBranch: opts.HeadBranch,
		BaseBranch: opts.BaseBranch,
		Draft:      opts.Draft,
	}
	if n, err := extractPRNumber(prURL); err == nil {
		info.Number = n
	} else {
		c.logger.Debug("could not parse PR number from URL", zap.String("url", prURL), zap.Error(err))
	}
	return info, nil
}

// SearchUserByEmail returns the login of the first user whose public email
// matches, or "" when there is none.
func (c *CLIClient) SearchUserByEmail(ctx context.Context, email string) (string, error) {
	endpoint := "search/users?q=" + url.QueryEscape(email)

	out, err := prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		return c.runGH(ctx, "api", endpoint, "--jq", ".items[0].login")
	})
	if err != nil {
		return "", prcerrors.NewGitHubErrorWithCause("SearchUserByEmail", "user search failed", err)
	}

	login := strings.TrimSpace(out)
	if login == "null" {
		login = ""
	}
	return login, nil
}

// Contributors lists the repository's contributors.
func (c *CLIClient) Contributors(ctx context.Context) ([]Contributor, error) {
	out, err := prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		return c.runGH(ctx, "api", "repos/{owner}/{repo}/contributors?per_page=100")
	})
	if err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("Contributors", "failed to list contributors", err)
	}

	var contributors []Contributor
	if err := json.Unmarshal([]byte(out), &contributors); err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("Contributors", "failed to parse contributors response", err)
	}
	return contributors, nil
}

// runGH executes a gh command and returns its output.
func (c *CLIClient) runGH(ctx context.Context, args ...string) (string, error) {
	res, err := c.runner.Run(ctx, c.dir, "gh", args...)
	if err != nil {
		return "", prcerrors.NewGitHubErrorWithCause("gh", "could not run gh", err)
	}
	if res.ExitCode != 0 {
		errMsg := strings.TrimSpace(res.Stderr)
		if errMsg == "" {
			errMsg = strings.TrimSpace(res.Stdout)
		}
		ghErr := prcerrors.NewGitHubError("gh", errMsg)
		if isRetryableGHError(errMsg) {
			ghErr.Retryable = true
		}
		return "", ghErr
	}
	return res.Stdout, nil
}
