package github

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
)

// Client defines the interface for GitHub operations.
// Implementations include CLIClient (wrapping gh CLI) and APIClient (using GitHub REST API).
type Client interface {
	// IsAuthenticated checks if the client is authenticated with GitHub.
	IsAuthenticated(ctx context.Context) bool

	// CurrentUser returns the authenticated login.
	CurrentUser(ctx context.Context) (string, error)

	// ListOpenPRs lists open pull requests from head into base.
	ListOpenPRs(ctx context.Context, head, base string) ([]PRInfo, error)

	// CreatePR creates a new pull request.
	CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error)

	// SearchUserByEmail returns the first login matching email, or "".
	SearchUserByEmail(ctx context.Context, email string) (string, error)

	// Contributors lists the repository's contributors.
	Contributors(ctx context.Context) ([]Contributor, error)
}

// Compile-time checks that implementations satisfy the Client interface.
var (
	_ Client = (*CLIClient)(nil)
	_ Client = (*APIClient)(nil)
)

// Options carries what NewClient needs beyond configuration.
type Options struct {
	Dir    string       // Working tree gh runs in
	Repo   *git.RepoURL // Parsed origin remote; required for API clients
	Logger *zap.Logger
	Out    io.Writer // Device flow instructions are written here
}

// EnvToken returns the token from the environment, if any.
func EnvToken() string {
	if token := os.Getenv("PRC_GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}

// NewClient creates a GitHub client based on the provided configuration.
//
// Token resolution order:
//  1. PRC_GITHUB_TOKEN environment variable
//  2. GITHUB_TOKEN environment variable
//  3. Token from config file (github.token)
//  4. Cached OAuth token (keychain or file)
//  5. OAuth device flow (if client_id configured)
//  6. Fall back to gh CLI
func NewClient(ctx context.Context, cfg *config.GitHubConfig, opts Options) (Client, error) {
	if cfg == nil {
		return nil, prcerrors.NewGitHubError("NewClient", "github config is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	token := EnvToken()
	if token == "" {
		token = cfg.Token
	}

	switch AuthMethod(cfg.AuthMethod) {
	case AuthToken:
		if token == "" {
			return nil, prcerrors.NewGitHubError("NewClient",
				"token auth requires PRC_GITHUB_TOKEN, GITHUB_TOKEN env var, or github.token in config")
		}
		return newAPIClientForRepo(token, opts)

	case AuthOAuth:
		return newOAuthClient(ctx, cfg, opts)

	case AuthGHCLI, "":
		// Hand an explicit token to gh rather than switching transports
		return NewCLIClient(opts.Dir, WithLogger(opts.Logger), WithToken(token))

	default:
		return nil, prcerrors.NewGitHubError("NewClient", "unknown auth method: "+cfg.AuthMethod)
	}
}

func newAPIClientForRepo(token string, opts Options) (*APIClient, error) {
	if opts.Repo == nil {
		return nil, prcerrors.NewGitHubError("NewClient", "API access needs a GitHub origin remote")
	}

	apiOpts := []APIClientOption{WithAPILogger(opts.Logger)}
	if base := APIBaseURL(opts.Repo.Host); base != "" {
		apiOpts = append(apiOpts, WithBaseURL(base))
	}
	return NewAPIClient(token, opts.Repo.Owner, opts.Repo.Repo, apiOpts...)
}

// APIBaseURL returns the REST root for a GitHub Enterprise host, or "" for
// github.com.
func APIBaseURL(host string) string {
	if host == "" || host == "github.com" {
		return ""
	}
	return "https://" + host + "/api/v3/"
}

// newOAuthClient creates a client using OAuth device flow with token caching.
func newOAuthClient(ctx context.Context, cfg *config.GitHubConfig, opts Options) (Client, error) {
	cache := NewTokenCache()
	logger := opts.Logger

	cachedToken, err := cache.Get()
	if err != nil {
		// we can still run the device flow
		logger.Debug("failed to read cached token", zap.Error(err))
	}

	if cachedToken != nil && cachedToken.Valid() {
		logger.Debug("using cached OAuth token")
		return newAPIClientForRepo(cachedToken.AccessToken, opts)
	}

	if cfg.ClientID == "" {
		return nil, prcerrors.NewGitHubError("NewClient",
			"oauth auth requires github.client_id in config; alternatively use gh_cli auth method")
	}

	oauthCfg := OAuthConfig{
		ClientID: cfg.ClientID,
		Scopes:   []string{"repo", "read:org"},
	}
	if opts.Repo != nil && opts.Repo.Host != "" && opts.Repo.Host != "github.com" {
		oauthCfg.HostURL = "https://" + opts.Repo.Host
	}

	apiToken, err := DeviceAuth(ctx, oauthCfg, opts.Out)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: apiToken.Token,
		TokenType:   apiToken.Type,
	}

	if cacheErr := cache.Set(token); cacheErr != nil {
		logger.Warn("failed to cache token", zap.Error(cacheErr))
	} else {
		logger.Debug("cached OAuth token for future use")
	}

	return newAPIClientForRepo(token.AccessToken, opts)
}
