package github

import (
	"context"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

// APIClient implements Client using GitHub REST API.
type APIClient struct {
	client *gh.Client
	owner  string
	repo   string
	retry  prcerrors.RetryConfig
	logger *zap.Logger
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient) error

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *zap.Logger) APIClientOption {
	return func(c *APIClient) error {
		c.logger = logger
		return nil
	}
}

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise host or a test server.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return prcerrors.NewGitHubErrorWithCause("NewAPIClient", "invalid base URL", err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// WithAPIRetry overrides the retry policy for read-only calls.
func WithAPIRetry(cfg prcerrors.RetryConfig) APIClientOption {
	return func(c *APIClient) error {
		c.retry = cfg
		return nil
	}
}

// NewAPIClient creates a GitHub API client for owner/repo with the given token.
func NewAPIClient(token, owner, repo string, opts ...APIClientOption) (*APIClient, error) {
	if token == "" {
		return nil, prcerrors.NewGitHubError("NewAPIClient", "token is required")
	}
	if owner == "" || repo == "" {
		return nil, prcerrors.NewGitHubError("NewAPIClient", "repository owner and name are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := &APIClient{
		client: gh.NewClient(tc),
		owner:  owner,
		repo:   repo,
		retry:  prcerrors.DefaultRetryConfig(),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// IsAuthenticated checks if the client is authenticated with GitHub.
func (c *APIClient) IsAuthenticated(ctx context.Context) bool {
	_, _, err := c.client.Users.Get(ctx, "")
	return err == nil
}

// CurrentUser returns the login the token belongs to.
func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	return prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		user, resp, err := c.client.Users.Get(ctx, "")
		if err != nil {
			return "", toGitHubError("CurrentUser", resp, err)
		}
		return user.GetLogin(), nil
	})
}

// ListOpenPRs lists open pull requests from head into base.
func (c *APIClient) ListOpenPRs(ctx context.Context, head, base string) ([]PRInfo, error) {
	c.logger.Debug("listing PRs", zap.String("head", head), zap.String("base", base))

	opts := &gh.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + head,
		Base:  base,
	}

	return prcerrors.RetryWithResult(ctx, c.retry, func() ([]PRInfo, error) {
		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, toGitHubError("ListOpenPRs", resp, err)
		}
		result := make([]PRInfo, 0, len(prs))
		for _, pr := range prs {
			result = append(result, *prInfoFromGitHub(pr))
		}
		return result, nil
	})
}

// CreatePR creates a new pull request and requests reviewers. A failed
// reviewer request is logged, not returned. It is never retried.
func (c *APIClient) CreatePR(ctx context.Context, opts CreatePROptions) (*PRInfo, error) {
	if err := opts.validate("CreatePR"); err != nil {
		return nil, err
	}

	c.logger.Debug("creating PR", zap.String("owner", c.owner), zap.String("repo", c.repo),
		zap.String("head", opts.HeadBranch), zap.String("base", opts.BaseBranch))

	newPR := &gh.NewPullRequest{
		Title: gh.Ptr(opts.Title),
		Head:  gh.Ptr(opts.HeadBranch),
		Base:  gh.Ptr(opts.BaseBranch),
		Body:  gh.Ptr(opts.Body),
		Draft: gh.Ptr(opts.Draft),
	}

	pr, resp, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, newPR)
	if err != nil {
		return nil, toGitHubError("CreatePR", resp, err)
	}

	if len(opts.Reviewers) > 0 {
		_, _, reviewErr := c.client.PullRequests.RequestReviewers(ctx, c.owner, c.repo, pr.GetNumber(), gh.ReviewersRequest{
			Reviewers: opts.Reviewers,
		})
		if reviewErr != nil {
			c.logger.Warn("failed to request reviewers", zap.Int("number", pr.GetNumber()), zap.Error(reviewErr))
		}
	}

	return prInfoFromGitHub(pr), nil
}

// SearchUserByEmail returns the login of the first user whose public email
// matches, or "" when there is none.
func (c *APIClient) SearchUserByEmail(ctx context.Context, email string) (string, error) {
	return prcerrors.RetryWithResult(ctx, c.retry, func() (string, error) {
		result, resp, err := c.client.Search.Users(ctx, email, nil)
		if err != nil {
			return "", toGitHubError("SearchUserByEmail", resp, err)
		}
		if len(result.Users) == 0 {
			return "", nil
		}
		return result.Users[0].GetLogin(), nil
	})
}

// Contributors lists the repository's contributors.
func (c *APIClient) Contributors(ctx context.Context) ([]Contributor, error) {
	opts := &gh.ListContributorsOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	return prcerrors.RetryWithResult(ctx, c.retry, func() ([]Contributor, error) {
		list, resp, err := c.client.Repositories.ListContributors(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, toGitHubError("Contributors", resp, err)
		}
		result := make([]Contributor, 0, len(list))
		for _, ct := range list {
			result = append(result, Contributor{Login: ct.GetLogin(), Contributions: ct.GetContributions()})
		}
		return result, nil
	})
}

func prInfoFromGitHub(pr *gh.PullRequest) *PRInfo {
	info := &PRInfo{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		State:  pr.GetState(),
		Draft:  pr.GetDraft(),
	}
	if pr.Head != nil {
		info.HeadBranch = pr.GetHead().GetRef()
	}
	if pr.Base != nil {
		info.BaseBranch = pr.GetBase().GetRef()
	}
	return info
}

func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		ghErr := prcerrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, err.Error())
		ghErr.Cause = err
		return ghErr
	}
	return prcerrors.NewGitHubErrorWithCause(operation, "API request failed", err)
}
