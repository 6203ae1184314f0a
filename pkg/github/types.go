// Package github provides the GitHub host operations prc needs: checking for
// existing pull requests, creating them, and looking up user handles.
//
// CLIClient wraps the gh CLI and is the default. APIClient talks to the REST
// API directly when a token is available.
package github

import (
	"strconv"
	"strings"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token for authentication.
	AuthToken AuthMethod = "token"
	// AuthOAuth uses OAuth for authentication.
	AuthOAuth AuthMethod = "oauth"
	// AuthGHCLI uses the gh CLI's stored credentials.
	AuthGHCLI AuthMethod = "gh_cli"
)

// PRInfo represents pull request information.
type PRInfo struct {
	Number     int    `json:"number" yaml:"number"`
	Title      string `json:"title" yaml:"title"`
	URL        string `json:"url" yaml:"url"`
	State      string `json:"state" yaml:"state"`
	HeadBranch string `json:"headRefName" yaml:"head"` // gh CLI uses headRefName
	BaseBranch string `json:"baseRefName" yaml:"base"` // gh CLI uses baseRefName
	Draft      bool   `json:"isDraft" yaml:"draft"`
}

// CreatePROptions holds options for creating a pull request.
type CreatePROptions struct {
	Title      string   // PR title (required)
	Body       string   // PR body/description
	HeadBranch string   // Source branch (required)
	BaseBranch string   // Target branch (required)
	Draft      bool     // Create as draft PR
	Reviewers  []string // Requested reviewer handles
}

func (o CreatePROptions) validate(op string) error {
	switch {
	case strings.TrimSpace(o.Title) == "":
		return prcerrors.NewGitHubError(op, "title is required")
	case o.HeadBranch == "":
		return prcerrors.NewGitHubError(op, "head branch is required")
	case o.BaseBranch == "":
		return prcerrors.NewGitHubError(op, "base branch is required")
	}
	return nil
}

// Contributor is a repository contributor as reported by the host.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// prJSONFields is the field list requested from gh pr list.
var prJSONFields = []string{"number", "title", "url", "state", "headRefName", "baseRefName", "isDraft"}

// ghUserSearchResponse is the relevant part of a search/users reply.
type ghUserSearchResponse struct {
	Items []struct {
		Login string `json:"login"`
	} `json:"items"`
}

// extractPRNumber extracts the PR number from a GitHub PR URL.
func extractPRNumber(url string) (int, error) {
	// URL format: https://github.com/owner/repo/pull/123
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != "pull" {
		return 0, prcerrors.NewGitHubError("extractPRNumber", "invalid PR URL format")
	}
	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, prcerrors.NewGitHubErrorWithCause("extractPRNumber", "failed to parse PR number", err)
	}
	return number, nil
}

// isRetryableGHError checks if a gh CLI error message indicates a retryable error.
func isRetryableGHError(errMsg string) bool {
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"network",
		"502",
		"503",
		"504",
	}

	lowerErr := strings.ToLower(errMsg)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}
