package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-facing message with guidance for the error
// class found in err's chain.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var gitErr *GitError
	if As(err, &gitErr) {
		return formatGitError(gitErr)
	}

	var ghErr *GitHubError
	if As(err, &ghErr) {
		return formatGitHubError(ghErr)
	}

	var wfErr *WorkflowError
	if As(err, &wfErr) {
		return formatWorkflowError(wfErr)
	}

	return err.Error()
}

func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check your config file: ~/.config/prc/config.toml\n")
	b.WriteString("  • Check the repository override: .prc.toml\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatGitError(err *GitError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Git error during %s: %s\n", err.Operation, err.Message)

	switch err.Operation {
	case "IsRepo":
		b.WriteString("\nRun prc from inside a git working tree.\n")
	case "CurrentBranch":
		b.WriteString("\nCheck out a branch first; prc cannot work from a detached HEAD.\n")
	default:
		b.WriteString("\nTo troubleshoot:\n")
		b.WriteString("  • Confirm that 'git' is on your PATH\n")
		b.WriteString("  • Confirm that the 'origin' remote is reachable\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatGitHubError(err *GitHubError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Run 'gh auth login', or\n")
		b.WriteString("  • Set the PRC_GITHUB_TOKEN environment variable\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Ensure you have write access to this repository\n")
		b.WriteString("  • If using SSO, ensure the token is authorized for your organization\n")

	case 404:
		b.WriteString("\nResource not found. Verify the repository and branches exist on the remote.\n")

	case 422:
		b.WriteString("\nValidation failed. The branches may have no commits in common, or a PR already exists.\n")

	case 429:
		b.WriteString("\nRate limit exceeded. Wait a few minutes before retrying.\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. Wait a few moments and try again.\n")
	}

	if err.Retryable {
		b.WriteString("\nThis error may be temporary.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

func formatWorkflowError(err *WorkflowError) string {
	var b strings.Builder

	if err.Step != "" {
		fmt.Fprintf(&b, "Error in '%s' step: %s\n", err.Step, err.Message)
	} else {
		fmt.Fprintf(&b, "Error: %s\n", err.Message)
	}

	switch err.Step {
	case "preflight":
		b.WriteString("\nPreflight checks failed. Ensure you are in a git repository and 'gh' is authenticated.\n")
	case "strategy":
		b.WriteString("\nNo pull requests could be planned for this branch.\n")
	case "submit":
		b.WriteString("\nSome pull requests may already have been created. Check the summary above.\n")
	default:
		b.WriteString("\nRun with --verbose for more details.\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
