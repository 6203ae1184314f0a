// Package workflow sequences a pull request run.
//
// The interactive run proceeds through these steps:
// 1. Preflight (repository check, fetch, branch discovery)
// 2. Strategy (source/target inference and placeholder resolution)
// 3. Metadata (Jira section, descriptive title, description)
// 4. Reviewers (candidate pool, selection, handle resolution)
// 5. Confirm (summary and confirmation)
// 6. Submit (one pull request per target)
//
// Metadata is checkpointed once collected so that a run that fails or is
// interrupted during submission can be resumed without retyping it.
//
// Headless provides the same operations without prompts for launcher
// integrations.
package workflow

import (
	"context"
	"time"

	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/pullrequest"
	"thoreinstein.com/prc/pkg/strategy"
)

// Step represents a workflow step.
type Step string

const (
	// StepPreflight checks the repository and discovers branches.
	StepPreflight Step = "preflight"
	// StepStrategy determines the source and target branches.
	StepStrategy Step = "strategy"
	// StepMetadata collects tickets, title and description.
	StepMetadata Step = "metadata"
	// StepReviewers selects reviewers and resolves their handles.
	StepReviewers Step = "reviewers"
	// StepConfirm shows the plan and asks for confirmation.
	StepConfirm Step = "confirm"
	// StepSubmit creates the pull requests.
	StepSubmit Step = "submit"
)

// AllSteps returns all workflow steps in execution order.
func AllSteps() []Step {
	return []Step{StepPreflight, StepStrategy, StepMetadata, StepReviewers, StepConfirm, StepSubmit}
}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// Session holds the state of one run.
type Session struct {
	ID             string
	StartedAt      time.Time
	CurrentBranch  string
	Branches       strategy.BranchSet
	Strategy       strategy.Result
	BranchTicket   string // ticket parsed from the source branch
	BranchTitle    string // title parsed from the source branch
	Metadata       pullrequest.Metadata
	Resumed        bool // metadata came from a checkpoint
	Results        []pullrequest.Result
	CompletedSteps []Step
	CurrentStep    Step
}

// Created returns the results of pull requests that were created.
func (s *Session) Created() []pullrequest.Result {
	var created []pullrequest.Result
	for _, r := range s.Results {
		if r.Status == pullrequest.StatusCreated {
			created = append(created, r)
		}
	}
	return created
}

// Repo is the git surface a run needs. *git.Repo implements it.
type Repo interface {
	IsRepo(ctx context.Context) bool
	Fetch(ctx context.Context)
	RemoteBranches(ctx context.Context) ([]string, error)
	CurrentBranch(ctx context.Context) (string, error)
	CommitsBetween(ctx context.Context, base, head string) ([]string, error)
	Authors(ctx context.Context) ([]git.Author, error)
	UserEmail(ctx context.Context) string
	GitDir(ctx context.Context) (string, error)
}

// Prompter asks the interactive questions. *ui.Prompter implements it.
type Prompter interface {
	Choose(ctx context.Context, prompt string, options []string) (string, error)
	ChooseDefault(ctx context.Context, prompt string, options []string, def string) (string, error)
	Line(ctx context.Context, prompt, def string) (string, error)
	Multiline(ctx context.Context, prompt string) ([]string, error)
	Confirm(ctx context.Context, label string, def bool) (bool, error)
}

var _ Repo = (*git.Repo)(nil)
