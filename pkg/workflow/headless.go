package workflow

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/identity"
	"thoreinstein.com/prc/pkg/jira"
	"thoreinstein.com/prc/pkg/naming"
	"thoreinstein.com/prc/pkg/pullrequest"
	"thoreinstein.com/prc/pkg/reviewers"
	"thoreinstein.com/prc/pkg/ui"
)

// Data is the repository snapshot a launcher needs to build its form.
type Data struct {
	CurrentBranch    string   `json:"currentBranch" yaml:"currentBranch"`
	DefaultTarget    string   `json:"defaultTarget" yaml:"defaultTarget"`
	RemoteBranches   []string `json:"remoteBranches" yaml:"remoteBranches"`
	Contributors     []string `json:"contributors" yaml:"contributors"`
	SuggestedTickets []string `json:"suggestedTickets" yaml:"suggestedTickets"`
	SuggestedTitle   string   `json:"suggestedTitle" yaml:"suggestedTitle"`
}

// Request carries everything a headless preview or submission needs.
type Request struct {
	Source    string   // current branch when empty
	Targets   []string // at least one for Submit
	Title     string   // descriptive part of the title
	Body      string   // description
	Reviewers []string // handles, emails or "Name <email>"
	Tickets   []string // ticket ids or URLs
	Draft     bool
}

// SubmitReport is the outcome of a headless submission.
type SubmitReport struct {
	Success bool                 `json:"success" yaml:"success"`
	Results []pullrequest.Result `json:"results" yaml:"results"`
	Summary pullrequest.Summary  `json:"summary" yaml:"summary"`
}

// Headless runs the non-interactive operations. Nothing is prompted for;
// reviewer identities that do not resolve are skipped.
type Headless struct {
	repo    Repo
	github  github.Client
	cfg     *config.Config
	console *ui.Console
	store   identity.Store
	logger  *zap.Logger
	dryRun  bool
}

// NewHeadless creates a Headless runner. Progress messages go to console,
// which may be nil to discard them.
func NewHeadless(repo Repo, gh github.Client, cfg *config.Config, console *ui.Console, opts Options) *Headless {
	if console == nil {
		console = ui.NewConsole(io.Discard)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{
		repo:    repo,
		github:  gh,
		cfg:     cfg,
		console: console,
		store:   opts.Store,
		logger:  logger.With(zap.String("session", uuid.NewString())),
		dryRun:  opts.DryRun,
	}
}

func (h *Headless) requireRepo(ctx context.Context, step string) error {
	if !h.repo.IsRepo(ctx) {
		return prcerrors.NewWorkflowError(step, "not a git repository")
	}
	return nil
}

// Data reports the current branch, remote branches, reviewer candidates and
// the ticket and title suggested by the branch name. No fetch is made.
func (h *Headless) Data(ctx context.Context) (*Data, error) {
	if err := h.requireRepo(ctx, "preflight"); err != nil {
		return nil, err
	}

	current, err := h.repo.CurrentBranch(ctx)
	if err != nil {
		return nil, prcerrors.NewWorkflowErrorWithCause("preflight", "could not determine the current branch", err)
	}

	branches, err := h.repo.RemoteBranches(ctx)
	if err != nil {
		h.logger.Warn("listing remote branches failed", zap.Error(err))
	}

	contributors, err := h.github.Contributors(ctx)
	if err != nil {
		h.logger.Debug("contributors unavailable, using commit authors", zap.Error(err))
	}
	var authors []git.Author
	if len(contributors) == 0 {
		if authors, err = h.repo.Authors(ctx); err != nil {
			h.logger.Warn("listing authors failed", zap.Error(err))
		}
	}

	ticket, title := naming.Parse(current)
	data := &Data{
		CurrentBranch:    current,
		DefaultTarget:    h.cfg.DefaultTargetBranch,
		RemoteBranches:   nonNil(branches),
		Contributors:     nonNil(reviewers.Pool(contributors, authors, reviewers.Exclusions{Ignored: h.cfg.Reviewers.IgnoredAuthors})),
		SuggestedTickets: []string{},
		SuggestedTitle:   title,
	}
	if ticket != "" {
		data.SuggestedTickets = []string{ticket}
	}
	return data, nil
}

// Describe returns the commit subjects between target and source as a
// markdown list, empty when there are none.
func (h *Headless) Describe(ctx context.Context, source, target string) (string, error) {
	if source == "" || target == "" {
		return "", prcerrors.NewWorkflowError("describe", "source and target are required")
	}
	if err := h.requireRepo(ctx, "describe"); err != nil {
		return "", err
	}
	subjects, err := h.repo.CommitsBetween(ctx, target, source)
	if err != nil {
		return "", prcerrors.NewWorkflowErrorWithCause("describe", "could not read commits", err)
	}
	return pullrequest.Bullets(subjects), nil
}

// metadata turns req into pull request metadata. Reviewers are left as given.
func (h *Headless) metadata(ctx context.Context, req Request) (pullrequest.Metadata, error) {
	source := req.Source
	if source == "" {
		var err error
		if source, err = h.repo.CurrentBranch(ctx); err != nil {
			return pullrequest.Metadata{}, prcerrors.NewWorkflowErrorWithCause("preflight", "could not determine the current branch", err)
		}
	}

	section := jira.None()
	if len(req.Tickets) > 0 {
		section = jira.Tickets(req.Tickets, "", h.cfg.Jira.BaseURL)
	}

	return pullrequest.Metadata{
		Source:      source,
		Targets:     req.Targets,
		Tickets:     titleTickets(section, ""),
		Jira:        section,
		Title:       req.Title,
		Description: req.Body,
		Reviewers:   req.Reviewers,
		Draft:       req.Draft,
	}, nil
}

// Preview renders the pull request for the first target, or for the default
// target branch when none is given.
func (h *Headless) Preview(ctx context.Context, req Request) (*pullrequest.Plan, error) {
	m, err := h.metadata(ctx, req)
	if err != nil {
		return nil, err
	}
	target := h.cfg.DefaultTargetBranch
	if len(req.Targets) > 0 {
		target = req.Targets[0]
	}
	plan := m.PlanFor(target, h.cfg.PR.ChecklistURL)
	return &plan, nil
}

// Submit creates one pull request per target. Success is false when any
// target failed.
func (h *Headless) Submit(ctx context.Context, req Request) (*SubmitReport, error) {
	if len(req.Targets) == 0 {
		return nil, prcerrors.NewWorkflowError("submit", "no target branches specified")
	}
	if err := h.requireRepo(ctx, "submit"); err != nil {
		return nil, err
	}

	m, err := h.metadata(ctx, req)
	if err != nil {
		return nil, err
	}

	resolver := newResolver(h.cfg, h.github, h.store, nil, h.console, h.logger)
	if m.Reviewers, err = resolveHandles(ctx, resolver, h.console, req.Reviewers); err != nil {
		return nil, err
	}

	sub := pullrequest.NewSubmitter(h.github,
		pullrequest.WithConsole(h.console),
		pullrequest.WithLogger(h.logger),
		pullrequest.WithDryRun(h.dryRun))
	results, err := sub.Submit(ctx, m.Plans(h.cfg.PR.ChecklistURL))
	if err != nil {
		return nil, err
	}

	sum := pullrequest.Summarize(results)
	h.logger.Info("headless submit complete",
		zap.Int("created", sum.Created),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return &SubmitReport{Success: sum.Failed == 0, Results: results, Summary: sum}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
