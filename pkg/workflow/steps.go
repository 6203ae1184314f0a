package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/jira"
	"thoreinstein.com/prc/pkg/naming"
	"thoreinstein.com/prc/pkg/pullrequest"
	"thoreinstein.com/prc/pkg/reviewers"
	"thoreinstein.com/prc/pkg/strategy"
)

// Jira menu entries.
const (
	jiraTickets = "1"
	jiraRelease = "2"
)

// runPreflight verifies the repository and loads the branch set.
//
// Fetch failures and an empty remote are warnings: the run continues with
// whatever branches are known, and branch names can be typed in.
func (e *Engine) runPreflight(ctx context.Context, sess *Session) error {
	if !e.repo.IsRepo(ctx) {
		return prcerrors.NewWorkflowError("preflight", "not a git repository")
	}

	e.repo.Fetch(ctx)

	names, err := e.repo.RemoteBranches(ctx)
	if err != nil {
		e.logger.Warn("listing remote branches failed", zap.Error(err))
	}
	if len(names) == 0 {
		e.console.Warnf("No remote branches found. Branch names will have to be typed in.")
	}
	sess.Branches = strategy.NewBranchSet(names)

	current, err := e.repo.CurrentBranch(ctx)
	if err != nil {
		return prcerrors.NewWorkflowErrorWithCause("preflight", "could not determine the current branch", err)
	}
	sess.CurrentBranch = current
	e.console.Printf("Current Branch (Source): %s\n", current)

	if dir, err := e.repo.GitDir(ctx); err == nil {
		e.gitDir = dir
	} else {
		e.logger.Debug("checkpoints disabled", zap.Error(err))
	}

	e.logger.Debug("preflight complete",
		zap.String("branch", current),
		zap.Int("remote_branches", sess.Branches.Len()))
	return nil
}

// runStrategy runs the strategy engine and resolves its placeholders. Manual
// selection is used when the user picks it or nothing resolves.
func (e *Engine) runStrategy(ctx context.Context, sess *Session) error {
	eng := strategy.NewEngine(e.in, e.console, e.logger)

	res, err := eng.Run(ctx, sess.CurrentBranch, sess.Branches)
	if err != nil {
		return err
	}

	var targets []string
	if res.Strategy != strategy.Manual {
		targets, err = eng.Resolve(ctx, res.Targets, sess.Branches, e.cfg.DefaultTargetBranch)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			e.console.Warnf("No valid targets determined from strategy. Reverting to manual selection.")
		}
	}

	if res.Strategy == strategy.Manual {
		res.Source, err = e.in.ChooseDefault(ctx,
			fmt.Sprintf("Source Branch? (Current: %s)", res.Source), sess.Branches.Names(), res.Source)
		if err != nil {
			return err
		}
	}
	if len(targets) == 0 {
		def := e.cfg.DefaultTargetBranch
		target, err := e.in.ChooseDefault(ctx,
			fmt.Sprintf("Target Branch? (Default: %s)", def), sess.Branches.Names(), def)
		if err != nil {
			return err
		}
		targets = []string{target}
	}

	for _, t := range targets {
		if t == res.Source {
			e.console.Warnf("Target %s is the same as the source branch.", t)
		}
	}

	sess.Strategy = res
	sess.Metadata.Source = res.Source
	sess.Metadata.Targets = targets
	sess.Metadata.Draft = e.draft

	e.logger.Info("targets resolved",
		zap.Stringer("strategy", res.Strategy),
		zap.String("source", res.Source),
		zap.Strings("targets", targets))

	e.printHeader(sess)
	return nil
}

// runMetadata collects the Jira section, the descriptive title and the
// description, or reuses them from a checkpoint.
func (e *Engine) runMetadata(ctx context.Context, sess *Session) error {
	m := &sess.Metadata
	sess.BranchTicket, sess.BranchTitle = naming.Parse(m.Source)

	resumed, err := e.offerResume(ctx, sess)
	if err != nil || resumed {
		return err
	}

	section, titleDefault, err := e.collectJira(ctx, sess)
	if err != nil {
		return err
	}
	m.Jira = section
	m.Tickets = titleTickets(section, sess.BranchTicket)
	for _, t := range m.Tickets {
		if !e.cfg.Jira.AcceptsTicket(t) {
			e.console.Warnf("Ticket %s is not in a configured Jira project.", t)
		}
	}

	// With tickets in the title the descriptive part defaults to empty.
	if len(m.Tickets) > 0 {
		titleDefault = ""
	}
	e.console.Section("--- Title Configuration ---")
	e.console.Successf("Default Title Style: %s",
		pullrequest.FormatTitle(m.Tickets, "", m.Source, m.Targets[0]))
	if len(m.Targets) > 1 {
		e.console.Successf("(Will be applied to %d targets)", len(m.Targets))
	}
	e.console.Dimf("Press Enter to keep the default, or type a descriptive title.")
	m.Title, err = e.in.Line(ctx, "Descriptive title", titleDefault)
	if err != nil {
		return err
	}

	subjects, err := e.repo.CommitsBetween(ctx, m.Targets[0], m.Source)
	if err != nil {
		e.logger.Warn("reading commits failed", zap.Error(err))
		e.console.Warnf("Could not read commits between %s and %s.", m.Targets[0], m.Source)
	}
	auto := pullrequest.DefaultDescription(subjects)

	e.console.Section("Description (Enter to keep auto-generated)")
	e.console.Printf("Current:\n%s\n", auto)
	lines, err := e.in.Multiline(ctx, "New description?")
	if err != nil {
		return err
	}
	if d := pullrequest.Bullets(lines); d != "" {
		m.Description = d
	} else {
		m.Description = auto
	}
	return nil
}

// collectJira runs the Jira menu. It returns the section and the default for
// the descriptive title.
func (e *Engine) collectJira(ctx context.Context, sess *Session) (jira.Section, string, error) {
	e.console.Section("--- JIRA Details ---")
	e.console.Println("1. Enter JIRA Ticket IDs")
	e.console.Println("2. Enter JIRA Release info")
	e.console.Println("3. Skip / Manual")

	choice, err := e.in.Line(ctx, "Select [1-3]", "")
	if err != nil {
		return jira.Section{}, "", err
	}

	switch strings.TrimSpace(choice) {
	case jiraTickets:
		ids, err := e.in.Multiline(ctx, "Enter JIRA Ticket IDs or URLs (e.g. PROJ-123):")
		if err != nil {
			return jira.Section{}, "", err
		}
		return jira.Tickets(ids, sess.BranchTicket, e.cfg.Jira.BaseURL), sess.BranchTitle, nil

	case jiraRelease:
		title, err := e.in.Line(ctx, "Release Title", "")
		if err != nil {
			return jira.Section{}, "", err
		}
		url, err := e.in.Line(ctx, "Release URL", "")
		if err != nil {
			return jira.Section{}, "", err
		}
		def := sess.BranchTitle
		if def == "" {
			def = strings.TrimSpace(title)
		}
		return jira.Release(title, url), def, nil

	default:
		return jira.None(), "", nil
	}
}

// titleTickets returns the ticket ids that prefix the title.
func titleTickets(section jira.Section, branchTicket string) []string {
	if section.Kind == jira.KindTickets {
		return section.Tickets
	}
	if branchTicket != "" {
		return []string{branchTicket}
	}
	return nil
}

// runReviewers builds the candidate pool, runs the selection loop and
// resolves the selection to handles. The collected metadata is checkpointed
// afterwards.
func (e *Engine) runReviewers(ctx context.Context, sess *Session) error {
	if sess.Resumed {
		return nil
	}

	contributors, err := e.github.Contributors(ctx)
	if err != nil {
		e.logger.Debug("contributors unavailable, using commit authors", zap.Error(err))
	}
	var authors []git.Author
	if len(contributors) == 0 {
		authors, err = e.repo.Authors(ctx)
		if err != nil {
			e.logger.Warn("listing authors failed", zap.Error(err))
		}
	}
	if len(contributors) == 0 && len(authors) == 0 {
		e.console.Warnf("No authors found in history.")
	}

	me, err := e.github.CurrentUser(ctx)
	if err != nil {
		e.logger.Debug("current user unknown", zap.Error(err))
	}
	pool := reviewers.Pool(contributors, authors, reviewers.Exclusions{
		Email:   e.repo.UserEmail(ctx),
		Handle:  me,
		Ignored: e.cfg.Reviewers.IgnoredAuthors,
	})

	selected, err := reviewers.NewSelector(e.in, e.console, e.cfg.Reviewers.Groups).Select(ctx, pool)
	if err != nil {
		return err
	}

	resolver := newResolver(e.cfg, e.github, e.store, e.in, e.console, e.logger)
	sess.Metadata.Reviewers, err = resolveHandles(ctx, resolver, e.console, selected)
	if err != nil {
		return err
	}

	e.saveCheckpoint(sess)
	return nil
}

// runConfirm shows the planned pull requests and asks for confirmation
// unless pr.confirm is off.
func (e *Engine) runConfirm(ctx context.Context, sess *Session) error {
	e.printHeader(sess)

	plans := sess.Metadata.Plans(e.cfg.PR.ChecklistURL)
	e.console.Section("Ready to create %d Pull Request(s):", len(plans))
	for _, p := range plans {
		e.console.Printf("  -> %s: %s\n", p.Target, p.Title)
	}

	if !e.cfg.PR.Confirm {
		return nil
	}
	ok, err := e.in.Confirm(ctx, "Create these PRs?", true)
	if err != nil {
		return err
	}
	if !ok {
		e.console.Errorf("Aborted.")
		return ErrAborted
	}
	return nil
}

// runSubmit creates the pull requests. The checkpoint is kept while any
// target failed so the next run can retry with the same details.
func (e *Engine) runSubmit(ctx context.Context, sess *Session) error {
	sub := pullrequest.NewSubmitter(e.github,
		pullrequest.WithConsole(e.console),
		pullrequest.WithLogger(e.logger),
		pullrequest.WithDryRun(e.dryRun))

	results, err := sub.Submit(ctx, sess.Metadata.Plans(e.cfg.PR.ChecklistURL))
	sess.Results = results
	if err != nil {
		return err
	}

	e.printFinal(sess)

	sum := pullrequest.Summarize(results)
	if sum.Failed > 0 {
		if e.gitDir != "" && !e.dryRun {
			e.console.Hintf("Your details were saved. Run prc again to retry the failed targets.")
		}
		return prcerrors.NewWorkflowError("submit",
			fmt.Sprintf("%d of %d pull requests failed", sum.Failed, len(results)))
	}
	if !e.dryRun {
		e.clearCheckpoint()
	}
	return nil
}
