package pullrequest

import (
	"context"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/ui"
)

// Submitter creates pull requests on the host, one target at a time.
type Submitter struct {
	gh      github.Client
	console *ui.Console
	logger  *zap.Logger
	dryRun  bool
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithConsole sets where progress is reported.
func WithConsole(c *ui.Console) SubmitterOption {
	return func(s *Submitter) { s.console = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) SubmitterOption {
	return func(s *Submitter) { s.logger = l }
}

// WithDryRun prints the equivalent gh command instead of creating anything.
// The existing pull request check still runs.
func WithDryRun(dryRun bool) SubmitterOption {
	return func(s *Submitter) { s.dryRun = dryRun }
}

// NewSubmitter creates a Submitter. Progress is discarded unless a console is
// given.
func NewSubmitter(gh github.Client, opts ...SubmitterOption) *Submitter {
	s := &Submitter{gh: gh}
	for _, opt := range opts {
		opt(s)
	}
	if s.console == nil {
		s.console = ui.NewConsole(io.Discard)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Submit processes plans in order. A target with an open pull request is
// skipped and a failed creation does not stop the remaining targets. Only
// context cancellation ends the loop early; results gathered so far are
// returned with the error.
func (s *Submitter) Submit(ctx context.Context, plans []Plan) ([]Result, error) {
	results := make([]Result, 0, len(plans))
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.submitOne(ctx, p))
	}
	return results, nil
}

func (s *Submitter) submitOne(ctx context.Context, p Plan) Result {
	log := s.logger.With(zap.String("source", p.Source), zap.String("target", p.Target))
	res := Result{Target: p.Target, Title: p.Title}

	s.console.Section("Preparing PR for %s", p.Target)

	existing, err := s.gh.ListOpenPRs(ctx, p.Source, p.Target)
	switch {
	case err != nil:
		log.Warn("existing PR check failed", zap.Error(err))
		s.console.Warnf("Warning: Failed to check for existing PRs.")
	case len(existing) > 0:
		s.console.Errorf("[!] A PR already exists for %s -> %s:", p.Source, p.Target)
		for _, pr := range existing {
			s.console.Warnf("- %s (%s)", pr.Title, pr.URL)
			res.Existing = append(res.Existing, pr.URL)
		}
		s.console.Warnf("Skipping creation for this target.")
		res.Status = StatusSkipped
		res.Reason = "PR already exists"
		log.Info("skipped, PR exists", zap.Strings("existing", res.Existing))
		return res
	default:
		s.console.Dimf("No existing PR found. Proceeding...")
	}

	if s.dryRun {
		s.console.Hintf("Generated command:")
		s.console.Printf("  %s\n", CommandLine(p))
		res.Status = StatusPlanned
		return res
	}

	pr, err := s.gh.CreatePR(ctx, github.CreatePROptions{
		Title:      p.Title,
		Body:       p.Body,
		HeadBranch: p.Source,
		BaseBranch: p.Target,
		Draft:      p.Draft,
		Reviewers:  p.Reviewers,
	})
	if err != nil {
		log.Error("create PR failed", zap.Error(err))
		s.console.Errorf("Failed to create PR for %s: %v", p.Target, err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	s.console.Successf("SUCCESS: PR created for %s", p.Target)
	s.console.Printf("URL: %s\n", pr.URL)
	log.Info("PR created", zap.String("url", pr.URL), zap.Int("number", pr.Number))
	res.Status = StatusCreated
	res.URL = pr.URL
	return res
}

// CommandLine renders the gh invocation equivalent to creating p. The body is
// abbreviated to its line count.
func CommandLine(p Plan) string {
	parts := []string{
		"gh", "pr", "create",
		"--base", quote(p.Target),
		"--head", quote(p.Source),
		"--title", quote(p.Title),
		"--body", "<" + strconv.Itoa(strings.Count(p.Body, "\n")+1) + " lines>",
	}
	if p.Draft {
		parts = append(parts, "--draft")
	}
	if len(p.Reviewers) > 0 {
		parts = append(parts, "--reviewer", quote(strings.Join(p.Reviewers, ",")))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'[]>") {
		return strconv.Quote(s)
	}
	return s
}
