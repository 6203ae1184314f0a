package workflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/identity"
	"thoreinstein.com/prc/pkg/ui"
)

// ErrAborted is returned when the user declines to create the pull requests.
var ErrAborted = errors.New("aborted by user")

// Options configures an Engine or a Headless runner.
type Options struct {
	// Store persists resolved reviewer handles. An in-memory store is used
	// when nil.
	Store identity.Store

	Logger *zap.Logger

	// DryRun prints the gh commands instead of creating pull requests.
	DryRun bool

	// Draft opens the pull requests as drafts.
	Draft bool
}

// Engine orchestrates the interactive pull request run.
type Engine struct {
	repo    Repo
	github  github.Client
	cfg     *config.Config
	in      Prompter
	console *ui.Console
	store   identity.Store
	logger  *zap.Logger
	dryRun  bool
	draft   bool
	gitDir  string // checkpoint location; empty disables checkpoints
}

// NewEngine creates a workflow engine.
//
// Parameters:
//   - repo: local git queries (required)
//   - gh: host client for pull request and user operations (required)
//   - cfg: configuration (required)
//   - in: answers to interactive questions (required)
//   - console: where progress and summaries are printed (required)
func NewEngine(repo Repo, gh github.Client, cfg *config.Config, in Prompter, console *ui.Console, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		repo:    repo,
		github:  gh,
		cfg:     cfg,
		in:      in,
		console: console,
		store:   opts.Store,
		logger:  logger,
		dryRun:  opts.DryRun,
		draft:   opts.Draft,
	}
}

// Run executes every step in order and returns the session state.
//
// ErrAborted and context cancellation are returned unwrapped; any other
// failure is wrapped in a WorkflowError naming the step. A session is
// returned even on error so callers can report partial results.
func (e *Engine) Run(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:             uuid.NewString(),
		StartedAt:      time.Now(),
		CompletedSteps: make([]Step, 0, len(AllSteps())),
	}
	e.logger = e.logger.With(zap.String("session", sess.ID))

	e.console.Title("Pull Request Creator")
	e.console.Title("%s", divider)

	steps := []struct {
		step Step
		fn   func(context.Context, *Session) error
	}{
		{StepPreflight, e.runPreflight},
		{StepStrategy, e.runStrategy},
		{StepMetadata, e.runMetadata},
		{StepReviewers, e.runReviewers},
		{StepConfirm, e.runConfirm},
		{StepSubmit, e.runSubmit},
	}

	for _, s := range steps {
		sess.CurrentStep = s.step
		e.logger.Debug("executing step", zap.Stringer("step", s.step))

		if err := s.fn(ctx, sess); err != nil {
			e.logger.Debug("step failed", zap.Stringer("step", s.step), zap.Error(err))
			switch {
			case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled), prcerrors.IsWorkflowError(err):
				return sess, err
			case errors.Is(err, ui.ErrCancelled):
				return sess, ErrAborted
			}
			return sess, prcerrors.NewWorkflowErrorWithCause(string(s.step), err.Error(), err)
		}

		sess.CompletedSteps = append(sess.CompletedSteps, s.step)
	}

	e.logger.Info("run complete",
		zap.Int("results", len(sess.Results)),
		zap.Duration("elapsed", time.Since(sess.StartedAt)))
	return sess, nil
}

func (e *Engine) saveCheckpoint(sess *Session) {
	if e.gitDir == "" || e.dryRun {
		return
	}
	cp := &Checkpoint{
		SessionID:      sess.ID,
		Source:         sess.Metadata.Source,
		Metadata:       sess.Metadata,
		CompletedSteps: sess.CompletedSteps,
		CurrentStep:    sess.CurrentStep,
	}
	if err := SaveCheckpoint(e.gitDir, cp); err != nil {
		e.logger.Warn("failed to save checkpoint", zap.Error(err))
	}
}

func (e *Engine) clearCheckpoint() {
	if e.gitDir == "" {
		return
	}
	if err := ClearCheckpoint(e.gitDir); err != nil {
		e.logger.Warn("failed to clear checkpoint", zap.Error(err))
	}
}

// offerResume loads a checkpoint left by an earlier run on the same source
// branch and asks whether to reuse its metadata. Targets always come from the
// current run.
func (e *Engine) offerResume(ctx context.Context, sess *Session) (bool, error) {
	if e.gitDir == "" {
		return false, nil
	}
	cp, err := LoadCheckpoint(e.gitDir)
	if err != nil {
		e.logger.Warn("ignoring unreadable checkpoint", zap.Error(err))
		return false, nil
	}
	if cp == nil || cp.Source != sess.Metadata.Source || cp.IsStale(checkpointMaxAge) {
		return false, nil
	}

	e.console.Section("Unfinished run found for %s", cp.Source)
	e.printMetadata(cp.Metadata)
	ok, err := e.in.Confirm(ctx, "Reuse these details?", true)
	if err != nil {
		return false, err
	}
	if !ok {
		e.clearCheckpoint()
		return false, nil
	}

	targets := sess.Metadata.Targets
	sess.Metadata = cp.Metadata
	sess.Metadata.Targets = targets
	sess.Metadata.Draft = sess.Metadata.Draft || e.draft
	sess.Resumed = true
	e.logger.Info("resumed checkpoint", zap.String("from_session", cp.SessionID))
	return true, nil
}
