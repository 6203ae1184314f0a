package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/identity"
	"thoreinstein.com/prc/pkg/logging"
	"thoreinstein.com/prc/pkg/ui"
	"thoreinstein.com/prc/pkg/workflow"
)

// errAlreadyReported marks failures whose message was already printed.
var errAlreadyReported = errors.New("already reported")

// repository is the git surface the commands need.
type repository interface {
	workflow.Repo
	OriginURL(ctx context.Context) (string, error)
}

// Overridden in tests.
var (
	newRepo = func(dir string, logger *zap.Logger) repository {
		return git.NewRepo(dir, logger)
	}
	newGitHubClient = github.NewClient
	isTerminal      = func(f *os.File) bool {
		return term.IsTerminal(int(f.Fd()))
	}
)

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// deps holds everything a command needs to talk to git and GitHub.
type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	repo   repository
	github github.Client
	store  identity.Store
}

// setup loads configuration and builds the git, GitHub and identity clients
// for the working directory.
func setup(ctx context.Context) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, prcerrors.NewConfigErrorWithCause("", "failed to load configuration", err)
	}

	logger, err := logging.FromConfig(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}
	repo := newRepo(dir, logger)

	var remote *git.RepoURL
	if origin, err := repo.OriginURL(ctx); err != nil {
		logger.Debug("no origin remote", zap.Error(err))
	} else if remote, err = git.ParseRemoteURL(origin); err != nil {
		logger.Debug("origin is not a GitHub remote", zap.String("origin", origin), zap.Error(err))
	}

	gh, err := newGitHubClient(ctx, &cfg.GitHub, github.Options{
		Dir:    dir,
		Repo:   remote,
		Logger: logger,
		Out:    os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger, repo: repo, github: gh}
	if cfg.Identity.StorePath != "" {
		store, err := identity.OpenFileStore(cfg.Identity.StorePath)
		if err != nil {
			// resolutions are still kept for this run
			logger.Warn("handle store unavailable", zap.Error(err))
		} else {
			d.store = store
		}
	}
	return d, nil
}

// runInteractive runs the interactive flow. Input must be a terminal.
func runInteractive(ctx context.Context, in *os.File, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !isTerminal(in) {
		return prcerrors.NewWorkflowError("preflight",
			"prc needs an interactive terminal; use 'prc submit' for scripted runs")
	}

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = d.logger.Sync() }()

	return runEngine(ctx, d, in, ui.NewConsole(out))
}

// runEngine drives the workflow engine and prints errors on console.
func runEngine(ctx context.Context, d *deps, in io.Reader, console *ui.Console) error {
	engine := workflow.NewEngine(d.repo, d.github, d.cfg, ui.NewPrompter(in, console), console, workflow.Options{
		Store:  d.store,
		Logger: d.logger,
		DryRun: runOpts.DryRun,
		Draft:  runOpts.Draft,
	})

	_, err := engine.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrAborted):
		return err
	case errors.Is(err, context.Canceled):
		console.Warnf("Interrupted.")
		return errAlreadyReported
	default:
		console.Errorf("%s", prcerrors.FormatUserError(err))
		return errAlreadyReported
	}
}
