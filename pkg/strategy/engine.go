package strategy

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/naming"
)

// SkipOption is the menu entry that drops a placeholder with no candidates.
const SkipOption = "skip"

// Engine runs the interactive part of strategy selection.
type Engine struct {
	chooser Chooser
	notify  Notifier
	logger  *zap.Logger
}

// NewEngine creates an Engine. notify and logger may be nil.
func NewEngine(chooser Chooser, notify Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Engine{chooser: chooser, notify: notify, logger: logger}
}

type nopNotifier struct{}

func (nopNotifier) Warnf(string, ...any) {}

// Run asks for a strategy and stage and returns the confirmed source and the
// stage targets. The only placeholder it resolves itself is the mainline one
// produced by beta -> live; the others are left for Resolve.
func (e *Engine) Run(ctx context.Context, source string, branches BranchSet) (Result, error) {
	manual := Result{Strategy: Manual, Source: source}

	labels := make([]string, len(Strategies))
	for i, s := range Strategies {
		labels[i] = s.String()
	}
	picked, err := e.chooser.Choose(ctx, "Select strategy", labels)
	if err != nil {
		return Result{}, errors.Wrap(err, "strategy selection")
	}

	var strat Strategy
	switch picked {
	case Release.String():
		strat = Release
	case Hotfix.String():
		strat = Hotfix
	default:
		return manual, nil
	}

	stages := StagesFor(strat)
	stageLabels := make([]string, len(stages))
	for i, s := range stages {
		stageLabels[i] = s.String()
	}
	picked, err = e.chooser.Choose(ctx, "Select "+strat.String()+" stage", stageLabels)
	if err != nil {
		return Result{}, errors.Wrap(err, "stage selection")
	}

	idx := slices.Index(stageLabels, picked)
	if idx < 0 {
		e.logger.Debug("unknown stage selection, falling back to manual", zap.String("selection", picked))
		return manual, nil
	}
	stage := stages[idx]

	confirmed, err := e.confirmSource(ctx, stage, source, branches)
	if err != nil {
		return Result{}, err
	}

	targets := TargetsFor(stage, confirmed, branches)
	targets, err = e.resolveMainline(ctx, targets, branches)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("strategy resolved",
		zap.Stringer("strategy", strat),
		zap.Stringer("stage", stage),
		zap.String("source", confirmed),
		zap.Stringers("targets", targets),
	)

	return Result{Strategy: strat, Stage: stage, Source: confirmed, Targets: targets}, nil
}

// confirmSource checks the stage precondition. On violation the user picks a
// source among the branches that satisfy it, or keeps the current one when
// none do.
func (e *Engine) confirmSource(ctx context.Context, stage Stage, source string, branches BranchSet) (string, error) {
	if SourceAccepted(stage, source) {
		return source, nil
	}

	r, _ := ruleFor(stage)
	e.notify.Warnf("Current branch %q does not match %s (expected %s)", source, stage, r.expect)

	candidates := SourceCandidates(stage, branches)
	if len(candidates) == 0 {
		e.notify.Warnf("No branches match %s; keeping %q", r.expect, source)
		return source, nil
	}

	picked, err := e.chooser.Choose(ctx, "Select source branch", candidates)
	if err != nil {
		return "", errors.Wrap(err, "source selection")
	}
	return picked, nil
}

func (e *Engine) resolveMainline(ctx context.Context, targets []Target, branches BranchSet) ([]Target, error) {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Kind() != KindMainline {
			out = append(out, t)
			continue
		}

		e.notify.Warnf("Neither %q nor %q exists on the remote", MainBranch, MasterBranch)
		name, ok, err := e.resolveOne(ctx, KindMainline, branches, "")
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Concrete(name))
		}
	}
	return out, nil
}

func sortByVersion(branches []string) []string {
	slices.SortStableFunc(branches, naming.CompareVersions)
	return branches
}
