package strategy

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/naming"
)

// PlaceholderCandidates returns the branches a placeholder may resolve to,
// newest release first. For KindParent it falls back to the whole set when no
// hotfix/ branch exists.
func PlaceholderCandidates(kind Kind, branches BranchSet) []string {
	var out []string
	switch kind {
	case KindStaging:
		out = branches.Filter(func(b string) bool {
			return strings.Contains(b, naming.ReleasePrefix) &&
				!strings.HasSuffix(b, naming.AlphaSuffix) &&
				!strings.HasSuffix(b, naming.BetaSuffix)
		})
	case KindAlpha:
		out = branches.Filter(func(b string) bool { return strings.HasSuffix(b, naming.AlphaSuffix) })
	case KindBeta:
		out = branches.Filter(func(b string) bool { return strings.HasSuffix(b, naming.BetaSuffix) })
	case KindParent:
		out = branches.Filter(func(b string) bool { return strings.Contains(b, naming.HotfixPrefix) })
		if len(out) == 0 {
			out = branches.Names()
		}
	case KindMainline:
		out = branches.Names()
	}
	return sortByVersion(out)
}

// Resolve replaces placeholders with concrete branch names, preserving order.
// Concrete targets pass through untouched. Placeholders the user skips are
// omitted; an empty result means the caller should fall back to manual
// target selection.
func (e *Engine) Resolve(ctx context.Context, targets []Target, branches BranchSet, defaultTarget string) ([]string, error) {
	resolved := make([]string, 0, len(targets))

	for _, t := range targets {
		if !t.IsPlaceholder() {
			resolved = append(resolved, t.Name())
			continue
		}

		name, ok, err := e.resolveOne(ctx, t.Kind(), branches, defaultTarget)
		if err != nil {
			return nil, err
		}
		if ok {
			resolved = append(resolved, name)
		}
	}

	e.logger.Debug("placeholders resolved", zap.Strings("targets", resolved))
	return resolved, nil
}

func (e *Engine) resolveOne(ctx context.Context, kind Kind, branches BranchSet, defaultTarget string) (string, bool, error) {
	candidates := PlaceholderCandidates(kind, branches)
	prompt := "Select " + kind.String() + " branch"

	if kind == KindParent || kind == KindMainline {
		if len(candidates) == 0 {
			e.notify.Warnf("No branches available for %s", kind)
			return "", false, nil
		}
		picked, err := e.chooser.Choose(ctx, prompt, candidates)
		if err != nil {
			return "", false, errors.Wrapf(err, "%s selection", kind)
		}
		return picked, true, nil
	}

	switch len(candidates) {
	case 0:
		e.notify.Warnf("No %s branches found", kind)
		options := []string{}
		if defaultTarget != "" && branches.Contains(defaultTarget) {
			options = append(options, defaultTarget)
		}
		options = append(options, SkipOption)

		picked, err := e.chooser.Choose(ctx, prompt, options)
		if err != nil {
			return "", false, errors.Wrapf(err, "%s selection", kind)
		}
		if picked == SkipOption {
			return "", false, nil
		}
		return picked, true, nil

	case 1:
		e.logger.Debug("auto-selected placeholder", zap.Stringer("kind", kind), zap.String("branch", candidates[0]))
		return candidates[0], true, nil

	default:
		picked, err := e.chooser.Choose(ctx, prompt, candidates)
		if err != nil {
			return "", false, errors.Wrapf(err, "%s selection", kind)
		}
		return picked, true, nil
	}
}
