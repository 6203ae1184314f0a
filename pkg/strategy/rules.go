package strategy

import (
	"strings"

	"thoreinstein.com/prc/pkg/naming"
)

// Fixed branch names the pipelines flow into.
const (
	DevelopBranch = "develop"
	MainBranch    = "main"
	MasterBranch  = "master"
)

type stageRule struct {
	stage    Stage
	strategy Strategy
	label    string
	// accepts is the source precondition; nil accepts any source.
	accepts func(source string) bool
	// expect describes accepted sources in warnings.
	expect  string
	targets func(source string, branches BranchSet) []Target
}

var stageRules = []stageRule{
	{
		stage:    StageFeatureToStaging,
		strategy: Release,
		label:    "feature -> develop/staging",
		targets:  developAndStaging,
	},
	{
		stage:    StageStagingToAlpha,
		strategy: Release,
		label:    "staging -> alpha",
		accepts:  isStagingRelease,
		expect:   "release/<version> without -a/-b",
		targets: func(source string, _ BranchSet) []Target {
			return []Target{Concrete(source + naming.AlphaSuffix)}
		},
	},
	{
		stage:    StageAlphaToBeta,
		strategy: Release,
		label:    "alpha -> beta",
		accepts:  isAlphaRelease,
		expect:   "release/<version>-a",
		targets: func(source string, _ BranchSet) []Target {
			return []Target{Concrete(strings.TrimSuffix(source, naming.AlphaSuffix) + naming.BetaSuffix)}
		},
	},
	{
		stage:    StageBetaToLive,
		strategy: Release,
		label:    "beta -> live",
		accepts:  isBetaRelease,
		expect:   "release/<version>-b",
		targets: func(_ string, branches BranchSet) []Target {
			switch {
			case branches.Contains(MainBranch):
				return []Target{Concrete(MainBranch)}
			case branches.Contains(MasterBranch):
				return []Target{Concrete(MasterBranch)}
			default:
				return []Target{Placeholder(KindMainline)}
			}
		},
	},
	{
		stage:    StageChildToParent,
		strategy: Hotfix,
		label:    "child -> parent",
		targets: func(source string, branches BranchSet) []Target {
			if parent, _, found := strings.Cut(source, "-"); found && branches.Contains(parent) {
				return []Target{Concrete(parent)}
			}
			return []Target{Placeholder(KindParent)}
		},
	},
	{
		stage:    StageParentToStaging,
		strategy: Hotfix,
		label:    "parent -> develop/staging",
		targets:  developAndStaging,
	},
	{
		stage:    StageParentToAlphaBeta,
		strategy: Hotfix,
		label:    "parent -> alpha/beta",
		targets: func(string, BranchSet) []Target {
			return []Target{Placeholder(KindAlpha), Placeholder(KindBeta)}
		},
	},
}

func developAndStaging(string, BranchSet) []Target {
	return []Target{Concrete(DevelopBranch), Placeholder(KindStaging)}
}

func isStagingRelease(b string) bool {
	return strings.HasPrefix(b, naming.ReleasePrefix) && naming.StageOf(b) == naming.StageStaging
}

func isAlphaRelease(b string) bool {
	return strings.HasPrefix(b, naming.ReleasePrefix) && strings.HasSuffix(b, naming.AlphaSuffix)
}

func isBetaRelease(b string) bool {
	return strings.HasPrefix(b, naming.ReleasePrefix) && strings.HasSuffix(b, naming.BetaSuffix)
}

func ruleFor(stage Stage) (stageRule, bool) {
	for _, r := range stageRules {
		if r.stage == stage {
			return r, true
		}
	}
	return stageRule{}, false
}

// StagesFor returns the stages of a strategy in menu order.
func StagesFor(s Strategy) []Stage {
	var stages []Stage
	for _, r := range stageRules {
		if r.strategy == s {
			stages = append(stages, r.stage)
		}
	}
	return stages
}

// SourceAccepted reports whether source satisfies the stage precondition.
func SourceAccepted(stage Stage, source string) bool {
	r, ok := ruleFor(stage)
	if !ok || r.accepts == nil {
		return true
	}
	return r.accepts(source)
}

// SourceCandidates returns the branches that satisfy the stage precondition,
// newest release first. Stages without a precondition have no candidates.
func SourceCandidates(stage Stage, branches BranchSet) []string {
	r, ok := ruleFor(stage)
	if !ok || r.accepts == nil {
		return nil
	}
	return sortByVersion(branches.Filter(r.accepts))
}

// TargetsFor computes the target specifiers of a stage for source. Manual and
// unknown stages produce no targets.
func TargetsFor(stage Stage, source string, branches BranchSet) []Target {
	r, ok := ruleFor(stage)
	if !ok {
		return nil
	}
	return r.targets(source, branches)
}

// Detect guesses the stage a branch is most likely in. It is a hint for
// callers and is never applied without the user's selection.
func Detect(source string) Stage {
	switch {
	case isBetaRelease(source):
		return StageBetaToLive
	case isAlphaRelease(source):
		return StageAlphaToBeta
	case isStagingRelease(source):
		return StageStagingToAlpha
	case strings.HasPrefix(source, naming.HotfixPrefix) && strings.Contains(source, "-"):
		return StageChildToParent
	case strings.HasPrefix(source, naming.HotfixPrefix):
		return StageParentToStaging
	case strings.Contains(source, "/"):
		return StageFeatureToStaging
	default:
		return StageNone
	}
}
