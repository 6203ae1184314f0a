// Package strategy infers pull request source/target pairs from branch naming
// conventions.
//
// A run selects a Strategy and one of its Stages. Each stage carries a pure
// source precondition and a pure target rule over the branch set; the Engine
// adds the interactive parts (stage selection, source disambiguation and
// placeholder resolution) through an injected Chooser.
package strategy

import (
	"context"
	"slices"
)

// Strategy is a named branching convention.
type Strategy int

const (
	Manual Strategy = iota
	Release
	Hotfix
)

func (s Strategy) String() string {
	switch s {
	case Release:
		return "Release"
	case Hotfix:
		return "Hotfix"
	default:
		return "Manual"
	}
}

// Strategies lists the strategies in menu order.
var Strategies = []Strategy{Release, Hotfix, Manual}

// Stage is one transition within a strategy.
type Stage int

const (
	StageNone Stage = iota
	StageFeatureToStaging
	StageStagingToAlpha
	StageAlphaToBeta
	StageBetaToLive
	StageChildToParent
	StageParentToStaging
	StageParentToAlphaBeta
)

func (s Stage) String() string {
	if r, ok := ruleFor(s); ok {
		return r.label
	}
	return "none"
}

// Strategy returns the strategy the stage belongs to.
func (s Stage) Strategy() Strategy {
	if r, ok := ruleFor(s); ok {
		return r.strategy
	}
	return Manual
}

// Kind names a placeholder target that still has to be resolved against the
// branch set.
type Kind int

const (
	KindStaging Kind = iota + 1
	KindAlpha
	KindBeta
	KindParent
	// KindMainline stands for main/master when neither exists. The engine
	// resolves it before returning a Result.
	KindMainline
)

func (k Kind) String() string {
	switch k {
	case KindStaging:
		return "staging"
	case KindAlpha:
		return "alpha"
	case KindBeta:
		return "beta"
	case KindParent:
		return "parent"
	case KindMainline:
		return "mainline"
	default:
		return "unknown"
	}
}

// Target is either a concrete branch name or a placeholder kind.
type Target struct {
	name string
	kind Kind
}

// Concrete returns a target naming an existing or to-be-used branch.
func Concrete(name string) Target { return Target{name: name} }

// Placeholder returns an unresolved target of the given kind.
func Placeholder(kind Kind) Target { return Target{kind: kind} }

// IsPlaceholder reports whether t still needs resolution.
func (t Target) IsPlaceholder() bool { return t.kind != 0 }

// Name returns the branch name of a concrete target.
func (t Target) Name() string { return t.name }

// Kind returns the placeholder kind, or 0 for a concrete target.
func (t Target) Kind() Kind { return t.kind }

func (t Target) String() string {
	if t.IsPlaceholder() {
		return "<" + t.kind.String() + ">"
	}
	return t.name
}

// Result is the outcome of a strategy run.
type Result struct {
	Strategy Strategy
	Stage    Stage
	Source   string
	Targets  []Target
}

// BranchSet is the immutable set of remote branch names for a session.
type BranchSet struct {
	names []string
	index map[string]struct{}
}

// NewBranchSet builds a BranchSet, dropping duplicates and keeping first-seen
// order.
func NewBranchSet(names []string) BranchSet {
	bs := BranchSet{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, dup := bs.index[n]; dup || n == "" {
			continue
		}
		bs.index[n] = struct{}{}
		bs.names = append(bs.names, n)
	}
	return bs
}

// Contains reports exact, case-sensitive membership.
func (b BranchSet) Contains(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Names returns a copy of the branch names.
func (b BranchSet) Names() []string { return slices.Clone(b.names) }

// Len returns the number of branches.
func (b BranchSet) Len() int { return len(b.names) }

// Filter returns the branches for which keep returns true, in set order.
func (b BranchSet) Filter(keep func(string) bool) []string {
	var out []string
	for _, n := range b.names {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// Chooser asks the user to pick one of options. Implementations accept a
// numeric index, an exact value, or a unique case-insensitive substring, and
// re-prompt on ambiguous input.
type Chooser interface {
	Choose(ctx context.Context, prompt string, options []string) (string, error)
}

// Notifier shows warnings to the user.
type Notifier interface {
	Warnf(format string, args ...any)
}
