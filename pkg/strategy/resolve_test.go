package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ConcretePassesThrough(t *testing.T) {
	sets := [][]string{nil, {"main"}, {"develop", "release/1.0.0"}}
	for _, names := range sets {
		engine, chooser, _ := newTestEngine()
		got, err := engine.Resolve(context.Background(), []Target{Concrete("main")}, NewBranchSet(names), "whatever")
		require.NoError(t, err)
		assert.Equal(t, []string{"main"}, got)
		assert.Empty(t, chooser.prompts)
	}
}

func TestResolve_SingleCandidateAutoSelected(t *testing.T) {
	engine, chooser, _ := newTestEngine()
	branches := NewBranchSet([]string{"develop", "release/1.2.0", "release/1.1.0-a"})

	got, err := engine.Resolve(context.Background(),
		[]Target{Concrete("develop"), Placeholder(KindStaging)}, branches, "main")
	require.NoError(t, err)

	assert.Equal(t, []string{"develop", "release/1.2.0"}, got)
	assert.Empty(t, chooser.prompts)
}

func TestResolve_ManyCandidatesRequirePick(t *testing.T) {
	engine, chooser, _ := newTestEngine("release/1.2.0-b")
	branches := NewBranchSet([]string{"release/1.2.0-b", "release/1.10.0-b", "main"})

	got, err := engine.Resolve(context.Background(), []Target{Placeholder(KindBeta)}, branches, "main")
	require.NoError(t, err)

	assert.Equal(t, []string{"release/1.2.0-b"}, got)
	require.Len(t, chooser.offered, 1)
	assert.Equal(t, []string{"release/1.10.0-b", "release/1.2.0-b"}, chooser.offered[0])
	assert.NotContains(t, chooser.offered[0], SkipOption)
}

func TestResolve_ZeroCandidatesOfferSkip(t *testing.T) {
	engine, chooser, notify := newTestEngine(SkipOption)
	branches := NewBranchSet([]string{"develop", "release/1.2.0-b"})

	got, err := engine.Resolve(context.Background(), []Target{Placeholder(KindAlpha)}, branches, "main")
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, [][]string{{SkipOption}}, chooser.offered)
	assert.Len(t, notify.warnings, 1)
}

func TestResolve_ZeroCandidatesOfferDefaultTarget(t *testing.T) {
	engine, chooser, _ := newTestEngine("main")
	branches := NewBranchSet([]string{"main", "develop"})

	got, err := engine.Resolve(context.Background(), []Target{Placeholder(KindStaging)}, branches, "main")
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, got)
	assert.Equal(t, []string{"main", SkipOption}, chooser.offered[0])
}

func TestResolve_PreservesOrderAndOmitsSkipped(t *testing.T) {
	engine, _, _ := newTestEngine(SkipOption)
	branches := NewBranchSet([]string{"release/2.0.0-b"})

	got, err := engine.Resolve(context.Background(),
		[]Target{Placeholder(KindAlpha), Placeholder(KindBeta)}, branches, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"release/2.0.0-b"}, got)
}

func TestResolve_ParentAlwaysPicks(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		answer   string
		offered  []string
	}{
		{
			name:     "single hotfix branch still prompts",
			branches: []string{"develop", "hotfix/1.2.1"},
			answer:   "hotfix/1.2.1",
			offered:  []string{"hotfix/1.2.1"},
		},
		{
			name:     "no hotfix branches offers everything",
			branches: []string{"develop", "main"},
			answer:   "main",
			offered:  []string{"develop", "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, chooser, _ := newTestEngine(tt.answer)
			got, err := engine.Resolve(context.Background(), []Target{Placeholder(KindParent)}, NewBranchSet(tt.branches), "main")
			require.NoError(t, err)
			assert.Equal(t, []string{tt.answer}, got)
			assert.Equal(t, [][]string{tt.offered}, chooser.offered)
		})
	}
}

func TestResolve_ParentWithEmptyBranchSet(t *testing.T) {
	engine, chooser, notify := newTestEngine()
	got, err := engine.Resolve(context.Background(), []Target{Placeholder(KindParent)}, NewBranchSet(nil), "main")
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Empty(t, chooser.prompts)
	assert.Len(t, notify.warnings, 1)
}
