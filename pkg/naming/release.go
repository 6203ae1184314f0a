package naming

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Stage is the deployment stage encoded in a release branch suffix.
type Stage int

const (
	StageNone Stage = iota
	StageStaging
	StageAlpha
	StageBeta
)

func (s Stage) String() string {
	switch s {
	case StageStaging:
		return "staging"
	case StageAlpha:
		return "alpha"
	case StageBeta:
		return "beta"
	default:
		return "none"
	}
}

// StageOf classifies a branch by its suffix alone. Only release/ branches
// without a suffix are staging; any branch ending in -a or -b is alpha or beta.
func StageOf(branch string) Stage {
	switch {
	case strings.HasSuffix(branch, AlphaSuffix):
		return StageAlpha
	case strings.HasSuffix(branch, BetaSuffix):
		return StageBeta
	case strings.HasPrefix(branch, ReleasePrefix):
		return StageStaging
	default:
		return StageNone
	}
}

// Release describes a release/ branch.
type Release struct {
	Branch  string
	Version *semver.Version // nil when the payload is not a version
	Stage   Stage
}

// ParseRelease parses "release/<version>[-a|-b]". ok is false for branches
// outside the release/ namespace.
func ParseRelease(branch string) (rel Release, ok bool) {
	payload, found := strings.CutPrefix(branch, ReleasePrefix)
	if !found {
		return Release{}, false
	}

	rel = Release{Branch: branch, Stage: StageOf(branch)}
	payload = strings.TrimSuffix(strings.TrimSuffix(payload, AlphaSuffix), BetaSuffix)
	if v, err := semver.NewVersion(payload); err == nil {
		rel.Version = v
	}
	return rel, true
}

// CompareVersions orders two branch names by the release version they carry,
// newest first. Branches without a version sort after versioned ones and
// compare equal among themselves.
func CompareVersions(a, b string) int {
	va, vb := versionOf(a), versionOf(b)
	switch {
	case va == nil && vb == nil:
		return 0
	case va == nil:
		return 1
	case vb == nil:
		return -1
	default:
		return vb.Compare(va)
	}
}

func versionOf(branch string) *semver.Version {
	if rel, ok := ParseRelease(branch); ok {
		return rel.Version
	}
	if strings.HasPrefix(branch, HotfixPrefix) {
		payload := strings.TrimPrefix(branch, HotfixPrefix)
		payload = strings.TrimSuffix(strings.TrimSuffix(payload, AlphaSuffix), BetaSuffix)
		if v, err := semver.NewVersion(payload); err == nil {
			return v
		}
	}
	return nil
}
