package git

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// RepoURL identifies a GitHub repository parsed from a remote URL.
type RepoURL struct {
	Original string
	Protocol string // "ssh" or "https"
	Host     string
	Owner    string
	Repo     string // without .git
}

// FullName returns "owner/repo".
func (u *RepoURL) FullName() string {
	return u.Owner + "/" + u.Repo
}

var (
	// git@github.com:owner/repo.git
	scpURLRegex = regexp.MustCompile(`^[\w.-]+@([\w.-]+):([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)

	// ssh://git@github.com/owner/repo.git, https://github.com/owner/repo
	schemeURLRegex = regexp.MustCompile(`^(ssh|https?)://(?:[\w.-]+@)?([\w.-]+)(?::\d+)?/([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)
)

// ParseRemoteURL parses the URL formats git accepts for a GitHub remote.
func ParseRemoteURL(input string) (*RepoURL, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty remote URL")
	}

	if m := scpURLRegex.FindStringSubmatch(input); m != nil {
		return &RepoURL{Original: input, Protocol: "ssh", Host: m[1], Owner: m[2], Repo: m[3]}, nil
	}

	if m := schemeURLRegex.FindStringSubmatch(input); m != nil {
		proto := m[1]
		if proto == "http" {
			proto = "https"
		}
		return &RepoURL{Original: input, Protocol: proto, Host: m[2], Owner: m[3], Repo: m[4]}, nil
	}

	return nil, errors.Newf("unrecognized remote URL %q", input)
}
