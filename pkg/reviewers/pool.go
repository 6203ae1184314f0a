// Package reviewers builds the reviewer candidate pool and runs the
// interactive selection loop.
package reviewers

import (
	"strings"

	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/github"
)

// Exclusions lists identities that must never be offered.
type Exclusions struct {
	Email   string   // current git user.email
	Handle  string   // authenticated host login
	Ignored []string // configured names, emails or handles
}

func (e Exclusions) excludes(values ...string) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if e.Email != "" && strings.EqualFold(v, e.Email) {
			return true
		}
		if e.Handle != "" && strings.EqualFold(v, e.Handle) {
			return true
		}
		for _, ig := range e.Ignored {
			if strings.EqualFold(v, strings.TrimSpace(ig)) {
				return true
			}
		}
	}
	return false
}

// Pool returns the reviewer candidates. Host contributors are preferred,
// ordered as the host returns them; commit authors are the fallback, as
// "Name <email>" identities. Excluded and duplicate entries are dropped.
func Pool(contributors []github.Contributor, authors []git.Author, ex Exclusions) []string {
	seen := make(map[string]bool)
	var pool []string
	add := func(identity string) {
		key := strings.ToLower(identity)
		if !seen[key] {
			seen[key] = true
			pool = append(pool, identity)
		}
	}

	if len(contributors) > 0 {
		for _, c := range contributors {
			if c.Login == "" || ex.excludes(c.Login) || isBot(c.Login) {
				continue
			}
			add(c.Login)
		}
		return pool
	}

	for _, a := range authors {
		if ex.excludes(a.Name, a.Email) {
			continue
		}
		add(a.Ident())
	}
	return pool
}

func isBot(login string) bool {
	return strings.HasSuffix(strings.ToLower(login), "[bot]")
}
