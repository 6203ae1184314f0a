// Package naming extracts ticket ids, titles and release stages from branch
// names.
package naming

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Branch prefixes of the release and hotfix pipelines.
const (
	ReleasePrefix = "release/"
	HotfixPrefix  = "hotfix/"
	AlphaSuffix   = "-a"
	BetaSuffix    = "-b"
)

var ticketRegex = regexp.MustCompile(`(?i)[A-Z]+-\d+`)

var titleCaser = cases.Title(language.Und)

// Parse extracts a ticket id and a human readable title from a branch name.
//
//	Parse("feature/PROJ-123-fix-login") // "PROJ-123", "Fix Login"
//	Parse("hotfix-cleanup")             // "", "Hotfix Cleanup"
func Parse(branch string) (ticket, title string) {
	payload := branch
	if _, rest, found := strings.Cut(branch, "/"); found {
		payload = rest
	}

	if match := ticketRegex.FindString(payload); match != "" {
		ticket = strings.ToUpper(match)
		payload = strings.Trim(strings.ReplaceAll(payload, match, ""), " -_")
	}

	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(payload))
	return ticket, titleCaser.String(strings.Join(words, " "))
}

// FindTickets returns every distinct ticket id in s, upper-cased, in order of
// first appearance.
func FindTickets(s string) []string {
	var tickets []string
	seen := make(map[string]bool)
	for _, m := range ticketRegex.FindAllString(s, -1) {
		id := strings.ToUpper(m)
		if !seen[id] {
			seen[id] = true
			tickets = append(tickets, id)
		}
	}
	return tickets
}

// IsTicket reports whether s is exactly one ticket id.
func IsTicket(s string) bool {
	m := ticketRegex.FindString(s)
	return m != "" && len(m) == len(strings.TrimSpace(s))
}
