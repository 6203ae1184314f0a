// Package jira builds the Jira section of a pull request body.
package jira

import (
	"strings"

	"thoreinstein.com/prc/pkg/naming"
)

// DefaultBaseURL is the browse URL ticket ids are linked against.
const DefaultBaseURL = "https://qualitytrade.atlassian.net/browse/"

// NoneText is rendered when no Jira reference was given.
const NoneText = "None"

// NormalizeLink turns a ticket id into a markdown link under baseURL. URLs are
// returned unchanged and blank input yields "".
func NormalizeLink(ticketOrURL, baseURL string) string {
	ref := strings.TrimSpace(ticketOrURL)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return "[" + ref + "](" + baseURL + ref + ")"
}

// Kind is the type of Jira reference attached to a pull request.
type Kind int

const (
	KindNone Kind = iota
	KindTickets
	KindRelease
)

func (k Kind) String() string {
	switch k {
	case KindTickets:
		return "tickets"
	case KindRelease:
		return "release"
	default:
		return "none"
	}
}

// Section is the Jira reference of a pull request.
type Section struct {
	Kind         Kind     `json:"kind" yaml:"kind"`
	Tickets      []string `json:"tickets,omitempty" yaml:"tickets,omitempty"`
	Links        []string `json:"links,omitempty" yaml:"links,omitempty"`
	ReleaseTitle string   `json:"release_title,omitempty" yaml:"release_title,omitempty"`
	ReleaseURL   string   `json:"release_url,omitempty" yaml:"release_url,omitempty"`
}

// None returns an empty section.
func None() Section { return Section{Kind: KindNone} }

// Release returns a section pointing at a release page.
func Release(title, url string) Section {
	return Section{
		Kind:         KindRelease,
		ReleaseTitle: strings.TrimSpace(title),
		ReleaseURL:   strings.TrimSpace(url),
	}
}

// Tickets builds a section from ticket ids or URLs entered by the user,
// merged with the ticket parsed from the branch name. Ticket ids found inside
// URLs are collected so they can prefix the title.
func Tickets(inputs []string, branchTicket, baseURL string) Section {
	s := Section{Kind: KindTickets}
	seenTicket := make(map[string]bool)
	seenLink := make(map[string]bool)

	addTicket := func(id string) {
		if id != "" && !seenTicket[id] {
			seenTicket[id] = true
			s.Tickets = append(s.Tickets, id)
		}
	}
	addLink := func(link string) {
		if link != "" && !seenLink[link] {
			seenLink[link] = true
			s.Links = append(s.Links, link)
		}
	}

	if branchTicket != "" {
		addTicket(strings.ToUpper(branchTicket))
		addLink(NormalizeLink(strings.ToUpper(branchTicket), baseURL))
	}

	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		if strings.HasPrefix(in, "http") {
			for _, id := range naming.FindTickets(in) {
				addTicket(id)
			}
			addLink(in)
			continue
		}

		ids := naming.FindTickets(in)
		if len(ids) == 0 {
			addLink(NormalizeLink(in, baseURL))
			continue
		}
		for _, id := range ids {
			addTicket(id)
			addLink(NormalizeLink(id, baseURL))
		}
	}
	return s
}

// Render returns the markdown placed under the Jira heading of the body.
func (s Section) Render() string {
	switch s.Kind {
	case KindTickets:
		if len(s.Links) == 0 {
			return NoneText
		}
		return strings.Join(s.Links, "\n")
	case KindRelease:
		return "[" + s.ReleaseTitle + "](" + s.ReleaseURL + ")"
	default:
		return NoneText
	}
}
