package workflow

import (
	"strconv"
	"strings"

	"thoreinstein.com/prc/pkg/pullrequest"
	"thoreinstein.com/prc/pkg/strategy"
)

var divider = strings.Repeat("=", 40)

// printHeader prints what has been decided so far.
func (e *Engine) printHeader(sess *Session) {
	e.console.Section("%s", strings.Repeat("-", 40))
	strat := sess.Strategy.Strategy.String()
	if sess.Strategy.Stage != strategy.StageNone {
		strat += " (" + sess.Strategy.Stage.String() + ")"
	}
	e.console.Printf("Strategy : %s\n", strat)
	e.printMetadata(sess.Metadata)
	e.console.Successf("%s", strings.Repeat("-", 40))
}

func (e *Engine) printMetadata(m pullrequest.Metadata) {
	if m.Source != "" {
		e.console.Printf("Source   : %s\n", m.Source)
	}
	if len(m.Targets) > 0 {
		e.console.Printf("Targets  : %s\n", strings.Join(m.Targets, ", "))
	}
	if len(m.Tickets) > 0 {
		e.console.Printf("Tickets  : %s\n", strings.Join(m.Tickets, ", "))
	}
	if m.Title != "" {
		e.console.Printf("Title    : %s\n", m.Title)
	}
	if m.Description != "" {
		e.console.Printf("Desc     : %s\n", descriptionSummary(m.Description))
	}
	if len(m.Reviewers) > 0 {
		e.console.Printf("Reviewers: %s\n", reviewersSummary(m.Reviewers))
	}
	if m.Draft {
		e.console.Printf("Draft    : yes\n")
	}
}

// printFinal lists the created pull requests.
func (e *Engine) printFinal(sess *Session) {
	created := sess.Created()
	if len(created) == 0 {
		if e.dryRun {
			e.console.Dimf("Dry run: no PRs were created.")
		} else {
			e.console.Warnf("No PRs were created.")
		}
		return
	}

	line := strings.Repeat("=", 50)
	e.console.Section("%s", line)
	e.console.Successf("PULL REQUESTS CREATED (%d of %d)", len(created), len(sess.Results))
	for _, r := range created {
		e.console.Hintf("  %-15s: %s", r.Target, r.URL)
	}
	e.console.Successf("%s", line)
}

// descriptionSummary returns the first line cut to 50 characters, with an
// ellipsis when anything was left out.
func descriptionSummary(desc string) string {
	lines := strings.Split(strings.TrimSpace(desc), "\n")
	first := []rune(lines[0])
	cut := len(first) > 50
	if cut {
		first = first[:50]
	}
	s := string(first)
	if cut || len(lines) > 1 {
		s += "..."
	}
	return s
}

func reviewersSummary(handles []string) string {
	s := strings.Join(handles, ", ")
	if len(s) > 50 {
		return strconv.Itoa(len(handles)) + " selected"
	}
	return s
}
