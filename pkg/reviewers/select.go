package reviewers

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/prc/pkg/ui"
)

// Liner reads one line of input.
type Liner interface {
	Line(ctx context.Context, prompt, def string) (string, error)
}

// Selector runs the reviewer selection loop.
type Selector struct {
	in      Liner
	console *ui.Console
	groups  map[string][]string
}

// NewSelector creates a Selector. groups maps a name usable as "@name" to
// the handles it expands to.
func NewSelector(in Liner, console *ui.Console, groups map[string][]string) *Selector {
	return &Selector{in: in, console: console, groups: groups}
}

// Select asks for reviewers until the user finishes and returns the chosen
// identities in the order they were added.
//
// Input is a list number, a name fragment, "@group", "l"/"list" to show the
// candidates, or "d"/"done"/empty to finish.
func (s *Selector) Select(ctx context.Context, pool []string) ([]string, error) {
	s.console.Section("Who are the reviewers?")
	if len(pool) == 0 {
		s.console.Warnf("Could not find any reviewer candidates.")
	} else {
		s.console.Successf("Found %d candidates.", len(pool))
	}
	s.console.Dimf("Type a name or number to add, @group for a group, l to list, Enter to finish.")

	var selected []string
	for {
		available := slices.DeleteFunc(slices.Clone(pool), func(p string) bool {
			return slices.Contains(selected, p)
		})

		if len(selected) > 0 {
			s.console.Successf("Current reviewers: %s", strings.Join(selected, ", "))
		}

		input, err := s.in.Line(ctx, "Reviewer", "")
		if err != nil {
			if errors.Is(err, ui.ErrCancelled) {
				return selected, nil
			}
			return nil, err
		}
		input = strings.TrimSpace(input)

		switch lower := strings.ToLower(input); {
		case lower == "" || lower == "d" || lower == "done":
			return selected, nil

		case lower == "l" || lower == "list":
			s.list(available)

		case strings.HasPrefix(input, "@"):
			selected = s.addGroup(strings.TrimPrefix(input, "@"), selected)

		default:
			matched, matches := matchReviewer(input, available)
			switch {
			case matched != "":
				selected = append(selected, matched)
				s.console.Successf("Added %s", matched)
			case len(matches) > 1:
				s.console.Warnf("Multiple matches: %s", summarize(matches, 5))
			default:
				s.console.Errorf("No match found.")
			}
		}
	}
}

func (s *Selector) list(available []string) {
	for i, a := range available {
		if i >= ui.MaxListed {
			s.console.Dimf("... %d more", len(available)-ui.MaxListed)
			break
		}
		s.console.Printf("[%d] %s\n", i+1, a)
	}
}

func (s *Selector) addGroup(name string, selected []string) []string {
	members, ok := s.lookupGroup(name)
	if !ok {
		s.console.Errorf("Unknown reviewer group @%s", name)
		return selected
	}
	var added []string
	for _, m := range members {
		if !slices.Contains(selected, m) {
			selected = append(selected, m)
			added = append(added, m)
		}
	}
	if len(added) == 0 {
		s.console.Dimf("Everyone in @%s is already added.", name)
	} else {
		s.console.Successf("Added @%s: %s", name, strings.Join(added, ", "))
	}
	return selected
}

func (s *Selector) lookupGroup(name string) ([]string, bool) {
	if m, ok := s.groups[name]; ok {
		return m, true
	}
	for k, m := range s.groups {
		if strings.EqualFold(k, name) {
			return m, true
		}
	}
	return nil, false
}

// matchReviewer resolves input against the available candidates: a list
// number, then a unique case-insensitive substring. Among several substring
// hits a single case-insensitive exact match wins.
func matchReviewer(input string, available []string) (string, []string) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(available) {
			return available[n-1], nil
		}
		return "", nil
	}

	needle := strings.ToLower(input)
	var matches []string
	for _, a := range available {
		if strings.Contains(strings.ToLower(a), needle) {
			matches = append(matches, a)
		}
	}
	if len(matches) == 1 {
		return matches[0], matches
	}

	var exact []string
	for _, m := range matches {
		if strings.EqualFold(m, input) {
			exact = append(exact, m)
		}
	}
	if len(exact) == 1 {
		return exact[0], matches
	}
	return "", matches
}

func summarize(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:limit], ", ") + ", ..."
}
