// Package pullrequest renders pull request titles and bodies and submits one
// pull request per target branch.
package pullrequest

import (
	"fmt"
	"strings"
)

// NoDescription is the description used when there are no commits to list.
const NoDescription = "No description provided."

// FormatTitle builds "[t1]...[tn][desc][source] -> [target]". Blank tickets
// and a blank description are left out.
func FormatTitle(tickets []string, desc, source, target string) string {
	var b strings.Builder
	for _, t := range tickets {
		if t = strings.TrimSpace(t); t != "" {
			b.WriteString("[" + t + "]")
		}
	}
	if desc = strings.TrimSpace(desc); desc != "" {
		b.WriteString("[" + desc + "]")
	}
	fmt.Fprintf(&b, "[%s] -> [%s]", source, target)
	return b.String()
}

// Bullets renders each non-blank line as a markdown list item.
func Bullets(lines []string) string {
	var items []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			items = append(items, "- "+l)
		}
	}
	return strings.Join(items, "\n")
}

// DefaultDescription lists commit subjects, or NoDescription when there are
// none.
func DefaultDescription(subjects []string) string {
	if d := Bullets(subjects); d != "" {
		return d
	}
	return NoDescription
}

// RenderBody fills the pull request body template.
func RenderBody(jiraSection, description, checklistURL string) string {
	var b strings.Builder

	b.WriteString("**JIRA Ticket/Release:**\n")
	b.WriteString(jiraSection)
	b.WriteString("\n\n")

	b.WriteString("<br>**Description:**\n")
	b.WriteString(description)
	b.WriteString("\n\n")

	b.WriteString("<br>**Checklist:**\n\n")
	fmt.Fprintf(&b, "Refer to the checklist [here](%s)\n\n", checklistURL)
	b.WriteString("- [ ] Checklist covered")

	return b.String()
}
