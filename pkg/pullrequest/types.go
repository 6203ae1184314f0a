package pullrequest

import (
	"thoreinstein.com/prc/pkg/jira"
)

// Metadata is what the user enters once and every target shares.
type Metadata struct {
	Source      string       `json:"source" yaml:"source"`
	Targets     []string     `json:"targets" yaml:"targets"`
	Tickets     []string     `json:"tickets,omitempty" yaml:"tickets,omitempty"`
	Jira        jira.Section `json:"jira" yaml:"jira"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Description string       `json:"description" yaml:"description"`
	Reviewers   []string     `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`
	Draft       bool         `json:"draft,omitempty" yaml:"draft,omitempty"`
}

// Plan is one pull request ready to be created.
type Plan struct {
	Source    string   `json:"source" yaml:"source"`
	Target    string   `json:"target" yaml:"target"`
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	Reviewers []string `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`
	Draft     bool     `json:"draft,omitempty" yaml:"draft,omitempty"`
}

// PlanFor renders the pull request from m into target.
func (m Metadata) PlanFor(target, checklistURL string) Plan {
	return Plan{
		Source:    m.Source,
		Target:    target,
		Title:     FormatTitle(m.Tickets, m.Title, m.Source, target),
		Body:      RenderBody(m.Jira.Render(), m.Description, checklistURL),
		Reviewers: m.Reviewers,
		Draft:     m.Draft,
	}
}

// Plans renders one Plan per target, in target order.
func (m Metadata) Plans(checklistURL string) []Plan {
	plans := make([]Plan, 0, len(m.Targets))
	for _, t := range m.Targets {
		plans = append(plans, m.PlanFor(t, checklistURL))
	}
	return plans
}

// Status is the outcome of submitting one Plan.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusPlanned Status = "planned" // dry run
)

// Result reports what happened to one target.
type Result struct {
	Target   string   `json:"target" yaml:"target"`
	Status   Status   `json:"status" yaml:"status"`
	Title    string   `json:"title" yaml:"title"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Existing []string `json:"existing,omitempty" yaml:"existing,omitempty"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Summary counts results per status.
type Summary struct {
	Created int `json:"created" yaml:"created"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
	Planned int `json:"planned,omitempty" yaml:"planned,omitempty"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusCreated:
			s.Created++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusPlanned:
			s.Planned++
		}
	}
	return s
}
