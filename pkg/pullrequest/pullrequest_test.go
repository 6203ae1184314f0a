package pullrequest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/jira"
	"thoreinstein.com/prc/pkg/ui"
)

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		name    string
		tickets []string
		desc    string
		want    string
	}{
		{"bare", nil, "", "[feature/x] -> [develop]"},
		{"description", nil, "Fix Login", "[Fix Login][feature/x] -> [develop]"},
		{"tickets", []string{"PAY-1", "PAY-2"}, "", "[PAY-1][PAY-2][feature/x] -> [develop]"},
		{"all", []string{"PAY-1"}, " Fix Login ", "[PAY-1][Fix Login][feature/x] -> [develop]"},
		{"blank ticket dropped", []string{"", "PAY-1"}, "", "[PAY-1][feature/x] -> [develop]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTitle(tt.tickets, tt.desc, "feature/x", "develop")
			if got != tt.want {
				t.Errorf("FormatTitle() = %q, want %q", got, tt.want)
			}
			// same input, same output
			if again := FormatTitle(tt.tickets, tt.desc, "feature/x", "develop"); again != got {
				t.Errorf("FormatTitle() not deterministic: %q vs %q", got, again)
			}
		})
	}
}

func TestDefaultDescription(t *testing.T) {
	if got := DefaultDescription(nil); got != NoDescription {
		t.Errorf("DefaultDescription(nil) = %q, want %q", got, NoDescription)
	}
	got := DefaultDescription([]string{"Add login", " ", "Fix tests"})
	if want := "- Add login\n- Fix tests"; got != want {
		t.Errorf("DefaultDescription() = %q, want %q", got, want)
	}
}

func TestRenderBody(t *testing.T) {
	body := RenderBody("[PAY-1](https://jira/PAY-1)", "- Add login", "https://wiki/checklist")
	want := "**JIRA Ticket/Release:**\n" +
		"[PAY-1](https://jira/PAY-1)\n\n" +
		"<br>**Description:**\n" +
		"- Add login\n\n" +
		"<br>**Checklist:**\n\n" +
		"Refer to the checklist [here](https://wiki/checklist)\n\n" +
		"- [ ] Checklist covered"
	assert.Equal(t, want, body)
}

func TestMetadata_Plans(t *testing.T) {
	m := Metadata{
		Source:      "release/1.2.0",
		Targets:     []string{"release/1.2.0-a", "develop"},
		Tickets:     []string{"PAY-1"},
		Jira:        jira.Tickets([]string{"PAY-1"}, "", "https://jira/"),
		Description: "- one",
		Reviewers:   []string{"alice"},
	}

	plans := m.Plans("https://wiki")
	require.Len(t, plans, 2)
	assert.Equal(t, "[PAY-1][release/1.2.0] -> [release/1.2.0-a]", plans[0].Title)
	assert.Equal(t, "develop", plans[1].Target)
	assert.Contains(t, plans[1].Body, "[PAY-1](https://jira/PAY-1)")
	assert.Equal(t, []string{"alice"}, plans[1].Reviewers)
}

type fakeClient struct {
	existing map[string][]github.PRInfo // keyed by base
	listErr  error
	failOn   map[string]error // keyed by base
	created  []github.CreatePROptions
}

func (f *fakeClient) IsAuthenticated(context.Context) bool { return true }
func (f *fakeClient) CurrentUser(context.Context) (string, error) { return "me", nil }
func (f *fakeClient) Contributors(context.Context) ([]github.Contributor, error) {
	return nil, nil
}

func (f *fakeClient) SearchUserByEmail(context.Context, string) (string, error) { return "", nil }

func (f *fakeClient) ListOpenPRs(_ context.Context, _, base string) ([]github.PRInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.existing[base], nil
}

func (f *fakeClient) CreatePR(_ context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	if err := f.failOn[opts.BaseBranch]; err != nil {
		return nil, err
	}
	f.created = append(f.created, opts)
	return &github.PRInfo{Number: len(f.created), URL: "https://github.com/o/r/pull/" + opts.BaseBranch}, nil
}

func plansFor(targets ...string) []Plan {
	m := Metadata{Source: "feature/x", Targets: targets, Jira: jira.None(), Description: NoDescription}
	return m.Plans("https://wiki")
}

func TestSubmitter_SkipsExistingAndContinuesAfterFailure(t *testing.T) {
	gh := &fakeClient{
		existing: map[string][]github.PRInfo{"staging": {{Title: "old", URL: "https://github.com/o/r/pull/7"}}},
		failOn:   map[string]error{"alpha": errors.New("boom")},
	}
	var out bytes.Buffer
	s := NewSubmitter(gh, WithConsole(ui.NewConsole(&out)))

	results, err := s.Submit(context.Background(), plansFor("develop", "staging", "alpha", "beta"))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, StatusCreated, results[0].Status)
	assert.Equal(t, "https://github.com/o/r/pull/develop", results[0].URL)
	assert.Equal(t, StatusSkipped, results[1].Status)
	assert.Equal(t, []string{"https://github.com/o/r/pull/7"}, results[1].Existing)
	assert.Equal(t, StatusFailed, results[2].Status)
	assert.Contains(t, results[2].Reason, "boom")
	assert.Equal(t, StatusCreated, results[3].Status)

	assert.Equal(t, Summary{Created: 2, Skipped: 1, Failed: 1}, Summarize(results))
	assert.Len(t, gh.created, 2)
	assert.Contains(t, out.String(), "A PR already exists for feature/x -> staging")
	assert.Contains(t, out.String(), "Preparing PR for beta")
}

func TestSubmitter_ListFailureStillCreates(t *testing.T) {
	gh := &fakeClient{listErr: errors.New("gh down")}
	results, err := NewSubmitter(gh).Submit(context.Background(), plansFor("main"))
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, results[0].Status)
}

func TestSubmitter_DryRun(t *testing.T) {
	gh := &fakeClient{}
	var out bytes.Buffer
	s := NewSubmitter(gh, WithConsole(ui.NewConsole(&out)), WithDryRun(true))

	results, err := s.Submit(context.Background(), plansFor("main"))
	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, results[0].Status)
	assert.Empty(t, gh.created)
	assert.Contains(t, out.String(), "gh pr create --base main --head feature/x")
}

func TestSubmitter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewSubmitter(&fakeClient{}).Submit(ctx, plansFor("main", "develop"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestCommandLine(t *testing.T) {
	got := CommandLine(Plan{
		Source:    "feature/x",
		Target:    "main",
		Title:     "[feature/x] -> [main]",
		Body:      "a\nb",
		Reviewers: []string{"alice", "bob"},
		Draft:     true,
	})
	want := `gh pr create --base main --head feature/x --title "[feature/x] -> [main]" --body <2 lines> --draft --reviewer alice,bob`
	if got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
	if strings.Contains(CommandLine(Plan{Source: "a", Target: "b", Title: "t"}), "--reviewer") {
		t.Error("CommandLine() should omit --reviewer without reviewers")
	}
}
