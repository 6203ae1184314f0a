package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/prc/pkg/config"
	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/jira"
	"thoreinstein.com/prc/pkg/pullrequest"
	"thoreinstein.com/prc/pkg/ui"
)

type fakeRepo struct {
	notRepo  bool
	branches []string
	current  string
	commits  []string
	authors  []git.Author
	email    string
	gitDir   string
}

func (r *fakeRepo) IsRepo(context.Context) bool { return !r.notRepo }
func (r *fakeRepo) Fetch(context.Context) {}
func (r *fakeRepo) RemoteBranches(context.Context) ([]string, error) {
	return r.branches, nil
}

func (r *fakeRepo) CurrentBranch(context.Context) (string, error) {
	if r.current == "" {
		return "", errors.New("HEAD is detached")
	}
	return r.current, nil
}

func (r *fakeRepo) CommitsBetween(_ context.Context, _, _ string) ([]string, error) {
	return r.commits, nil
}

func (r *fakeRepo) Authors(context.Context) ([]git.Author, error) { return r.authors, nil }
func (r *fakeRepo) UserEmail(context.Context) string { return r.email }

func (r *fakeRepo) GitDir(context.Context) (string, error) {
	if r.gitDir == "" {
		return "", errors.New("no git dir")
	}
	return r.gitDir, nil
}

// mockGitHubClient implements github.Client for testing.
type mockGitHubClient struct {
	me           string
	contributors []github.Contributor
	existing     map[string][]github.PRInfo // keyed by base
	logins       map[string]string          // email -> login
	createErr    error
	created      []github.CreatePROptions
}

func (m *mockGitHubClient) IsAuthenticated(context.Context) bool { return true }

func (m *mockGitHubClient) CurrentUser(context.Context) (string, error) { return m.me, nil }

func (m *mockGitHubClient) Contributors(context.Context) ([]github.Contributor, error) {
	return m.contributors, nil
}

func (m *mockGitHubClient) SearchUserByEmail(_ context.Context, email string) (string, error) {
	return m.logins[email], nil
}

func (m *mockGitHubClient) ListOpenPRs(_ context.Context, _, base string) ([]github.PRInfo, error) {
	return m.existing[base], nil
}

func (m *mockGitHubClient) CreatePR(_ context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, opts)
	return &github.PRInfo{Number: len(m.created), URL: "https://github.com/acme/app/pull/" + opts.BaseBranch}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTargetBranch: "main",
		Jira:                config.JiraConfig{BaseURL: "https://jira.example.com/browse/"},
		PR:                  config.PRConfig{ChecklistURL: "https://wiki.example.com/checklist", Confirm: true},
	}
}

func newTestEngine(repo Repo, gh github.Client, cfg *config.Config, input string, opts Options) (*Engine, *bytes.Buffer) {
	var out bytes.Buffer
	console := ui.NewConsole(&out)
	return NewEngine(repo, gh, cfg, ui.NewPrompter(strings.NewReader(input), console), console, opts), &out
}

func TestAllSteps(t *testing.T) {
	steps := AllSteps()
	want := []Step{StepPreflight, StepStrategy, StepMetadata, StepReviewers, StepConfirm, StepSubmit}
	require.Equal(t, want, steps)
	assert.Equal(t, "submit", StepSubmit.String())
}

func TestEngine_ReleaseFeatureRun(t *testing.T) {
	repo := &fakeRepo{
		branches: []string{"main", "develop", "release/1.2.0", "feature/PAY-123-fix-login"},
		current:  "feature/PAY-123-fix-login",
		commits:  []string{"Fix login", "Add test"},
		gitDir:   t.TempDir(),
	}
	gh := &mockGitHubClient{
		me:           "me",
		contributors: []github.Contributor{{Login: "me"}, {Login: "alice"}, {Login: "bob"}},
		existing:     map[string][]github.PRInfo{"release/1.2.0": {{Title: "old", URL: "https://github.com/acme/app/pull/1"}}},
	}

	// strategy, stage, jira menu, tickets, end tickets, title, description,
	// reviewer, done, confirm
	input := "1\n1\n1\nPAY-124\n\n\n\nali\n\ny\n"
	engine, out := newTestEngine(repo, gh, testConfig(), input, Options{})

	sess, err := engine.Run(context.Background())
	require.NoError(t, err, out.String())

	assert.Equal(t, AllSteps(), sess.CompletedSteps)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, []string{"develop", "release/1.2.0"}, sess.Metadata.Targets)
	assert.Equal(t, []string{"PAY-123", "PAY-124"}, sess.Metadata.Tickets)
	assert.Equal(t, []string{"alice"}, sess.Metadata.Reviewers)

	require.Len(t, gh.created, 1)
	pr := gh.created[0]
	assert.Equal(t, "[PAY-123][PAY-124][feature/PAY-123-fix-login] -> [develop]", pr.Title)
	assert.Equal(t, "feature/PAY-123-fix-login", pr.HeadBranch)
	assert.Equal(t, []string{"alice"}, pr.Reviewers)
	assert.Contains(t, pr.Body, "[PAY-124](https://jira.example.com/browse/PAY-124)")
	assert.Contains(t, pr.Body, "- Fix login\n- Add test")
	assert.Contains(t, pr.Body, "https://wiki.example.com/checklist")

	require.Len(t, sess.Results, 2)
	assert.Equal(t, pullrequest.StatusCreated, sess.Results[0].Status)
	assert.Equal(t, pullrequest.StatusSkipped, sess.Results[1].Status)
	assert.Len(t, sess.Created(), 1)

	assert.False(t, HasCheckpoint(repo.gitDir), "checkpoint is cleared after a clean submit")
	assert.Contains(t, out.String(), "Create these PRs?")
}

func TestEngine_FallsBackToManualTarget(t *testing.T) {
	repo := &fakeRepo{
		branches: []string{"main", "develop"},
		current:  "hotfix-cleanup",
		authors: []git.Author{
			{Name: "Me", Email: "me@example.com", Commits: 9},
			{Name: "Carol", Email: "carol@example.com", Commits: 3},
		},
		email: "me@example.com",
	}
	gh := &mockGitHubClient{}
	cfg := testConfig()
	cfg.PR.Confirm = false
	cfg.GitHub.UserMap = []config.UserMapping{{Email: "carol@example.com", Handle: "carol-gh"}}

	// Hotfix, parent -> alpha/beta, skip alpha, skip beta, default target,
	// Jira tickets with none entered, default title, default description,
	// reviewer 1, done
	input := "2\n3\nskip\nskip\n\n1\n\n\n\n1\nd\n"
	engine, out := newTestEngine(repo, gh, cfg, input, Options{DryRun: true})

	sess, err := engine.Run(context.Background())
	require.NoError(t, err, out.String())

	assert.Contains(t, out.String(), "No valid targets determined from strategy. Reverting to manual selection.")
	assert.Equal(t, []string{"main"}, sess.Metadata.Targets)
	assert.Equal(t, "Hotfix Cleanup", sess.Metadata.Title)
	assert.Equal(t, pullrequest.NoDescription, sess.Metadata.Description)
	assert.Equal(t, []string{"carol-gh"}, sess.Metadata.Reviewers)

	require.Len(t, sess.Results, 1)
	assert.Equal(t, pullrequest.StatusPlanned, sess.Results[0].Status)
	assert.Equal(t, "[Hotfix Cleanup][hotfix-cleanup] -> [main]", sess.Results[0].Title)
	assert.Empty(t, gh.created)
	assert.Contains(t, out.String(), "Dry run: no PRs were created.")
}

func TestEngine_NotARepository(t *testing.T) {
	engine, _ := newTestEngine(&fakeRepo{notRepo: true}, &mockGitHubClient{}, testConfig(), "", Options{})

	_, err := engine.Run(context.Background())
	require.Error(t, err)
	var wfErr *prcerrors.WorkflowError
	require.True(t, errors.As(err, &wfErr))
	assert.Equal(t, "preflight", wfErr.Step)
}

func TestEngine_AbortThenResume(t *testing.T) {
	repo := &fakeRepo{
		branches: []string{"main"},
		current:  "feature/PAY-9-search",
		commits:  []string{"Add search"},
		gitDir:   t.TempDir(),
	}
	gh := &mockGitHubClient{}
	cfg := testConfig()

	// Manual, current source, default target, skip Jira, default title,
	// default description, no reviewers, decline
	engine, _ := newTestEngine(repo, gh, cfg, "3\n\n\n3\n\n\n\nn\n", Options{})
	sess, err := engine.Run(context.Background())
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, gh.created)
	assert.Equal(t, []string{"PAY-9"}, sess.Metadata.Tickets)
	require.True(t, HasCheckpoint(repo.gitDir))

	// Manual, current source, default target, reuse, confirm
	engine, out := newTestEngine(repo, gh, cfg, "3\n\n\ny\ny\n", Options{})
	sess, err = engine.Run(context.Background())
	require.NoError(t, err, out.String())

	assert.True(t, sess.Resumed)
	assert.Contains(t, out.String(), "Unfinished run found for feature/PAY-9-search")
	require.Len(t, gh.created, 1)
	assert.Equal(t, "[PAY-9][feature/PAY-9-search] -> [main]", gh.created[0].Title)
	assert.Contains(t, gh.created[0].Body, "- Add search")
	assert.False(t, HasCheckpoint(repo.gitDir))
}

func TestEngine_SubmitFailureKeepsCheckpoint(t *testing.T) {
	repo := &fakeRepo{branches: []string{"main"}, current: "feature/x", gitDir: t.TempDir()}
	gh := &mockGitHubClient{createErr: errors.New("HTTP 422")}
	cfg := testConfig()
	cfg.PR.Confirm = false

	engine, out := newTestEngine(repo, gh, cfg, "3\n\n\n3\n\n\n\n", Options{})
	sess, err := engine.Run(context.Background())

	var wfErr *prcerrors.WorkflowError
	require.True(t, errors.As(err, &wfErr), "err = %v", err)
	assert.Equal(t, "submit", wfErr.Step)
	assert.Equal(t, pullrequest.StatusFailed, sess.Results[0].Status)
	assert.True(t, HasCheckpoint(repo.gitDir))
	assert.Contains(t, out.String(), "No PRs were created.")
}

func TestEngine_InputEndsIsAbort(t *testing.T) {
	repo := &fakeRepo{branches: []string{"main"}, current: "feature/x"}
	engine, _ := newTestEngine(repo, &mockGitHubClient{}, testConfig(), "", Options{})

	_, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
}

func TestTitleTickets(t *testing.T) {
	assert.Equal(t, []string{"PAY-1"}, titleTickets(jira.None(), "PAY-1"))
	assert.Nil(t, titleTickets(jira.None(), ""))
}

func TestDescriptionSummary(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- short", "- short"},
		{"- one\n- two", "- one..."},
		{strings.Repeat("x", 60), strings.Repeat("x", 50) + "..."},
	}
	for _, tt := range tests {
		if got := descriptionSummary(tt.in); got != tt.want {
			t.Errorf("descriptionSummary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReviewersSummary(t *testing.T) {
	if got := reviewersSummary([]string{"alice", "bob"}); got != "alice, bob" {
		t.Errorf("reviewersSummary() = %q", got)
	}
	many := strings.Split("aaaaaaaaaa,bbbbbbbbbb,cccccccccc,dddddddddd,eeeeeeeeee", ",")
	if got := reviewersSummary(many); got != "5 selected" {
		t.Errorf("reviewersSummary() = %q, want %q", got, "5 selected")
	}
}

func TestCheckpointOperations(t *testing.T) {
	gitDir := t.TempDir()

	checkpoint := &Checkpoint{
		SessionID:      "abc",
		Source:         "feature/x",
		Metadata:       pullrequest.Metadata{Source: "feature/x", Title: "Fix", Reviewers: []string{"alice"}},
		CompletedSteps: []Step{StepPreflight, StepStrategy, StepMetadata},
		CurrentStep:    StepReviewers,
	}

	err := SaveCheckpoint(gitDir, checkpoint)
	if err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(gitDir, "prc", "checkpoint.json"))
	if err != nil {
		t.Fatalf("Checkpoint file was not created: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("checkpoint mode = %v, want 0600", info.Mode().Perm())
	}

	if !HasCheckpoint(gitDir) {
		t.Error("HasCheckpoint returned false, want true")
	}

	loaded, err := LoadCheckpoint(gitDir)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if loaded.Metadata.Title != "Fix" {
		t.Errorf("Metadata.Title = %q, want %q", loaded.Metadata.Title, "Fix")
	}
	if len(loaded.CompletedSteps) != 3 {
		t.Errorf("CompletedSteps length = %d, want 3", len(loaded.CompletedSteps))
	}
	if loaded.IsStale(time.Hour) {
		t.Error("fresh checkpoint reported stale")
	}

	if err := ClearCheckpoint(gitDir); err != nil {
		t.Fatalf("ClearCheckpoint failed: %v", err)
	}
	if HasCheckpoint(gitDir) {
		t.Error("HasCheckpoint returned true after clear, want false")
	}

	missing, err := LoadCheckpoint(gitDir)
	if err != nil || missing != nil {
		t.Errorf("LoadCheckpoint() after clear = %v, %v; want nil, nil", missing, err)
	}
}

func TestCheckpoint_RequiresGitDir(t *testing.T) {
	assert.Error(t, SaveCheckpoint("", &Checkpoint{}))
	assert.Error(t, SaveCheckpoint(t.TempDir(), nil))
	_, err := LoadCheckpoint("")
	assert.Error(t, err)
	assert.Error(t, ClearCheckpoint(""))
	assert.False(t, HasCheckpoint(""))
}

func TestCheckpoint_Stale(t *testing.T) {
	cp := &Checkpoint{UpdatedAt: time.Now().Add(-48 * time.Hour)}
	assert.True(t, cp.IsStale(checkpointMaxAge))
}
