package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
	"golang.org/x/oauth2"

	"thoreinstein.com/prc/pkg/config"
	"thoreinstein.com/prc/pkg/git"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/ui"
	"thoreinstein.com/prc/pkg/workflow"
)

type stubRepo struct {
	notRepo  bool
	current  string
	branches []string
	commits  []string
	origin   string
}

func (r *stubRepo) IsRepo(context.Context) bool { return !r.notRepo }
func (r *stubRepo) Fetch(context.Context) {}
func (r *stubRepo) RemoteBranches(context.Context) ([]string, error) {
	return r.branches, nil
}

func (r *stubRepo) CurrentBranch(context.Context) (string, error) { return r.current, nil }

func (r *stubRepo) CommitsBetween(context.Context, string, string) ([]string, error) {
	return r.commits, nil
}

func (r *stubRepo) Authors(context.Context) ([]git.Author, error) { return nil, nil }
func (r *stubRepo) UserEmail(context.Context) string { return "" }
func (r *stubRepo) GitDir(context.Context) (string, error) { return "", errors.New("no git dir") }

func (r *stubRepo) OriginURL(context.Context) (string, error) {
	if r.origin == "" {
		return "", errors.New("no origin")
	}
	return r.origin, nil
}

type stubGitHub struct {
	login        string
	authed       bool
	contributors []github.Contributor
	created      []github.CreatePROptions
	createErr    error
}

func (g *stubGitHub) IsAuthenticated(context.Context) bool { return g.authed }
func (g *stubGitHub) CurrentUser(context.Context) (string, error) { return g.login, nil }
func (g *stubGitHub) SearchUserByEmail(context.Context, string) (string, error) {
	return "", nil
}

func (g *stubGitHub) Contributors(context.Context) ([]github.Contributor, error) {
	return g.contributors, nil
}

func (g *stubGitHub) ListOpenPRs(context.Context, string, string) ([]github.PRInfo, error) {
	return nil, nil
}

func (g *stubGitHub) CreatePR(_ context.Context, opts github.CreatePROptions) (*github.PRInfo, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, opts)
	return &github.PRInfo{URL: "https://github.com/acme/app/pull/" + opts.BaseBranch}, nil
}

// installStubs points the commands at repo and gh for the duration of the
// test and returns the GitHub options the client was built with.
func installStubs(t *testing.T, repo *stubRepo, gh *stubGitHub) *github.Options {
	t.Helper()

	oldRepo, oldClient, oldConfig := newRepo, newGitHubClient, appConfig
	oldFormat, oldRequest, oldRun := outputFormat, requestOpts, runOpts
	t.Cleanup(func() {
		newRepo, newGitHubClient, appConfig = oldRepo, oldClient, oldConfig
		outputFormat, requestOpts, runOpts = oldFormat, oldRequest, oldRun
	})

	var seen github.Options
	newRepo = func(string, *zap.Logger) repository { return repo }
	newGitHubClient = func(_ context.Context, _ *config.GitHubConfig, opts github.Options) (github.Client, error) {
		seen = opts
		return gh, nil
	}
	appConfig = &config.Config{
		DefaultTargetBranch: "main",
		Jira:                config.JiraConfig{BaseURL: "https://jira.example.com/browse/"},
		PR:                  config.PRConfig{ChecklistURL: "https://wiki.example.com/checklist", Confirm: true},
		Identity:            config.IdentityConfig{StorePath: filepath.Join(t.TempDir(), "handles.toml")},
	}
	outputFormat = formatJSON
	requestOpts.Source, requestOpts.Title, requestOpts.Body = "", "", ""
	requestOpts.Targets, requestOpts.Reviewers, requestOpts.Tickets = nil, nil, nil
	requestOpts.Draft, requestOpts.DryRun = false, false
	runOpts.DryRun, runOpts.Draft = false, false
	return &seen
}

func execute(t *testing.T, c *cobra.Command) (string, error) {
	t.Helper()
	var out, progress bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&progress)
	c.SetContext(context.Background())
	err := c.RunE(c, nil)
	return out.String(), err
}

func TestDataCommand(t *testing.T) {
	repo := &stubRepo{
		current:  "feature/PAY-9-bulk-export",
		branches: []string{"main", "develop"},
		origin:   "git@github.com:acme/app.git",
	}
	seen := installStubs(t, repo, &stubGitHub{contributors: []github.Contributor{{Login: "alice"}}})

	out, err := execute(t, dataCmd)
	require.NoError(t, err)

	var data workflow.Data
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "feature/PAY-9-bulk-export", data.CurrentBranch)
	assert.Equal(t, []string{"PAY-9"}, data.SuggestedTickets)
	assert.Equal(t, "Bulk Export", data.SuggestedTitle)
	assert.Equal(t, []string{"alice"}, data.Contributors)

	require.NotNil(t, seen.Repo, "origin should be parsed for the client")
	assert.Equal(t, "acme/app", seen.Repo.FullName())
}

func TestDataCommand_YAML(t *testing.T) {
	installStubs(t, &stubRepo{current: "hotfix-cleanup"}, &stubGitHub{})
	outputFormat = formatYAML

	out, err := execute(t, dataCmd)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &data))
	assert.Equal(t, "hotfix-cleanup", data["currentBranch"])
	assert.Equal(t, "Hotfix Cleanup", data["suggestedTitle"])
}

func TestDataCommand_NotARepository(t *testing.T) {
	installStubs(t, &stubRepo{notRepo: true}, &stubGitHub{})

	out, err := execute(t, dataCmd)
	assert.ErrorIs(t, err, errAlreadyReported)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload["error"], "not a git repository")
}

func TestDataCommand_BadFormat(t *testing.T) {
	installStubs(t, &stubRepo{current: "main"}, &stubGitHub{})
	outputFormat = "xml"

	_, err := execute(t, dataCmd)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errAlreadyReported)
}

func TestDescribeCommand(t *testing.T) {
	installStubs(t, &stubRepo{commits: []string{"Add export", "Fix header"}}, &stubGitHub{})
	describeOpts.Source, describeOpts.Target = "feature/x", "main"
	t.Cleanup(func() { describeOpts.Source, describeOpts.Target = "", "" })

	out, err := execute(t, describeCmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"- Add export\n- Fix header"}`, out)
}

func TestPreviewCommand(t *testing.T) {
	installStubs(t, &stubRepo{current: "feature/x"}, &stubGitHub{})
	requestOpts.Targets = []string{"develop"}
	requestOpts.Title = "Export"
	requestOpts.Tickets = []string{"PAY-3"}

	out, err := execute(t, previewCmd)
	require.NoError(t, err)

	var preview map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, "[PAY-3][Export][feature/x] -> [develop]", preview["title"])
	assert.Contains(t, preview["body"], "[PAY-3](https://jira.example.com/browse/PAY-3)")
}

func TestSubmitCommand(t *testing.T) {
	gh := &stubGitHub{}
	installStubs(t, &stubRepo{current: "feature/x"}, gh)
	requestOpts.Targets = []string{"develop", "main"}
	requestOpts.Reviewers = []string{"alice"}
	requestOpts.Draft = true

	out, err := execute(t, submitCmd)
	require.NoError(t, err)

	var report workflow.SubmitReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.Summary.Created)

	require.Len(t, gh.created, 2)
	assert.True(t, gh.created[0].Draft)
	assert.Equal(t, []string{"alice"}, gh.created[1].Reviewers)
}

func TestSubmitCommand_DryRun(t *testing.T) {
	gh := &stubGitHub{}
	installStubs(t, &stubRepo{current: "feature/x"}, gh)
	requestOpts.Targets = []string{"main"}
	requestOpts.DryRun = true

	out, err := execute(t, submitCmd)
	require.NoError(t, err)
	assert.Empty(t, gh.created)
	assert.Contains(t, out, `"planned"`)
}

func TestSubmitCommand_FailureExitsNonZero(t *testing.T) {
	installStubs(t, &stubRepo{current: "feature/x"}, &stubGitHub{createErr: errors.New("boom")})
	requestOpts.Targets = []string{"main"}

	out, err := execute(t, submitCmd)
	assert.ErrorIs(t, err, errAlreadyReported)
	assert.Contains(t, out, `"success": false`)
}

func TestWriteOutput(t *testing.T) {
	v := errorOutput{Error: "boom"}

	var j bytes.Buffer
	require.NoError(t, writeOutput(&j, formatJSON, v))
	assert.Equal(t, "{\n  \"error\": \"boom\"\n}\n", j.String())

	var y bytes.Buffer
	require.NoError(t, writeOutput(&y, formatYAML, v))
	assert.Equal(t, "error: boom\n", y.String())
}

func TestRunInteractive_RequiresTerminal(t *testing.T) {
	installStubs(t, &stubRepo{current: "feature/x"}, &stubGitHub{})

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	err = runInteractive(context.Background(), f, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}

func TestRunEngine(t *testing.T) {
	t.Run("failure is printed once", func(t *testing.T) {
		installStubs(t, &stubRepo{notRepo: true}, &stubGitHub{})
		d, err := setup(context.Background())
		require.NoError(t, err)

		var out bytes.Buffer
		err = runEngine(context.Background(), d, strings.NewReader(""), ui.NewConsole(&out))
		assert.ErrorIs(t, err, errAlreadyReported)
		assert.Contains(t, out.String(), "not a git repository")
	})

	t.Run("declined confirmation is an abort", func(t *testing.T) {
		gh := &stubGitHub{}
		installStubs(t, &stubRepo{current: "cleanup", branches: []string{"main"}}, gh)
		d, err := setup(context.Background())
		require.NoError(t, err)

		// manual strategy, source, target, skip jira, title, description,
		// finish reviewers, decline
		input := "3\n\n\n3\n\n\n\nn\n"
		err = runEngine(context.Background(), d, strings.NewReader(input), ui.NewConsole(&bytes.Buffer{}))
		assert.ErrorIs(t, err, workflow.ErrAborted)
		assert.Empty(t, gh.created)
	})
}

func TestAuthStatus(t *testing.T) {
	installStubs(t, &stubRepo{}, &stubGitHub{authed: true, login: "octocat"})

	var out bytes.Buffer
	require.NoError(t, runAuthStatus(context.Background(), &out))
	assert.Contains(t, out.String(), "Auth method: gh_cli")
	assert.Contains(t, out.String(), "Logged in as octocat")

	installStubs(t, &stubRepo{}, &stubGitHub{})
	assert.Error(t, runAuthStatus(context.Background(), &bytes.Buffer{}))
}

func TestAuthLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := github.NewFileTokenCache(path)
	require.NoError(t, cache.Set(&oauth2.Token{AccessToken: "abc", TokenType: "bearer"}))

	old := newTokenCache
	newTokenCache = func() github.TokenCache { return cache }
	t.Cleanup(func() { newTokenCache = old })

	var out bytes.Buffer
	require.NoError(t, runAuthLogout(&out))
	assert.Contains(t, out.String(), "Cached GitHub token removed.")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// a second logout is not an error
	require.NoError(t, runAuthLogout(&bytes.Buffer{}))
}
