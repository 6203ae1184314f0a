package git

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

// Remote is the remote every query is made against.
const Remote = "origin"

// Author is one entry of the repository's commit author list.
type Author struct {
	Name    string
	Email   string
	Commits int
}

// Ident returns the "Name <email>" form of the author.
func (a Author) Ident() string {
	if a.Email == "" {
		return a.Name
	}
	return a.Name + " <" + a.Email + ">"
}

// Repo answers the local git queries prc needs. It shells out to git in Dir.
type Repo struct {
	Dir    string
	runner CommandRunner
	logger *zap.Logger
}

// NewRepo creates a Repo backed by os/exec.
func NewRepo(dir string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{Dir: dir, runner: &ExecRunner{Logger: logger}, logger: logger}
}

// NewRepoWithRunner creates a Repo with a custom CommandRunner (for testing).
func NewRepoWithRunner(dir string, runner CommandRunner) *Repo {
	return &Repo{Dir: dir, runner: runner, logger: zap.NewNop()}
}

func (r *Repo) git(ctx context.Context, op string, args ...string) (string, error) {
	res, err := r.runner.Run(ctx, r.Dir, "git", args...)
	if err != nil {
		return "", prcerrors.NewGitErrorWithCause(op, "could not run git", err)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", prcerrors.NewGitErrorWithExitCode(op, res.ExitCode, msg)
	}
	return res.Stdout, nil
}

// IsRepo reports whether Dir is inside a git working tree.
func (r *Repo) IsRepo(ctx context.Context) bool {
	out, err := r.git(ctx, "IsRepo", "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Fetch updates remote-tracking refs. Failures are logged and swallowed so
// that an offline run still works against the last fetched state.
func (r *Repo) Fetch(ctx context.Context) {
	if _, err := r.git(ctx, "Fetch", "fetch", Remote); err != nil {
		r.logger.Warn("git fetch failed, using cached remote branches", zap.Error(err))
	}
}

// RemoteBranches lists branch names on the remote with the "origin/" prefix
// removed. Symbolic refs such as "origin/HEAD -> origin/main" are skipped.
func (r *Repo) RemoteBranches(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "RemoteBranches", "branch", "-r")
	if err != nil {
		return nil, err
	}

	prefix := Remote + "/"
	seen := make(map[string]bool)
	var branches []string
	for _, line := range lines(out) {
		if strings.Contains(line, "->") {
			continue
		}
		name := strings.TrimPrefix(line, prefix)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		branches = append(branches, name)
	}
	return branches, nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "CurrentBranch", "branch", "--show-current")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return "", prcerrors.NewGitError("CurrentBranch", "HEAD is detached")
	}
	return name, nil
}

// CommitsBetween returns subjects of non-merge commits on head that are not
// on the remote copy of base, newest first.
func (r *Repo) CommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	rng := Remote + "/" + base + ".." + head
	out, err := r.git(ctx, "CommitsBetween", "log", rng, "--no-merges", "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Authors returns every commit author in the repository, most active first.
func (r *Repo) Authors(ctx context.Context) ([]Author, error) {
	out, err := r.git(ctx, "Authors", "shortlog", "-sne", "--all")
	if err != nil {
		return nil, err
	}

	var authors []Author
	for _, line := range lines(out) {
		if a, ok := parseShortlogLine(line); ok {
			authors = append(authors, a)
		}
	}
	sort.SliceStable(authors, func(i, j int) bool {
		return authors[i].Commits > authors[j].Commits
	})
	return authors, nil
}

// UserEmail returns the configured user.email, or "" if unset.
func (r *Repo) UserEmail(ctx context.Context) string {
	out, err := r.git(ctx, "UserEmail", "config", "user.email")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// OriginURL returns the fetch URL of the origin remote.
func (r *Repo) OriginURL(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "OriginURL", "remote", "get-url", Remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GitDir returns the absolute path of the repository's git directory. In a
// linked worktree this is the worktree's own directory under .git/worktrees.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "GitDir", "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// parseShortlogLine parses "   42\tJane Doe <jane@example.com>".
func parseShortlogLine(line string) (Author, bool) {
	count, ident, found := strings.Cut(line, "\t")
	if !found {
		return Author{}, false
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return Author{}, false
	}

	ident = strings.TrimSpace(ident)
	name, email := ident, ""
	if i := strings.LastIndex(ident, "<"); i >= 0 && strings.HasSuffix(ident, ">") {
		name = strings.TrimSpace(ident[:i])
		email = ident[i+1 : len(ident)-1]
	}
	return Author{Name: name, Email: email, Commits: n}, true
}
