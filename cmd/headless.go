package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"

	prcerrors "thoreinstein.com/prc/pkg/errors"
	"thoreinstein.com/prc/pkg/ui"
	"thoreinstein.com/prc/pkg/workflow"
)

// Output formats for the non-interactive commands.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormat string

var describeOpts struct {
	Source string
	Target string
}

var requestOpts struct {
	Source    string
	Targets   []string
	Title     string
	Body      string
	Reviewers []string
	Tickets   []string
	Draft     bool
	DryRun    bool
}

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Print repository data for a pull request form",
	Long: `Print the current branch, remote branches, reviewer candidates and the
ticket and title suggested by the branch name. No fetch is made.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHeadless(cmd, func(ctx context.Context, h *workflow.Headless) (any, error) {
			return h.Data(ctx)
		})
	},
}

var describeCmd = &cobra.Command{
	Use:     "describe",
	Short:   "Print a description built from the commits between two branches",
	Example: `  prc describe --source feature/PAY-1-export --target develop`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHeadless(cmd, func(ctx context.Context, h *workflow.Headless) (any, error) {
			desc, err := h.Describe(ctx, describeOpts.Source, describeOpts.Target)
			if err != nil {
				return nil, err
			}
			return map[string]string{"description": desc}, nil
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the title and body of the pull request for the first target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHeadless(cmd, func(ctx context.Context, h *workflow.Headless) (any, error) {
			plan, err := h.Preview(ctx, request())
			if err != nil {
				return nil, err
			}
			return map[string]string{"title": plan.Title, "body": plan.Body}, nil
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create pull requests without prompting",
	Long: `Create one pull request per --target. Targets that already have an open
pull request from the source branch are skipped. Reviewer identities are
resolved from the user map, the handle store and GitHub user search; those
that cannot be resolved are left out.

The command exits non-zero when any target failed.`,
	Example: `  prc submit --target develop --target release/1.4.0 \
    --tickets PAY-12 --title "Export CSV" --body "- Adds export" \
    --reviewers alice --reviewers "Dana <dana@example.com>"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed bool
		err := withHeadless(cmd, func(ctx context.Context, h *workflow.Headless) (any, error) {
			report, err := h.Submit(ctx, request())
			if err != nil {
				return nil, err
			}
			failed = !report.Success
			return report, nil
		})
		if err == nil && failed {
			return errAlreadyReported
		}
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{dataCmd, describeCmd, previewCmd, submitCmd} {
		c.Flags().StringVarP(&outputFormat, "format", "o", formatJSON, "Output format (json, yaml)")
		rootCmd.AddCommand(c)
	}

	describeCmd.Flags().StringVar(&describeOpts.Source, "source", "", "Source branch")
	describeCmd.Flags().StringVar(&describeOpts.Target, "target", "", "Target branch")
	_ = describeCmd.MarkFlagRequired("source")
	_ = describeCmd.MarkFlagRequired("target")

	addRequestFlags(previewCmd.Flags())
	addRequestFlags(submitCmd.Flags())
	submitCmd.Flags().BoolVar(&requestOpts.DryRun, "dry-run", false, "Report what would be created without creating anything")
}

// addRequestFlags registers the pull request fields shared by preview and
// submit.
func addRequestFlags(fs *pflag.FlagSet) {
	fs.StringVar(&requestOpts.Source, "source", "", "Source branch (defaults to the current branch)")
	fs.StringSliceVar(&requestOpts.Targets, "target", nil, "Target branch (repeatable)")
	fs.StringVar(&requestOpts.Title, "title", "", "Descriptive title")
	fs.StringVar(&requestOpts.Body, "body", "", "Description")
	fs.StringArrayVar(&requestOpts.Reviewers, "reviewers", nil, "Reviewer handle, email or \"Name <email>\" (repeatable)")
	fs.StringSliceVar(&requestOpts.Tickets, "tickets", nil, "Jira ticket id or URL (repeatable)")
	fs.BoolVar(&requestOpts.Draft, "draft", false, "Create draft pull requests")
}

func request() workflow.Request {
	return workflow.Request{
		Source:    requestOpts.Source,
		Targets:   requestOpts.Targets,
		Title:     requestOpts.Title,
		Body:      requestOpts.Body,
		Reviewers: requestOpts.Reviewers,
		Tickets:   requestOpts.Tickets,
		Draft:     requestOpts.Draft,
	}
}

// withHeadless builds a Headless runner, runs fn and writes its result to
// stdout. Failures are written as {"error": "..."} so callers always get
// parseable output.
func withHeadless(cmd *cobra.Command, fn func(context.Context, *workflow.Headless) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	format := strings.ToLower(outputFormat)
	if format != formatJSON && format != formatYAML {
		return prcerrors.NewConfigError("format", "unsupported output format: "+outputFormat)
	}

	v, err := runHeadless(ctx, cmd.ErrOrStderr(), fn)
	if err != nil {
		if werr := writeOutput(out, format, errorOutput{Error: err.Error()}); werr != nil {
			return werr
		}
		return errAlreadyReported
	}
	return writeOutput(out, format, v)
}

func runHeadless(ctx context.Context, progress io.Writer, fn func(context.Context, *workflow.Headless) (any, error)) (any, error) {
	d, err := setup(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.logger.Sync() }()

	h := workflow.NewHeadless(d.repo, d.github, d.cfg, ui.NewConsole(progress), workflow.Options{
		Store:  d.store,
		Logger: d.logger,
		DryRun: requestOpts.DryRun,
	})
	return fn(ctx, h)
}

type errorOutput struct {
	Error string `json:"error" yaml:"error"`
}

// writeOutput encodes v to w as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return prcerrors.Wrap(err, "failed to encode yaml output")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return prcerrors.Wrap(err, "failed to encode json output")
		}
		return nil
	}
}
