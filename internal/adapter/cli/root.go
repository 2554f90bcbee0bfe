// Package cli builds the cobra command tree. Commands resolve flags against
// config defaults and delegate to the injected collaborators; no business
// logic lives here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vibecheck/issuesync/internal/adapter/store/sqlite"
	"github.com/vibecheck/issuesync/internal/config"
	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/usecase/pipeline"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// SyncRunner runs one synchronization pipeline.
type SyncRunner interface {
	Run(ctx context.Context, req pipeline.Request) (reconcile.Stats, error)
}

// HistoryReader lists recorded runs for a repository.
type HistoryReader interface {
	Recent(ctx context.Context, repository string, limit int) ([]sqlite.Run, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Runner   SyncRunner
	History  HistoryReader
	Args     Arguments
	Defaults config.Config
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "issuesync",
		Short: "Synchronize static-analysis findings with tracker issues",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(syncCommand(deps.Runner, deps.Defaults))
	root.AddCommand(historyCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func syncCommand(runner SyncRunner, defaults config.Config) *cobra.Command {
	var findingsPath string
	var contextPath string
	var host string
	var owner string
	var repo string
	var commit string
	var runNumber int
	var label string
	var maxNew int
	var severityThreshold string
	var confidenceThreshold string
	var closeResolved bool
	var assignees []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile a findings file against the repository's tracker issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runner == nil {
				return fmt.Errorf("synchronization is not configured")
			}
			if !defaults.Issues.Enabled {
				fmt.Fprintln(cmd.ErrOrStderr(), "issue synchronization is disabled in config")
				return nil
			}
			if findingsPath == "" {
				return fmt.Errorf("%w: --findings is required", pipeline.ErrInput)
			}

			sev := domain.Severity(strings.ToLower(severityThreshold))
			if !sev.IsValid() {
				return fmt.Errorf("%w: unknown severity threshold %q", pipeline.ErrInput, severityThreshold)
			}
			conf := domain.Confidence(strings.ToLower(confidenceThreshold))
			if !conf.IsValid() {
				return fmt.Errorf("%w: unknown confidence threshold %q", pipeline.ErrInput, confidenceThreshold)
			}

			resolvedAssignees := assignees
			if !cmd.Flags().Changed("assignee") {
				resolvedAssignees = defaults.Issues.Assignees
			}
			resolvedClose := closeResolved
			if !cmd.Flags().Changed("close-resolved") {
				resolvedClose = defaults.Issues.CloseResolved
			}

			stats, err := runner.Run(cmd.Context(), pipeline.Request{
				FindingsPath: findingsPath,
				ContextPath:  contextPath,
				Host:         host,
				Owner:        owner,
				Repo:         repo,
				Commit:       commit,
				RunNumber:    runNumber,
				Issues: reconcile.Config{
					Label:               label,
					MaxNewPerRun:        maxNew,
					SeverityThreshold:   sev,
					ConfidenceThreshold: conf,
					CloseResolved:       resolvedClose,
					Assignees:           resolvedAssignees,
				},
				BranchPrefix: defaults.Issues.BranchPrefix,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(),
				"created=%d updated=%d closed=%d skippedBelowThreshold=%d skippedDuplicate=%d skippedMaxReached=%d\n",
				stats.Created, stats.Updated, stats.Closed,
				stats.SkippedBelowThreshold, stats.SkippedDuplicate, stats.SkippedMaxReached)
			return nil
		},
	}

	cmd.Flags().StringVar(&findingsPath, "findings", "", "Path to the findings JSON array (use - for stdin)")
	cmd.Flags().StringVar(&contextPath, "context", "", "Path to a run-context JSON document")
	cmd.Flags().StringVar(&host, "host", "", "Tracker host (default github.com or from context)")
	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner (overrides context and autodetection)")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name (overrides context and autodetection)")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit SHA the findings were produced at")
	cmd.Flags().IntVar(&runNumber, "run-number", 0, "Monotonic CI run number")
	cmd.Flags().StringVar(&label, "label", defaults.Issues.Label, "Base label identifying synchronized issues")
	cmd.Flags().IntVar(&maxNew, "max-new", defaults.Issues.MaxNewPerRun, "Maximum issues created per run")
	cmd.Flags().StringVar(&severityThreshold, "severity-threshold", defaults.Issues.SeverityThreshold, "Minimum severity to report (info, low, medium, high, critical)")
	cmd.Flags().StringVar(&confidenceThreshold, "confidence-threshold", defaults.Issues.ConfidenceThreshold, "Minimum confidence to report (low, medium, high)")
	cmd.Flags().BoolVar(&closeResolved, "close-resolved", true, "Close issues whose findings stayed resolved")
	cmd.Flags().StringSliceVar(&assignees, "assignee", []string{}, "Assignees for newly created issues")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and log operations without calling the tracker")

	return cmd
}

func historyCommand(history HistoryReader) *cobra.Command {
	var repository string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent synchronization runs from the local history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("history store is disabled")
			}
			if repository == "" {
				return fmt.Errorf("%w: --repository is required", pipeline.ErrInput)
			}

			runs, err := history.Recent(cmd.Context(), repository, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCOMMIT\tTIME\tFINDINGS\tCREATED\tUPDATED\tCLOSED")
			for _, run := range runs {
				commit := run.Commit
				if len(commit) > 7 {
					commit = commit[:7]
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
					run.RunNumber, commit, run.Timestamp.Format("2006-01-02 15:04"),
					run.Findings, run.Stats.Created, run.Stats.Updated, run.Stats.Closed)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "", "Repository in owner/name form")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
