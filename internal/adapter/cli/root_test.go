package cli_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vibecheck/issuesync/internal/adapter/cli"
	"github.com/vibecheck/issuesync/internal/adapter/store/sqlite"
	"github.com/vibecheck/issuesync/internal/config"
	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/usecase/pipeline"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

type stubRunner struct {
	req   pipeline.Request
	stats reconcile.Stats
	err   error
	runs  int
}

func (s *stubRunner) Run(ctx context.Context, req pipeline.Request) (reconcile.Stats, error) {
	s.runs++
	s.req = req
	return s.stats, s.err
}

type stubHistory struct {
	runs []sqlite.Run
}

func (s *stubHistory) Recent(ctx context.Context, repository string, limit int) ([]sqlite.Run, error) {
	return s.runs, nil
}

func defaults() config.Config {
	return config.Config{
		Issues: config.IssuesConfig{
			Enabled:             true,
			Label:               "vibeCheck",
			MaxNewPerRun:        25,
			SeverityThreshold:   "low",
			ConfidenceThreshold: "low",
			CloseResolved:       true,
			BranchPrefix:        "vibecheck",
		},
	}
}

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &errOut}
	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, cli.Dependencies{Version: "1.2.3", Defaults: defaults()}, "--version")

	if !errors.Is(err, cli.ErrVersionRequested) {
		t.Fatalf("err = %v, want ErrVersionRequested", err)
	}
	if !strings.Contains(out, "1.2.3") {
		t.Errorf("out = %q, want the version", out)
	}
}

func TestSync_PassesResolvedFlags(t *testing.T) {
	runner := &stubRunner{stats: reconcile.Stats{Created: 2}}

	_, errOut, err := execute(t, cli.Dependencies{Runner: runner, Defaults: defaults()},
		"sync", "--findings", "findings.json",
		"--owner", "acme", "--repo", "widgets", "--run-number", "7",
		"--severity-threshold", "medium", "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	req := runner.req
	if req.FindingsPath != "findings.json" || req.Owner != "acme" || req.Repo != "widgets" {
		t.Errorf("request = %+v", req)
	}
	if req.RunNumber != 7 || !req.DryRun {
		t.Errorf("request = %+v", req)
	}
	if req.Issues.Label != "vibeCheck" || req.Issues.MaxNewPerRun != 25 {
		t.Errorf("config defaults not applied: %+v", req.Issues)
	}
	if req.Issues.SeverityThreshold != domain.SeverityMedium {
		t.Errorf("severity threshold = %s, want medium", req.Issues.SeverityThreshold)
	}
	if !req.Issues.CloseResolved {
		t.Error("closeResolved default not applied")
	}
	if !strings.Contains(errOut, "created=2") {
		t.Errorf("stderr = %q, want the stats summary", errOut)
	}
}

func TestSync_RequiresFindings(t *testing.T) {
	runner := &stubRunner{}

	_, _, err := execute(t, cli.Dependencies{Runner: runner, Defaults: defaults()}, "sync")

	if !errors.Is(err, pipeline.ErrInput) {
		t.Errorf("err = %v, want ErrInput", err)
	}
	if runner.runs != 0 {
		t.Error("runner was invoked despite the missing flag")
	}
}

func TestSync_RejectsUnknownThreshold(t *testing.T) {
	_, _, err := execute(t, cli.Dependencies{Runner: &stubRunner{}, Defaults: defaults()},
		"sync", "--findings", "f.json", "--severity-threshold", "extreme")

	if !errors.Is(err, pipeline.ErrInput) {
		t.Errorf("err = %v, want ErrInput", err)
	}
}

func TestSync_DisabledInConfig(t *testing.T) {
	cfg := defaults()
	cfg.Issues.Enabled = false
	runner := &stubRunner{}

	_, errOut, err := execute(t, cli.Dependencies{Runner: runner, Defaults: cfg},
		"sync", "--findings", "f.json")

	if err != nil {
		t.Fatalf("disabled sync should exit cleanly, got %v", err)
	}
	if runner.runs != 0 {
		t.Error("runner was invoked while disabled")
	}
	if !strings.Contains(errOut, "disabled") {
		t.Errorf("stderr = %q, want the disabled notice", errOut)
	}
}

func TestSync_PropagatesRunnerError(t *testing.T) {
	runner := &stubRunner{err: reconcile.ErrPartialFailure}

	_, _, err := execute(t, cli.Dependencies{Runner: runner, Defaults: defaults()},
		"sync", "--findings", "f.json")

	if !errors.Is(err, reconcile.ErrPartialFailure) {
		t.Errorf("err = %v, want the runner's error", err)
	}
}

func TestHistory_RendersTable(t *testing.T) {
	history := &stubHistory{runs: []sqlite.Run{
		{
			RunNumber:  7,
			Repository: "acme/widgets",
			Commit:     "0123456789abcdef",
			Timestamp:  time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
			Findings:   14,
			Stats:      reconcile.Stats{Created: 3, Updated: 9, Closed: 1},
		},
	}}

	out, _, err := execute(t, cli.Dependencies{History: history, Defaults: defaults()},
		"history", "--repository", "acme/widgets")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(out, "RUN") || !strings.Contains(out, "0123456") {
		t.Errorf("out = %q, want the table with the short commit", out)
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Errorf("out = %q, commit should be truncated", out)
	}
}

func TestHistory_RequiresRepository(t *testing.T) {
	_, _, err := execute(t, cli.Dependencies{History: &stubHistory{}, Defaults: defaults()}, "history")

	if !errors.Is(err, pipeline.ErrInput) {
		t.Errorf("err = %v, want ErrInput", err)
	}
}
