// Package pipeline orchestrates one synchronization run: load and normalize
// findings, deduplicate, resolve the run context, reconcile against the
// tracker, and record the outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibecheck/issuesync/internal/adapter/gitinfo"
	"github.com/vibecheck/issuesync/internal/adapter/store/sqlite"
	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/ingest"
	"github.com/vibecheck/issuesync/internal/render"
	"github.com/vibecheck/issuesync/internal/usecase/dedup"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

// ErrInput marks a malformed-input failure. Input errors are detected before
// any tracker mutation and map to a distinct exit code.
var ErrInput = errors.New("invalid input")

// Deps captures the collaborators for the pipeline. Detector and History are
// optional; a nil Detector disables repository autodetection and a nil
// History disables run recording.
type Deps struct {
	Log        zerolog.Logger
	NewTracker func(owner, name string) reconcile.Tracker
	Detector   *gitinfo.Detector
	History    *sqlite.History
	Out        io.Writer
	Now        func() time.Time
}

// Request is one synchronization run. Owner, Repo, Commit, and RunNumber
// override or complete what the context document and the local checkout
// provide.
type Request struct {
	FindingsPath string
	ContextPath  string

	Host      string
	Owner     string
	Repo      string
	Commit    string
	RunNumber int

	Issues       reconcile.Config
	BranchPrefix string
	DryRun       bool
}

// Orchestrator runs the synchronization pipeline.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator wires an orchestrator from its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Run executes one synchronization run and writes the stats record as JSON
// to the output writer. The returned stats are valid even when err is
// non-nil, unless the failure happened before reconciliation started.
func (o *Orchestrator) Run(ctx context.Context, req Request) (reconcile.Stats, error) {
	findings, err := o.loadFindings(req.FindingsPath)
	if err != nil {
		return reconcile.Stats{}, err
	}
	findings = dedup.Collapse(findings)

	rctx, err := o.resolveRunContext(req)
	if err != nil {
		return reconcile.Stats{}, err
	}

	o.deps.Log.Info().
		Str("repo", rctx.Repo.Owner+"/"+rctx.Repo.Name).
		Str("commit", rctx.Repo.ShortCommit()).
		Int("run", rctx.RunNumber).
		Int("findings", len(findings)).
		Bool("dry_run", req.DryRun).
		Msg("starting synchronization")

	tracker := o.deps.NewTracker(rctx.Repo.Owner, rctx.Repo.Name)
	sync := reconcile.NewSynchronizer(tracker, o.deps.Log, req.Issues, req.DryRun)

	now := o.deps.Now().UTC()
	stats, runErr := sync.Run(ctx, findings, render.Context{
		Repo:         rctx.Repo,
		RunNumber:    rctx.RunNumber,
		Label:        req.Issues.Label,
		BranchPrefix: req.BranchPrefix,
		Now:          now,
	})

	o.recordHistory(ctx, rctx, now, len(findings), stats, req.DryRun)
	o.emitStats(stats)

	return stats, runErr
}

func (o *Orchestrator) loadFindings(path string) ([]domain.Finding, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open findings: %v", ErrInput, err)
		}
		defer f.Close()
		r = f
	}

	findings, err := ingest.ParseFindings(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	return findings, nil
}

func (o *Orchestrator) resolveRunContext(req Request) (domain.RunContext, error) {
	var rctx domain.RunContext

	if req.ContextPath != "" {
		f, err := os.Open(req.ContextPath)
		if err != nil {
			return rctx, fmt.Errorf("%w: open run context: %v", ErrInput, err)
		}
		parsed, parseErr := ingest.ParseRunContext(f)
		f.Close()
		if parseErr != nil {
			return rctx, fmt.Errorf("%w: %v", ErrInput, parseErr)
		}
		rctx = parsed
	}

	// Explicit request fields win over the context document.
	if req.Host != "" {
		rctx.Repo.Host = req.Host
	}
	if req.Owner != "" {
		rctx.Repo.Owner = req.Owner
	}
	if req.Repo != "" {
		rctx.Repo.Name = req.Repo
	}
	if req.Commit != "" {
		rctx.Repo.Commit = req.Commit
	}
	if req.RunNumber != 0 {
		rctx.RunNumber = req.RunNumber
	}
	if rctx.Repo.Host == "" {
		rctx.Repo.Host = "github.com"
	}

	if o.deps.Detector != nil {
		filled, err := o.deps.Detector.Fill(rctx)
		if err != nil {
			o.deps.Log.Debug().Err(err).Msg("repository autodetection failed")
		} else {
			rctx = filled
		}
	}

	if rctx.Repo.Owner == "" || rctx.Repo.Name == "" {
		return rctx, fmt.Errorf("%w: repository owner and name are required", ErrInput)
	}
	if rctx.Repo.Commit == "" {
		return rctx, fmt.Errorf("%w: commit is required", ErrInput)
	}
	if rctx.RunNumber < 1 {
		return rctx, fmt.Errorf("%w: a positive run number is required", ErrInput)
	}
	return rctx, nil
}

// recordHistory appends the run to the local history store. Best effort: a
// history failure never fails the run.
func (o *Orchestrator) recordHistory(ctx context.Context, rctx domain.RunContext, now time.Time, findings int, stats reconcile.Stats, dryRun bool) {
	if o.deps.History == nil || dryRun {
		return
	}
	err := o.deps.History.Record(ctx, sqlite.Run{
		RunNumber:  rctx.RunNumber,
		Repository: rctx.Repo.Owner + "/" + rctx.Repo.Name,
		Commit:     rctx.Repo.Commit,
		Timestamp:  now,
		Findings:   findings,
		Stats:      stats,
	})
	if err != nil {
		o.deps.Log.Warn().Err(err).Msg("failed to record run history")
	}
}

func (o *Orchestrator) emitStats(stats reconcile.Stats) {
	if o.deps.Out == nil {
		return
	}
	enc := json.NewEncoder(o.deps.Out)
	if err := enc.Encode(stats); err != nil {
		o.deps.Log.Warn().Err(err).Msg("failed to write stats record")
	}
}
