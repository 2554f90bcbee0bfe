package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/render"
)

// Executor applies a plan against a tracker, keeping the live set of open
// issues current so the post-execution duplicate collapse sees the issues
// this run created under their real numbers.
type Executor struct {
	tracker Tracker
	log     zerolog.Logger
	dryRun  bool
}

// NewExecutor returns an executor bound to the given tracker. With dryRun
// set, operations are logged but never sent.
func NewExecutor(tracker Tracker, log zerolog.Logger, dryRun bool) *Executor {
	return &Executor{tracker: tracker, log: log, dryRun: dryRun}
}

// ErrPartialFailure marks a run in which some tracker operations failed
// permanently. The run still completes; callers use this to exit non-zero.
var ErrPartialFailure = errors.New("some tracker operations failed")

// Apply executes the plan's operations in order and returns the resulting
// open-issue set plus the number of operations that failed permanently. The
// input existing slice is the tracker state observed before planning; Apply
// layers the plan's effects on top of it.
//
// Individual operation failures are logged and counted, not fatal: a partial
// run converges on the next run because all state lives in the issues
// themselves. Apply returns an error only on context cancellation.
func (e *Executor) Apply(ctx context.Context, plan Plan, existing []domain.ExistingIssue) ([]domain.ExistingIssue, int, error) {
	open := make(map[int]domain.ExistingIssue)
	for _, issue := range existing {
		if issue.IsOpen() {
			open[issue.Number] = issue
		}
	}

	var failed int
	for _, op := range plan.Ops {
		if err := ctx.Err(); err != nil {
			return nil, failed, err
		}
		if err := e.applyOp(ctx, op, open); err != nil {
			failed++
			e.log.Error().Err(err).
				Str("op", string(op.Kind)).
				Int("issue", op.Number).
				Msg("tracker operation failed")
		}
	}

	result := make([]domain.ExistingIssue, 0, len(open))
	for _, issue := range open {
		result = append(result, issue)
	}
	return result, failed, nil
}

func (e *Executor) applyOp(ctx context.Context, op Op, open map[int]domain.ExistingIssue) error {
	switch op.Kind {
	case OpCreate:
		e.log.Info().Str("title", op.Title).Msg("creating issue")
		if e.dryRun {
			return nil
		}
		number, err := e.tracker.CreateIssue(ctx, CreateRequest{
			Title:     op.Title,
			Body:      op.Body,
			Labels:    op.Labels,
			Assignees: op.Assignees,
		})
		if err != nil {
			return err
		}
		open[number] = domain.ExistingIssue{
			Number:   number,
			State:    domain.IssueOpen,
			Title:    op.Title,
			Labels:   op.Labels,
			Metadata: &domain.IssueMetadata{Fingerprint: op.Fingerprint},
		}
		return nil

	case OpUpdate:
		e.log.Info().Int("issue", op.Number).Msg("updating issue")
		if e.dryRun {
			return nil
		}
		if err := e.tracker.UpdateIssue(ctx, UpdateRequest{
			Number: op.Number,
			Title:  op.Title,
			Body:   op.Body,
			Labels: op.Labels,
		}); err != nil {
			return err
		}
		if issue, ok := open[op.Number]; ok {
			issue.Title = op.Title
			issue.Labels = op.Labels
			open[op.Number] = issue
		}
		return nil

	case OpClose:
		e.log.Info().Int("issue", op.Number).Msg("closing issue")
		if e.dryRun {
			return nil
		}
		if err := e.tracker.CloseIssue(ctx, op.Number, op.Comment); err != nil {
			return err
		}
		delete(open, op.Number)
		return nil

	case OpComment:
		e.log.Info().Int("issue", op.Number).Msg("commenting on issue")
		if e.dryRun {
			return nil
		}
		return e.tracker.AddIssueComment(ctx, op.Number, op.Comment)

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// Synchronizer is the top-level run orchestration: ensure labels, read the
// tracker, plan, execute, collapse duplicates.
type Synchronizer struct {
	tracker Tracker
	exec    *Executor
	log     zerolog.Logger
	cfg     Config
}

// NewSynchronizer wires a synchronizer for one run.
func NewSynchronizer(tracker Tracker, log zerolog.Logger, cfg Config, dryRun bool) *Synchronizer {
	return &Synchronizer{
		tracker: tracker,
		exec:    NewExecutor(tracker, log, dryRun),
		log:     log,
		cfg:     cfg,
	}
}

// Run synchronizes the finding set with the tracker and returns the run
// stats. Duplicate collapse closes are folded into Stats.Closed.
func (s *Synchronizer) Run(ctx context.Context, findings []domain.Finding, rctx render.Context) (Stats, error) {
	if err := s.tracker.EnsureLabels(ctx, render.LabelSpecs(s.cfg.Label)); err != nil {
		return Stats{}, fmt.Errorf("ensuring labels: %w", err)
	}

	existing, err := s.tracker.SearchIssuesByLabel(ctx, []string{s.cfg.Label})
	if err != nil {
		return Stats{}, fmt.Errorf("listing issues: %w", err)
	}
	s.log.Info().
		Int("findings", len(findings)).
		Int("existing_issues", len(existing)).
		Msg("planning reconciliation")

	plan := BuildPlan(findings, existing, s.cfg, rctx)
	s.log.Info().
		Int("ops", len(plan.Ops)).
		Int("create", plan.Stats.Created).
		Int("update", plan.Stats.Updated).
		Int("close", plan.Stats.Closed).
		Msg("plan built")

	open, failed, err := s.exec.Apply(ctx, plan, existing)
	if err != nil {
		return plan.Stats, err
	}

	for _, op := range CollapseDuplicates(open, s.cfg.Label) {
		if err := ctx.Err(); err != nil {
			return plan.Stats, err
		}
		if err := s.exec.applyOp(ctx, op, nil); err != nil {
			failed++
			s.log.Error().Err(err).Int("issue", op.Number).Msg("duplicate collapse failed")
			continue
		}
		plan.Stats.Closed++
	}

	if failed > 0 {
		return plan.Stats, fmt.Errorf("%d operation(s): %w", failed, ErrPartialFailure)
	}
	return plan.Stats, nil
}
