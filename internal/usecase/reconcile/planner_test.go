package reconcile_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/render"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

func planConfig() reconcile.Config {
	return reconcile.Config{
		Label:               "vibeCheck",
		MaxNewPerRun:        25,
		SeverityThreshold:   domain.SeverityLow,
		ConfidenceThreshold: domain.ConfidenceLow,
		CloseResolved:       true,
	}
}

func planContext(runNumber int) render.Context {
	return render.Context{
		Repo: domain.Repo{
			Host: "github.com", Owner: "acme", Name: "widgets",
			Commit: "0123456789abcdef0123456789abcdef01234567",
		},
		RunNumber:    runNumber,
		Label:        "vibeCheck",
		BranchPrefix: "vibecheck",
		Now:          time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func newFinding(tool domain.Tool, ruleID, path string, line int, message string) domain.Finding {
	return domain.Finding{
		Tool:        tool,
		RuleID:      ruleID,
		Title:       string(tool) + ": " + ruleID,
		Message:     message,
		Severity:    domain.SeverityMedium,
		Confidence:  domain.ConfidenceHigh,
		Effort:      domain.EffortSmall,
		Layer:       domain.LayerCode,
		Locations:   []domain.Location{{Path: path, StartLine: line}},
		Fingerprint: domain.ComputeFingerprint(tool, ruleID, path, line, message),
	}
}

func trackedIssue(number int, state domain.IssueState, title, fingerprint string, lastSeen int) domain.ExistingIssue {
	return domain.ExistingIssue{
		Number: number,
		State:  state,
		Title:  title,
		Metadata: &domain.IssueMetadata{
			Fingerprint: fingerprint,
			LastSeenRun: lastSeen,
		},
	}
}

func opsOfKind(plan reconcile.Plan, kind reconcile.OpKind) []reconcile.Op {
	var out []reconcile.Op
	for _, op := range plan.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func TestBuildPlan_CreatesNewIssue(t *testing.T) {
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")

	plan := reconcile.BuildPlan([]domain.Finding{f}, nil, planConfig(), planContext(1))

	if plan.Stats.Created != 1 || plan.Stats.Updated != 0 {
		t.Fatalf("stats = %+v, want one creation", plan.Stats)
	}
	creates := opsOfKind(plan, reconcile.OpCreate)
	if len(creates) != 1 {
		t.Fatalf("expected 1 create op, got %d", len(creates))
	}
	op := creates[0]
	if !strings.HasPrefix(op.Title, "[vibeCheck] ") {
		t.Errorf("title %q missing label prefix", op.Title)
	}
	if op.Fingerprint != f.Fingerprint {
		t.Errorf("op fingerprint = %q, want %q", op.Fingerprint, f.Fingerprint)
	}
	if !strings.Contains(op.Body, f.Fingerprint) {
		t.Error("create body missing the fingerprint marker")
	}
}

func TestBuildPlan_UpdatesMatchedIssue(t *testing.T) {
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	existing := []domain.ExistingIssue{
		trackedIssue(17, domain.IssueOpen, "[vibeCheck] eslint: no-unused-vars in a.ts", f.Fingerprint, 4),
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(5))

	if plan.Stats.Updated != 1 || plan.Stats.Created != 0 || plan.Stats.Closed != 0 {
		t.Fatalf("stats = %+v, want one update", plan.Stats)
	}
	updates := opsOfKind(plan, reconcile.OpUpdate)
	if len(updates) != 1 || updates[0].Number != 17 {
		t.Fatalf("expected update of issue 17, got %+v", updates)
	}
}

func TestBuildPlan_LineDriftWithinBucketStillMatches(t *testing.T) {
	// Lines 42 and 48 share a fingerprint bucket, so the drifted finding
	// updates the original issue instead of opening a second one.
	old := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	drifted := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 48, "unused")
	existing := []domain.ExistingIssue{
		trackedIssue(17, domain.IssueOpen, "[vibeCheck] eslint: no-unused-vars in a.ts", old.Fingerprint, 4),
	}

	plan := reconcile.BuildPlan([]domain.Finding{drifted}, existing, planConfig(), planContext(5))

	if plan.Stats.Updated != 1 || plan.Stats.Created != 0 {
		t.Fatalf("stats = %+v, want one update and no creations", plan.Stats)
	}
}

func TestBuildPlan_LineDriftAcrossBucketCreatesAndKeepsOriginal(t *testing.T) {
	// Line 61 lands in a new bucket. The drifted finding is created fresh,
	// but flap protection holds the original open with a grace comment.
	old := newFinding(domain.ToolTSC, "TS2304", "src/a.ts", 42, "cannot find name")
	drifted := newFinding(domain.ToolTSC, "TS2304", "src/b.ts", 61, "cannot find name")
	existing := []domain.ExistingIssue{
		trackedIssue(17, domain.IssueOpen, "[vibeCheck] some title without a rule shape", old.Fingerprint, 5),
	}

	plan := reconcile.BuildPlan([]domain.Finding{drifted}, existing, planConfig(), planContext(6))

	if plan.Stats.Created != 1 || plan.Stats.Closed != 0 {
		t.Fatalf("stats = %+v, want one creation and no closures", plan.Stats)
	}
	comments := opsOfKind(plan, reconcile.OpComment)
	if len(comments) != 1 || comments[0].Number != 17 {
		t.Fatalf("expected a grace comment on issue 17, got %+v", comments)
	}
	if !strings.Contains(comments[0].Comment, "closed automatically after 2 more") {
		t.Errorf("grace comment = %q", comments[0].Comment)
	}
}

func TestBuildPlan_MaxNewCap(t *testing.T) {
	var findings []domain.Finding
	for i := 0; i < 40; i++ {
		findings = append(findings, newFinding(domain.ToolESLint, "semi", "src/a.ts", 1+i*20, "missing semicolon"))
	}

	plan := reconcile.BuildPlan(findings, nil, planConfig(), planContext(1))

	if plan.Stats.Created != 25 {
		t.Errorf("Created = %d, want 25", plan.Stats.Created)
	}
	if plan.Stats.SkippedMaxReached != 15 {
		t.Errorf("SkippedMaxReached = %d, want 15", plan.Stats.SkippedMaxReached)
	}
}

func TestBuildPlan_FlapClosureAfterThreeAbsentRuns(t *testing.T) {
	existing := []domain.ExistingIssue{
		trackedIssue(9, domain.IssueOpen, "[vibeCheck] eslint: semi in a.ts", "sha256:dead", 10),
	}

	plan := reconcile.BuildPlan(nil, existing, planConfig(), planContext(13))

	if plan.Stats.Closed != 1 {
		t.Fatalf("stats = %+v, want one closure", plan.Stats)
	}
	closes := opsOfKind(plan, reconcile.OpClose)
	if len(closes) != 1 || closes[0].Number != 9 {
		t.Fatalf("expected closure of issue 9, got %+v", closes)
	}
	if !strings.Contains(closes[0].Comment, "not detected for 3 consecutive runs") {
		t.Errorf("close comment = %q", closes[0].Comment)
	}
}

func TestBuildPlan_GraceCommentBeforeFlapWindow(t *testing.T) {
	existing := []domain.ExistingIssue{
		trackedIssue(9, domain.IssueOpen, "[vibeCheck] eslint: semi in a.ts", "sha256:dead", 11),
	}

	plan := reconcile.BuildPlan(nil, existing, planConfig(), planContext(13))

	if plan.Stats.Closed != 0 {
		t.Fatalf("stats = %+v, want no closures inside the flap window", plan.Stats)
	}
	comments := opsOfKind(plan, reconcile.OpComment)
	if len(comments) != 1 {
		t.Fatalf("expected a grace comment, got ops %+v", plan.Ops)
	}
}

func TestBuildPlan_ClosedIssueIsNeverReopened(t *testing.T) {
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	existing := []domain.ExistingIssue{
		trackedIssue(17, domain.IssueClosed, "[vibeCheck] eslint: no-unused-vars in a.ts", f.Fingerprint, 4),
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(5))

	if len(plan.Ops) != 0 {
		t.Fatalf("expected no ops against a manually closed issue, got %+v", plan.Ops)
	}
	if plan.Stats.SkippedDuplicate != 1 {
		t.Errorf("SkippedDuplicate = %d, want 1", plan.Stats.SkippedDuplicate)
	}
}

func TestBuildPlan_ThresholdFilter(t *testing.T) {
	low := newFinding(domain.ToolESLint, "semi", "src/a.ts", 1, "style")
	low.Severity = domain.SeverityLow
	high := newFinding(domain.ToolTSC, "TS2304", "src/b.ts", 1, "cannot find name")
	high.Severity = domain.SeverityHigh

	cfg := planConfig()
	cfg.SeverityThreshold = domain.SeverityMedium

	plan := reconcile.BuildPlan([]domain.Finding{low, high}, nil, cfg, planContext(1))

	if plan.Stats.Created != 1 || plan.Stats.SkippedBelowThreshold != 1 {
		t.Errorf("stats = %+v, want 1 created and 1 below threshold", plan.Stats)
	}
}

func TestBuildPlan_ToolRuleFallbackMatch(t *testing.T) {
	// The issue predates fingerprint markers but its title still names the
	// tool and rule, so the finding updates it instead of duplicating it.
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	existing := []domain.ExistingIssue{
		{Number: 3, State: domain.IssueOpen, Title: "[vibeCheck] eslint: no-unused-vars in a.ts"},
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(5))

	if plan.Stats.Updated != 1 || plan.Stats.Created != 0 {
		t.Fatalf("stats = %+v, want a fallback update", plan.Stats)
	}
	if plan.Ops[0].Number != 3 {
		t.Errorf("updated issue %d, want 3", plan.Ops[0].Number)
	}
}

func TestBuildPlan_FallbackRekeyProtectsFromFlapClosure(t *testing.T) {
	// The stored fingerprint is stale, but the title matches by tool/rule.
	// After re-keying, the stale fingerprint counts as seen so the issue is
	// updated once and never also flap-processed.
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "reworded message")
	existing := []domain.ExistingIssue{
		trackedIssue(3, domain.IssueOpen, "[vibeCheck] eslint: no-unused-vars in a.ts", "sha256:stale", 1),
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(10))

	if plan.Stats.Updated != 1 || plan.Stats.Closed != 0 {
		t.Fatalf("stats = %+v, want one update and no closure", plan.Stats)
	}
	if len(plan.Ops) != 1 {
		t.Fatalf("expected exactly one op, got %+v", plan.Ops)
	}
}

func TestBuildPlan_SublinterFallbackMatch(t *testing.T) {
	f := newFinding(domain.ToolTrunk, "line-length", "docs/a.yaml", 3, "line too long")
	f.Title = "yamllint: 14 issues across 3 files"
	f.RuleID = "line-length+trailing-spaces"
	existing := []domain.ExistingIssue{
		{Number: 8, State: domain.IssueOpen, Title: "[vibeCheck] yamllint: line-length in a.yaml"},
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(2))

	if plan.Stats.Updated != 1 || plan.Stats.Created != 0 {
		t.Fatalf("stats = %+v, want a sublinter fallback update", plan.Stats)
	}
	if plan.Ops[0].Number != 8 {
		t.Errorf("updated issue %d, want 8", plan.Ops[0].Number)
	}
}

func TestBuildPlan_OpenIssueDisplacesClosedInIndex(t *testing.T) {
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	existing := []domain.ExistingIssue{
		{Number: 2, State: domain.IssueClosed, Title: "[vibeCheck] eslint: no-unused-vars in a.ts"},
		{Number: 6, State: domain.IssueOpen, Title: "[vibeCheck] eslint: no-unused-vars in a.ts"},
	}

	plan := reconcile.BuildPlan([]domain.Finding{f}, existing, planConfig(), planContext(5))

	if plan.Stats.Updated != 1 {
		t.Fatalf("stats = %+v, want one update", plan.Stats)
	}
	if plan.Ops[0].Number != 6 {
		t.Errorf("matched issue %d, want the open issue 6", plan.Ops[0].Number)
	}
}

func TestBuildPlan_Supersession(t *testing.T) {
	merged := newFinding(domain.ToolTrunk, "line-length+trailing-spaces", "docs/a.yaml", 3, "consolidated")
	merged.Title = "yamllint: 14 issues across 3 files"

	// The merged finding absorbs issue 4 through the sublinter index; the
	// remaining per-rule issue 5 is superseded.
	existing := []domain.ExistingIssue{
		trackedIssue(4, domain.IssueOpen, "[vibeCheck] yamllint: trailing-spaces in b.yaml", "sha256:old1", 1),
		trackedIssue(5, domain.IssueOpen, "[vibeCheck] yamllint: document-start in c.yaml", "sha256:old2", 1),
	}

	plan := reconcile.BuildPlan([]domain.Finding{merged}, existing, planConfig(), planContext(2))

	if plan.Stats.Updated != 1 {
		t.Fatalf("stats = %+v, want the merged finding to update one issue", plan.Stats)
	}
	closes := opsOfKind(plan, reconcile.OpClose)
	if len(closes) != 1 || closes[0].Number != 5 {
		t.Fatalf("expected supersession closure of issue 5, got %+v", closes)
	}
	if !strings.Contains(closes[0].Comment, "Superseded") {
		t.Errorf("close comment = %q", closes[0].Comment)
	}
	if plan.Stats.Closed != 1 {
		t.Errorf("Closed = %d, want 1", plan.Stats.Closed)
	}
	// Issue 5 is still inside the flap window, so it collects the grace
	// comment before the supersession closes it.
	comments := opsOfKind(plan, reconcile.OpComment)
	if len(comments) != 1 || comments[0].Number != 5 {
		t.Errorf("expected a grace comment on issue 5, got %+v", comments)
	}
}

func TestBuildPlan_FlapClosureWinsOverSupersession(t *testing.T) {
	merged := newFinding(domain.ToolTrunk, "line-length+trailing-spaces", "docs/a.yaml", 3, "consolidated")
	merged.Title = "yamllint: 14 issues across 3 files"

	// Issue 4 carries the merged finding's fingerprint, so the sublinter
	// fallback never runs. Issue 5 has been absent for three runs: the flap
	// pass closes it first and the supersession pass must leave it alone.
	existing := []domain.ExistingIssue{
		trackedIssue(4, domain.IssueOpen, "[vibeCheck] yamllint: trailing-spaces in b.yaml", merged.Fingerprint, 12),
		trackedIssue(5, domain.IssueOpen, "[vibeCheck] yamllint: document-start in c.yaml", "sha256:gone", 10),
	}

	plan := reconcile.BuildPlan([]domain.Finding{merged}, existing, planConfig(), planContext(13))

	closes := opsOfKind(plan, reconcile.OpClose)
	if len(closes) != 1 || closes[0].Number != 5 {
		t.Fatalf("expected a single closure of issue 5, got %+v", closes)
	}
	if !strings.Contains(closes[0].Comment, "not detected for 3 consecutive runs") {
		t.Errorf("close comment = %q, want the resolved-finding closure", closes[0].Comment)
	}
	if strings.Contains(closes[0].Comment, "Superseded") {
		t.Errorf("close comment = %q, supersession overrode the resolved closure", closes[0].Comment)
	}
	if plan.Stats.Closed != 1 {
		t.Errorf("Closed = %d, want 1", plan.Stats.Closed)
	}
}

func TestBuildPlan_Idempotent(t *testing.T) {
	// Running the same plan twice against a tracker that already reflects it
	// must produce updates only, never new creations or closures.
	f := newFinding(domain.ToolESLint, "no-unused-vars", "src/a.ts", 42, "unused")
	rctx := planContext(5)

	first := reconcile.BuildPlan([]domain.Finding{f}, nil, planConfig(), rctx)
	if first.Stats.Created != 1 {
		t.Fatalf("bootstrap run stats = %+v", first.Stats)
	}

	applied := []domain.ExistingIssue{{
		Number:   21,
		State:    domain.IssueOpen,
		Title:    first.Ops[0].Title,
		Metadata: &domain.IssueMetadata{Fingerprint: f.Fingerprint, LastSeenRun: 5},
	}}
	second := reconcile.BuildPlan([]domain.Finding{f}, applied, planConfig(), rctx)

	if second.Stats.Created != 0 || second.Stats.Closed != 0 || second.Stats.Updated != 1 {
		t.Errorf("second run stats = %+v, want a single update", second.Stats)
	}
}

func TestCollapseDuplicates(t *testing.T) {
	open := []domain.ExistingIssue{
		{Number: 3, State: domain.IssueOpen, Title: "[vibeCheck] eslint: semi in a.ts"},
		{Number: 9, State: domain.IssueOpen, Title: "[vibeCheck] eslint: semi in b.ts +1 more"},
		{Number: 5, State: domain.IssueOpen, Title: "[vibeCheck] eslint: semi (4 occurrences)"},
		{Number: 7, State: domain.IssueOpen, Title: "[vibeCheck] tsc: TS2304 in c.ts"},
	}

	ops := reconcile.CollapseDuplicates(open, "vibeCheck")

	if len(ops) != 2 {
		t.Fatalf("expected 2 close ops, got %+v", ops)
	}
	for _, op := range ops {
		if op.Kind != reconcile.OpClose {
			t.Errorf("op kind = %s, want close", op.Kind)
		}
		if op.Number != 3 && op.Number != 5 {
			t.Errorf("closed issue %d, want 3 and 5 (keeper is 9)", op.Number)
		}
		if !strings.Contains(op.Comment, "Duplicate of #9") {
			t.Errorf("comment = %q, want reference to keeper #9", op.Comment)
		}
	}
}

func TestCollapseDuplicates_NoDuplicates(t *testing.T) {
	open := []domain.ExistingIssue{
		{Number: 1, State: domain.IssueOpen, Title: "[vibeCheck] eslint: semi in a.ts"},
		{Number: 2, State: domain.IssueOpen, Title: "[vibeCheck] tsc: TS2304 in b.ts"},
	}

	if ops := reconcile.CollapseDuplicates(open, "vibeCheck"); len(ops) != 0 {
		t.Errorf("expected no ops, got %+v", ops)
	}
}
