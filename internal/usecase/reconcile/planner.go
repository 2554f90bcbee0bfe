package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/render"
)

// knownSublinters are the component linters hosted by the trunk meta-linter
// whose issues participate in sublinter fallback matching. The bare "osv"
// entry covers osv-scanner titles, whose hyphen stops the word-token parse.
var knownSublinters = map[string]bool{
	"yamllint":     true,
	"markdownlint": true,
	"checkov":      true,
	"osv-scanner":  true,
	"osv":          true,
	"prettier":     true,
}

// indexes are the layered lookup tables probed during matching: primary
// fingerprint, then tool/rule parsed from titles, then trunk sublinter.
type indexes struct {
	byFingerprint map[string]*domain.ExistingIssue
	byToolRule    map[string]*domain.ExistingIssue
	bySublinter   map[string]*domain.ExistingIssue
}

func toolRuleKey(tool, rule string) string {
	return strings.ToLower(tool) + "\x00" + strings.ToLower(rule)
}

// setPreferOpen records an index entry, letting an open issue displace a
// closed one but never the reverse. Among issues of equal state the lowest
// issue number wins because construction scans in ascending order.
func setPreferOpen(m map[string]*domain.ExistingIssue, key string, issue *domain.ExistingIssue) {
	if key == "" {
		return
	}
	current, ok := m[key]
	if !ok || (!current.IsOpen() && issue.IsOpen()) {
		m[key] = issue
	}
}

// buildIndexes scans the existing issues once, in ascending issue-number
// order, and populates all three lookup tables.
func buildIndexes(existing []*domain.ExistingIssue) indexes {
	idx := indexes{
		byFingerprint: make(map[string]*domain.ExistingIssue),
		byToolRule:    make(map[string]*domain.ExistingIssue),
		bySublinter:   make(map[string]*domain.ExistingIssue),
	}
	for _, issue := range existing {
		if issue.Metadata != nil {
			setPreferOpen(idx.byFingerprint, issue.Metadata.Fingerprint, issue)
		}
		tool, rule, ok := render.ParseSingleRuleTitle(issue.Title)
		if !ok {
			continue
		}
		setPreferOpen(idx.byToolRule, toolRuleKey(tool, rule), issue)
		if knownSublinters[tool] {
			setPreferOpen(idx.bySublinter, tool, issue)
		}
	}
	return idx
}

// BuildPlan is the pure reconciliation transform: given the deduplicated
// findings, the tracker's existing issues, the policy, and the render
// context, it emits the deterministic operation sequence for this run.
// Duplicate collapse is excluded; it runs post-execution once created issue
// numbers exist (see CollapseDuplicates).
func BuildPlan(findings []domain.Finding, existing []domain.ExistingIssue, cfg Config, rctx render.Context) Plan {
	var plan Plan

	// Stable scan order for index construction and the post passes.
	sorted := make([]*domain.ExistingIssue, len(existing))
	for i := range existing {
		sorted[i] = &existing[i]
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	idx := buildIndexes(sorted)
	seen := make(map[string]bool)
	closedInPlan := make(map[int]bool)

	// Threshold filter.
	kept := findings[:0:0]
	for _, f := range findings {
		if !f.Severity.AtLeast(cfg.SeverityThreshold) || !f.Confidence.AtLeast(cfg.ConfidenceThreshold) {
			plan.Stats.SkippedBelowThreshold++
			continue
		}
		kept = append(kept, f)
	}

	for _, f := range kept {
		seen[f.Fingerprint] = true

		issue := idx.byFingerprint[f.Fingerprint]
		if issue == nil {
			issue = idx.byToolRule[toolRuleKey(string(f.Tool), f.RuleID)]
			if issue == nil && f.Tool == domain.ToolTrunk {
				issue = idx.bySublinter[render.SublinterToken(f.Title)]
			}
			if issue != nil {
				// Re-key the matched issue under the current fingerprint and
				// keep its prior fingerprint out of the resolved set.
				idx.byFingerprint[f.Fingerprint] = issue
				if issue.Metadata != nil {
					seen[issue.Metadata.Fingerprint] = true
				}
			}
		}

		if issue != nil {
			if !issue.IsOpen() {
				// Manually closed issues stay closed.
				plan.Stats.SkippedDuplicate++
				continue
			}
			plan.Ops = append(plan.Ops, Op{
				Kind:        OpUpdate,
				Number:      issue.Number,
				Title:       render.Title(cfg.Label, f),
				Body:        render.Body(rctx, f),
				Labels:      render.Labels(cfg.Label, f),
				Fingerprint: f.Fingerprint,
			})
			plan.Stats.Updated++
			continue
		}

		if plan.Stats.Created >= cfg.MaxNewPerRun {
			plan.Stats.SkippedMaxReached++
			continue
		}
		plan.Ops = append(plan.Ops, Op{
			Kind:        OpCreate,
			Title:       render.Title(cfg.Label, f),
			Body:        render.Body(rctx, f),
			Labels:      render.Labels(cfg.Label, f),
			Assignees:   cfg.Assignees,
			Fingerprint: f.Fingerprint,
		})
		plan.Stats.Created++
	}

	if cfg.CloseResolved {
		// Flap closures first, then supersessions. closedInPlan keeps each
		// issue to at most one close across the passes.
		planFlapClosures(&plan, sorted, seen, closedInPlan, rctx.RunNumber)
		planSupersessions(&plan, sorted, kept, seen, closedInPlan)
	}

	return plan
}

// planFlapClosures closes issues whose finding has been absent for at least
// FlapProtectionRuns runs and leaves a grace comment on the rest.
func planFlapClosures(plan *Plan, existing []*domain.ExistingIssue, seen map[string]bool, closedInPlan map[int]bool, runNumber int) {
	for _, issue := range existing {
		if !issue.IsOpen() || issue.Metadata == nil || closedInPlan[issue.Number] {
			continue
		}
		if seen[issue.Metadata.Fingerprint] {
			continue
		}

		misses := runNumber - issue.Metadata.LastSeenRun
		if misses >= FlapProtectionRuns {
			plan.Ops = append(plan.Ops, Op{
				Kind:   OpClose,
				Number: issue.Number,
				Comment: fmt.Sprintf("✅ This finding was not detected for %d consecutive runs and appears to be resolved. Closing.",
					misses),
			})
			plan.Stats.Closed++
			closedInPlan[issue.Number] = true
			continue
		}
		plan.Ops = append(plan.Ops, Op{
			Kind:   OpComment,
			Number: issue.Number,
			Comment: fmt.Sprintf("This finding was not detected in run %d. It will be closed automatically after %d more absent run(s).",
				runNumber, FlapProtectionRuns-misses),
		})
	}
}

// planSupersessions closes single-rule issues whose sublinter now reports a
// merged, consolidated finding.
func planSupersessions(plan *Plan, existing []*domain.ExistingIssue, findings []domain.Finding, seen map[string]bool, closedInPlan map[int]bool) {
	// Sublinters with a merged finding in the current run.
	merged := make(map[string]bool)
	for _, f := range findings {
		if f.Tool == domain.ToolTrunk && f.IsMerged() {
			merged[render.SublinterToken(f.Title)] = true
		}
	}
	if len(merged) == 0 {
		return
	}

	for _, issue := range existing {
		if !issue.IsOpen() || closedInPlan[issue.Number] {
			continue
		}
		if issue.Metadata != nil && seen[issue.Metadata.Fingerprint] {
			continue
		}
		tool, _, ok := render.ParseSingleRuleTitle(issue.Title)
		if !ok || !merged[tool] {
			continue
		}
		plan.Ops = append(plan.Ops, Op{
			Kind:   OpClose,
			Number: issue.Number,
			Comment: fmt.Sprintf("Superseded: %s findings are now consolidated into a single issue. Closing this per-rule issue.",
				tool),
		})
		plan.Stats.Closed++
		closedInPlan[issue.Number] = true
	}
}

// CollapseDuplicates returns close operations for open issues that share a
// normalized title, keeping the highest-numbered issue in each group. It is
// invoked after plan execution so freshly created issues participate with
// their real numbers.
func CollapseDuplicates(open []domain.ExistingIssue, label string) []Op {
	groups := make(map[string][]domain.ExistingIssue)
	var order []string
	for _, issue := range open {
		key := render.NormalizeTitle(label, issue.Title)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], issue)
	}
	sort.Strings(order)

	var ops []Op
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Number > group[j].Number })
		keeper := group[0]
		for _, dup := range group[1:] {
			ops = append(ops, Op{
				Kind:    OpClose,
				Number:  dup.Number,
				Comment: fmt.Sprintf("Duplicate of #%d. Closing in favor of the most recent issue.", keeper.Number),
			})
		}
	}
	return ops
}
