// Package ingest decodes analyzer findings from JSON, fills in any missing
// normalized fields via the scoring tables, computes fingerprints, and
// returns findings in their deterministic processing order. All validation
// happens here, before any tracker call.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/usecase/score"
)

// rawFinding is the wire shape of one finding. Producers may report a single
// top-level location or a locations array, and may omit normalized fields in
// favor of tool-native signals.
type rawFinding struct {
	Tool       string `json:"tool"`
	RuleID     string `json:"ruleId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Confidence string `json:"confidence"`
	Effort     string `json:"effort"`
	Layer      string `json:"layer"`
	Autofix    string `json:"autofix"`

	Path      string            `json:"path"`
	StartLine int               `json:"startLine"`
	EndLine   int               `json:"endLine"`
	Locations []domain.Location `json:"locations"`

	Evidence     *domain.Evidence     `json:"evidence"`
	SuggestedFix *domain.SuggestedFix `json:"suggestedFix"`

	// Tool-native signals, consumed only when the normalized fields above
	// are absent.
	NativeSeverity   string `json:"nativeSeverity"`
	NativeConfidence string `json:"nativeConfidence"`
	Lines            int    `json:"lines"`
	Tokens           int    `json:"tokens"`
	Priority         int    `json:"priority"`
	Rank             int    `json:"rank"`
	Category         string `json:"category"`
	ConfidenceNum    int    `json:"confidenceNum"`
	Fixable          bool   `json:"fixable"`
}

// ParseFindings decodes a JSON array of findings and normalizes each one.
// Any malformed element is a fatal input error.
func ParseFindings(r io.Reader) ([]domain.Finding, error) {
	var raw []rawFinding
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed findings JSON: %w", err)
	}

	findings := make([]domain.Finding, 0, len(raw))
	for i, rf := range raw {
		f, err := normalize(rf)
		if err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		findings = append(findings, f)
	}

	slices.SortStableFunc(findings, domain.CompareForSort)
	return findings, nil
}

func normalize(rf rawFinding) (domain.Finding, error) {
	tool := domain.Tool(strings.ToLower(strings.TrimSpace(rf.Tool)))
	if tool == "" {
		return domain.Finding{}, fmt.Errorf("missing tool")
	}
	if rf.RuleID == "" {
		return domain.Finding{}, fmt.Errorf("missing ruleId")
	}

	locations := rf.Locations
	if len(locations) == 0 && rf.Path != "" {
		locations = []domain.Location{{Path: rf.Path, StartLine: rf.StartLine, EndLine: rf.EndLine}}
	}
	if len(locations) == 0 {
		return domain.Finding{}, fmt.Errorf("missing location")
	}
	for _, loc := range locations {
		if loc.Path == "" {
			return domain.Finding{}, fmt.Errorf("location with empty path")
		}
		if loc.StartLine < 1 {
			return domain.Finding{}, fmt.Errorf("location %s with invalid startLine %d", loc.Path, loc.StartLine)
		}
	}

	in := score.Input{
		Tool:             tool,
		RuleID:           rf.RuleID,
		NativeSeverity:   rf.NativeSeverity,
		NativeConfidence: rf.NativeConfidence,
		Lines:            rf.Lines,
		Tokens:           rf.Tokens,
		Priority:         rf.Priority,
		Rank:             rf.Rank,
		Category:         rf.Category,
		Confidence:       rf.ConfidenceNum,
		LocationCount:    len(locations),
		HasFix:           rf.Fixable,
	}

	severity := domain.Severity(strings.ToLower(rf.Severity))
	confidence := domain.Confidence(strings.ToLower(rf.Confidence))
	if !severity.IsValid() || !confidence.IsValid() {
		scoredSev, scoredConf := score.Severity(in)
		if !severity.IsValid() {
			severity = scoredSev
		}
		if !confidence.IsValid() {
			confidence = scoredConf
		}
	}

	autofix := parseAutofix(rf.Autofix)
	if autofix == "" {
		autofix = score.Autofix(in)
	}
	layer := parseLayer(rf.Layer)
	if layer == "" {
		layer = score.Layer(tool, rf.RuleID)
	}
	effort := parseEffort(rf.Effort)
	if effort == "" {
		effort = score.EffortFor(in, autofix)
	}

	title := strings.TrimSpace(rf.Title)
	if title == "" {
		title = fmt.Sprintf("%s: %s", tool, rf.RuleID)
	}

	canonical := locations[0]
	f := domain.Finding{
		Tool:         tool,
		RuleID:       rf.RuleID,
		Title:        title,
		Message:      rf.Message,
		Severity:     severity,
		Confidence:   confidence,
		Effort:       effort,
		Layer:        layer,
		Autofix:      autofix,
		Locations:    locations,
		Evidence:     rf.Evidence,
		SuggestedFix: rf.SuggestedFix,
	}
	f.Fingerprint = domain.ComputeFingerprint(tool, rf.RuleID, canonical.Path, canonical.StartLine, rf.Message)
	return f, nil
}

func parseAutofix(s string) domain.AutofixLevel {
	switch domain.AutofixLevel(strings.ToLower(s)) {
	case domain.AutofixSafe:
		return domain.AutofixSafe
	case domain.AutofixRequiresReview:
		return domain.AutofixRequiresReview
	case domain.AutofixNone:
		return domain.AutofixNone
	default:
		return ""
	}
}

func parseLayer(s string) domain.Layer {
	switch domain.Layer(strings.ToLower(s)) {
	case domain.LayerSecurity:
		return domain.LayerSecurity
	case domain.LayerArchitecture:
		return domain.LayerArchitecture
	case domain.LayerCode:
		return domain.LayerCode
	default:
		return ""
	}
}

func parseEffort(s string) domain.Effort {
	switch domain.Effort(strings.ToUpper(s)) {
	case domain.EffortSmall:
		return domain.EffortSmall
	case domain.EffortMedium:
		return domain.EffortMedium
	case domain.EffortLarge:
		return domain.EffortLarge
	default:
		return ""
	}
}

// rawContext is the wire shape of the run-context document.
type rawContext struct {
	Repo struct {
		Host   string `json:"host"`
		Owner  string `json:"owner"`
		Name   string `json:"name"`
		Commit string `json:"commit"`
	} `json:"repo"`
	RunNumber int `json:"runNumber"`
}

// ParseRunContext decodes the run-context document. Owner, name, and a
// positive run number are required; host defaults to github.com. The commit
// may be filled in later from the local repository.
func ParseRunContext(r io.Reader) (domain.RunContext, error) {
	var raw rawContext
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return domain.RunContext{}, fmt.Errorf("malformed run context JSON: %w", err)
	}

	if raw.Repo.Owner == "" || raw.Repo.Name == "" {
		return domain.RunContext{}, fmt.Errorf("run context missing repo owner or name")
	}
	if raw.RunNumber < 1 {
		return domain.RunContext{}, fmt.Errorf("run context missing runNumber")
	}
	host := raw.Repo.Host
	if host == "" {
		host = "github.com"
	}

	return domain.RunContext{
		Repo: domain.Repo{
			Host:   host,
			Owner:  raw.Repo.Owner,
			Name:   raw.Repo.Name,
			Commit: raw.Repo.Commit,
		},
		RunNumber: raw.RunNumber,
	}, nil
}
