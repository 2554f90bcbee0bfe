// Package domain defines the canonical finding and issue model shared by the
// ingest, scoring, reconciliation, and rendering layers. Findings are plain
// immutable records; all lifecycle state lives in the tracker.
package domain

import "strings"

// Tool identifies the analyzer that produced a finding.
type Tool string

const (
	ToolTrunk             Tool = "trunk"
	ToolESLint            Tool = "eslint"
	ToolTSC               Tool = "tsc"
	ToolJSCPD             Tool = "jscpd"
	ToolDependencyCruiser Tool = "dependency-cruiser"
	ToolKnip              Tool = "knip"
	ToolSemgrep           Tool = "semgrep"
	ToolRuff              Tool = "ruff"
	ToolMypy              Tool = "mypy"
	ToolBandit            Tool = "bandit"
	ToolPMD               Tool = "pmd"
	ToolSpotBugs          Tool = "spotbugs"
	ToolPrettier          Tool = "prettier"
)

// Severity indicates how critical a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRanks orders severities from least to most severe. Info admits
// everything when used as a threshold.
var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordering value of the severity. Unknown severities rank
// below info.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s meets or exceeds the threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// IsValid returns true if the severity is a recognized value.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Confidence expresses how certain the analyzer is that the finding is a
// true positive.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceRanks = map[Confidence]int{
	ConfidenceLow:    0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// Rank returns the ordering value of the confidence.
func (c Confidence) Rank() int {
	if r, ok := confidenceRanks[c]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether c meets or exceeds the threshold.
func (c Confidence) AtLeast(threshold Confidence) bool {
	return c.Rank() >= threshold.Rank()
}

// IsValid returns true if the confidence is a recognized value.
func (c Confidence) IsValid() bool {
	_, ok := confidenceRanks[c]
	return ok
}

// Effort is a fix-size estimate.
type Effort string

const (
	EffortSmall  Effort = "S"
	EffortMedium Effort = "M"
	EffortLarge  Effort = "L"
)

// Layer classifies the concern area of a finding.
type Layer string

const (
	LayerSecurity     Layer = "security"
	LayerArchitecture Layer = "architecture"
	LayerCode         Layer = "code"
)

// AutofixLevel describes whether a mechanical fix is available.
type AutofixLevel string

const (
	AutofixSafe           AutofixLevel = "safe"
	AutofixRequiresReview AutofixLevel = "requires_review"
	AutofixNone           AutofixLevel = "none"
)

// Location pinpoints where a finding was detected. EndLine is zero when the
// finding covers a single line.
type Location struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine,omitempty"`
}

// Evidence carries optional supporting material for a finding. Snippet may
// contain multiple samples separated by a literal "---" line.
type Evidence struct {
	Snippet string   `json:"snippet,omitempty"`
	Links   []string `json:"links,omitempty"`
}

// SuggestedFix describes how to resolve a finding.
type SuggestedFix struct {
	Goal       string   `json:"goal"`
	Steps      []string `json:"steps"`
	Acceptance []string `json:"acceptance"`
}

// Finding is a single normalized defect report from any analyzer. It is
// immutable after construction; the fingerprint is computed once at ingest.
type Finding struct {
	Tool         Tool          `json:"tool"`
	RuleID       string        `json:"ruleId"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	Severity     Severity      `json:"severity"`
	Confidence   Confidence    `json:"confidence"`
	Effort       Effort        `json:"effort"`
	Layer        Layer         `json:"layer"`
	Autofix      AutofixLevel  `json:"autofix"`
	Locations    []Location    `json:"locations"`
	Evidence     *Evidence     `json:"evidence,omitempty"`
	SuggestedFix *SuggestedFix `json:"suggestedFix,omitempty"`
	Fingerprint  string        `json:"fingerprint"`
}

// Canonical returns the primary location of the finding. Callers must ensure
// Locations is non-empty; ingest validation enforces this.
func (f Finding) Canonical() Location {
	return f.Locations[0]
}

// IsMerged reports whether the finding represents a consolidated rule
// cluster: a plus-joined rule id, or a title produced by the consolidating
// renderer ("N issues across M files" / "(N occurrences)").
func (f Finding) IsMerged() bool {
	if strings.Contains(f.RuleID, "+") {
		return true
	}
	return strings.Contains(f.Title, "issues across") || strings.Contains(f.Title, "occurrences)")
}

// testFixtureSegments marks paths whose findings are tagged demo rather than
// being dropped, so sample repositories still exercise the full pipeline.
var testFixtureSegments = []string{"test-fixtures", "__fixtures__", "fixtures", "testdata"}

// IsTestFixturePath reports whether the path lies under a test-fixture
// directory.
func IsTestFixturePath(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		for _, fixture := range testFixtureSegments {
			if seg == fixture {
				return true
			}
		}
	}
	return false
}

// InTestFixture reports whether any location of the finding is under a
// test-fixture path.
func (f Finding) InTestFixture() bool {
	for _, loc := range f.Locations {
		if IsTestFixturePath(loc.Path) {
			return true
		}
	}
	return false
}

// CompareForSort orders findings by severity (most severe first), then
// confidence (highest first), then canonical path, then canonical start line.
// It returns a negative value when a sorts before b, matching the contract of
// slices.SortFunc.
func CompareForSort(a, b Finding) int {
	if d := b.Severity.Rank() - a.Severity.Rank(); d != 0 {
		return d
	}
	if d := b.Confidence.Rank() - a.Confidence.Rank(); d != 0 {
		return d
	}
	ap, bp := a.Canonical().Path, b.Canonical().Path
	if ap != bp {
		return strings.Compare(ap, bp)
	}
	return a.Canonical().StartLine - b.Canonical().StartLine
}
