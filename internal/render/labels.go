package render

import (
	"fmt"

	"github.com/vibecheck/issuesync/internal/domain"
)

// LabelSpec describes a tracker label definition for idempotent creation.
type LabelSpec struct {
	Name        string
	Color       string
	Description string
}

// Labels returns the full label set for a finding: the base label plus the
// severity, confidence, effort, layer, and tool dimensions, `autofix:safe`
// when the fix is mechanical, and `demo` for test-fixture findings.
func Labels(base string, f domain.Finding) []string {
	labels := []string{
		base,
		fmt.Sprintf("severity:%s", f.Severity),
		fmt.Sprintf("confidence:%s", f.Confidence),
		fmt.Sprintf("effort:%s", f.Effort),
		fmt.Sprintf("layer:%s", f.Layer),
		fmt.Sprintf("tool:%s", f.Tool),
	}
	if f.Autofix == domain.AutofixSafe {
		labels = append(labels, "autofix:safe")
	}
	if f.InTestFixture() {
		labels = append(labels, "demo")
	}
	return labels
}

// severityColors follow the body emoji palette.
var severityColors = map[domain.Severity]string{
	domain.SeverityCritical: "b60205",
	domain.SeverityHigh:     "d93f0b",
	domain.SeverityMedium:   "fbca04",
	domain.SeverityLow:      "0e8a16",
}

// LabelSpecs returns the label definitions the synchronizer ensures exist
// before reconciling. The set is closed over the enum dimensions, so
// EnsureLabels stays idempotent across runs.
func LabelSpecs(base string) []LabelSpec {
	specs := []LabelSpec{
		{Name: base, Color: "5319e7", Description: "Automated static-analysis finding"},
		{Name: "autofix:safe", Color: "0e8a16", Description: "A mechanical fix is available"},
		{Name: "demo", Color: "bfdadc", Description: "Finding located in test fixtures"},
	}
	for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow} {
		specs = append(specs, LabelSpec{
			Name:        fmt.Sprintf("severity:%s", sev),
			Color:       severityColors[sev],
			Description: fmt.Sprintf("%s severity finding", sev),
		})
	}
	for _, conf := range []domain.Confidence{domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow} {
		specs = append(specs, LabelSpec{
			Name:        fmt.Sprintf("confidence:%s", conf),
			Color:       "c5def5",
			Description: fmt.Sprintf("%s confidence finding", conf),
		})
	}
	for _, effort := range []domain.Effort{domain.EffortSmall, domain.EffortMedium, domain.EffortLarge} {
		specs = append(specs, LabelSpec{
			Name:        fmt.Sprintf("effort:%s", effort),
			Color:       "d4c5f9",
			Description: fmt.Sprintf("Estimated fix effort: %s", effort),
		})
	}
	for _, layer := range []domain.Layer{domain.LayerSecurity, domain.LayerArchitecture, domain.LayerCode} {
		specs = append(specs, LabelSpec{
			Name:        fmt.Sprintf("layer:%s", layer),
			Color:       "f9d0c4",
			Description: fmt.Sprintf("Finding in the %s layer", layer),
		})
	}
	for _, tool := range []domain.Tool{
		domain.ToolTrunk, domain.ToolESLint, domain.ToolTSC, domain.ToolJSCPD,
		domain.ToolDependencyCruiser, domain.ToolKnip, domain.ToolSemgrep,
		domain.ToolRuff, domain.ToolMypy, domain.ToolBandit, domain.ToolPMD,
		domain.ToolSpotBugs,
	} {
		specs = append(specs, LabelSpec{
			Name:        fmt.Sprintf("tool:%s", tool),
			Color:       "ededed",
			Description: fmt.Sprintf("Reported by %s", tool),
		})
	}
	return specs
}
