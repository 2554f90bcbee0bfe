// Package score normalizes tool-native severity and confidence signals into
// the shared finding model. Every function here is pure and total: any
// combination of inputs yields a usable result, with conservative defaults
// for unrecognized rules.
package score

import (
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
)

// Input carries the tool-native signals consumed by the scoring functions.
// Fields that a tool does not report are left at their zero value.
type Input struct {
	Tool             domain.Tool
	RuleID           string
	NativeSeverity   string
	NativeConfidence string

	// jscpd duplication metrics.
	Lines  int
	Tokens int

	// pmd priority (1 = most severe).
	Priority int

	// spotbugs rank (1..20, lower is worse), category, and numeric
	// confidence (1 = high).
	Rank       int
	Category   string
	Confidence int

	LocationCount int
	HasFix        bool
}

// Severity maps tool-native signals to the normalized severity and
// confidence pair.
func Severity(in Input) (domain.Severity, domain.Confidence) {
	switch in.Tool {
	case domain.ToolTSC:
		return domain.SeverityHigh, domain.ConfidenceHigh
	case domain.ToolJSCPD:
		return jscpdSeverity(in.Lines, in.Tokens), domain.ConfidenceHigh
	case domain.ToolDependencyCruiser:
		return depCruiserSeverity(in.RuleID)
	case domain.ToolKnip:
		return knipSeverity(in.RuleID)
	case domain.ToolSemgrep:
		return semgrepSeverity(in.NativeSeverity, in.NativeConfidence)
	case domain.ToolRuff:
		return ruffSeverity(in.RuleID)
	case domain.ToolMypy:
		return mypySeverity(in.RuleID), domain.ConfidenceHigh
	case domain.ToolBandit:
		return banditSeverity(in.NativeSeverity), banditConfidence(in.NativeConfidence)
	case domain.ToolPMD:
		return pmdSeverity(in.Priority), pmdConfidence(in.Category)
	case domain.ToolSpotBugs:
		return spotbugsSeverity(in.Category, in.Rank), spotbugsConfidence(in.Confidence)
	case domain.ToolESLint:
		return eslintSeverity(in.NativeSeverity)
	default:
		return passthroughSeverity(in.NativeSeverity, in.NativeConfidence)
	}
}

func jscpdSeverity(lines, tokens int) domain.Severity {
	switch {
	case lines >= 50 || tokens >= 500:
		return domain.SeverityHigh
	case lines >= 20 || tokens >= 200:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func depCruiserSeverity(ruleID string) (domain.Severity, domain.Confidence) {
	rule := strings.ToLower(ruleID)
	switch {
	case strings.Contains(rule, "cycle"), strings.Contains(rule, "not-allowed"), strings.Contains(rule, "forbidden"):
		return domain.SeverityHigh, domain.ConfidenceHigh
	case strings.Contains(rule, "orphan"), strings.Contains(rule, "reachable"):
		return domain.SeverityMedium, domain.ConfidenceMedium
	default:
		return domain.SeverityMedium, domain.ConfidenceMedium
	}
}

func knipSeverity(ruleID string) (domain.Severity, domain.Confidence) {
	switch strings.ToLower(ruleID) {
	case "dependencies", "devdependencies":
		return domain.SeverityHigh, domain.ConfidenceHigh
	case "exports":
		return domain.SeverityMedium, domain.ConfidenceMedium
	case "files":
		return domain.SeverityMedium, domain.ConfidenceHigh
	default:
		return domain.SeverityMedium, domain.ConfidenceMedium
	}
}

func semgrepSeverity(nativeSeverity, nativeConfidence string) (domain.Severity, domain.Confidence) {
	return passthroughSeverity(nativeSeverity, nativeConfidence)
}

// passthroughSeverity accepts already-normalized values and falls back to a
// conservative medium/medium default.
func passthroughSeverity(nativeSeverity, nativeConfidence string) (domain.Severity, domain.Confidence) {
	sev := domain.Severity(strings.ToLower(nativeSeverity))
	if !sev.IsValid() || sev == domain.SeverityInfo {
		sev = domain.SeverityMedium
	}
	conf := domain.Confidence(strings.ToLower(nativeConfidence))
	if !conf.IsValid() {
		conf = domain.ConfidenceMedium
	}
	return sev, conf
}

func ruffSeverity(ruleID string) (domain.Severity, domain.Confidence) {
	rule := strings.ToUpper(ruleID)
	switch {
	case strings.HasPrefix(rule, "E9"):
		return domain.SeverityCritical, domain.ConfidenceHigh
	case strings.HasPrefix(rule, "F4"), strings.HasPrefix(rule, "F8"):
		return domain.SeverityHigh, domain.ConfidenceHigh
	case strings.HasPrefix(rule, "S"):
		return domain.SeverityHigh, domain.ConfidenceMedium
	case strings.HasPrefix(rule, "E"), strings.HasPrefix(rule, "F"):
		return domain.SeverityHigh, domain.ConfidenceHigh
	case strings.HasPrefix(rule, "W"):
		return domain.SeverityMedium, domain.ConfidenceMedium
	case strings.HasPrefix(rule, "N"), strings.HasPrefix(rule, "D"):
		return domain.SeverityLow, domain.ConfidenceLow
	case strings.HasPrefix(rule, "C"):
		return domain.SeverityLow, domain.ConfidenceMedium
	case strings.HasPrefix(rule, "B"):
		return domain.SeverityMedium, domain.ConfidenceMedium
	default:
		return domain.SeverityMedium, domain.ConfidenceMedium
	}
}

// mypyImportCodes are error codes raised by unresolved or untyped imports.
var mypyImportCodes = map[string]bool{
	"import":           true,
	"import-not-found": true,
	"import-untyped":   true,
	"no-redef":         true,
}

func mypySeverity(ruleID string) domain.Severity {
	rule := strings.ToLower(ruleID)
	switch {
	case mypyImportCodes[rule]:
		return domain.SeverityMedium
	case rule == "note" || strings.HasPrefix(rule, "note-"):
		return domain.SeverityLow
	default:
		return domain.SeverityHigh
	}
}

func banditSeverity(native string) domain.Severity {
	switch strings.ToUpper(native) {
	case "HIGH":
		return domain.SeverityCritical
	case "MEDIUM":
		return domain.SeverityHigh
	case "LOW":
		return domain.SeverityMedium
	default:
		return domain.SeverityMedium
	}
}

func banditConfidence(native string) domain.Confidence {
	switch strings.ToUpper(native) {
	case "HIGH":
		return domain.ConfidenceHigh
	case "MEDIUM":
		return domain.ConfidenceMedium
	case "LOW":
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func pmdSeverity(priority int) domain.Severity {
	switch priority {
	case 1:
		return domain.SeverityCritical
	case 2:
		return domain.SeverityHigh
	case 3:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func pmdConfidence(ruleset string) domain.Confidence {
	rs := strings.ToLower(ruleset)
	switch {
	case strings.Contains(rs, "errorprone"):
		return domain.ConfidenceHigh
	case strings.Contains(rs, "security"), strings.Contains(rs, "bestpractices"):
		return domain.ConfidenceMedium
	case strings.Contains(rs, "design"), strings.Contains(rs, "codestyle"):
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func spotbugsSeverity(category string, rank int) domain.Severity {
	switch strings.ToUpper(category) {
	case "SECURITY":
		if rank <= 4 {
			return domain.SeverityCritical
		}
		return domain.SeverityHigh
	case "CORRECTNESS":
		switch {
		case rank <= 4:
			return domain.SeverityCritical
		case rank <= 9:
			return domain.SeverityHigh
		default:
			return domain.SeverityMedium
		}
	default:
		switch {
		case rank <= 4:
			return domain.SeverityCritical
		case rank <= 9:
			return domain.SeverityHigh
		case rank <= 14:
			return domain.SeverityMedium
		default:
			return domain.SeverityLow
		}
	}
}

func spotbugsConfidence(confidence int) domain.Confidence {
	switch confidence {
	case 1:
		return domain.ConfidenceHigh
	case 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func eslintSeverity(native string) (domain.Severity, domain.Confidence) {
	switch strings.ToLower(native) {
	case "2", "error":
		return domain.SeverityMedium, domain.ConfidenceHigh
	case "1", "warn", "warning":
		return domain.SeverityLow, domain.ConfidenceHigh
	default:
		return domain.SeverityMedium, domain.ConfidenceHigh
	}
}
