package score

import (
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
)

// eslintStyleRules are whitespace/style rules whose autofix is mechanical
// enough to apply without review.
var eslintStyleRules = map[string]bool{
	"semi": true, "quotes": true, "indent": true, "comma-dangle": true,
	"no-extra-semi": true, "no-trailing-spaces": true, "eol-last": true,
	"space-before-function-paren": true, "object-curly-spacing": true,
	"array-bracket-spacing": true, "prefer-const": true, "no-var": true,
}

// ruffSafePrefixes are rule families whose autofixes are formatting-only.
var ruffSafePrefixes = []string{"I", "W", "E1", "E2", "E3", "E7", "Q", "COM", "UP"}

// Autofix determines the autofix level for a finding.
func Autofix(in Input) domain.AutofixLevel {
	switch in.Tool {
	case domain.ToolPrettier:
		return domain.AutofixSafe
	case domain.ToolESLint:
		if !in.HasFix {
			return domain.AutofixNone
		}
		if eslintStyleRules[strings.ToLower(in.RuleID)] {
			return domain.AutofixSafe
		}
		return domain.AutofixRequiresReview
	case domain.ToolTrunk:
		if in.HasFix {
			return domain.AutofixRequiresReview
		}
		return domain.AutofixNone
	case domain.ToolRuff:
		if !in.HasFix {
			return domain.AutofixNone
		}
		if ruffHasSafePrefix(in.RuleID) {
			return domain.AutofixSafe
		}
		return domain.AutofixRequiresReview
	default:
		return domain.AutofixNone
	}
}

func ruffHasSafePrefix(ruleID string) bool {
	rule := strings.ToUpper(ruleID)
	for _, prefix := range ruffSafePrefixes {
		if strings.HasPrefix(rule, prefix) {
			return true
		}
	}
	return false
}

// EffortFor estimates the fix size of a finding. A finding with any autofix
// is small; otherwise location spread dominates, then per-tool heuristics.
func EffortFor(in Input, autofix domain.AutofixLevel) domain.Effort {
	if autofix != domain.AutofixNone {
		return domain.EffortSmall
	}
	if in.LocationCount > 3 {
		return domain.EffortLarge
	}
	if in.LocationCount > 1 {
		return domain.EffortMedium
	}

	rule := strings.ToLower(in.RuleID)
	switch in.Tool {
	case domain.ToolJSCPD:
		return domain.EffortMedium
	case domain.ToolDependencyCruiser:
		if strings.Contains(rule, "cycle") {
			return domain.EffortLarge
		}
		return domain.EffortMedium
	case domain.ToolKnip:
		return domain.EffortSmall
	case domain.ToolTSC, domain.ToolMypy:
		return domain.EffortMedium
	case domain.ToolESLint, domain.ToolPrettier:
		return domain.EffortSmall
	case domain.ToolRuff:
		if strings.HasPrefix(strings.ToUpper(in.RuleID), "N") || strings.HasPrefix(strings.ToUpper(in.RuleID), "D") {
			return domain.EffortSmall
		}
		return domain.EffortMedium
	case domain.ToolBandit:
		if strings.Contains(rule, "hardcoded") {
			return domain.EffortSmall
		}
		return domain.EffortMedium
	case domain.ToolPMD:
		if strings.Contains(rule, "unused") || strings.Contains(rule, "empty") {
			return domain.EffortSmall
		}
		return domain.EffortMedium
	case domain.ToolSpotBugs:
		return domain.EffortMedium
	default:
		return domain.EffortMedium
	}
}
