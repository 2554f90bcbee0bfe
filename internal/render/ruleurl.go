package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
)

// yamllintRules is the published yamllint rule set, used to recognize
// yamllint findings surfaced through the trunk meta-linter.
var yamllintRules = map[string]bool{
	"anchors": true, "braces": true, "brackets": true, "colons": true,
	"commas": true, "comments": true, "comments-indentation": true,
	"document-end": true, "document-start": true, "empty-lines": true,
	"empty-values": true, "float-values": true, "hyphens": true,
	"indentation": true, "key-duplicates": true, "key-ordering": true,
	"line-length": true, "new-line-at-end-of-file": true, "new-lines": true,
	"octal-values": true, "quoted-strings": true, "trailing-spaces": true,
	"truthy": true,
}

var (
	markdownlintRule  = regexp.MustCompile(`^MD\d{3}$`)
	shellcheckRule    = regexp.MustCompile(`^SC\d{4}$`)
	eslintPlainRule   = regexp.MustCompile(`^[a-z][a-z-]*$`)
	tscRule           = regexp.MustCompile(`^TS\d+$`)
	cweNumber         = regexp.MustCompile(`\d+`)
	banditRule        = regexp.MustCompile(`^B\d{3}$`)
)

// RuleLink renders a Markdown link to the rule's documentation, or the plain
// backticked rule id when no documentation URL is known. Plus-joined rule
// clusters are rendered as individual links.
func RuleLink(tool domain.Tool, ruleID string) string {
	if strings.Contains(ruleID, "+") {
		parts := strings.Split(ruleID, "+")
		links := make([]string, 0, len(parts))
		for _, part := range parts {
			links = append(links, RuleLink(tool, part))
		}
		return strings.Join(links, ", ")
	}

	if url := RuleURL(tool, ruleID); url != "" {
		return fmt.Sprintf("[%s](%s)", ruleID, url)
	}
	return fmt.Sprintf("`%s`", ruleID)
}

// RuleURL returns the best-effort documentation URL for a rule, or "" when
// none is known.
func RuleURL(tool domain.Tool, ruleID string) string {
	switch tool {
	case domain.ToolTrunk:
		return trunkRuleURL(ruleID)
	case domain.ToolESLint:
		return eslintRuleURL(ruleID)
	case domain.ToolSemgrep:
		return "https://semgrep.dev/r/" + ruleID
	case domain.ToolRuff:
		return "https://docs.astral.sh/ruff/rules/#" + strings.ToLower(ruleID)
	case domain.ToolMypy:
		return "https://mypy.readthedocs.io/en/stable/error_code_list.html#code-" + strings.ToLower(ruleID)
	case domain.ToolBandit:
		if banditRule.MatchString(ruleID) {
			return "https://bandit.readthedocs.io/en/latest/plugins/index.html#" + strings.ToLower(ruleID)
		}
		return ""
	case domain.ToolPMD:
		return pmdRuleURL(ruleID)
	case domain.ToolSpotBugs:
		return "https://spotbugs.readthedocs.io/en/stable/bugDescriptions.html#" + strings.ToLower(ruleID)
	case domain.ToolTSC:
		if tscRule.MatchString(ruleID) {
			return "https://typescript.tv/errors/#" + strings.ToLower(ruleID)
		}
		return ""
	case domain.ToolDependencyCruiser:
		return "https://github.com/sverweij/dependency-cruiser/blob/main/doc/rules-reference.md"
	case domain.ToolKnip:
		return "https://knip.dev/guides/handling-issues"
	default:
		return ""
	}
}

// trunkRuleURL resolves trunk's composite rule space. The cascade is keyed
// on the shape of the rule id because trunk hosts many sublinters.
func trunkRuleURL(ruleID string) string {
	upper := strings.ToUpper(ruleID)
	switch {
	case strings.HasPrefix(upper, "GHSA-"):
		return "https://github.com/advisories/" + ruleID
	case strings.HasPrefix(upper, "CVE-"):
		return "https://nvd.nist.gov/vuln/detail/" + upper
	case strings.HasPrefix(upper, "CWE-"):
		if num := cweNumber.FindString(ruleID); num != "" {
			return "https://cwe.mitre.org/data/definitions/" + num + ".html"
		}
		return ""
	case strings.HasPrefix(upper, "CKV_"):
		return "https://www.checkov.io/5.Policy%20Index/all.html"
	case markdownlintRule.MatchString(upper):
		return "https://github.com/DavidAnson/markdownlint/blob/main/doc/" + strings.ToLower(upper) + ".md"
	case shellcheckRule.MatchString(upper):
		return "https://www.shellcheck.net/wiki/" + upper
	case yamllintRules[strings.ToLower(ruleID)]:
		return "https://yamllint.readthedocs.io/en/stable/rules.html#module-yamllint.rules." + strings.ReplaceAll(strings.ToLower(ruleID), "-", "_")
	case strings.HasPrefix(ruleID, "@typescript-eslint/"):
		return "https://typescript-eslint.io/rules/" + strings.TrimPrefix(ruleID, "@typescript-eslint/")
	case eslintPlainRule.MatchString(ruleID):
		return "https://eslint.org/docs/latest/rules/" + ruleID
	default:
		return ""
	}
}

func eslintRuleURL(ruleID string) string {
	if strings.HasPrefix(ruleID, "@typescript-eslint/") {
		return "https://typescript-eslint.io/rules/" + strings.TrimPrefix(ruleID, "@typescript-eslint/")
	}
	if eslintPlainRule.MatchString(ruleID) {
		return "https://eslint.org/docs/latest/rules/" + ruleID
	}
	return ""
}

// pmdRuleURL links into the PMD Java rule reference. Rule ids may carry a
// "ruleset/RuleName" shape; bare rule names default to the best-practices
// page index.
func pmdRuleURL(ruleID string) string {
	ruleset := "bestpractices"
	rule := ruleID
	if idx := strings.IndexByte(ruleID, '/'); idx >= 0 {
		ruleset = strings.ToLower(ruleID[:idx])
		rule = ruleID[idx+1:]
	}
	return fmt.Sprintf("https://docs.pmd-code.org/latest/pmd_rules_java_%s.html#%s", ruleset, strings.ToLower(rule))
}
