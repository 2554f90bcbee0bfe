package score

import (
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
)

// securityTokens flag a rule as security-relevant when any of them appears as
// a token inside the rule id.
var securityTokens = map[string]bool{
	"security": true, "xss": true, "injection": true, "csrf": true,
	"sql": true, "xxe": true, "ssrf": true, "auth": true,
	"crypto": true, "secret": true, "password": true, "eval": true,
	"dangerous": true, "hardcoded": true, "random": true,
	"prototype": true, "pollution": true, "vulnerable": true,
}

// architectureTokens flag a rule as architecture-relevant.
var architectureTokens = []string{"import", "dependency", "cycle"}

// Layer classifies the concern area of a finding from its tool and rule id.
func Layer(tool domain.Tool, ruleID string) domain.Layer {
	rule := strings.ToLower(ruleID)
	upper := strings.ToUpper(ruleID)

	switch tool {
	case domain.ToolBandit:
		return domain.LayerSecurity
	case domain.ToolSpotBugs:
		if hasSecurityToken(rule) || strings.Contains(rule, "sql") || strings.Contains(rule, "xss") {
			return domain.LayerSecurity
		}
		return domain.LayerCode
	}

	if strings.HasPrefix(upper, "GHSA-") || strings.HasPrefix(upper, "CVE-") || strings.HasPrefix(upper, "CWE-") {
		return domain.LayerSecurity
	}
	if tool == domain.ToolTrunk && (strings.Contains(upper, "GHSA") || strings.Contains(upper, "CVE")) {
		return domain.LayerSecurity
	}
	if hasSecurityToken(rule) {
		return domain.LayerSecurity
	}
	if tool == domain.ToolRuff && strings.HasPrefix(upper, "S") {
		return domain.LayerSecurity
	}

	if tool == domain.ToolDependencyCruiser || tool == domain.ToolKnip {
		return domain.LayerArchitecture
	}
	for _, token := range architectureTokens {
		if strings.Contains(rule, token) {
			return domain.LayerArchitecture
		}
	}

	return domain.LayerCode
}

// hasSecurityToken splits the rule id on non-alphanumeric boundaries and
// checks each token against the security vocabulary.
func hasSecurityToken(rule string) bool {
	tokens := strings.FieldsFunc(rule, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, token := range tokens {
		if securityTokens[token] {
			return true
		}
	}
	return false
}
