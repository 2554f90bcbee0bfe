// Package render produces the deterministic issue titles, Markdown bodies,
// label sets, and rule documentation links for tracker issues. Given equal
// inputs every function returns byte-identical output, which keeps issue
// updates idempotent.
package render

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/vibecheck/issuesync/internal/domain"
)

// maxTitleLength is the hard cap on generated titles.
const maxTitleLength = 100

// Title formats the issue title: "[<label>] <finding title><location hint>",
// truncated on a word boundary to at most 100 characters.
func Title(label string, f domain.Finding) string {
	title := fmt.Sprintf("[%s] %s%s", label, f.Title, locationHint(f))
	return truncateTitle(title)
}

// locationHint names the affected file when the finding is concentrated:
// one file is named directly, two or three files show the first plus a
// count, four or more show nothing.
func locationHint(f domain.Finding) string {
	files := uniqueFilenames(f.Locations)
	switch {
	case len(files) == 1:
		return " in " + files[0]
	case len(files) <= 3:
		return fmt.Sprintf(" in %s +%d more", files[0], len(files)-1)
	default:
		return ""
	}
}

// uniqueFilenames returns the distinct base filenames of the locations in
// first-occurrence order.
func uniqueFilenames(locations []domain.Location) []string {
	seen := make(map[string]bool, len(locations))
	var files []string
	for _, loc := range locations {
		name := path.Base(loc.Path)
		if seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
	}
	return files
}

// truncateTitle cuts an over-long title at the last whitespace that leaves
// room for an ellipsis, falling back to a hard cut at column 97.
func truncateTitle(title string) string {
	if len(title) <= maxTitleLength {
		return title
	}
	limit := maxTitleLength - 3
	if cut := strings.LastIndex(title[:limit], " "); cut > 0 {
		return title[:cut] + "..."
	}
	return title[:limit] + "..."
}

var (
	occurrencesSuffix = regexp.MustCompile(`\s*\(\d+ occurrences\)`)
	moreSuffix        = regexp.MustCompile(`\s+\+\d+ more$`)
	inFileSuffix      = regexp.MustCompile(`\s+in\s+\S+$`)
	whitespaceRuns    = regexp.MustCompile(`\s+`)
)

// NormalizeTitle canonicalizes an issue title for duplicate detection:
// lowercased, label prefix stripped, occurrence counts and trailing file
// hints removed, whitespace collapsed.
func NormalizeTitle(label, title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = strings.TrimPrefix(t, strings.ToLower("["+label+"]"))
	t = occurrencesSuffix.ReplaceAllString(t, "")
	t = moreSuffix.ReplaceAllString(t, "")
	t = inFileSuffix.ReplaceAllString(t, "")
	t = whitespaceRuns.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// singleRuleTitle matches titles of the form "[label] tool: ruleId ...".
// The label segment is matched loosely so index construction does not depend
// on config casing.
var singleRuleTitle = regexp.MustCompile(`^\[[^\]]+\]\s+(\w+):\s+(\S+)`)

// ParseSingleRuleTitle extracts the tool and rule tokens from a single-rule
// issue title. The second return is false when the title does not follow the
// single-rule shape.
func ParseSingleRuleTitle(title string) (tool, rule string, ok bool) {
	m := singleRuleTitle.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), strings.ToLower(m[2]), true
}

// firstWordToken matches the leading word of a finding title, used to
// recover the sublinter of composite-tool findings.
var firstWordToken = regexp.MustCompile(`\w+`)

// SublinterToken returns the lowercased first word token of a title, or ""
// when the title starts with no word character.
func SublinterToken(title string) string {
	return strings.ToLower(firstWordToken.FindString(title))
}
