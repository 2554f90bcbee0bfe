package render

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vibecheck/issuesync/internal/domain"
)

// Context carries the run identity rendered into every issue body.
type Context struct {
	Repo         domain.Repo
	RunNumber    int
	Label        string
	BranchPrefix string
	Now          time.Time
}

const (
	// maxInlineLocations is the largest extra-location list rendered inline;
	// beyond it the list moves into a collapsible block.
	maxInlineLocations = 10

	// maxSnippets caps the number of code samples rendered per issue.
	maxSnippets = 3

	// maxSnippetLines truncates individual code samples.
	maxSnippetLines = 50
)

var titleCaser = cases.Title(language.English)

// Body renders the full deterministic Markdown body for a finding, ending
// with the two hidden markers the next run recovers state from.
func Body(ctx Context, f domain.Finding) string {
	var sb strings.Builder

	writeHeader(&sb, f)
	writeDetails(&sb, f)
	writeLocations(&sb, ctx, f)
	writeSnippets(&sb, f)
	writeFix(&sb, f)
	writeReferences(&sb, f)
	writeMetadata(&sb, ctx, f)

	sb.WriteString(FingerprintMarker(f.Fingerprint))
	sb.WriteString("\n")
	sb.WriteString(RunMarker(ctx.RunNumber, ctx.Now))
	sb.WriteString("\n")
	return sb.String()
}

func severityEmoji(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "🔴"
	case domain.SeverityHigh:
		return "🟠"
	case domain.SeverityMedium:
		return "🟡"
	case domain.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

func writeHeader(sb *strings.Builder, f domain.Finding) {
	fmt.Fprintf(sb, "%s **%s severity** | Confidence: %s | Effort: %s\n\n",
		severityEmoji(f.Severity), titleCaser.String(string(f.Severity)), f.Confidence, f.Effort)
	if f.Message != "" {
		sb.WriteString(f.Message)
		sb.WriteString("\n\n")
	}
}

func autofixCell(level domain.AutofixLevel) string {
	switch level {
	case domain.AutofixSafe:
		return "✅ Safe autofix available"
	case domain.AutofixRequiresReview:
		return "⚠️ Autofix requires review"
	default:
		return "Manual fix required"
	}
}

func writeDetails(sb *strings.Builder, f domain.Finding) {
	sb.WriteString("## Details\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	fmt.Fprintf(sb, "| Tool | `%s` |\n", f.Tool)
	fmt.Fprintf(sb, "| Rule | %s |\n", RuleLink(f.Tool, f.RuleID))
	fmt.Fprintf(sb, "| Layer | %s |\n", f.Layer)
	fmt.Fprintf(sb, "| Autofix | %s |\n", autofixCell(f.Autofix))
	sb.WriteString("\n")

	if f.Severity == domain.SeverityCritical || f.Severity == domain.SeverityHigh {
		fmt.Fprintf(sb, "> ⚠️ This is a %s-severity finding and should be prioritized.\n\n", f.Severity)
	}
}

// locationURL builds the source hyperlink for a location at the run's commit.
func locationURL(repo domain.Repo, loc domain.Location) string {
	url := fmt.Sprintf("https://%s/%s/%s/blob/%s/%s#L%d",
		repo.Host, repo.Owner, repo.Name, repo.Commit, loc.Path, loc.StartLine)
	if loc.EndLine > loc.StartLine {
		url += fmt.Sprintf("-L%d", loc.EndLine)
	}
	return url
}

func locationText(loc domain.Location) string {
	if loc.EndLine > loc.StartLine {
		return fmt.Sprintf("%s#L%d-L%d", loc.Path, loc.StartLine, loc.EndLine)
	}
	return fmt.Sprintf("%s#L%d", loc.Path, loc.StartLine)
}

func writeLocations(sb *strings.Builder, ctx Context, f domain.Finding) {
	sb.WriteString("## Location\n\n")
	canonical := f.Canonical()
	fmt.Fprintf(sb, "[%s](%s)\n", locationText(canonical), locationURL(ctx.Repo, canonical))

	rest := f.Locations[1:]
	if len(rest) > 0 {
		sb.WriteString("\n")
		if len(rest) <= maxInlineLocations {
			for _, loc := range rest {
				fmt.Fprintf(sb, "- [%s](%s)\n", locationText(loc), locationURL(ctx.Repo, loc))
			}
		} else {
			fmt.Fprintf(sb, "<details>\n<summary>%d more locations</summary>\n\n", len(rest))
			for _, loc := range rest {
				fmt.Fprintf(sb, "- [%s](%s)\n", locationText(loc), locationURL(ctx.Repo, loc))
			}
			sb.WriteString("\n</details>\n")
		}
	}

	if len(f.Locations) >= 5 {
		sb.WriteString("\n")
		sb.WriteString(prioritizationHint(f.Locations))
	}
	sb.WriteString("\n")
}

// prioritizationHint names the file with the most occurrences so large
// aggregates remain actionable, plus the file span when the finding covers
// more than three files.
func prioritizationHint(locations []domain.Location) string {
	counts := make(map[string]int)
	var order []string
	for _, loc := range locations {
		if counts[loc.Path] == 0 {
			order = append(order, loc.Path)
		}
		counts[loc.Path]++
	}
	top := order[0]
	for _, p := range order {
		if counts[p] > counts[top] {
			top = p
		}
	}

	hint := fmt.Sprintf("💡 Start with `%s` (%d occurrences)", top, counts[top])
	if len(order) > 3 {
		hint += fmt.Sprintf(", spread across %d files", len(order))
	}
	return hint + ".\n"
}

func writeSnippets(sb *strings.Builder, f domain.Finding) {
	if f.Evidence == nil || f.Evidence.Snippet == "" {
		return
	}
	snippets := strings.Split(f.Evidence.Snippet, "---")
	shown := snippets
	if len(shown) > maxSnippets {
		shown = shown[:maxSnippets]
	}

	if len(snippets) == 1 {
		sb.WriteString("## Code Sample\n\n")
	} else {
		sb.WriteString("## Code Samples\n\n")
	}
	for _, snippet := range shown {
		sb.WriteString("```\n")
		sb.WriteString(truncateSnippet(strings.Trim(snippet, "\n")))
		sb.WriteString("\n```\n\n")
	}
	if len(snippets) > maxSnippets {
		fmt.Fprintf(sb, "_…and %d more samples._\n\n", len(snippets)-maxSnippets)
	}
}

func truncateSnippet(snippet string) string {
	lines := strings.Split(snippet, "\n")
	if len(lines) <= maxSnippetLines {
		return snippet
	}
	return strings.Join(lines[:maxSnippetLines], "\n") + "\n…"
}

func writeFix(sb *strings.Builder, f domain.Finding) {
	fix := f.SuggestedFix
	if fix == nil {
		fix = defaultFix(f)
	}

	sb.WriteString("## How to Fix\n\n")
	fmt.Fprintf(sb, "**Goal:** %s\n\n", fix.Goal)
	if len(fix.Steps) > 0 {
		sb.WriteString("**Steps:**\n")
		for i, step := range fix.Steps {
			fmt.Fprintf(sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString("\n")
	}
	if len(fix.Acceptance) > 0 {
		sb.WriteString("**Done when:**\n")
		for _, item := range fix.Acceptance {
			fmt.Fprintf(sb, "- [ ] %s\n", item)
		}
		sb.WriteString("\n")
	}
}

// defaultFix supplies a tool-templated fix plan when the analyzer provided
// none.
func defaultFix(f domain.Finding) *domain.SuggestedFix {
	verify := fmt.Sprintf("`%s` no longer reports `%s`", f.Tool, f.RuleID)
	switch f.Tool {
	case domain.ToolJSCPD:
		return &domain.SuggestedFix{
			Goal:       "Remove the duplicated code",
			Steps:      []string{"Extract the shared logic into a single function or module", "Replace each duplicate with a call to the shared implementation"},
			Acceptance: []string{verify, "All existing tests still pass"},
		}
	case domain.ToolDependencyCruiser:
		return &domain.SuggestedFix{
			Goal:       "Restore the intended module boundaries",
			Steps:      []string{"Identify which dependency direction violates the architecture", "Invert or remove the offending import, introducing an interface if needed"},
			Acceptance: []string{verify},
		}
	case domain.ToolKnip:
		return &domain.SuggestedFix{
			Goal:       "Remove the unused code or dependency",
			Steps:      []string{"Confirm the export, file, or dependency is genuinely unused", "Delete it"},
			Acceptance: []string{verify, "The build succeeds without it"},
		}
	default:
		return &domain.SuggestedFix{
			Goal:       fmt.Sprintf("Resolve the `%s` finding", f.RuleID),
			Steps:      []string{"Review the flagged location and apply the rule's recommended change"},
			Acceptance: []string{verify},
		}
	}
}

func writeReferences(sb *strings.Builder, f domain.Finding) {
	if f.Evidence == nil {
		return
	}
	var links []string
	for _, link := range f.Evidence.Links {
		if strings.HasPrefix(link, "http") {
			links = append(links, link)
		}
	}
	if len(links) == 0 {
		return
	}
	sb.WriteString("## References\n\n")
	for _, link := range links {
		fmt.Fprintf(sb, "- %s\n", link)
	}
	sb.WriteString("\n")
}

func writeMetadata(sb *strings.Builder, ctx Context, f domain.Finding) {
	short := domain.ShortFingerprint(f.Fingerprint)
	commitURL := fmt.Sprintf("https://%s/%s/%s/commit/%s",
		ctx.Repo.Host, ctx.Repo.Owner, ctx.Repo.Name, ctx.Repo.Commit)

	sb.WriteString("<details>\n<summary>Metadata</summary>\n\n")
	fmt.Fprintf(sb, "- Fingerprint: `%s`\n", short)
	fmt.Fprintf(sb, "- Full fingerprint: `%s`\n", f.Fingerprint)
	fmt.Fprintf(sb, "- Commit: [`%s`](%s)\n", ctx.Repo.ShortCommit(), commitURL)
	fmt.Fprintf(sb, "- Run: %d\n", ctx.RunNumber)
	fmt.Fprintf(sb, "- Generated: %s\n", ctx.Now.UTC().Format(time.RFC3339))
	fmt.Fprintf(sb, "- Suggested branch: `%s/fix-%s`\n", ctx.BranchPrefix, short)
	sb.WriteString("\n</details>\n\n")
}
