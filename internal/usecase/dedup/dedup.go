// Package dedup collapses findings that share a fingerprint into a single
// aggregate carrying the union of their locations. Within one run the output
// stream holds at most one finding per fingerprint.
package dedup

import "github.com/vibecheck/issuesync/internal/domain"

// Collapse groups findings by fingerprint, preserving the input order of
// first occurrence. The surviving finding keeps the first member's title,
// message, and scores; its locations are the concatenation of every group
// member's locations, deduplicated by (path, startLine). Collapse is
// idempotent: applying it twice yields the same result.
func Collapse(findings []domain.Finding) []domain.Finding {
	byFingerprint := make(map[string]int, len(findings))
	out := make([]domain.Finding, 0, len(findings))

	for _, f := range findings {
		idx, seen := byFingerprint[f.Fingerprint]
		if !seen {
			merged := f
			merged.Locations = dedupeLocations(nil, f.Locations)
			byFingerprint[f.Fingerprint] = len(out)
			out = append(out, merged)
			continue
		}
		out[idx].Locations = dedupeLocations(out[idx].Locations, f.Locations)
	}
	return out
}

// dedupeLocations appends locations to base, skipping entries whose
// (path, startLine) pair is already present.
func dedupeLocations(base, add []domain.Location) []domain.Location {
	type key struct {
		path string
		line int
	}
	seen := make(map[key]bool, len(base)+len(add))
	out := make([]domain.Location, 0, len(base)+len(add))
	for _, loc := range base {
		k := key{loc.Path, loc.StartLine}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, loc)
	}
	for _, loc := range add {
		k := key{loc.Path, loc.StartLine}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, loc)
	}
	return out
}
