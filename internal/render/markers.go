package render

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/vibecheck/issuesync/internal/domain"
)

// Marker anchor tokens. The exact strings are a persistence contract: they
// must round-trip losslessly through a create, read, update cycle, so
// changing them orphans every previously synchronized issue.
const (
	fingerprintMarkerAnchor = "VIBECHECK_FINGERPRINT"
	runMarkerAnchor         = "VIBECHECK_RUN"
)

var (
	fingerprintMarkerRe = regexp.MustCompile(`<!-- ` + fingerprintMarkerAnchor + ` (sha256:[0-9a-f]+) -->`)
	runMarkerRe         = regexp.MustCompile(`<!-- ` + runMarkerAnchor + ` runNumber=(\d+) timestamp=(\S+) -->`)
)

// FingerprintMarker renders the hidden fingerprint marker line.
func FingerprintMarker(fingerprint string) string {
	return fmt.Sprintf("<!-- %s %s -->", fingerprintMarkerAnchor, fingerprint)
}

// RunMarker renders the hidden run-metadata marker line.
func RunMarker(runNumber int, timestamp time.Time) string {
	return fmt.Sprintf("<!-- %s runNumber=%d timestamp=%s -->",
		runMarkerAnchor, runNumber, timestamp.UTC().Format(time.RFC3339))
}

// ParseIssueMetadata recovers the embedded fingerprint and last-seen run
// from an issue body. The second return is false when the body carries no
// fingerprint marker; a missing or malformed run marker leaves LastSeenRun
// at zero rather than failing, so the issue still matches by fingerprint.
func ParseIssueMetadata(body string) (domain.IssueMetadata, bool) {
	m := fingerprintMarkerRe.FindStringSubmatch(body)
	if m == nil {
		return domain.IssueMetadata{}, false
	}
	meta := domain.IssueMetadata{Fingerprint: m[1]}

	if rm := runMarkerRe.FindStringSubmatch(body); rm != nil {
		if n, err := strconv.Atoi(rm[1]); err == nil {
			meta.LastSeenRun = n
		}
	}
	return meta, true
}
