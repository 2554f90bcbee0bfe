package render_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vibecheck/issuesync/internal/render"
)

func TestMarkers_RoundTrip(t *testing.T) {
	fp := "sha256:abc123def456abc123def456abc123def456abc123def456abc123def456abcd"
	now := time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)

	body := "Some issue text.\n\n" +
		render.FingerprintMarker(fp) + "\n" +
		render.RunMarker(7, now) + "\n"

	meta, ok := render.ParseIssueMetadata(body)
	if !ok {
		t.Fatal("expected metadata to parse")
	}
	if meta.Fingerprint != fp {
		t.Errorf("Fingerprint = %q, want %q", meta.Fingerprint, fp)
	}
	if meta.LastSeenRun != 7 {
		t.Errorf("LastSeenRun = %d, want 7", meta.LastSeenRun)
	}
}

func TestRunMarker_TimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	marker := render.RunMarker(3, time.Date(2026, 8, 24, 4, 0, 0, 0, loc))

	if !strings.Contains(marker, "2026-08-24T12:00:00Z") {
		t.Errorf("marker %q does not carry the UTC timestamp", marker)
	}
}

func TestParseIssueMetadata_MissingFingerprint(t *testing.T) {
	body := "A hand-written issue.\n\n" +
		render.RunMarker(4, time.Now()) + "\n"

	if _, ok := render.ParseIssueMetadata(body); ok {
		t.Error("expected ok=false for a body without a fingerprint marker")
	}
}

func TestParseIssueMetadata_MissingRunMarker(t *testing.T) {
	fp := "sha256:0011223344556677889900112233445566778899001122334455667788990011"
	body := render.FingerprintMarker(fp) + "\n"

	meta, ok := render.ParseIssueMetadata(body)
	if !ok {
		t.Fatal("fingerprint marker alone should still parse")
	}
	if meta.LastSeenRun != 0 {
		t.Errorf("LastSeenRun = %d, want 0 when the run marker is absent", meta.LastSeenRun)
	}
}

func TestParseIssueMetadata_MalformedRunMarker(t *testing.T) {
	fp := "sha256:0011223344556677889900112233445566778899001122334455667788990011"
	body := render.FingerprintMarker(fp) + "\n" +
		"<!-- VIBECHECK_RUN runNumber=oops timestamp=2026-08-24T12:00:00Z -->\n"

	meta, ok := render.ParseIssueMetadata(body)
	if !ok {
		t.Fatal("expected metadata to parse despite a malformed run marker")
	}
	if meta.LastSeenRun != 0 {
		t.Errorf("LastSeenRun = %d, want 0 for a malformed run marker", meta.LastSeenRun)
	}
}
