package domain

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// FingerprintPrefix identifies the digest algorithm in rendered fingerprints.
const FingerprintPrefix = "sha256:"

// lineBucketSize absorbs code drift: findings whose start line moves within
// the same bucket of this many lines keep their fingerprint.
const lineBucketSize = 20

// shortFingerprintLen is the number of hex characters shown to users.
const shortFingerprintLen = 12

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	numeralRun     = regexp.MustCompile(`\d+`)
	quotedLiterals = regexp.MustCompile("\"[^\"]*\"|'[^']*'|`[^`]*`")
)

// NormalizeMessage canonicalizes a finding message for fingerprinting:
// lowercased, quoted literals and numerals stripped, whitespace collapsed.
// The result is invariant under renamed identifiers in quotes and shifting
// line or count references embedded in the text.
func NormalizeMessage(message string) string {
	m := strings.ToLower(message)
	m = quotedLiterals.ReplaceAllString(m, "")
	m = numeralRun.ReplaceAllString(m, "")
	m = whitespaceRun.ReplaceAllString(m, " ")
	return strings.TrimSpace(m)
}

// LineBucket returns the drift bucket for a start line.
func LineBucket(startLine int) int {
	return startLine / lineBucketSize
}

// ComputeFingerprint produces the stable identity digest of a finding from
// its tool, rule, canonical path, line bucket, and normalized message. The
// components are null-separated to avoid ambiguous concatenations. The
// result carries the "sha256:" prefix.
func ComputeFingerprint(tool Tool, ruleID, path string, startLine int, message string) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%s",
		tool, ruleID, path, LineBucket(startLine), NormalizeMessage(message))
	return FingerprintPrefix + fmt.Sprintf("%x", h.Sum(nil))
}

// ShortFingerprint returns the 12-hex-character display form of a full
// fingerprint. Inputs without the algorithm prefix are handled as-is.
func ShortFingerprint(fingerprint string) string {
	hex := strings.TrimPrefix(fingerprint, FingerprintPrefix)
	if len(hex) <= shortFingerprintLen {
		return hex
	}
	return hex[:shortFingerprintLen]
}
