// Package gitinfo detects repository identity from a local checkout: the
// owner and name from the origin remote, and the commit from HEAD. It fills
// the gaps in a run context so CI invocations need not pass what the
// checkout already knows.
package gitinfo

import (
	"fmt"
	"regexp"
	"strings"

	goGit "github.com/go-git/go-git/v5"

	"github.com/vibecheck/issuesync/internal/domain"
)

// Detector reads repository identity from the checkout at repoDir.
type Detector struct {
	repoDir string
}

// NewDetector constructs a detector for the provided repository directory.
func NewDetector(repoDir string) *Detector {
	return &Detector{repoDir: repoDir}
}

// sshRemote matches scp-style remote URLs like git@github.com:owner/name.git.
var sshRemote = regexp.MustCompile(`^(?:ssh://)?(?:[\w-]+@)?([\w.-]+)[:/]([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)

// Fill completes the missing fields of a run context from the checkout.
// Fields already present are never overwritten. It fails only when a needed
// field cannot be detected.
func (d *Detector) Fill(rctx domain.RunContext) (domain.RunContext, error) {
	needsRemote := rctx.Repo.Owner == "" || rctx.Repo.Name == "" || rctx.Repo.Host == ""
	needsCommit := rctx.Repo.Commit == ""
	if !needsRemote && !needsCommit {
		return rctx, nil
	}

	repo, err := goGit.PlainOpenWithOptions(d.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return rctx, fmt.Errorf("open repo: %w", err)
	}

	if needsRemote {
		remote, err := repo.Remote("origin")
		if err != nil {
			return rctx, fmt.Errorf("resolve origin remote: %w", err)
		}
		urls := remote.Config().URLs
		if len(urls) == 0 {
			return rctx, fmt.Errorf("origin remote has no URL")
		}
		host, owner, name, err := ParseRemoteURL(urls[0])
		if err != nil {
			return rctx, err
		}
		if rctx.Repo.Host == "" {
			rctx.Repo.Host = host
		}
		if rctx.Repo.Owner == "" {
			rctx.Repo.Owner = owner
		}
		if rctx.Repo.Name == "" {
			rctx.Repo.Name = name
		}
	}

	if needsCommit {
		head, err := repo.Head()
		if err != nil {
			return rctx, fmt.Errorf("resolve HEAD: %w", err)
		}
		rctx.Repo.Commit = head.Hash().String()
	}

	return rctx, nil
}

// ParseRemoteURL extracts host, owner, and repository name from an HTTPS or
// SSH remote URL.
func ParseRemoteURL(url string) (host, owner, name string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(url), "/")

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		rest := trimmed[strings.Index(trimmed, "://")+3:]
		parts := strings.Split(rest, "/")
		if len(parts) < 3 {
			return "", "", "", fmt.Errorf("unrecognized remote URL %q", url)
		}
		return parts[0], parts[1], strings.TrimSuffix(parts[2], ".git"), nil
	}

	if m := sshRemote.FindStringSubmatch(trimmed); m != nil {
		return m[1], m[2], m[3], nil
	}
	return "", "", "", fmt.Errorf("unrecognized remote URL %q", url)
}
