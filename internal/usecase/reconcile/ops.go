// Package reconcile maps the current finding set and the tracker's existing
// issues to a sequence of tracker operations. The decision logic is a pure
// transform over in-memory values; the executor drives the tracker port with
// the resulting plan.
package reconcile

import (
	"context"

	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/render"
)

// FlapProtectionRuns is the number of consecutive runs a finding must be
// absent before its issue is closed.
const FlapProtectionRuns = 3

// Config holds the reconciliation policy for a run.
type Config struct {
	Label               string
	MaxNewPerRun        int
	SeverityThreshold   domain.Severity
	ConfidenceThreshold domain.Confidence
	CloseResolved       bool
	Assignees           []string
}

// OpKind enumerates the tracker operations a plan can contain.
type OpKind string

const (
	OpCreate  OpKind = "create"
	OpUpdate  OpKind = "update"
	OpClose   OpKind = "close"
	OpComment OpKind = "comment"
)

// Op is a single tracker operation. Number is zero for creations; Comment
// carries the close comment for OpClose and the body for OpComment.
type Op struct {
	Kind        OpKind
	Number      int
	Title       string
	Body        string
	Labels      []string
	Assignees   []string
	Comment     string
	Fingerprint string
}

// Stats tallies the outcome of a reconciliation run. It is the run's only
// user-visible output besides logs.
type Stats struct {
	Created               int `json:"created"`
	Updated               int `json:"updated"`
	Closed                int `json:"closed"`
	SkippedBelowThreshold int `json:"skippedBelowThreshold"`
	SkippedDuplicate      int `json:"skippedDuplicate"`
	SkippedMaxReached     int `json:"skippedMaxReached"`
}

// Plan is the deterministic operation sequence for one run, paired with the
// stats accumulated while planning. Duplicate collapse happens after
// execution, when created issue numbers are known, and adds to Closed.
type Plan struct {
	Ops   []Op
	Stats Stats
}

// CreateRequest is the payload for a new tracker issue.
type CreateRequest struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// UpdateRequest is the payload for refreshing an existing tracker issue.
type UpdateRequest struct {
	Number int
	Title  string
	Body   string
	Labels []string
}

// Tracker is the capability set the reconciler needs from an issue tracker.
// Implementations serialize calls and enforce rate limits internally.
type Tracker interface {
	EnsureLabels(ctx context.Context, specs []render.LabelSpec) error
	SearchIssuesByLabel(ctx context.Context, labels []string) ([]domain.ExistingIssue, error)
	CreateIssue(ctx context.Context, req CreateRequest) (int, error)
	UpdateIssue(ctx context.Context, req UpdateRequest) error
	CloseIssue(ctx context.Context, number int, comment string) error
	AddIssueComment(ctx context.Context, number int, body string) error
}
