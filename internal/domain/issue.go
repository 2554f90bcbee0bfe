package domain

// IssueState is the tracker-side lifecycle state of an issue.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// IssueMetadata is the machine-readable state recovered from the hidden
// markers in an issue body. It is the only cross-run persistence the
// synchronizer relies on.
type IssueMetadata struct {
	Fingerprint string
	LastSeenRun int
}

// ExistingIssue is the synchronizer's view of a tracker issue. Metadata is
// nil when the body carried no parseable markers; such issues still
// participate in fallback matching.
type ExistingIssue struct {
	Number   int
	State    IssueState
	Title    string
	Labels   []string
	Metadata *IssueMetadata
}

// IsOpen reports whether the issue is open on the tracker.
func (i ExistingIssue) IsOpen() bool {
	return i.State == IssueOpen
}

// Repo identifies the repository a run analyzed. Host is the web host used
// for source links, not the API endpoint.
type Repo struct {
	Host   string
	Owner  string
	Name   string
	Commit string
}

// ShortCommit returns the 7-character display form of the commit SHA.
func (r Repo) ShortCommit() string {
	if len(r.Commit) > 7 {
		return r.Commit[:7]
	}
	return r.Commit
}

// RunContext carries the per-run identity embedded in issue metadata and
// rendered into issue bodies.
type RunContext struct {
	Repo      Repo
	RunNumber int
}
