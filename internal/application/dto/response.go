package dto

import (
	"time"
)

// ProfileSummary is the listing view of a profile.
type ProfileSummary struct {
	ID       string
	Version  string
	Parents  []string
	Abstract bool
	Locked   bool
	Hidden   bool
	Tags     []string
	Summary  string
}

// ProfileDetail is the full view of a profile.
type ProfileDetail struct {
	ProfileSummary

	Features     []string
	Repositories []string
	Bundles      []string
	Attributes   map[string]string
	Files        []string
	IconURL      string
	LastModified string
	ContentHash  string
}

// EditProfileResponse contains the profile after an edit.
type EditProfileResponse struct {
	Profile ProfileDetail

	// Changed is false when the request matched the stored profile and
	// nothing was written.
	Changed bool

	Metadata ResponseMetadata
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	// RequestID from the original request
	RequestID string

	// ProcessedAt is when the request was processed
	ProcessedAt time.Time

	// Duration is how long the request took
	Duration time.Duration
}

// ReconcileStatus reports the reconciler state and the snapshot it
// published.
type ReconcileStatus struct {
	State        string
	SnapshotID   string
	GeneratedAt  time.Time
	Repositories int
	Features     int
	LastRun      *RunSummary
}

// RunSummary is the listing view of a reconciliation pass.
type RunSummary struct {
	ID        string
	Reason    string
	State     string
	Finished  bool
	Attempts  int
	Backoffs  int
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}
