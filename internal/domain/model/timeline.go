package model

import "time"

// ReviewEventState represents the state of a review on the PR timeline.
type ReviewEventState string

const (
	ReviewEventPending          ReviewEventState = "pending"
	ReviewEventCommented        ReviewEventState = "commented"
	ReviewEventApproved         ReviewEventState = "approved"
	ReviewEventChangesRequested ReviewEventState = "changes_requested"
	ReviewEventDismissed        ReviewEventState = "dismissed"
)

// ReviewEvent is a review on the pull request timeline. After reconciliation
// its Comments field holds the inline comments belonging to the review, each
// thread flattened root-first in creation order.
//
// At most one ReviewEvent per pull request has state pending: the current
// user's in-progress draft review. Its ID is never reused once submitted.
type ReviewEvent struct {
	ID          int64
	Author      string
	State       ReviewEventState
	Body        string
	CommitID    string // Head SHA the review targeted; used for outdated detection.
	SubmittedAt time.Time
	Comments    []Comment
}

// IsPending reports whether the event is an in-progress draft review.
func (e ReviewEvent) IsPending() bool {
	return e.State == ReviewEventPending
}

// TimelineEventKind identifies the type of a pull request timeline entry.
type TimelineEventKind string

const (
	TimelineEventReview TimelineEventKind = "review"
	TimelineEventCommit TimelineEventKind = "commit"
	TimelineEventMerge  TimelineEventKind = "merge"
)

// TimelineEvent is one entry on a pull request's timeline. Only review events
// carry reconciled comments; other kinds are passed through for consumers.
type TimelineEvent struct {
	Kind      TimelineEventKind
	Review    *ReviewEvent // Set when Kind == TimelineEventReview.
	CommitSHA string       // Set when Kind == TimelineEventCommit.
	Actor     string
	CreatedAt time.Time
}
