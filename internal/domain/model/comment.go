package model

import "time"

// Comment represents a review comment anchored to a line of a pull request diff.
//
// Position is nil when the remote has already marked the comment unaddressable
// in the latest diff; such comments are rendered read-only at the location
// derived from OriginalPosition against the base commit.
type Comment struct {
	ID               int64
	NodeID           string // GraphQL node ID.
	Author           string
	Body             string
	Path             string
	DiffHunk         string // Snapshot of the diff excerpt the comment was left on.
	Position         *int   // Diff position in the latest head diff; nil when outdated.
	OriginalPosition int    // Diff position in the diff the comment was created on.
	ReviewID         *int64 // Owning review; nil only while the review is pending and unflushed.
	InReplyToID      *int64 // nil marks a thread root.
	IsDraft          bool   // Part of the current user's in-progress review.
	IsResolved       bool
	IsOutdated       bool
	CommitID         string // Head commit of the PR when the comment was last positioned.
	OriginalCommitID string // Head commit of the PR when the comment was created.
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsRoot reports whether the comment starts a conversation thread.
func (c Comment) IsRoot() bool {
	return c.InReplyToID == nil
}

// ReviewThread is a conversation rooted at a comment with no InReplyToID.
// Replies holds every transitive descendant flattened in pre-order, each
// sub-level ordered by CreatedAt ascending.
type ReviewThread struct {
	Root    Comment
	Replies []Comment
}

// Comments returns the root followed by all replies, in thread order.
func (t ReviewThread) Comments() []Comment {
	out := make([]Comment, 0, 1+len(t.Replies))
	out = append(out, t.Root)
	out = append(out, t.Replies...)
	return out
}
