package application

import (
	"log/slog"

	"github.com/reviewlens/reviewlens/internal/diff"
	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// Anchor describes where a comment attaches in the current working set.
// Outdated comments stay visible in a read-only state at their last-known
// base-relative location; they are never dropped.
type Anchor struct {
	Outdated bool
	Line     int // New-file line in the head diff; set when the comment is current.
	BaseLine int // Base-commit line; set when the comment is outdated, 0 if unresolvable.
}

// IsOutdated reports whether a comment's anchored line no longer exists in the
// current diff between base and head.
//
// A comment is outdated when the remote already cleared its position, when the
// position no longer resolves against the latest head patch, or when the line
// text at the resolved position differs from the snapshot the comment was left
// on. The comparison is by line content only, not a content hash or context
// window, so a coincidental text match after unrelated edits classifies the
// comment as current.
func IsOutdated(c model.Comment, headHunks []model.DiffHunk) bool {
	if c.Position == nil {
		return true
	}

	line, ok := diff.PositionToLine(headHunks, *c.Position)
	if !ok || line <= 0 {
		return true
	}

	snapshot, snapOK := snapshotAnchorText(c)
	if !snapOK {
		return false
	}

	current, ok := diff.TextAtPosition(headHunks, *c.Position)
	if !ok {
		return true
	}
	return current != snapshot
}

// ClassifyComment resolves a comment's anchor against the head diff, falling
// back to the base-commit diff via OriginalPosition when the comment is
// outdated.
func ClassifyComment(c model.Comment, headHunks, baseHunks []model.DiffHunk) Anchor {
	if !IsOutdated(c, headHunks) {
		line, _ := diff.PositionToLine(headHunks, *c.Position)
		return Anchor{Line: line}
	}

	anchor := Anchor{Outdated: true}
	if baseLine, ok := diff.PositionToBaseLine(baseHunks, c.OriginalPosition); ok {
		anchor.BaseLine = baseLine
	} else {
		slog.Debug("outdated comment has no base anchor",
			"comment_id", c.ID,
			"original_position", c.OriginalPosition,
			"path", c.Path,
		)
	}
	return anchor
}

// snapshotAnchorText extracts the content of the line the comment was left on
// from its diff hunk snapshot. GitHub truncates the snapshot so that its last
// content line is the commented one.
func snapshotAnchorText(c model.Comment) (string, bool) {
	if c.DiffHunk == "" {
		return "", false
	}

	hunks, err := diff.ParsePatch(c.DiffHunk)
	if err != nil {
		slog.Warn("unparseable diff hunk snapshot", "comment_id", c.ID, "error", err)
		return "", false
	}

	for i := len(hunks) - 1; i >= 0; i-- {
		lines := hunks[i].Lines
		for j := len(lines) - 1; j >= 0; j-- {
			if lines[j].Type != model.DiffLineControl {
				return lines[j].Text, true
			}
		}
	}
	return "", false
}
