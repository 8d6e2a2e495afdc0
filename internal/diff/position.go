package diff

import "github.com/reviewlens/reviewlens/internal/domain/model"

// PositionToLine resolves a GitHub diff position to the new-file line number
// it addresses. It returns ok=false when the position falls on a delete line,
// outside every hunk, or past the end of the patch; callers treat that as
// "comment cannot be anchored in this diff", not as a failure.
func PositionToLine(hunks []model.DiffHunk, position int) (int, bool) {
	if position < 1 {
		return 0, false
	}

	for _, h := range hunks {
		if h.StartPosition == -1 {
			continue
		}
		for _, l := range h.Lines {
			if l.Position == position {
				return l.NewLine, true
			}
		}
	}

	return 0, false
}

// LineToPosition is the inverse of PositionToLine: it resolves a new-file line
// number to its diff position. It returns ok=false when the line is not part
// of the diff (unchanged region outside every hunk).
func LineToPosition(hunks []model.DiffHunk, newLine int) (int, bool) {
	if newLine < 1 {
		return 0, false
	}

	for _, h := range hunks {
		for _, l := range h.Lines {
			if l.Position > 0 && l.NewLine == newLine {
				return l.Position, true
			}
		}
	}

	return 0, false
}

// PositionToBaseLine resolves a diff position to an old-file line number, for
// anchoring outdated comments against the base commit. Added lines have no
// old-file counterpart; for those the nearest preceding line that exists in
// the old file is returned, so the anchor stays within historical content.
func PositionToBaseLine(hunks []model.DiffHunk, position int) (int, bool) {
	if position < 1 {
		return 0, false
	}

	for _, h := range hunks {
		lastOld := h.OldStart
		for _, l := range h.Lines {
			if l.OldLine > 0 {
				lastOld = l.OldLine
			}
			if l.Position == position {
				if l.OldLine > 0 {
					return l.OldLine, true
				}
				return lastOld, true
			}
		}
	}

	return 0, false
}

// TextAtPosition returns the raw content of the line at the given diff
// position. It returns ok=false when the position is not addressable.
func TextAtPosition(hunks []model.DiffHunk, position int) (string, bool) {
	if position < 1 {
		return "", false
	}

	for _, h := range hunks {
		for _, l := range h.Lines {
			if l.Position == position {
				return l.Text, true
			}
		}
	}

	return "", false
}
