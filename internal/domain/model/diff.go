package model

// DiffLineType classifies a single line within a unified-diff hunk.
type DiffLineType int

const (
	// DiffLineContext is a line present in both the old and new file.
	DiffLineContext DiffLineType = iota
	// DiffLineAdd is a line present only in the new file.
	DiffLineAdd
	// DiffLineDelete is a line present only in the old file.
	DiffLineDelete
	// DiffLineControl is the "@@ ... @@" hunk header. Control lines are never
	// addressable by diff position.
	DiffLineControl
)

// String returns the lowercase name of the line type.
func (t DiffLineType) String() string {
	switch t {
	case DiffLineContext:
		return "context"
	case DiffLineAdd:
		return "add"
	case DiffLineDelete:
		return "delete"
	case DiffLineControl:
		return "control"
	default:
		return "unknown"
	}
}

// DiffLine is one line of a parsed unified diff.
//
// OldLine is -1 for added lines; NewLine is -1 for deleted lines. Position is
// the 1-based GitHub diff position (counting only add and context lines across
// the whole patch) or -1 for lines that cannot anchor a comment.
type DiffLine struct {
	Type     DiffLineType
	OldLine  int
	NewLine  int
	Position int
	Text     string // Raw content without the prefix character or newline.
}

// DiffHunk is one "@@"-delimited block of a unified diff.
//
// Lines preserve patch order. StartPosition is the diff position of the hunk's
// first addressable line, or -1 when the hunk contains only deletions.
type DiffHunk struct {
	OldStart      int
	OldLines      int
	NewStart      int
	NewLines      int
	Header        string // The full "@@ ... @@" control line.
	StartPosition int
	Lines         []DiffLine
}
