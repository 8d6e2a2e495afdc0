// Package diff parses unified-diff patch text into structured hunks and maps
// GitHub diff positions to file lines and back.
package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// ErrMalformedHunk is returned when a "@@" control line is missing its old or
// new range section.
var ErrMalformedHunk = errors.New("malformed hunk header")

// hunkHeaderRe matches "@@ -oldStart,oldLen +newStart,newLen @@" with the
// lengths optional, as produced by git and GitHub. Trailing function context
// after the closing "@@" is allowed and ignored.
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParsePatch parses the unified-diff body for a single file (no "diff --git"
// preamble) into an ordered sequence of hunks.
//
// Diff positions are assigned exactly as GitHub numbers them: the first
// addressable line after the first "@@" marker is position 1, and the counter
// increases by one for every add or context line across the whole patch.
// Delete and control lines never receive a position.
//
// An empty patch yields an empty slice. A control line missing its "-" or "+"
// section fails with an error wrapping ErrMalformedHunk.
func ParsePatch(patch string) ([]model.DiffHunk, error) {
	if patch == "" {
		return []model.DiffHunk{}, nil
	}

	var hunks []model.DiffHunk
	var current *model.DiffHunk
	oldLine, newLine := 0, 0
	position := 0

	for _, raw := range strings.Split(patch, "\n") {
		if strings.HasPrefix(raw, "@@") {
			m := hunkHeaderRe.FindStringSubmatch(raw)
			if m == nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedHunk, raw)
			}

			if current != nil {
				hunks = append(hunks, *current)
			}

			h, err := newHunk(m, raw)
			if err != nil {
				return nil, err
			}
			current = &h
			oldLine = h.OldStart
			newLine = h.NewStart
			continue
		}

		if current == nil {
			// Leading garbage before the first hunk header. GitHub patch
			// payloads start at "@@", so anything here is not ours to parse.
			continue
		}

		line, ok := classifyLine(raw, &oldLine, &newLine, &position)
		if !ok {
			// "\ No newline at end of file" and similar markers.
			continue
		}

		if line.Position > 0 && current.StartPosition == -1 {
			current.StartPosition = line.Position
		}
		current.Lines = append(current.Lines, line)
	}

	if current != nil {
		hunks = append(hunks, *current)
	}
	if hunks == nil {
		hunks = []model.DiffHunk{}
	}

	return hunks, nil
}

// newHunk builds a hunk from a matched control line. Omitted lengths default
// to 1, per the unified-diff convention.
func newHunk(m []string, header string) (model.DiffHunk, error) {
	oldStart, err := strconv.Atoi(m[1])
	if err != nil {
		return model.DiffHunk{}, fmt.Errorf("%w: old start %q", ErrMalformedHunk, m[1])
	}
	newStart, err := strconv.Atoi(m[3])
	if err != nil {
		return model.DiffHunk{}, fmt.Errorf("%w: new start %q", ErrMalformedHunk, m[3])
	}

	oldLines, newLines := 1, 1
	if m[2] != "" {
		if oldLines, err = strconv.Atoi(m[2]); err != nil {
			return model.DiffHunk{}, fmt.Errorf("%w: old length %q", ErrMalformedHunk, m[2])
		}
	}
	if m[4] != "" {
		if newLines, err = strconv.Atoi(m[4]); err != nil {
			return model.DiffHunk{}, fmt.Errorf("%w: new length %q", ErrMalformedHunk, m[4])
		}
	}

	return model.DiffHunk{
		OldStart:      oldStart,
		OldLines:      oldLines,
		NewStart:      newStart,
		NewLines:      newLines,
		Header:        header,
		StartPosition: -1,
		Lines: []model.DiffLine{{
			Type:     model.DiffLineControl,
			OldLine:  -1,
			NewLine:  -1,
			Position: -1,
			Text:     header,
		}},
	}, nil
}

// classifyLine turns one patch line into a DiffLine, advancing the old/new
// line counters and the diff-position counter as appropriate. It returns
// ok=false for marker lines that are not part of the diff content.
func classifyLine(raw string, oldLine, newLine, position *int) (model.DiffLine, bool) {
	if strings.HasPrefix(raw, `\`) {
		return model.DiffLine{}, false
	}

	var prefix byte = ' '
	text := raw
	if len(raw) > 0 {
		prefix = raw[0]
		text = raw[1:]
	} else {
		// Unprefixed blank line: git strips trailing whitespace-only context
		// in some tool chains; accept it as empty context.
		text = ""
	}

	switch prefix {
	case '+':
		*position++
		line := model.DiffLine{
			Type:     model.DiffLineAdd,
			OldLine:  -1,
			NewLine:  *newLine,
			Position: *position,
			Text:     text,
		}
		*newLine++
		return line, true
	case '-':
		line := model.DiffLine{
			Type:     model.DiffLineDelete,
			OldLine:  *oldLine,
			NewLine:  -1,
			Position: -1,
			Text:     text,
		}
		*oldLine++
		return line, true
	case ' ':
		*position++
		line := model.DiffLine{
			Type:     model.DiffLineContext,
			OldLine:  *oldLine,
			NewLine:  *newLine,
			Position: *position,
			Text:     text,
		}
		*oldLine++
		*newLine++
		return line, true
	default:
		return model.DiffLine{}, false
	}
}
