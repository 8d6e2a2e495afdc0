package driven

import "context"

// PatchProvider defines the driven port for reading diffs and file content
// from the local git object store. Object-not-found errors are non-fatal to
// callers, which fall back to "no hunks available".
type PatchProvider interface {
	// DiffBetween returns the unified-diff body for a single path between two
	// commits, without the "diff --git" preamble. An unchanged path yields an
	// empty string.
	DiffBetween(ctx context.Context, baseSHA, headSHA, path string) (string, error)

	// Show returns the content of path at the given commit.
	Show(ctx context.Context, sha, path string) (string, error)
}
