// Package gitrepo implements the PatchProvider port backed by go-git against
// a local clone of the tracked repository.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

var _ driven.PatchProvider = (*Provider)(nil)

// Provider reads patches from a local git repository. The clone must contain
// the commits referenced by the tracked pull request; a fetch that lags behind
// surfaces as an unresolvable revision, which callers treat as missing diff
// data rather than a fatal error.
type Provider struct {
	repoDir string
}

// NewProvider constructs a patch provider for the given repository directory.
func NewProvider(repoDir string) *Provider {
	return &Provider{repoDir: repoDir}
}

// DiffBetween returns the unified diff for a single file between two commits.
// An empty string means the file did not change between the commits.
func (p *Provider) DiffBetween(_ context.Context, baseSHA, headSHA, path string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(p.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseSHA)
	if err != nil {
		return "", fmt.Errorf("resolve base %s: %w", baseSHA, err)
	}

	headCommit, err := resolveCommit(repo, headSHA)
	if err != nil {
		return "", fmt.Errorf("resolve head %s: %w", headSHA, err)
	}

	patch, err := baseCommit.Patch(headCommit)
	if err != nil {
		return "", fmt.Errorf("compute patch %s..%s: %w", baseSHA, headSHA, err)
	}

	for _, fp := range patch.FilePatches() {
		if !matchesPath(fp, path) {
			continue
		}
		if fp.IsBinary() {
			return "", nil
		}
		return encodeFilePatch(fp)
	}

	return "", nil
}

// Show returns the full contents of a file at a given commit.
func (p *Provider) Show(_ context.Context, sha, path string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(p.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	commit, err := resolveCommit(repo, sha)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", sha, err)
	}

	file, err := commit.File(path)
	if err != nil {
		return "", fmt.Errorf("file %s at %s: %w", path, sha, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("read %s at %s: %w", path, sha, err)
	}

	return contents, nil
}

// resolveCommit resolves a revision (SHA, branch, or remote branch) to a commit.
func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	return nil, lastErr
}

// matchesPath reports whether a file patch touches the given path on either
// side of the diff, which covers renames.
func matchesPath(fp formatdiff.FilePatch, path string) bool {
	from, to := fp.Files()
	if to != nil && to.Path() == path {
		return true
	}
	return from != nil && from.Path() == path
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
