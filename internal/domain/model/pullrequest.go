package model

import "time"

// PRStatus represents the state of a pull request.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// PullRequest represents a GitHub pull request tracked by reviewlens.
// The base/head SHAs identify the diff range comment positions are resolved
// against; they move as the author pushes.
type PullRequest struct {
	ID           int64 // Local storage id; zero until persisted.
	Number       int
	RepoFullName string
	Title        string
	Author       string
	Status       PRStatus
	IsDraft      bool
	URL          string
	BaseRef      string
	HeadRef      string
	BaseSHA      string
	HeadSHA      string
	OpenedAt     time.Time
	UpdatedAt    time.Time
}

// SameDiffRange reports whether the PR still spans the given base/head pair.
// Cached hunk tables are invalid once this returns false.
func (pr PullRequest) SameDiffRange(baseSHA, headSHA string) bool {
	return pr.BaseSHA == baseSHA && pr.HeadSHA == headSHA
}
