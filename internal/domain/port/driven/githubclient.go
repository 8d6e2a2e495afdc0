package driven

import (
	"context"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// GitHubClient defines the driven port for fetching pull request review data.
// The core is agnostic to transport; the adapter may answer from REST or
// GraphQL as long as the typed records are complete.
type GitHubClient interface {
	// FetchPullRequest returns the PR identified by number, including its
	// current base/head refs and SHAs.
	FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)

	// FetchReviewComments returns the flat list of inline review comments for
	// a pull request, in server order.
	FetchReviewComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error)

	// FetchTimeline returns the pull request's timeline events. Review events
	// carry empty Comments; the reconciler populates them.
	FetchTimeline(ctx context.Context, repoFullName string, number int) ([]model.TimelineEvent, error)

	// FetchPendingReviewID returns the current user's in-progress review id
	// for the pull request, or nil when no pending review exists.
	FetchPendingReviewID(ctx context.Context, repoFullName string, number int) (*int64, error)

	// FetchThreadResolution returns a map of review comment ID to its resolved
	// status. This data comes from the GitHub GraphQL API; failures degrade to
	// an empty map.
	FetchThreadResolution(ctx context.Context, repoFullName string, number int) (map[int64]bool, error)
}
