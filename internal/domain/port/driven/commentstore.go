package driven

import (
	"context"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// CommentStore defines the driven port for persisting review comments between
// polls.
type CommentStore interface {
	UpsertComment(ctx context.Context, prID int64, comment model.Comment) error
	GetCommentsByPR(ctx context.Context, prID int64) ([]model.Comment, error)
	UpdateCommentOutdated(ctx context.Context, commentID int64, outdated bool) error
	// DeleteCommentsByPR removes all comments for the given PR. Used for
	// cleanup when a PR is closed.
	DeleteCommentsByPR(ctx context.Context, prID int64) error
}
