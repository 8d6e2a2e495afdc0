package driven

import (
	"context"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// PRStore defines the driven port for persisting tracked pull requests.
type PRStore interface {
	Upsert(ctx context.Context, pr model.PullRequest) (int64, error)
	GetByNumber(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)
	ListAll(ctx context.Context) ([]model.PullRequest, error)
	Delete(ctx context.Context, id int64) error
}
