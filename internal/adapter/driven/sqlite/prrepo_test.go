package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

func makePR(number int, title string, status model.PRStatus) model.PullRequest {
	now := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	return model.PullRequest{
		Number:       number,
		RepoFullName: "octo/widgets",
		Title:        title,
		Author:       "testuser",
		Status:       status,
		URL:          "https://github.com/octo/widgets/pull/1",
		BaseRef:      "main",
		HeadRef:      "feature-branch",
		BaseSHA:      "base-sha",
		HeadSHA:      "head-sha",
		OpenedAt:     now,
		UpdatedAt:    now,
	}
}

func TestPRRepo_Upsert_Insert(t *testing.T) {
	db := setupTestDB(t)
	prRepo := NewPRRepo(db)
	ctx := context.Background()

	id, err := prRepo.Upsert(ctx, makePR(1, "Add parser", model.PRStatusOpen))
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := prRepo.GetByNumber(ctx, "octo/widgets", 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, id, got.ID, "loaded PR carries its row id")
	assert.Equal(t, 1, got.Number)
	assert.Equal(t, "Add parser", got.Title)
	assert.Equal(t, model.PRStatusOpen, got.Status)
	assert.Equal(t, "base-sha", got.BaseSHA)
	assert.Equal(t, "head-sha", got.HeadSHA)
}

func TestPRRepo_Upsert_UpdateKeepsRowID(t *testing.T) {
	db := setupTestDB(t)
	prRepo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR(1, "Add parser", model.PRStatusOpen)
	firstID, err := prRepo.Upsert(ctx, pr)
	require.NoError(t, err)

	pr.Title = "Add parser and mapper"
	pr.Status = model.PRStatusMerged
	pr.HeadSHA = "head-sha-2"
	secondID, err := prRepo.Upsert(ctx, pr)
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID, "upsert of the same PR keeps its row id")

	got, err := prRepo.GetByNumber(ctx, "octo/widgets", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Add parser and mapper", got.Title)
	assert.Equal(t, model.PRStatusMerged, got.Status)
	assert.Equal(t, "head-sha-2", got.HeadSHA)
}

func TestPRRepo_GetByNumber_NotFound(t *testing.T) {
	db := setupTestDB(t)
	prRepo := NewPRRepo(db)

	got, err := prRepo.GetByNumber(context.Background(), "octo/widgets", 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPRRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	prRepo := NewPRRepo(db)
	ctx := context.Background()

	older := makePR(1, "first", model.PRStatusOpen)
	older.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := makePR(2, "second", model.PRStatusOpen)
	newer.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := prRepo.Upsert(ctx, older)
	require.NoError(t, err)
	_, err = prRepo.Upsert(ctx, newer)
	require.NoError(t, err)

	prs, err := prRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, 2, prs[0].Number, "most recently updated first")
	assert.Equal(t, 1, prs[1].Number)
}

func TestPRRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	prRepo := NewPRRepo(db)
	ctx := context.Background()

	id, err := prRepo.Upsert(ctx, makePR(1, "doomed", model.PRStatusClosed))
	require.NoError(t, err)

	require.NoError(t, prRepo.Delete(ctx, id))

	got, err := prRepo.GetByNumber(ctx, "octo/widgets", 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = prRepo.Delete(ctx, id)
	assert.Error(t, err, "deleting a missing PR reports an error")
}
