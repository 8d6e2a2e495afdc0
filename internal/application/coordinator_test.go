package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// mockPatchProvider serves canned patches keyed by "base..head path" and
// counts lookups so memoization can be asserted.
type mockPatchProvider struct {
	patches map[string]string
	err     error
	calls   int
}

func (m *mockPatchProvider) key(baseSHA, headSHA, path string) string {
	return baseSHA + ".." + headSHA + " " + path
}

func (m *mockPatchProvider) DiffBetween(_ context.Context, baseSHA, headSHA, path string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.patches[m.key(baseSHA, headSHA, path)], nil
}

func (m *mockPatchProvider) Show(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func trackedPR() model.PullRequest {
	return model.PullRequest{
		ID:           1,
		Number:       7,
		RepoFullName: "octo/widgets",
		BaseSHA:      "base0",
		HeadSHA:      "head0",
	}
}

func TestCoordinator_NotReadyUntilBothSourcesArrive(t *testing.T) {
	ctx := context.Background()
	co := NewCoordinator(&mockPatchProvider{})
	gen := co.TrackPullRequest(trackedPR())

	_, err := co.ThreadsForFile(ctx, "main.go")
	assert.ErrorIs(t, err, ErrNotReady)

	co.UpdateTimeline(ctx, gen, nil)
	_, err = co.ThreadsForFile(ctx, "main.go")
	assert.ErrorIs(t, err, ErrNotReady, "timeline alone is partial data")

	co.UpdateComments(ctx, gen, nil)
	_, err = co.ThreadsForFile(ctx, "main.go")
	assert.NoError(t, err)
	assert.True(t, co.Ready())
}

func TestCoordinator_StaleGenerationDiscarded(t *testing.T) {
	ctx := context.Background()
	co := NewCoordinator(&mockPatchProvider{})

	oldGen := co.TrackPullRequest(trackedPR())
	newPR := trackedPR()
	newPR.Number = 8
	newGen := co.TrackPullRequest(newPR)

	// Completions from the old PR's fetch must not leak into the new one.
	co.UpdateComments(ctx, oldGen, []model.Comment{{ID: 1, Path: "main.go"}})
	co.UpdateTimeline(ctx, oldGen, nil)
	assert.False(t, co.Ready())

	co.UpdateComments(ctx, newGen, nil)
	co.UpdateTimeline(ctx, newGen, nil)
	assert.True(t, co.Ready())

	views, err := co.ThreadsForFile(ctx, "main.go")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCoordinator_ThreadsForFile(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{patches: map[string]string{
		"base0..head0 main.go": "@@ -1,2 +1,3 @@\n line1\n+added\n line2",
	}}
	co := NewCoordinator(provider)
	gen := co.TrackPullRequest(trackedPR())

	now := time.Now().Truncate(time.Second)
	comments := []model.Comment{
		{ID: 1, Path: "main.go", Position: intPtr(2), ReviewID: int64Ptr(50), CreatedAt: now},
		{ID: 2, Path: "main.go", InReplyToID: int64Ptr(1), ReviewID: int64Ptr(50), CreatedAt: now.Add(time.Minute)},
		{ID: 3, Path: "other.go", Position: intPtr(1), ReviewID: int64Ptr(50), CreatedAt: now},
	}
	co.UpdateTimeline(ctx, gen, []model.TimelineEvent{
		{Kind: model.TimelineEventReview, Review: &model.ReviewEvent{ID: 50, State: model.ReviewEventCommented}},
	})
	co.UpdateComments(ctx, gen, comments)

	views, err := co.ThreadsForFile(ctx, "main.go")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].Thread.Root.ID)
	require.Len(t, views[0].Thread.Replies, 1)
	assert.False(t, views[0].Anchor.Outdated)
	assert.Equal(t, 2, views[0].Anchor.Line)
}

func TestCoordinator_ProviderFailureDegradesToOutdated(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{err: errors.New("object not found")}
	co := NewCoordinator(provider)
	gen := co.TrackPullRequest(trackedPR())

	co.UpdateTimeline(ctx, gen, nil)
	co.UpdateComments(ctx, gen, []model.Comment{
		{ID: 1, Path: "main.go", Position: intPtr(1), CreatedAt: time.Now()},
	})

	views, err := co.ThreadsForFile(ctx, "main.go")
	require.NoError(t, err, "provider failures are non-fatal")
	require.Len(t, views, 1)
	assert.True(t, views[0].Anchor.Outdated, "no hunks available, comment shown outdated")
}

func TestCoordinator_HunksMemoized(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{patches: map[string]string{
		"base0..head0 main.go": "@@ -1,1 +1,2 @@\n a\n+b",
	}}
	co := NewCoordinator(provider)
	gen := co.TrackPullRequest(trackedPR())

	co.UpdateTimeline(ctx, gen, nil)
	co.UpdateComments(ctx, gen, nil)

	first, err := co.CommentingRanges(ctx, "main.go")
	require.NoError(t, err)
	callsAfterFirst := provider.calls

	second, err := co.CommentingRanges(ctx, "main.go")
	require.NoError(t, err)

	assert.Equal(t, first, second, "recomputation with unchanged inputs is identical")
	assert.Equal(t, callsAfterFirst, provider.calls, "second lookup served from cache")

	co.InvalidateFile("main.go")
	_, err = co.CommentingRanges(ctx, "main.go")
	require.NoError(t, err)
	assert.Greater(t, provider.calls, callsAfterFirst, "invalidation forces a fresh diff")
}

func TestCoordinator_MarkOutdated(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{patches: map[string]string{
		"base0..head0 main.go": "@@ -1,2 +1,3 @@\n line1\n+added\n line2",
	}}
	co := NewCoordinator(provider)
	gen := co.TrackPullRequest(trackedPR())

	comments := []model.Comment{
		{ID: 1, Path: "main.go", Position: intPtr(2)},
		{ID: 2, Path: "main.go", Position: nil},
		{ID: 3, Path: "main.go", Position: intPtr(99)},
	}
	co.MarkOutdated(ctx, gen, comments)

	assert.False(t, comments[0].IsOutdated, "position resolves in the head diff")
	assert.True(t, comments[1].IsOutdated, "cleared position")
	assert.True(t, comments[2].IsOutdated, "position beyond the head diff")
}

func TestCoordinator_MarkOutdated_StaleGenerationIgnored(t *testing.T) {
	ctx := context.Background()
	co := NewCoordinator(&mockPatchProvider{})

	oldGen := co.TrackPullRequest(trackedPR())
	newPR := trackedPR()
	newPR.Number = 8
	co.TrackPullRequest(newPR)

	comments := []model.Comment{{ID: 1, Path: "main.go", Position: nil}}
	co.MarkOutdated(ctx, oldGen, comments)

	assert.False(t, comments[0].IsOutdated, "stale call leaves comments untouched")
}

func TestCoordinator_CommentingRanges(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{patches: map[string]string{
		"base0..head0 main.go": "@@ -1,4 +1,4 @@\n a\n-b\n+b2\n c\n d\n" +
			"@@ -10,2 +10,3 @@\n x\n+y\n z",
	}}
	co := NewCoordinator(provider)
	gen := co.TrackPullRequest(trackedPR())
	co.UpdateTimeline(ctx, gen, nil)
	co.UpdateComments(ctx, gen, nil)

	ranges, err := co.CommentingRanges(ctx, "main.go")
	require.NoError(t, err)

	// First hunk: new lines 1 (context), then delete breaks the run, then 2-4.
	// Second hunk: new lines 10-12.
	require.Len(t, ranges, 3)
	assert.Equal(t, Range{Start: 1, End: 1}, ranges[0])
	assert.Equal(t, Range{Start: 2, End: 4}, ranges[1])
	assert.Equal(t, Range{Start: 10, End: 12}, ranges[2])
}

func TestCoordinator_SubscribersNotifiedPerFile(t *testing.T) {
	ctx := context.Background()
	provider := &mockPatchProvider{patches: map[string]string{
		"base0..head0 main.go": "@@ -1,1 +1,2 @@\n a\n+b",
	}}
	co := NewCoordinator(provider)

	var got []FileThreads
	co.Subscribe(func(ft FileThreads) { got = append(got, ft) })

	gen := co.TrackPullRequest(trackedPR())
	co.UpdateTimeline(ctx, gen, nil)
	co.UpdateComments(ctx, gen, []model.Comment{
		{ID: 1, Path: "main.go", Position: intPtr(2), CreatedAt: time.Now()},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "main.go", got[0].Path)
	require.Len(t, got[0].Threads, 1)
	assert.Equal(t, 2, got[0].Threads[0].Anchor.Line)
}

func TestCoordinator_StopTrackingEvicts(t *testing.T) {
	ctx := context.Background()
	co := NewCoordinator(&mockPatchProvider{})
	gen := co.TrackPullRequest(trackedPR())
	co.UpdateTimeline(ctx, gen, nil)
	co.UpdateComments(ctx, gen, nil)
	require.True(t, co.Ready())

	co.StopTracking()
	assert.False(t, co.Ready())
	_, err := co.Events()
	assert.ErrorIs(t, err, ErrNotReady)
}
