package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reviewlens/reviewlens/internal/domain/model"
	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	number int
	done   chan error
}

// SyncService orchestrates periodic GitHub polling for the tracked pull
// request, persistence, and delivery of complete payloads to the Coordinator.
//
// A fetch cycle hands data to the coordinator only once the comment list and
// the timeline are both in hand, tagged with the generation current at cycle
// start; if the tracked PR switches mid-flight the coordinator discards the
// stale completion.
type SyncService struct {
	ghClient     driven.GitHubClient
	prStore      driven.PRStore
	commentStore driven.CommentStore
	coordinator  *Coordinator
	repoFullName string
	interval     time.Duration

	number    int // PR number being tracked.
	refreshCh chan refreshRequest

	// Tracking state carried across poll cycles, touched only from the Start
	// goroutine. Keeping the generation stable while the same PR stays open
	// lets the coordinator's hunk cache survive unchanged polls.
	tracked       bool
	trackedNumber int
	generation    uint64
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	ghClient driven.GitHubClient,
	prStore driven.PRStore,
	commentStore driven.CommentStore,
	coordinator *Coordinator,
	repoFullName string,
	number int,
	interval time.Duration,
) *SyncService {
	return &SyncService{
		ghClient:     ghClient,
		prStore:      prStore,
		commentStore: commentStore,
		coordinator:  coordinator,
		repoFullName: repoFullName,
		interval:     interval,
		number:       number,
		refreshCh:    make(chan refreshRequest),
	}
}

// Start begins the polling loop. It runs an immediate sync, then syncs on the
// configured interval, and also listens for manual refresh requests. Start
// blocks until the context is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.syncOnce(ctx, s.number); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncOnce(ctx, s.number); err != nil {
				slog.Error("sync cycle failed", "error", err)
			}
		case req := <-s.refreshCh:
			s.number = req.number
			req.done <- s.syncOnce(ctx, req.number)
		}
	}
}

// Refresh triggers an immediate sync of the given pull request, switching
// tracking to it if it differs from the current one. It blocks until the sync
// completes or the context is canceled.
func (s *SyncService) Refresh(ctx context.Context, number int) error {
	done := make(chan error, 1)
	req := refreshRequest{number: number, done: done}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncOnce performs one complete fetch-and-reconcile cycle for a pull request.
func (s *SyncService) syncOnce(ctx context.Context, number int) error {
	start := time.Now()

	pr, err := s.ghClient.FetchPullRequest(ctx, s.repoFullName, number)
	if err != nil {
		return fmt.Errorf("fetching PR %s#%d: %w", s.repoFullName, number, err)
	}

	if pr.Status != model.PRStatusOpen {
		return s.evict(ctx, number, pr.Status)
	}

	generation := s.track(ctx, *pr, number)

	prID, err := s.prStore.Upsert(ctx, *pr)
	if err != nil {
		return fmt.Errorf("storing PR %s#%d: %w", s.repoFullName, number, err)
	}

	comments, err := s.ghClient.FetchReviewComments(ctx, s.repoFullName, number)
	if err != nil {
		return fmt.Errorf("fetching review comments for %s#%d: %w", s.repoFullName, number, err)
	}

	timeline, err := s.ghClient.FetchTimeline(ctx, s.repoFullName, number)
	if err != nil {
		return fmt.Errorf("fetching timeline for %s#%d: %w", s.repoFullName, number, err)
	}

	pendingID, err := s.ghClient.FetchPendingReviewID(ctx, s.repoFullName, number)
	if err != nil {
		// A missing pending review is the common case; a failed lookup only
		// costs draft labeling for this cycle.
		slog.Warn("pending review lookup failed", "error", err)
		pendingID = nil
	}

	resolution, err := s.ghClient.FetchThreadResolution(ctx, s.repoFullName, number)
	if err != nil {
		slog.Warn("thread resolution lookup failed", "error", err)
		resolution = map[int64]bool{}
	}

	markDrafts(comments, pendingID)
	for i := range comments {
		if resolved, ok := resolution[comments[i].ID]; ok {
			comments[i].IsResolved = resolved
		}
	}

	// Replace the stored comment set wholesale so comments deleted on the
	// remote do not linger from earlier cycles.
	if err := s.commentStore.DeleteCommentsByPR(ctx, prID); err != nil {
		return fmt.Errorf("clearing comments for PR %s#%d: %w", s.repoFullName, number, err)
	}
	for _, c := range comments {
		if err := s.commentStore.UpsertComment(ctx, prID, c); err != nil {
			return fmt.Errorf("storing comment %d: %w", c.ID, err)
		}
	}

	// The outdated flag is derived from the local diff rather than fetched, so
	// it is classified after the fetched state is stored and persisted as a
	// targeted column update.
	s.coordinator.MarkOutdated(ctx, generation, comments)
	for _, c := range comments {
		if !c.IsOutdated {
			continue
		}
		if err := s.commentStore.UpdateCommentOutdated(ctx, c.ID, true); err != nil {
			return fmt.Errorf("flagging comment %d outdated: %w", c.ID, err)
		}
	}

	// Hand both payloads to the coordinator; reconciliation runs once the
	// second one lands.
	s.coordinator.UpdateTimeline(ctx, generation, timeline)
	s.coordinator.UpdateComments(ctx, generation, comments)

	slog.Info("sync complete",
		"repo", s.repoFullName,
		"pr", number,
		"comments", len(comments),
		"timeline_events", len(timeline),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// track registers the pull request with the coordinator. The generation is
// established once per tracked PR and reused on later cycles, so the memoized
// hunk cache survives polls that change nothing; pushes only move the diff
// range, which evicts the superseded entries.
func (s *SyncService) track(ctx context.Context, pr model.PullRequest, number int) uint64 {
	if !s.tracked || s.trackedNumber != number {
		s.generation = s.coordinator.TrackPullRequest(pr)
		s.tracked = true
		s.trackedNumber = number
		return s.generation
	}

	s.coordinator.UpdateDiffRange(ctx, s.generation, pr.BaseSHA, pr.HeadSHA)
	return s.generation
}

// evict stops tracking a pull request that left the open state and removes its
// persisted rows.
func (s *SyncService) evict(ctx context.Context, number int, status model.PRStatus) error {
	slog.Info("tracked pull request no longer open, evicting",
		"repo", s.repoFullName,
		"pr", number,
		"status", status,
	)

	s.coordinator.StopTracking()
	s.tracked = false

	stored, err := s.prStore.GetByNumber(ctx, s.repoFullName, number)
	if err != nil {
		return fmt.Errorf("looking up PR %s#%d for eviction: %w", s.repoFullName, number, err)
	}
	if stored == nil {
		return nil
	}

	if err := s.commentStore.DeleteCommentsByPR(ctx, stored.ID); err != nil {
		return fmt.Errorf("deleting comments for PR %s#%d: %w", s.repoFullName, number, err)
	}
	if err := s.prStore.Delete(ctx, stored.ID); err != nil {
		return fmt.Errorf("deleting PR %s#%d: %w", s.repoFullName, number, err)
	}

	return nil
}

// markDrafts flags the comments belonging to the user's in-progress review.
// Comments with no review id yet are drafts by definition; the rest match on
// the pending review's id.
func markDrafts(comments []model.Comment, pendingID *int64) {
	for i := range comments {
		switch {
		case comments[i].ReviewID == nil:
			comments[i].IsDraft = true
		case pendingID != nil && *comments[i].ReviewID == *pendingID:
			comments[i].IsDraft = true
		}
	}
}
