package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reviewlens/reviewlens/internal/diff"
	"github.com/reviewlens/reviewlens/internal/domain/model"
	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

// ErrNotReady is returned while the coordinator is still waiting for either
// the comment list or the timeline. Reconciliation never runs on partial data;
// callers defer and retry after the next update.
var ErrNotReady = errors.New("pull request data not fully fetched")

// Range is an inclusive 1-based span of new-file lines that can receive a
// comment.
type Range struct {
	Start int
	End   int
}

// ThreadView is a reconciled conversation thread resolved against the current
// diff range of the tracked pull request.
type ThreadView struct {
	Thread model.ReviewThread
	Anchor Anchor
}

// FileThreads is the per-file payload delivered to subscribers after each
// recomputation.
type FileThreads struct {
	Path    string
	Threads []ThreadView
}

// patchKey memoizes parsed hunks per file and diff range. Entries are evicted
// wholesale when the tracked PR switches or closes.
type patchKey struct {
	path    string
	baseSHA string
	headSHA string
}

// Coordinator exposes the reconciled, mapped review data as per-file
// commenting ranges and comment threads, recomputing incrementally as either
// the local diff range or the remote comment set changes.
//
// All remote updates are tagged with the generation returned by
// TrackPullRequest; completions for a previously tracked PR are discarded
// instead of being merged into the new one.
type Coordinator struct {
	patches driven.PatchProvider

	mu           sync.Mutex
	pr           *model.PullRequest
	generation   uint64
	comments     []model.Comment
	timeline     []model.TimelineEvent
	haveComments bool
	haveTimeline bool
	events       []model.ReviewEvent
	hunkCache    map[patchKey][]model.DiffHunk
	subscribers  []func(FileThreads)
}

// NewCoordinator creates a Coordinator reading diffs from the given provider.
func NewCoordinator(patches driven.PatchProvider) *Coordinator {
	return &Coordinator{
		patches:   patches,
		hunkCache: make(map[patchKey][]model.DiffHunk),
	}
}

// Subscribe registers a callback invoked with (path, threads) for every file
// affected by a recomputation. Callbacks run synchronously on the updating
// goroutine and must not call back into the Coordinator.
func (co *Coordinator) Subscribe(fn func(FileThreads)) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.subscribers = append(co.subscribers, fn)
}

// TrackPullRequest switches the coordinator to a new pull request and returns
// the generation tag updates must carry. All previously fetched data and
// cached hunks are discarded.
func (co *Coordinator) TrackPullRequest(pr model.PullRequest) uint64 {
	co.mu.Lock()
	defer co.mu.Unlock()

	co.generation++
	co.pr = &pr
	co.comments = nil
	co.timeline = nil
	co.haveComments = false
	co.haveTimeline = false
	co.events = nil
	co.hunkCache = make(map[patchKey][]model.DiffHunk)

	return co.generation
}

// StopTracking clears all state and evicts the hunk cache. Called when the
// tracked pull request is closed.
func (co *Coordinator) StopTracking() {
	co.mu.Lock()
	defer co.mu.Unlock()

	co.generation++
	co.pr = nil
	co.comments = nil
	co.timeline = nil
	co.haveComments = false
	co.haveTimeline = false
	co.events = nil
	co.hunkCache = make(map[patchKey][]model.DiffHunk)
}

// UpdateComments replaces the remote comment set. Updates tagged with a stale
// generation are ignored.
func (co *Coordinator) UpdateComments(ctx context.Context, generation uint64, comments []model.Comment) {
	co.mu.Lock()
	if generation != co.generation {
		co.mu.Unlock()
		slog.Debug("discarding stale comment update", "generation", generation)
		return
	}
	co.comments = comments
	co.haveComments = true
	co.mu.Unlock()

	co.recompute(ctx)
}

// UpdateTimeline replaces the timeline event set. Updates tagged with a stale
// generation are ignored.
func (co *Coordinator) UpdateTimeline(ctx context.Context, generation uint64, timeline []model.TimelineEvent) {
	co.mu.Lock()
	if generation != co.generation {
		co.mu.Unlock()
		slog.Debug("discarding stale timeline update", "generation", generation)
		return
	}
	co.timeline = timeline
	co.haveTimeline = true
	co.mu.Unlock()

	co.recompute(ctx)
}

// UpdateDiffRange records new base/head SHAs after a push and evicts hunk
// cache entries for the superseded range.
func (co *Coordinator) UpdateDiffRange(ctx context.Context, generation uint64, baseSHA, headSHA string) {
	co.mu.Lock()
	if generation != co.generation || co.pr == nil {
		co.mu.Unlock()
		return
	}
	if co.pr.SameDiffRange(baseSHA, headSHA) {
		co.mu.Unlock()
		return
	}
	co.pr.BaseSHA = baseSHA
	co.pr.HeadSHA = headSHA
	for key := range co.hunkCache {
		if key.headSHA == headSHA {
			continue
		}
		delete(co.hunkCache, key)
	}
	co.mu.Unlock()

	co.recompute(ctx)
}

// InvalidateFile drops the cached hunks for a single path, forcing a fresh
// diff from the patch provider on next access. Called when the local file's
// on-disk content changes.
func (co *Coordinator) InvalidateFile(path string) {
	co.mu.Lock()
	defer co.mu.Unlock()
	for key := range co.hunkCache {
		if key.path == path {
			delete(co.hunkCache, key)
		}
	}
}

// Ready reports whether both the comment list and the timeline have arrived
// for the tracked pull request.
func (co *Coordinator) Ready() bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.ready()
}

func (co *Coordinator) ready() bool {
	return co.pr != nil && co.haveComments && co.haveTimeline
}

// Events returns the reconciled review events, or ErrNotReady while data is
// still partial.
func (co *Coordinator) Events() ([]model.ReviewEvent, error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	if !co.ready() {
		return nil, ErrNotReady
	}
	return co.events, nil
}

// ThreadsForFile returns the reconciled threads rooted in the given file,
// each resolved to its anchor in the current diff range. Patch provider
// failures degrade to "no hunks available": the threads are still returned,
// flagged outdated.
func (co *Coordinator) ThreadsForFile(ctx context.Context, path string) ([]ThreadView, error) {
	co.mu.Lock()
	if !co.ready() {
		co.mu.Unlock()
		return nil, ErrNotReady
	}
	pr := *co.pr
	comments := co.comments
	co.mu.Unlock()

	return co.threadsForFile(ctx, pr, comments, path), nil
}

func (co *Coordinator) threadsForFile(ctx context.Context, pr model.PullRequest, comments []model.Comment, path string) []ThreadView {
	var fileComments []model.Comment
	for _, c := range comments {
		if c.Path == path {
			fileComments = append(fileComments, c)
		}
	}
	if len(fileComments) == 0 {
		return nil
	}

	headHunks := co.hunksFor(ctx, path, pr.BaseSHA, pr.HeadSHA)

	views := make([]ThreadView, 0, len(fileComments))
	for _, thread := range BuildThreads(fileComments) {
		baseHunks := co.hunksFor(ctx, path, pr.BaseSHA, thread.Root.OriginalCommitID)
		views = append(views, ThreadView{
			Thread: thread,
			Anchor: ClassifyComment(thread.Root, headHunks, baseHunks),
		})
	}
	return views
}

// MarkOutdated resolves each comment's position against the current head diff
// and sets its IsOutdated flag in place. The hunk tables come from the same
// memoized cache the thread views use, so classification and anchors never
// disagree. Calls tagged with a stale generation are ignored.
func (co *Coordinator) MarkOutdated(ctx context.Context, generation uint64, comments []model.Comment) {
	co.mu.Lock()
	if generation != co.generation || co.pr == nil {
		co.mu.Unlock()
		return
	}
	pr := *co.pr
	co.mu.Unlock()

	for i := range comments {
		hunks := co.hunksFor(ctx, comments[i].Path, pr.BaseSHA, pr.HeadSHA)
		comments[i].IsOutdated = IsOutdated(comments[i], hunks)
	}
}

// CommentingRanges returns the new-file line ranges of the given path that can
// receive a comment: contiguous runs of added and context lines within the
// current head diff.
func (co *Coordinator) CommentingRanges(ctx context.Context, path string) ([]Range, error) {
	co.mu.Lock()
	if !co.ready() {
		co.mu.Unlock()
		return nil, ErrNotReady
	}
	pr := *co.pr
	co.mu.Unlock()

	hunks := co.hunksFor(ctx, path, pr.BaseSHA, pr.HeadSHA)

	var ranges []Range
	for _, h := range hunks {
		open := false
		var current Range
		for _, l := range h.Lines {
			commentable := (l.Type == model.DiffLineAdd || l.Type == model.DiffLineContext) && l.NewLine > 0
			switch {
			case commentable && !open:
				current = Range{Start: l.NewLine, End: l.NewLine}
				open = true
			case commentable:
				current.End = l.NewLine
			case open:
				ranges = append(ranges, current)
				open = false
			}
		}
		if open {
			ranges = append(ranges, current)
		}
	}
	return ranges, nil
}

// recompute rebuilds the reconciled event tree and notifies subscribers for
// every file carrying comments. It is a no-op until both data sources have
// arrived. Recomputing with unchanged inputs yields identical output.
func (co *Coordinator) recompute(ctx context.Context) {
	co.mu.Lock()
	if !co.ready() {
		co.mu.Unlock()
		return
	}

	pr := *co.pr
	comments := co.comments
	events := reviewEvents(co.timeline)
	co.events = Reconcile(comments, events)

	subscribers := make([]func(FileThreads), len(co.subscribers))
	copy(subscribers, co.subscribers)
	co.mu.Unlock()

	if len(subscribers) == 0 {
		return
	}

	for _, path := range commentPaths(comments) {
		payload := FileThreads{
			Path:    path,
			Threads: co.threadsForFile(ctx, pr, comments, path),
		}
		for _, fn := range subscribers {
			fn(payload)
		}
	}
}

// hunksFor returns the parsed hunks for a path between two SHAs, memoized by
// (path, base, head). Provider or parse failures are recovered locally: the
// entry becomes an empty hunk table and comments on the file render as
// outdated rather than crashing the caller.
func (co *Coordinator) hunksFor(ctx context.Context, path, baseSHA, headSHA string) []model.DiffHunk {
	if baseSHA == "" || headSHA == "" {
		return nil
	}

	key := patchKey{path: path, baseSHA: baseSHA, headSHA: headSHA}

	co.mu.Lock()
	if hunks, ok := co.hunkCache[key]; ok {
		co.mu.Unlock()
		return hunks
	}
	co.mu.Unlock()

	patch, err := co.patches.DiffBetween(ctx, baseSHA, headSHA, path)
	if err != nil {
		slog.Warn("diff unavailable, treating file as having no hunks",
			"path", path,
			"base", baseSHA,
			"head", headSHA,
			"error", err,
		)
		patch = ""
	}

	hunks, err := diff.ParsePatch(patch)
	if err != nil {
		slog.Warn("unparseable patch, treating file as having no hunks", "path", path, "error", err)
		hunks = []model.DiffHunk{}
	}

	co.mu.Lock()
	co.hunkCache[key] = hunks
	co.mu.Unlock()

	return hunks
}

// reviewEvents extracts fresh copies of the review events from the timeline,
// in timeline order.
func reviewEvents(timeline []model.TimelineEvent) []model.ReviewEvent {
	var events []model.ReviewEvent
	for _, ev := range timeline {
		if ev.Kind == model.TimelineEventReview && ev.Review != nil {
			events = append(events, *ev.Review)
		}
	}
	return events
}

// commentPaths returns the distinct file paths carrying comments, in first
// appearance order.
func commentPaths(comments []model.Comment) []string {
	seen := make(map[string]bool, len(comments))
	var paths []string
	for _, c := range comments {
		if c.Path == "" || seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		paths = append(paths, c.Path)
	}
	return paths
}
