// Package application contains use-case orchestration over the diff, comment,
// and timeline data.
package application

import (
	"log/slog"
	"sort"

	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// BuildThreads rebuilds conversation threads from the flat comment list.
//
// Replies may arrive before or after their parent in arbitrary fetch order and
// nesting depth is unbounded, so the tree is built in two passes: a children
// multimap keyed by parent id, then one pre-order traversal per root with each
// level ordered by CreatedAt. Replies whose parent id matches no known comment
// fail open as roots of their own thread; a reply cycle is a data-integrity
// anomaly whose members are likewise retained as roots. No input comment is
// ever dropped.
func BuildThreads(comments []model.Comment) []model.ReviewThread {
	if len(comments) == 0 {
		return nil
	}

	byID := make(map[int64]model.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	children := make(map[int64][]model.Comment)
	var roots []model.Comment

	for _, c := range comments {
		switch {
		case c.InReplyToID == nil:
			roots = append(roots, c)
		default:
			parentID := *c.InReplyToID
			if _, ok := byID[parentID]; !ok {
				slog.Warn("orphaned reply retained as thread root",
					"comment_id", c.ID,
					"in_reply_to", parentID,
				)
				roots = append(roots, c)
				continue
			}
			children[parentID] = append(children[parentID], c)
		}
	}

	for id := range children {
		sort.Slice(children[id], func(i, j int) bool {
			return children[id][i].CreatedAt.Before(children[id][j].CreatedAt)
		})
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].CreatedAt.Before(roots[j].CreatedAt)
	})

	visited := make(map[int64]bool, len(comments))
	threads := make([]model.ReviewThread, 0, len(roots))
	for _, root := range roots {
		visited[root.ID] = true
		threads = append(threads, model.ReviewThread{
			Root:    root,
			Replies: flattenReplies(root.ID, children, visited),
		})
	}

	// Comments reachable from no root can only exist if the reply graph
	// contains a cycle. Retain each as its own thread.
	if len(visited) != len(comments) {
		for _, c := range comments {
			if visited[c.ID] {
				continue
			}
			slog.Warn("reply cycle detected, comment retained as thread root", "comment_id", c.ID)
			visited[c.ID] = true
			threads = append(threads, model.ReviewThread{
				Root:    c,
				Replies: flattenReplies(c.ID, children, visited),
			})
		}
	}

	return threads
}

// flattenReplies collects the transitive descendants of parentID in pre-order.
func flattenReplies(parentID int64, children map[int64][]model.Comment, visited map[int64]bool) []model.Comment {
	var out []model.Comment
	for _, c := range children[parentID] {
		if visited[c.ID] {
			continue
		}
		visited[c.ID] = true
		out = append(out, c)
		out = append(out, flattenReplies(c.ID, children, visited)...)
	}
	return out
}

// Reconcile attaches reconstructed comment threads to their owning review
// events. Events are mutated in place: each event's Comments is rebuilt
// wholesale, so calling Reconcile twice with identical input yields identical
// trees.
//
// A root whose ReviewID matches no known event lands in a synthetic bucket
// event appended to the result rather than being discarded. When a pending
// review exists, its comments are overwritten with every draft comment
// regardless of the draft's ReviewID, since in-progress review comments may
// not yet carry a stable review id; drafts are moved there, not duplicated.
func Reconcile(comments []model.Comment, events []model.ReviewEvent) []model.ReviewEvent {
	eventsByID := make(map[int64]*model.ReviewEvent, len(events))
	var pending *model.ReviewEvent
	for i := range events {
		events[i].Comments = nil
		eventsByID[events[i].ID] = &events[i]
		if events[i].IsPending() && pending == nil {
			pending = &events[i]
		}
	}

	var bucket *model.ReviewEvent
	for _, thread := range BuildThreads(comments) {
		flat := thread.Comments()
		if pending != nil {
			flat = withoutDrafts(flat)
		}
		if len(flat) == 0 {
			continue
		}

		root := thread.Root
		if root.ReviewID != nil {
			if ev, ok := eventsByID[*root.ReviewID]; ok {
				ev.Comments = append(ev.Comments, flat...)
				continue
			}
		}

		slog.Warn("thread root matches no review event, retained in bucket",
			"comment_id", root.ID,
			"review_id", root.ReviewID,
		)
		if bucket == nil {
			bucket = &model.ReviewEvent{State: model.ReviewEventCommented}
		}
		bucket.Comments = append(bucket.Comments, flat...)
	}

	if pending != nil {
		pending.Comments = draftsInOrder(comments)
	}

	if bucket != nil {
		events = append(events, *bucket)
	}
	return events
}

// withoutDrafts filters draft comments out of a flattened thread. Drafts are
// reassigned to the pending review event instead.
func withoutDrafts(comments []model.Comment) []model.Comment {
	out := comments[:0:0]
	for _, c := range comments {
		if !c.IsDraft {
			out = append(out, c)
		}
	}
	return out
}

// draftsInOrder returns every draft comment sorted by creation time.
func draftsInOrder(comments []model.Comment) []model.Comment {
	var drafts []model.Comment
	for _, c := range comments {
		if c.IsDraft {
			drafts = append(drafts, c)
		}
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].CreatedAt.Before(drafts[j].CreatedAt)
	})
	return drafts
}
