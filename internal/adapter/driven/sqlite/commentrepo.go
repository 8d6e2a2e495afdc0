package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reviewlens/reviewlens/internal/domain/model"
	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommentStore = (*CommentRepo)(nil)

// CommentRepo is the SQLite implementation of the CommentStore port interface.
// Comments are keyed by their GitHub id, so repeated syncs converge on the
// latest fetched state.
type CommentRepo struct {
	db *DB
}

// NewCommentRepo creates a new CommentRepo backed by the given DB.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// UpsertComment inserts or replaces a review comment belonging to the given
// pull request row.
func (r *CommentRepo) UpsertComment(ctx context.Context, prID int64, c model.Comment) error {
	const query = `
		INSERT INTO comments (
			id, pr_id, node_id, author, body, path, diff_hunk,
			position, original_position, review_id, in_reply_to_id,
			is_draft, is_resolved, is_outdated,
			commit_id, original_commit_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pr_id = excluded.pr_id,
			node_id = excluded.node_id,
			author = excluded.author,
			body = excluded.body,
			path = excluded.path,
			diff_hunk = excluded.diff_hunk,
			position = excluded.position,
			original_position = excluded.original_position,
			review_id = excluded.review_id,
			in_reply_to_id = excluded.in_reply_to_id,
			is_draft = excluded.is_draft,
			is_resolved = excluded.is_resolved,
			is_outdated = excluded.is_outdated,
			commit_id = excluded.commit_id,
			original_commit_id = excluded.original_commit_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		c.ID, prID, c.NodeID, c.Author, c.Body, c.Path, c.DiffHunk,
		nullableInt(c.Position), c.OriginalPosition,
		nullableInt64(c.ReviewID), nullableInt64(c.InReplyToID),
		boolToInt(c.IsDraft), boolToInt(c.IsResolved), boolToInt(c.IsOutdated),
		c.CommitID, c.OriginalCommitID,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert comment %d: %w", c.ID, err)
	}

	return nil
}

// GetCommentsByPR returns all comments for a pull request row, ordered by
// creation time then id so reconciliation input is deterministic.
func (r *CommentRepo) GetCommentsByPR(ctx context.Context, prID int64) ([]model.Comment, error) {
	const query = `
		SELECT id, node_id, author, body, path, diff_hunk,
		       position, original_position, review_id, in_reply_to_id,
		       is_draft, is_resolved, is_outdated,
		       commit_id, original_commit_id, created_at, updated_at
		FROM comments
		WHERE pr_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query comments for PR %d: %w", prID, err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

// UpdateCommentOutdated flips the persisted outdated flag for a comment.
func (r *CommentRepo) UpdateCommentOutdated(ctx context.Context, commentID int64, outdated bool) error {
	result, err := r.db.Writer.ExecContext(ctx,
		`UPDATE comments SET is_outdated = ? WHERE id = ?`,
		boolToInt(outdated), commentID,
	)
	if err != nil {
		return fmt.Errorf("update comment %d outdated: %w", commentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %d not found", commentID)
	}

	return nil
}

// DeleteCommentsByPR removes all comments for a pull request row.
func (r *CommentRepo) DeleteCommentsByPR(ctx context.Context, prID int64) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM comments WHERE pr_id = ?`, prID)
	if err != nil {
		return fmt.Errorf("delete comments for PR %d: %w", prID, err)
	}
	return nil
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	var position sql.NullInt64
	var reviewID, inReplyTo sql.NullInt64
	var isDraft, isResolved, isOutdated int
	var createdAt, updatedAt string

	err := s.Scan(
		&c.ID, &c.NodeID, &c.Author, &c.Body, &c.Path, &c.DiffHunk,
		&position, &c.OriginalPosition, &reviewID, &inReplyTo,
		&isDraft, &isResolved, &isOutdated,
		&c.CommitID, &c.OriginalCommitID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if position.Valid {
		v := int(position.Int64)
		c.Position = &v
	}
	if reviewID.Valid {
		v := reviewID.Int64
		c.ReviewID = &v
	}
	if inReplyTo.Valid {
		v := inReplyTo.Int64
		c.InReplyToID = &v
	}

	c.IsDraft = isDraft != 0
	c.IsResolved = isResolved != 0
	c.IsOutdated = isOutdated != 0

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
