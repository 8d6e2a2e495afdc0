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
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// Upsert inserts or replaces a pull request, keyed by (repo_full_name, number).
// It returns the local row id, which comment rows reference.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) (int64, error) {
	const query = `
		INSERT INTO pull_requests (
			number, repo_full_name, title, author, status, is_draft,
			url, base_ref, head_ref, base_sha, head_sha, opened_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, number) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			status = excluded.status,
			is_draft = excluded.is_draft,
			url = excluded.url,
			base_ref = excluded.base_ref,
			head_ref = excluded.head_ref,
			base_sha = excluded.base_sha,
			head_sha = excluded.head_sha,
			opened_at = excluded.opened_at,
			updated_at = excluded.updated_at
	`

	isDraft := 0
	if pr.IsDraft {
		isDraft = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		pr.Number, pr.RepoFullName, pr.Title, pr.Author, string(pr.Status), isDraft,
		pr.URL, pr.BaseRef, pr.HeadRef, pr.BaseSHA, pr.HeadSHA,
		pr.OpenedAt.UTC().Format(time.RFC3339), pr.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert pull request %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	// The upsert may have updated an existing row, so LastInsertId is not
	// reliable; look the row id up through the writer connection.
	var id int64
	err = r.db.Writer.QueryRowContext(ctx,
		`SELECT id FROM pull_requests WHERE repo_full_name = ? AND number = ?`,
		pr.RepoFullName, pr.Number,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve pull request id %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	return id, nil
}

// GetByNumber retrieves a single pull request by repository and number.
// Returns nil, nil if the pull request does not exist.
func (r *PRRepo) GetByNumber(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	const query = `
		SELECT id, number, repo_full_name, title, author, status, is_draft,
		       url, base_ref, head_ref, base_sha, head_sha, opened_at, updated_at
		FROM pull_requests
		WHERE repo_full_name = ? AND number = ?
	`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, repoFullName, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %s#%d: %w", repoFullName, number, err)
	}

	return pr, nil
}

// ListAll returns all pull requests ordered by updated_at descending.
func (r *PRRepo) ListAll(ctx context.Context) ([]model.PullRequest, error) {
	const query = `
		SELECT id, number, repo_full_name, title, author, status, is_draft,
		       url, base_ref, head_ref, base_sha, head_sha, opened_at, updated_at
		FROM pull_requests
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// Delete removes a pull request by its local row id. Comment rows cascade.
func (r *PRRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM pull_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("pull request %d not found", id)
	}

	return nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var status string
	var isDraft int
	var openedAt, updatedAt string

	err := s.Scan(
		&pr.ID, &pr.Number, &pr.RepoFullName, &pr.Title, &pr.Author,
		&status, &isDraft, &pr.URL, &pr.BaseRef, &pr.HeadRef,
		&pr.BaseSHA, &pr.HeadSHA, &openedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.Status = model.PRStatus(status)
	pr.IsDraft = isDraft != 0

	pr.OpenedAt, err = parseTime(openedAt)
	if err != nil {
		return nil, fmt.Errorf("parse opened_at: %w", err)
	}

	pr.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &pr, nil
}
