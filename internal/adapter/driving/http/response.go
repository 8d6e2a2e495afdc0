package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/reviewlens/reviewlens/internal/application"
	"github.com/reviewlens/reviewlens/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// PRResponse is the JSON representation of the tracked pull request.
type PRResponse struct {
	Number     int    `json:"number"`
	Repository string `json:"repository"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Status     string `json:"status"`
	IsDraft    bool   `json:"is_draft"`
	URL        string `json:"url"`
	BaseRef    string `json:"base_ref"`
	HeadRef    string `json:"head_ref"`
	BaseSHA    string `json:"base_sha"`
	HeadSHA    string `json:"head_sha"`
	OpenedAt   string `json:"opened_at"`
	UpdatedAt  string `json:"updated_at"`
}

// CommentResponse is the JSON representation of a single review comment. The
// body is rendered to sanitized HTML alongside the raw markdown.
type CommentResponse struct {
	ID               int64  `json:"id"`
	Author           string `json:"author"`
	Body             string `json:"body"`
	BodyHTML         string `json:"body_html"`
	FilePath         string `json:"file_path"`
	Position         *int   `json:"position"`
	OriginalPosition int    `json:"original_position"`
	DiffHunk         string `json:"diff_hunk"`
	DiffHunkHTML     string `json:"diff_hunk_html"`
	IsDraft          bool   `json:"is_draft"`
	IsResolved       bool   `json:"is_resolved"`
	IsOutdated       bool   `json:"is_outdated"`
	CommitID         string `json:"commit_id"`
	CreatedAt        string `json:"created_at"`
}

// AnchorResponse locates a thread in the current working set: a head line when
// current, a base line when outdated.
type AnchorResponse struct {
	Outdated bool `json:"outdated"`
	Line     int  `json:"line,omitempty"`
	BaseLine int  `json:"base_line,omitempty"`
}

// ThreadResponse is a grouped conversation thread with its anchor.
type ThreadResponse struct {
	RootComment  CommentResponse   `json:"root_comment"`
	Replies      []CommentResponse `json:"replies"`
	Anchor       AnchorResponse    `json:"anchor"`
	IsResolved   bool              `json:"is_resolved"`
	CommentCount int               `json:"comment_count"`
}

// ReviewEventResponse is a reconciled review event with its associated comments.
type ReviewEventResponse struct {
	ID          int64             `json:"id"`
	Author      string            `json:"author"`
	State       string            `json:"state"`
	Body        string            `json:"body"`
	BodyHTML    string            `json:"body_html"`
	CommitID    string            `json:"commit_id"`
	SubmittedAt string            `json:"submitted_at,omitempty"`
	IsPending   bool              `json:"is_pending"`
	Comments    []CommentResponse `json:"comments"`
}

// RangeResponse is an inclusive 1-based span of commentable new-file lines.
type RangeResponse struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	Time   string `json:"time"`
}

// toPRResponse converts a domain PullRequest to its JSON response representation.
func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		Number:     pr.Number,
		Repository: pr.RepoFullName,
		Title:      pr.Title,
		Author:     pr.Author,
		Status:     string(pr.Status),
		IsDraft:    pr.IsDraft,
		URL:        pr.URL,
		BaseRef:    pr.BaseRef,
		HeadRef:    pr.HeadRef,
		BaseSHA:    pr.BaseSHA,
		HeadSHA:    pr.HeadSHA,
		OpenedAt:   pr.OpenedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  pr.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toCommentResponse converts a domain Comment to its JSON representation.
func toCommentResponse(c model.Comment) CommentResponse {
	return CommentResponse{
		ID:               c.ID,
		Author:           c.Author,
		Body:             c.Body,
		BodyHTML:         RenderMarkdown(c.Body),
		FilePath:         c.Path,
		Position:         c.Position,
		OriginalPosition: c.OriginalPosition,
		DiffHunk:         c.DiffHunk,
		DiffHunkHTML:     RenderDiffHunk(c.DiffHunk),
		IsDraft:          c.IsDraft,
		IsResolved:       c.IsResolved,
		IsOutdated:       c.IsOutdated,
		CommitID:         c.CommitID,
		CreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toThreadResponse converts an application ThreadView to its JSON representation.
func toThreadResponse(v application.ThreadView) ThreadResponse {
	replies := make([]CommentResponse, 0, len(v.Thread.Replies))
	for _, r := range v.Thread.Replies {
		replies = append(replies, toCommentResponse(r))
	}

	return ThreadResponse{
		RootComment: toCommentResponse(v.Thread.Root),
		Replies:     replies,
		Anchor: AnchorResponse{
			Outdated: v.Anchor.Outdated,
			Line:     v.Anchor.Line,
			BaseLine: v.Anchor.BaseLine,
		},
		IsResolved:   v.Thread.Root.IsResolved,
		CommentCount: 1 + len(v.Thread.Replies),
	}
}

// toReviewEventResponse converts a domain ReviewEvent to its JSON representation.
func toReviewEventResponse(ev model.ReviewEvent) ReviewEventResponse {
	comments := make([]CommentResponse, 0, len(ev.Comments))
	for _, c := range ev.Comments {
		comments = append(comments, toCommentResponse(c))
	}

	submittedAt := ""
	if !ev.SubmittedAt.IsZero() {
		submittedAt = ev.SubmittedAt.UTC().Format(time.RFC3339)
	}

	return ReviewEventResponse{
		ID:          ev.ID,
		Author:      ev.Author,
		State:       string(ev.State),
		Body:        ev.Body,
		BodyHTML:    RenderMarkdown(ev.Body),
		CommitID:    ev.CommitID,
		SubmittedAt: submittedAt,
		IsPending:   ev.IsPending(),
		Comments:    comments,
	}
}
