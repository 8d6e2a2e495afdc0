// Package httphandler is the HTTP driving adapter serving the REST API over
// the tracked pull request's reconciled review data.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewlens/reviewlens/internal/application"
	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	prStore      driven.PRStore
	commentStore driven.CommentStore
	coordinator  *application.Coordinator
	syncSvc      *application.SyncService
	repoFullName string
	prNumber     int
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	prStore driven.PRStore,
	commentStore driven.CommentStore,
	coordinator *application.Coordinator,
	syncSvc *application.SyncService,
	repoFullName string,
	prNumber int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		prStore:      prStore,
		commentStore: commentStore,
		coordinator:  coordinator,
		syncSvc:      syncSvc,
		repoFullName: repoFullName,
		prNumber:     prNumber,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/pr", h.GetPR)
	mux.HandleFunc("GET /api/v1/prs", h.ListPRs)
	mux.HandleFunc("GET /api/v1/comments", h.GetComments)
	mux.HandleFunc("GET /api/v1/timeline", h.GetTimeline)
	mux.HandleFunc("GET /api/v1/threads/{path...}", h.GetFileThreads)
	mux.HandleFunc("GET /api/v1/ranges/{path...}", h.GetCommentingRanges)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetPR returns the tracked pull request.
func (h *Handler) GetPR(w http.ResponseWriter, r *http.Request) {
	pr, err := h.prStore.GetByNumber(r.Context(), h.repoFullName, h.prNumber)
	if err != nil {
		h.logger.Error("failed to get PR", "repo", h.repoFullName, "number", h.prNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if pr == nil {
		writeError(w, http.StatusNotFound, "pull request not synced yet")
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(*pr))
}

// ListPRs returns every pull request currently in the store, most recently
// updated first.
func (h *Handler) ListPRs(w http.ResponseWriter, r *http.Request) {
	prs, err := h.prStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list PRs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetComments returns the persisted comment snapshot of the tracked pull
// request. Unlike the coordinator-backed endpoints this reads straight from
// the store, so after a restart it serves the last synced comments before the
// first fetch cycle completes.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	pr, err := h.prStore.GetByNumber(r.Context(), h.repoFullName, h.prNumber)
	if err != nil {
		h.logger.Error("failed to get PR", "repo", h.repoFullName, "number", h.prNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if pr == nil {
		writeError(w, http.StatusNotFound, "pull request not synced yet")
		return
	}

	comments, err := h.commentStore.GetCommentsByPR(r.Context(), pr.ID)
	if err != nil {
		h.logger.Error("failed to get comments", "pr_id", pr.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTimeline returns the reconciled review events of the tracked pull
// request, drafts grouped under the pending review.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.coordinator.Events()
	if errors.Is(err, application.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "review data not fully fetched yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to get timeline", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ReviewEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toReviewEventResponse(ev))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFileThreads returns the conversation threads rooted in a file, each with
// its anchor in the current diff range.
func (h *Handler) GetFileThreads(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing file path")
		return
	}

	views, err := h.coordinator.ThreadsForFile(r.Context(), path)
	if errors.Is(err, application.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "review data not fully fetched yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to get threads", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ThreadResponse, 0, len(views))
	for _, view := range views {
		resp = append(resp, toThreadResponse(view))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCommentingRanges returns the new-file line ranges of a file that can
// receive a comment in the current head diff.
func (h *Handler) GetCommentingRanges(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing file path")
		return
	}

	ranges, err := h.coordinator.CommentingRanges(r.Context(), path)
	if errors.Is(err, application.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "review data not fully fetched yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to get commenting ranges", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RangeResponse, 0, len(ranges))
	for _, rng := range ranges {
		resp = append(resp, RangeResponse{Start: rng.Start, End: rng.End})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh triggers an immediate resync of the tracked pull request.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.syncSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "sync service not running")
		return
	}

	// Fire-and-forget with background context since the HTTP request context
	// is cancelled after the response is sent.
	go func() {
		if err := h.syncSvc.Refresh(context.Background(), h.prNumber); err != nil {
			h.logger.Error("async refresh failed", "number", h.prNumber, "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Ready:  h.coordinator.Ready(),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
