// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/reviewlens/reviewlens/internal/domain/model"
	"github.com/reviewlens/reviewlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh         *gh.Client
	username   string
	token      string // Stored for GraphQL Authorization header.
	graphqlURL string // "https://api.github.com/graphql" in production; derived from baseURL in tests.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token, username string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		username:   username,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, username, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		username:   username,
		token:      token,
		graphqlURL: graphqlU.String(),
	}, nil
}

// FetchPullRequest retrieves a single pull request with its current base/head
// refs and SHAs.
func (c *Client) FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching PR %s#%d: %w", repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/pr", 0, 1)

	mapped := mapPullRequest(pr, repoFullName)
	return &mapped, nil
}

// FetchReviewComments retrieves all inline review comments for a pull request.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchReviewComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		Sort:        "created",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var allComments []model.Comment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/review-comments", opts.Page, len(comments))

		for _, comment := range comments {
			allComments = append(allComments, mapComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if allComments == nil {
		allComments = []model.Comment{}
	}

	return allComments, nil
}

// FetchTimeline assembles the pull request timeline from its reviews and
// commits, ordered by event time. Review events carry empty Comments; the
// reconciler populates them.
func (c *Client) FetchTimeline(ctx context.Context, repoFullName string, number int) ([]model.TimelineEvent, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var events []model.TimelineEvent

	opts := &gh.ListOptions{PerPage: 100}
	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/reviews", opts.Page, len(reviews))

		for _, r := range reviews {
			ev := mapReviewEvent(r)
			events = append(events, model.TimelineEvent{
				Kind:      model.TimelineEventReview,
				Review:    &ev,
				Actor:     ev.Author,
				CreatedAt: ev.SubmittedAt,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	commitOpts := &gh.ListOptions{PerPage: 100}
	for {
		commits, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, number, commitOpts)
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s#%d (page %d): %w", repoFullName, number, commitOpts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/commits", commitOpts.Page, len(commits))

		for _, commit := range commits {
			events = append(events, model.TimelineEvent{
				Kind:      model.TimelineEventCommit,
				CommitSHA: commit.GetSHA(),
				Actor:     commit.GetAuthor().GetLogin(),
				CreatedAt: commit.GetCommit().GetCommitter().GetDate().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		commitOpts.Page = resp.NextPage
	}

	// Pending reviews have no submission time; keep them at the end of the
	// timeline rather than sorting them to 1970.
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].CreatedAt, events[j].CreatedAt
		if ti.IsZero() || tj.IsZero() {
			return tj.IsZero() && !ti.IsZero()
		}
		return ti.Before(tj)
	})

	return events, nil
}

// mapReviewEvent converts a go-github PullRequestReview to a domain ReviewEvent.
func mapReviewEvent(r *gh.PullRequestReview) model.ReviewEvent {
	return model.ReviewEvent{
		ID:          r.GetID(),
		Author:      r.GetUser().GetLogin(),
		State:       model.ReviewEventState(strings.ToLower(r.GetState())),
		Body:        r.GetBody(),
		CommitID:    r.GetCommitID(),
		SubmittedAt: r.GetSubmittedAt().Time,
	}
}

// mapComment converts a go-github PullRequestComment to a domain Comment.
// Position stays a pointer: GitHub clears it when the comment no longer
// anchors in the latest diff. A zero review id means the owning review has
// not been flushed yet and maps to nil.
func mapComment(c *gh.PullRequestComment) model.Comment {
	var position *int
	if c.Position != nil {
		v := c.GetPosition()
		position = &v
	}

	var reviewID *int64
	if id := c.GetPullRequestReviewID(); id != 0 {
		reviewID = &id
	}

	var inReplyTo *int64
	if c.InReplyTo != nil {
		v := c.GetInReplyTo()
		inReplyTo = &v
	}

	return model.Comment{
		ID:               c.GetID(),
		NodeID:           c.GetNodeID(),
		Author:           c.GetUser().GetLogin(),
		Body:             c.GetBody(),
		Path:             c.GetPath(),
		DiffHunk:         c.GetDiffHunk(),
		Position:         position,
		OriginalPosition: c.GetOriginalPosition(),
		ReviewID:         reviewID,
		InReplyToID:      inReplyTo,
		IsResolved:       false, // Set later from GraphQL data.
		IsOutdated:       false, // Set later by the outdated detector.
		CommitID:         c.GetCommitID(),
		OriginalCommitID: c.GetOriginalCommitID(),
		CreatedAt:        c.GetCreatedAt().Time,
		UpdatedAt:        c.GetUpdatedAt().Time,
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	status := model.PRStatusOpen
	if !pr.GetMergedAt().IsZero() {
		status = model.PRStatusMerged
	} else if pr.GetState() == "closed" {
		status = model.PRStatusClosed
	}

	return model.PullRequest{
		Number:       pr.GetNumber(),
		RepoFullName: repoFullName,
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		Status:       status,
		IsDraft:      pr.GetDraft(),
		URL:          pr.GetHTMLURL(),
		BaseRef:      pr.GetBase().GetRef(),
		HeadRef:      pr.GetHead().GetRef(),
		BaseSHA:      pr.GetBase().GetSHA(),
		HeadSHA:      pr.GetHead().GetSHA(),
		OpenedAt:     pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
