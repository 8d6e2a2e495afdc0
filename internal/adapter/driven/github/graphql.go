package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

const threadResolutionQuery = `query($owner: String!, $repo: String!, $pr: Int!) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $pr) {
			reviewThreads(first: 100) {
				pageInfo {
					hasNextPage
				}
				nodes {
					isResolved
					comments(first: 1) {
						nodes {
							databaseId
						}
					}
				}
			}
		}
	}
}`

const pendingReviewQuery = `query($owner: String!, $repo: String!, $pr: Int!) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $pr) {
			reviews(first: 10, states: PENDING) {
				nodes {
					databaseId
					author { login }
				}
			}
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// threadResolutionResponse represents the expected shape of a GitHub GraphQL
// response for thread resolution status.
type threadResolutionResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					PageInfo struct {
						HasNextPage bool `json:"hasNextPage"`
					} `json:"pageInfo"`
					Nodes []struct {
						IsResolved bool `json:"isResolved"`
						Comments   struct {
							Nodes []struct {
								DatabaseID int64 `json:"databaseId"`
							} `json:"nodes"`
						} `json:"comments"`
					} `json:"nodes"`
				} `json:"reviewThreads"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// pendingReviewResponse represents the expected shape of a GitHub GraphQL
// response for pending review lookup.
type pendingReviewResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				Reviews struct {
					Nodes []struct {
						DatabaseID int64 `json:"databaseId"`
						Author     struct {
							Login string `json:"login"`
						} `json:"author"`
					} `json:"nodes"`
				} `json:"reviews"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchThreadResolution queries the GitHub GraphQL API for review thread resolution status.
// It returns a map of review comment database ID to its resolved status (true = resolved).
//
// This is a supplementary data source. All error paths return an empty map and log a warning;
// failures never propagate to callers.
func (c *Client) FetchThreadResolution(ctx context.Context, repoFullName string, number int) (map[int64]bool, error) {
	var gqlResp threadResolutionResponse
	if !c.runQuery(ctx, threadResolutionQuery, repoFullName, number, &gqlResp) {
		return map[int64]bool{}, nil
	}

	if len(gqlResp.Errors) > 0 {
		slog.Warn("graphql: response contains errors",
			"errors", gqlResp.Errors[0].Message,
			"repo", repoFullName,
			"pr", number,
		)
		return map[int64]bool{}, nil
	}

	threads := gqlResp.Data.Repository.PullRequest.ReviewThreads

	if threads.PageInfo.HasNextPage {
		slog.Warn("graphql: review threads exceed 100, resolution data truncated",
			"repo", repoFullName,
			"pr", number,
		)
	}

	result := make(map[int64]bool, len(threads.Nodes))
	for _, node := range threads.Nodes {
		for _, comment := range node.Comments.Nodes {
			result[comment.DatabaseID] = node.IsResolved
		}
	}

	return result, nil
}

// FetchPendingReviewID returns the database id of the current user's pending
// review on the pull request, or nil when none exists. A pending review is
// visible only to its author, so the nodes are filtered by the configured
// username.
func (c *Client) FetchPendingReviewID(ctx context.Context, repoFullName string, number int) (*int64, error) {
	var gqlResp pendingReviewResponse
	if !c.runQuery(ctx, pendingReviewQuery, repoFullName, number, &gqlResp) {
		return nil, nil
	}

	if len(gqlResp.Errors) > 0 {
		slog.Warn("graphql: response contains errors",
			"errors", gqlResp.Errors[0].Message,
			"repo", repoFullName,
			"pr", number,
		)
		return nil, nil
	}

	for _, node := range gqlResp.Data.Repository.PullRequest.Reviews.Nodes {
		if node.Author.Login == c.username {
			id := node.DatabaseID
			return &id, nil
		}
	}

	return nil, nil
}

// runQuery posts a GraphQL query and decodes the response into out. It
// returns false on any transport or decoding failure, which callers treat as
// "no data"; GraphQL is a supplementary source and must never break a sync.
func (c *Client) runQuery(ctx context.Context, query, repoFullName string, number int, out any) bool {
	if c.token == "" {
		return false
	}

	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return false
	}

	reqBody := graphqlRequest{
		Query: query,
		Variables: map[string]any{
			"owner": owner,
			"repo":  repo,
			"pr":    number,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		slog.Warn("graphql: failed to marshal request", "error", err)
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		slog.Warn("graphql: failed to create request", "error", err)
		return false
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := graphqlHTTPClient.Do(httpReq)
	if err != nil {
		slog.Warn("graphql: request failed", "error", err, "repo", repoFullName, "pr", number)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("graphql: non-200 response", "status", resp.StatusCode, "repo", repoFullName, "pr", number)
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Warn("graphql: failed to decode response", "error", err, "repo", repoFullName, "pr", number)
		return false
	}

	return true
}
