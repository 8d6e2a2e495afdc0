package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphqlHandler(t *testing.T, response any) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})
}

func TestFetchThreadResolution(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"reviewThreads": map[string]any{
						"pageInfo": map[string]any{"hasNextPage": false},
						"nodes": []map[string]any{
							{
								"isResolved": true,
								"comments": map[string]any{
									"nodes": []map[string]any{{"databaseId": 101}},
								},
							},
							{
								"isResolved": false,
								"comments": map[string]any{
									"nodes": []map[string]any{{"databaseId": 202}},
								},
							},
						},
					},
				},
			},
		},
	}

	client, _ := newTestClient(t, graphqlHandler(t, response))

	resolution, err := client.FetchThreadResolution(context.Background(), "octo/widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{101: true, 202: false}, resolution)
}

func TestFetchThreadResolution_GraphQLErrorsReturnEmpty(t *testing.T) {
	response := map[string]any{
		"errors": []map[string]any{{"message": "something went wrong"}},
	}

	client, _ := newTestClient(t, graphqlHandler(t, response))

	resolution, err := client.FetchThreadResolution(context.Background(), "octo/widgets", 7)
	require.NoError(t, err, "graphql failures degrade to empty data")
	assert.Empty(t, resolution)
}

func TestFetchThreadResolution_ServerErrorReturnsEmpty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	})

	client, _ := newTestClient(t, handler)

	resolution, err := client.FetchThreadResolution(context.Background(), "octo/widgets", 7)
	require.NoError(t, err)
	assert.Empty(t, resolution)
}

func TestFetchPendingReviewID_FiltersByUsername(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"reviews": map[string]any{
						"nodes": []map[string]any{
							{"databaseId": 10, "author": map[string]any{"login": "someone-else"}},
							{"databaseId": 77, "author": map[string]any{"login": "testuser"}},
						},
					},
				},
			},
		},
	}

	client, _ := newTestClient(t, graphqlHandler(t, response))

	id, err := client.FetchPendingReviewID(context.Background(), "octo/widgets", 7)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(77), *id)
}

func TestFetchPendingReviewID_NoPendingReview(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"reviews": map[string]any{"nodes": []map[string]any{}},
				},
			},
		},
	}

	client, _ := newTestClient(t, graphqlHandler(t, response))

	id, err := client.FetchPendingReviewID(context.Background(), "octo/widgets", 7)
	require.NoError(t, err)
	assert.Nil(t, id)
}
