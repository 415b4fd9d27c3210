package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTopResult verifies query parameters and response parsing against a
// stubbed API server.
func TestTopResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "snippet", q.Get("part"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "1", q.Get("maxResults"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "daft punk around the world", q.Get("q"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id": map[string]string{"videoId": "dwDns8x3Jb4"},
					"snippet": map[string]string{
						"title":        "Daft Punk - Around The World",
						"channelTitle": "Daft Punk",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	result, err := client.TopResult(context.Background(), "daft punk around the world")
	require.NoError(t, err)

	assert.Equal(t, "dwDns8x3Jb4", result.VideoID)
	assert.Equal(t, "Daft Punk - Around The World", result.Title)
	assert.Equal(t, "Daft Punk", result.Channel)
	assert.Equal(t, "https://www.youtube.com/watch?v=dwDns8x3Jb4", result.WatchURL)
}

// TestTopResult_NoItems verifies ErrNoResult for empty search responses.
func TestTopResult_NoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.TopResult(context.Background(), "no such song")
	assert.ErrorIs(t, err, ErrNoResult)
}

// TestTopResult_APIError verifies non-200 responses surface as errors.
func TestTopResult_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.TopResult(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

// TestWatchURL builds the canonical watch link.
func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", WatchURL("abc"))
}
