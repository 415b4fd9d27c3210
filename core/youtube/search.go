package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"autodj/logger"
)

// ErrNoResult indicates the search returned no videos for the query.
var ErrNoResult = errors.New("youtube: no result for query")

// searchResponse mirrors the fields of the search.list response we use.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchResult 搜索结果
type SearchResult struct {
	VideoID  string
	Title    string
	Channel  string
	WatchURL string
}

// TopResult searches for the top video matching the query and returns its watch URL.
func (c *Client) TopResult(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(data.Items) == 0 || data.Items[0].ID.VideoID == "" {
		return nil, ErrNoResult
	}

	item := data.Items[0]
	result := &SearchResult{
		VideoID:  item.ID.VideoID,
		Title:    item.Snippet.Title,
		Channel:  item.Snippet.ChannelTitle,
		WatchURL: WatchURL(item.ID.VideoID),
	}

	logger.Debug("youtube search hit",
		logger.String("query", query),
		logger.String("videoId", result.VideoID),
		logger.String("title", result.Title))

	return result, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
