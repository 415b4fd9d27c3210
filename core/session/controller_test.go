package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autodj/config"
	"autodj/core/youtube"
	"autodj/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTrackLibrary 内存曲库，替代MySQL仓库
type fakeTrackLibrary struct {
	session []*model.Track
	recent  []*model.Track
}

func (f *fakeTrackLibrary) CreateTrack(track *model.Track) (int64, error) {
	return 0, nil
}

func (f *fakeTrackLibrary) GetTrackByID(id int64) (*model.Track, error) {
	return nil, nil
}

func (f *fakeTrackLibrary) GetTrackByFilePath(filePath string) (*model.Track, error) {
	return nil, nil
}

func (f *fakeTrackLibrary) GetRecentTracks(limit int) ([]*model.Track, error) {
	if limit > len(f.recent) {
		limit = len(f.recent)
	}
	return f.recent[:limit], nil
}

func (f *fakeTrackLibrary) GetTracksBySession(token string) ([]*model.Track, error) {
	return f.session, nil
}

func (f *fakeTrackLibrary) UpdateTrackStatus(trackID int64, status string) error {
	return nil
}

func (f *fakeTrackLibrary) UpdateTrackDuration(trackID int64, duration float32) error {
	return nil
}

func (f *fakeTrackLibrary) CountReadyTracks() (int64, error) {
	return int64(len(f.recent)), nil
}

// searchStub serves a Data API search response whose videoId is looked up
// by query text; unknown queries get an empty item list.
func searchStub(t *testing.T, ids map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ids[r.URL.Query().Get("q")]
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":      map[string]string{"videoId": id},
					"snippet": map[string]string{"title": "t", "channelTitle": "c"},
				},
			},
		})
	}))
}

// TestResolveQueries_DedupesWatchURL verifies two queries resolving to the
// same video produce a single download job and a single set-list entry.
func TestResolveQueries_DedupesWatchURL(t *testing.T) {
	srv := searchStub(t, map[string]string{
		"gimme gimme":      "vid-abba",
		"gimme gimme abba": "vid-abba",
		"blue monday":      "vid-order",
	})
	defer srv.Close()

	cfg := &config.Config{SongLogPath: filepath.Join(t.TempDir(), "songs.csv")}
	c := &Controller{cfg: cfg, yt: youtube.NewClient(srv.URL, "test-key")}

	jobs := c.resolveQueries(context.Background(), "tok-1",
		[]string{"gimme gimme", "gimme gimme abba", "blue monday"})

	require.Len(t, jobs, 2)
	assert.Equal(t, "gimme gimme", jobs[0].Query)
	assert.Equal(t, youtube.WatchURL("vid-abba"), jobs[0].URL)
	assert.Equal(t, youtube.WatchURL("vid-order"), jobs[1].URL)

	// 日志里每个去重后的URL只出现一次
	raw, err := os.ReadFile(cfg.SongLogPath)
	require.NoError(t, err)
	log := string(raw)
	assert.Equal(t, 1, strings.Count(log, youtube.WatchURL("vid-abba")))
	assert.Equal(t, 1, strings.Count(log, youtube.WatchURL("vid-order")))
}

// TestResolveQueries_SkipsFailedSearches verifies queries without a search
// hit are dropped without aborting the rest.
func TestResolveQueries_SkipsFailedSearches(t *testing.T) {
	srv := searchStub(t, map[string]string{"blue monday": "vid-order"})
	defer srv.Close()

	cfg := &config.Config{SongLogPath: filepath.Join(t.TempDir(), "songs.csv")}
	c := &Controller{cfg: cfg, yt: youtube.NewClient(srv.URL, "test-key")}

	jobs := c.resolveQueries(context.Background(), "tok-2",
		[]string{"no such song anywhere", "blue monday"})

	require.Len(t, jobs, 1)
	assert.Equal(t, "blue monday", jobs[0].Query)
}

// TestPickMixTracks_TopsUpFromLibrary verifies a short session is topped up
// from recent library tracks without repeating the session's own downloads.
func TestPickMixTracks_TopsUpFromLibrary(t *testing.T) {
	own := &model.Track{ID: 7, SessionToken: "tok-3"}
	repo := &fakeTrackLibrary{
		session: []*model.Track{own},
		recent: []*model.Track{
			{ID: 9}, own, {ID: 5}, {ID: 3},
		},
	}
	c := &Controller{tracks: repo}

	tracks, err := c.pickMixTracks("tok-3")
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, int64(7), tracks[0].ID) // session track keeps first slot
	assert.Equal(t, int64(9), tracks[1].ID)
	assert.Equal(t, int64(5), tracks[2].ID)
}

// TestPickMixTracks_FullSession verifies a session that produced three
// tracks never touches the library.
func TestPickMixTracks_FullSession(t *testing.T) {
	repo := &fakeTrackLibrary{
		session: []*model.Track{{ID: 1}, {ID: 2}, {ID: 3}},
	}
	c := &Controller{tracks: repo}

	tracks, err := c.pickMixTracks("tok-4")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, int64(1), tracks[0].ID)
}

// TestPickMixTracks_NotEnough verifies nil when session plus library still
// hold fewer than three tracks.
func TestPickMixTracks_NotEnough(t *testing.T) {
	repo := &fakeTrackLibrary{
		recent: []*model.Track{{ID: 1}, {ID: 2}},
	}
	c := &Controller{tracks: repo}

	tracks, err := c.pickMixTracks("tok-5")
	require.NoError(t, err)
	assert.Nil(t, tracks)
}

// TestProcess_NotEnoughTracksEmitsMixFailed verifies kiosk displays get a
// terminal mix_failed event when the library cannot supply three tracks.
func TestProcess_NotEnoughTracksEmitsMixFailed(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Hub: hub, Send: make(chan []byte, 4)}
	hub.Register(client)

	cfg := &config.Config{SongLogPath: filepath.Join(t.TempDir(), "songs.csv")}
	c := &Controller{cfg: cfg, hub: hub, tracks: &fakeTrackLibrary{}}

	outcome := c.process(context.Background(), "tok-6", nil)
	assert.Equal(t, model.OutcomeNotEnoughSongs, outcome)

	event := recvEvent(t, client.Send)
	assert.Equal(t, EventMixFailed, event.Type)
	assert.Equal(t, "tok-6", event.Token)

	var data map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, model.OutcomeNotEnoughSongs, data["reason"])
}
