package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clearEnv unsets keys for the duration of the test so the developer's own
// environment cannot leak into default assertions.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "") // registers restoration on cleanup
		os.Unsetenv(k)
	}
}

// TestLoad_Defaults verifies the kiosk defaults when no environment is set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t,
		"PORT", "PUBLIC_BASE_URL", "DOWNLOAD_DIR", "SONG_LOG",
		"SESSION_WINDOW", "CYCLE_DELAY", "TOP_QUERIES", "CROSSFADE_MS",
		"TEMPO_WINDOW_SEC", "MAX_TEMPO_SHIFT", "YOUTUBE_API_URL",
		"MINIO_USE_SSL")

	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "http://localhost:5000", cfg.PublicBaseURL)
	assert.Equal(t, "youtube_downloads", cfg.DownloadDir)
	assert.Equal(t, "songs.csv", cfg.SongLogPath)
	assert.Equal(t, 90*time.Second, cfg.SessionWindow)
	assert.Equal(t, 10*time.Second, cfg.CycleDelay)
	assert.Equal(t, 3, cfg.TopQueries)
	assert.Equal(t, 3000, cfg.CrossfadeMs)
	assert.InDelta(t, 8.0, cfg.TempoWindowSec, 1e-9)
	assert.InDelta(t, 0.05, cfg.MaxTempoShift, 1e-9)
	assert.Equal(t, "https://www.googleapis.com/youtube/v3", cfg.YouTubeAPIURL)
	assert.False(t, cfg.MinioUseSSL)
}

// TestLoad_EnvOverrides verifies environment variables win over defaults.
func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t, "PUBLIC_BASE_URL")
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_WINDOW", "30")
	t.Setenv("TOP_QUERIES", "5")
	t.Setenv("MAX_TEMPO_SHIFT", "0.08")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("YOUTUBE_API_KEY", "secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SessionWindow)
	assert.Equal(t, 5, cfg.TopQueries)
	assert.InDelta(t, 0.08, cfg.MaxTempoShift, 1e-9)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, "secret", cfg.YouTubeAPIKey)
}

// TestLoad_InvalidNumbersFallBack verifies malformed numeric values are
// ignored in favor of defaults.
func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SESSION_WINDOW", "ninety")
	t.Setenv("MAX_TEMPO_SHIFT", "five percent")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.SessionWindow)
	assert.InDelta(t, 0.05, cfg.MaxTempoShift, 1e-9)
}
