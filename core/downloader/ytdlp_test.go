package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildArgs verifies the yt-dlp invocation carries the audio extraction
// flags and ends with the target URL.
func TestBuildArgs(t *testing.T) {
	d := NewDownloader("yt-dlp", "downloads")
	args := d.buildArgs("https://www.youtube.com/watch?v=abc123")

	assert.Contains(t, args, "--extract-audio")
	assert.Contains(t, args, "--audio-format")
	assert.Contains(t, args, "mp3")
	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--concurrent-fragments")
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", args[len(args)-1])

	// Output template lands in the configured directory.
	var template string
	for i, a := range args {
		if a == "--output" {
			require.Less(t, i+1, len(args))
			template = args[i+1]
		}
	}
	assert.Contains(t, template, "downloads")
	assert.Contains(t, template, "%(title)s.%(ext)s")
}

// TestParseDestination extracts the produced file path from yt-dlp output.
func TestParseDestination(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
	}{
		{
			name: "normal run",
			output: "[youtube] abc123: Downloading webpage\n" +
				"[download] Destination: downloads/Song Title.webm\n" +
				"[ExtractAudio] Destination: downloads/Song Title.mp3\n" +
				"Deleting original file downloads/Song Title.webm\n",
			expected: "downloads/Song Title.mp3",
		},
		{
			name:     "already downloaded",
			output:   "[download] downloads/Song.mp3 has already been downloaded\n",
			expected: "",
		},
		{
			name:     "empty output",
			output:   "",
			expected: "",
		},
		{
			name:     "trailing whitespace",
			output:   "[ExtractAudio] Destination: downloads/a.mp3   \n",
			expected: "downloads/a.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDestination(tt.output))
		})
	}
}
