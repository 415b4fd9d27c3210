package downloader

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autodj/logger"
)

// Downloader wraps the yt-dlp binary for audio extraction.
type Downloader struct {
	ytdlpPath string
	outputDir string
}

// NewDownloader creates a new Downloader writing MP3s into outputDir.
func NewDownloader(ytdlpPath, outputDir string) *Downloader {
	return &Downloader{ytdlpPath: ytdlpPath, outputDir: outputDir}
}

// OutputDir returns the directory downloads are written to.
func (d *Downloader) OutputDir() string {
	return d.outputDir
}

// buildArgs assembles the yt-dlp invocation for one URL.
func (d *Downloader) buildArgs(rawURL string) []string {
	outputTemplate := filepath.Join(d.outputDir, "%(title)s.%(ext)s")
	return []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--concurrent-fragments", "4",
		"--retries", "3",
		"--output", outputTemplate,
		rawURL,
	}
}

// Download fetches a single URL as MP3 and returns the produced file path.
// The path is parsed from yt-dlp's ExtractAudio destination line; when the
// line is absent (already-downloaded file) the empty string is returned with
// a nil error.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	cleaned, err := url.QueryUnescape(strings.TrimSpace(rawURL))
	if err != nil {
		cleaned = strings.TrimSpace(rawURL)
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory %s: %w", d.outputDir, err)
	}

	args := d.buildArgs(cleaned)
	cmd := exec.CommandContext(ctx, d.ytdlpPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("downloading", logger.String("url", cleaned))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("yt-dlp failed for %s: %w: %s", cleaned, err, msg)
	}

	dest := ParseDestination(stdout.String())
	if dest != "" {
		logger.Info("download completed",
			logger.String("url", cleaned),
			logger.String("file", filepath.Base(dest)))
	} else {
		logger.Info("download completed, destination not reported", logger.String("url", cleaned))
	}

	return dest, nil
}

// ParseDestination extracts the output file path from yt-dlp stdout.
func ParseDestination(output string) string {
	const marker = "[ExtractAudio] Destination: "
	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, marker); idx >= 0 {
			return strings.TrimSpace(line[idx+len(marker):])
		}
	}
	return ""
}
