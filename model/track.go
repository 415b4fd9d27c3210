package model

import "time"

// Track represents a downloaded song in the mix library.
type Track struct {
	ID           int64     `json:"id"`
	SessionToken string    `json:"sessionToken"` // Session that requested it, empty for manually dropped files
	Title        string    `json:"title"`
	Query        string    `json:"query"`     // The request text that led to this track
	SourceURL    string    `json:"sourceUrl"` // YouTube watch URL, empty for manual drops
	FilePath     string    `json:"-"`         // Path to the MP3 on disk, not exposed in API directly
	Duration     float32   `json:"duration"`  // Duration in seconds
	Status       string    `json:"status"`    // downloading, ready, failed
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Track status values.
const (
	TrackStatusDownloading = "downloading"
	TrackStatusReady       = "ready"
	TrackStatusFailed      = "failed"
)
