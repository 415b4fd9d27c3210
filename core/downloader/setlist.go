package downloader

import (
	"encoding/csv"
	"fmt"
	"os"
)

// EnsureSongLog creates the CSV set list file if it does not exist yet.
func EnsureSongLog(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create song log %s: %w", path, err)
		}
		return f.Close()
	}
	return nil
}

// AppendSongLog appends one downloaded source URL to the CSV set list.
// The file doubles as a human-readable record of what was played.
func AppendSongLog(path, videoURL string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open song log %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{videoURL}); err != nil {
		return fmt.Errorf("failed to append to song log: %w", err)
	}
	w.Flush()
	return w.Error()
}
