package repository

import (
	"database/sql"
	"fmt"
	"time"

	"autodj/db"
	"autodj/logger"
	"autodj/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	GetTrackByFilePath(filePath string) (*model.Track, error)
	GetRecentTracks(limit int) ([]*model.Track, error)
	GetTracksBySession(token string) ([]*model.Track, error)
	UpdateTrackStatus(trackID int64, status string) error
	UpdateTrackDuration(trackID int64, duration float32) error
	CountReadyTracks() (int64, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, session_token, title, query, source_url, file_path, duration, status, created_at, updated_at`

func scanTrack(row interface{ Scan(dest ...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	err := row.Scan(&track.ID, &track.SessionToken, &track.Title, &track.Query, &track.SourceURL,
		&track.FilePath, &track.Duration, &track.Status, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (session_token, title, query, source_url, file_path, duration, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(track.SessionToken, track.Title, track.Query, track.SourceURL,
		track.FilePath, track.Duration, track.Status, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	logger.Info("track created",
		logger.Int64("trackId", id),
		logger.String("title", track.Title))
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	track, err := scanTrack(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetTrackByFilePath retrieves a track by its file path to check for existence.
func (r *mysqlTrackRepository) GetTrackByFilePath(filePath string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE file_path = ?`
	track, err := scanTrack(r.DB.QueryRow(query, filePath))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by file_path %s: %w", filePath, err)
	}
	return track, nil
}

// GetRecentTracks retrieves the most recently registered ready tracks.
func (r *mysqlTrackRepository) GetRecentTracks(limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE status = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.DB.Query(query, model.TrackStatusReady, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tracks: %w", err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// GetTracksBySession retrieves all tracks downloaded for a session, oldest first.
func (r *mysqlTrackRepository) GetTracksBySession(token string) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE session_token = ? AND status = ? ORDER BY created_at ASC`
	rows, err := r.DB.Query(query, token, model.TrackStatusReady)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for session %s: %w", token, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

func collectTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	return tracks, nil
}

// UpdateTrackStatus updates the processing status for a given track ID.
func (r *mysqlTrackRepository) UpdateTrackStatus(trackID int64, status string) error {
	query := `UPDATE tracks SET status = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateTrackStatus: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(status, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackStatus for track ID %d: %w", trackID, err)
	}
	return nil
}

// UpdateTrackDuration updates the probed duration for a given track ID.
func (r *mysqlTrackRepository) UpdateTrackDuration(trackID int64, duration float32) error {
	query := `UPDATE tracks SET duration = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateTrackDuration: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(duration, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackDuration for track ID %d: %w", trackID, err)
	}
	return nil
}

// CountReadyTracks returns how many tracks are available for mixing.
func (r *mysqlTrackRepository) CountReadyTracks() (int64, error) {
	var count int64
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM tracks WHERE status = ?`, model.TrackStatusReady).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ready tracks: %w", err)
	}
	return count, nil
}
