package repository

import (
	"database/sql"
	"fmt"
	"time"

	"autodj/db"
	"autodj/model"
)

// SessionRepository defines the interface for session archive operations.
type SessionRepository interface {
	CreateSession(session *model.Session) (int64, error)
	CloseSession(token string, requestCount int64, topQueries, outcome string) error
	GetSessionByToken(token string) (*model.Session, error)
	GetRecentSessions(limit int) ([]*model.Session, error)
}

// mysqlSessionRepository implements SessionRepository for MySQL.
type mysqlSessionRepository struct {
	DB *sql.DB
}

// NewMySQLSessionRepository creates a new instance of mysqlSessionRepository.
func NewMySQLSessionRepository() SessionRepository {
	return &mysqlSessionRepository{DB: db.DB}
}

// CreateSession records the start of a request window.
func (r *mysqlSessionRepository) CreateSession(session *model.Session) (int64, error) {
	query := `INSERT INTO sessions (token, started_at, outcome) VALUES (?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateSession: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(session.Token, session.StartedAt, session.Outcome)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateSession: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateSession: %w", err)
	}
	return id, nil
}

// CloseSession records the outcome of a finished window.
func (r *mysqlSessionRepository) CloseSession(token string, requestCount int64, topQueries, outcome string) error {
	query := `UPDATE sessions SET ended_at = ?, request_count = ?, top_queries = ?, outcome = ? WHERE token = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CloseSession: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(time.Now(), requestCount, topQueries, outcome, token)
	if err != nil {
		return fmt.Errorf("failed to execute CloseSession for token %s: %w", token, err)
	}
	return nil
}

// GetSessionByToken retrieves a session by its token.
func (r *mysqlSessionRepository) GetSessionByToken(token string) (*model.Session, error) {
	query := `SELECT id, token, started_at, ended_at, request_count, top_queries, outcome FROM sessions WHERE token = ?`
	row := r.DB.QueryRow(query, token)

	session, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Session not found
		}
		return nil, fmt.Errorf("failed to scan session by token %s: %w", token, err)
	}
	return session, nil
}

// GetRecentSessions retrieves the most recent sessions, newest first.
func (r *mysqlSessionRepository) GetRecentSessions(limit int) ([]*model.Session, error) {
	query := `SELECT id, token, started_at, ended_at, request_count, top_queries, outcome
	           FROM sessions ORDER BY started_at DESC LIMIT ?`
	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*model.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetRecentSessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row interface{ Scan(dest ...interface{}) error }) (*model.Session, error) {
	session := &model.Session{}
	var endedAt sql.NullTime
	var topQueries sql.NullString
	err := row.Scan(&session.ID, &session.Token, &session.StartedAt, &endedAt,
		&session.RequestCount, &topQueries, &session.Outcome)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		session.EndedAt = endedAt.Time
	}
	if topQueries.Valid {
		session.TopQueries = topQueries.String
	}
	return session, nil
}
