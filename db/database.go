package db

import (
	"database/sql"
	"fmt"
	"log"

	"autodj/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// The mixes table is migrated separately through GORM.
func InitDB() error {
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createSessionsTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		session_token VARCHAR(64) NOT NULL DEFAULT '',
		title VARCHAR(255) NOT NULL,
		query VARCHAR(255) NOT NULL DEFAULT '',
		source_url VARCHAR(512) NOT NULL DEFAULT '',
		file_path VARCHAR(512) NOT NULL UNIQUE,
		duration FLOAT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'ready',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}

func createSessionsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		token VARCHAR(64) NOT NULL UNIQUE,
		started_at TIMESTAMP NULL,
		ended_at TIMESTAMP NULL,
		request_count BIGINT NOT NULL DEFAULT 0,
		top_queries TEXT,
		outcome VARCHAR(32) NOT NULL DEFAULT ''
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}
