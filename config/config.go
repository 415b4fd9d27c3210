package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values have defaults that match a single-box kiosk deployment.
type Config struct {
	Port          string // HTTP listen port, the kiosk QR codes point here
	PublicBaseURL string // Base URL encoded into session QR codes

	FFmpegPath string
	YtdlpPath  string

	DownloadDir string // Where yt-dlp drops session MP3s
	MixDir      string // Where finished mixes are written
	QRDir       string // Where session QR PNGs are written
	SongLogPath string // CSV set list of every downloaded source URL
	DJSfxPath   string // Optional air-horn style SFX overlaid at transitions

	SessionWindow   time.Duration // How long a QR session accepts requests
	CycleDelay      time.Duration // Pause between sessions
	TopQueries      int           // How many top-voted queries get downloaded
	DownloadWorkers int           // Concurrent yt-dlp processes

	CrossfadeMs    int     // Crossfade length between mixed tracks
	TempoWindowSec float64 // Seconds of outgoing track that get tempo-nudged
	MaxTempoShift  float64 // Clamp for the tempo ratio, e.g. 0.05 = ±5%

	YouTubeAPIKey string
	YouTubeAPIURL string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	port := getEnv("PORT", "5000")

	return &Config{
		Port:          port,
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),

		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		YtdlpPath:  getEnv("YTDLP_PATH", "yt-dlp"),

		DownloadDir: getEnv("DOWNLOAD_DIR", "youtube_downloads"),
		MixDir:      getEnv("MIX_DIR", "mixes"),
		QRDir:       getEnv("QR_DIR", "qrcodes"),
		SongLogPath: getEnv("SONG_LOG", "songs.csv"),
		DJSfxPath:   os.Getenv("DJ_SFX_PATH"), // no default, SFX is opt-in

		SessionWindow:   time.Duration(getEnvInt("SESSION_WINDOW", 90)) * time.Second,
		CycleDelay:      time.Duration(getEnvInt("CYCLE_DELAY", 10)) * time.Second,
		TopQueries:      getEnvInt("TOP_QUERIES", 3),
		DownloadWorkers: getEnvInt("DOWNLOAD_WORKERS", 3),

		CrossfadeMs:    getEnvInt("CROSSFADE_MS", 3000),
		TempoWindowSec: getEnvFloat("TEMPO_WINDOW_SEC", 8.0),
		MaxTempoShift:  getEnvFloat("MAX_TEMPO_SHIFT", 0.05),

		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"), // credentials never get a hardcoded default
		YouTubeAPIURL: getEnv("YOUTUBE_API_URL", "https://www.googleapis.com/youtube/v3"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "autodj"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "autodj"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", filepath.Join("logs", "autodj.log")),
	}
}
