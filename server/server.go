package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autodj/cache"
	"autodj/config"
	"autodj/core/audio"
	"autodj/core/downloader"
	"autodj/core/library"
	"autodj/core/session"
	"autodj/core/youtube"
	"autodj/db"
	"autodj/logger"
	"autodj/model"
	"autodj/repository"
	"autodj/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server and the session loop.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})

	if cfg.YouTubeAPIKey == "" {
		log.Fatal("YOUTUBE_API_KEY is required")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// GORM 连接与混音表迁移
	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect GORM: %v", err)
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.Mix{}); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.CloseRedis()
	log.Println("Successfully connected to Redis")

	// Create necessary directories if they don't exist
	ensureDirExists(cfg.DownloadDir)
	ensureDirExists(cfg.MixDir)
	ensureDirExists(cfg.QRDir)
	if err := downloader.EnsureSongLog(cfg.SongLogPath); err != nil {
		log.Fatalf("Failed to create song log: %v", err)
	}

	audioProcessor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
	trackRepo := repository.NewMySQLTrackRepository()
	sessionRepo := repository.NewMySQLSessionRepository()
	mixRepo := repository.NewMixRepository()

	ytClient := youtube.NewClient(cfg.YouTubeAPIURL, cfg.YouTubeAPIKey)
	dl := downloader.NewDownloader(cfg.YtdlpPath, cfg.DownloadDir)
	mixer := audio.NewMixer(audioProcessor, audio.MixOptions{
		CrossfadeMs:    cfg.CrossfadeMs,
		TempoWindowSec: cfg.TempoWindowSec,
		MaxTempoShift:  cfg.MaxTempoShift,
		SfxPath:        cfg.DJSfxPath,
	})

	hub := session.NewHub()
	go hub.Run()

	controller := session.NewController(cfg, hub, ytClient, dl, mixer, audioProcessor,
		trackRepo, sessionRepo, mixRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 曲库监听：手动丢进下载目录的MP3也能参与混音
	watcher := library.NewWatcher(cfg.DownloadDir, trackRepo, audioProcessor)
	go func() {
		if err := watcher.Run(ctx); err != nil && err != context.Canceled {
			logger.Warn("library watcher stopped", logger.ErrorField(err))
		}
	}()

	// 会话主循环
	go controller.Run(ctx)

	handler := NewHandler(cfg, controller, hub, trackRepo, sessionRepo, mixRepo)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 大屏与点歌页面
	router.HandleFunc("/", handler.KioskHandler).Methods(http.MethodGet)
	router.HandleFunc("/search/{token}", handler.RequestFormHandler).Methods(http.MethodGet)
	router.HandleFunc("/search/{token}", handler.SubmitRequestHandler).Methods(http.MethodPost)
	router.HandleFunc("/qr/{token}", handler.QRHandler).Methods(http.MethodGet)
	router.HandleFunc("/background.png", handler.BackgroundHandler).Methods(http.MethodGet)

	// API Endpoints
	router.HandleFunc("/api/session", handler.SessionStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions", handler.RecentSessionsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", handler.RecentTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/mixes", handler.RecentMixesHandler).Methods(http.MethodGet)

	// 混音文件走MinIO
	router.HandleFunc("/mixes/{object}", handler.MixObjectHandler).Methods(http.MethodGet)

	// WebSocket 看板事件流
	router.HandleFunc("/ws/session", handler.WSSessionHandler)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on :%s...", cfg.Port)
		log.Printf("Kiosk display at http://localhost:%s/", cfg.Port)
		log.Printf("Guests request songs via the QR code at /search/{token}")
		log.Printf("Finished mixes are listed at /api/mixes")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 停止会话循环和监听器
	cancel()
	hub.Stop()

	// 创建一个5秒超时的上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Creating directory: %s", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", path, err)
		}
	} else if err != nil {
		log.Fatalf("Failed to check directory %s: %v", path, err)
	}
}
