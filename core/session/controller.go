package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autodj/cache"
	"autodj/config"
	"autodj/core/audio"
	"autodj/core/downloader"
	"autodj/core/youtube"
	"autodj/logger"
	"autodj/model"
	"autodj/repository"
	"autodj/storage"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Service 提供给HTTP层的会话操作
type Service interface {
	// Status returns the live session state for the kiosk page and API.
	Status(ctx context.Context) (*model.SessionStatus, error)
	// Submit tallies one song request for an active session token.
	Submit(ctx context.Context, token, query string) error
}

// Submit error values surfaced to the request form.
var (
	ErrSessionExpired = errors.New("session: token expired or unknown")
	ErrEmptyQuery     = errors.New("session: empty query")
)

const qrImageSize = 512

// Controller 驱动点歌会话的完整生命周期
// 开窗收点歌 → 计票取前三 → 搜索下载 → 混音 → 休息，循环往复
type Controller struct {
	cfg      *config.Config
	hub      *Hub
	yt       *youtube.Client
	dl       *downloader.Downloader
	mixer    *audio.Mixer
	proc     audio.Processor
	tracks   repository.TrackRepository
	sessions repository.SessionRepository
	mixes    *repository.MixRepository

	mu    sync.RWMutex
	phase model.SessionPhase
	token string
}

// NewController wires the session loop together.
func NewController(
	cfg *config.Config,
	hub *Hub,
	yt *youtube.Client,
	dl *downloader.Downloader,
	mixer *audio.Mixer,
	proc audio.Processor,
	tracks repository.TrackRepository,
	sessions repository.SessionRepository,
	mixes *repository.MixRepository,
) *Controller {
	return &Controller{
		cfg:      cfg,
		hub:      hub,
		yt:       yt,
		dl:       dl,
		mixer:    mixer,
		proc:     proc,
		tracks:   tracks,
		sessions: sessions,
		mixes:    mixes,
		phase:    model.PhaseIdle,
	}
}

// Run cycles request windows until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	logger.Info("会话循环启动",
		logger.Duration("window", c.cfg.SessionWindow),
		logger.Duration("cycleDelay", c.cfg.CycleDelay))

	for {
		if err := c.runCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("会话循环停止")
				return
			}
			logger.Error("会话执行失败", logger.ErrorField(err))
		}

		c.setPhase(model.PhaseIdle, "")

		select {
		case <-ctx.Done():
			logger.Info("会话循环停止")
			return
		case <-time.After(c.cfg.CycleDelay):
		}
	}
}

// runCycle runs one full session: window, tally, download, mix.
func (c *Controller) runCycle(ctx context.Context) error {
	token := uuid.NewString()

	if err := c.publishQR(ctx, token); err != nil {
		return fmt.Errorf("failed to publish session QR: %w", err)
	}

	if _, err := c.sessions.CreateSession(&model.Session{
		Token:     token,
		StartedAt: time.Now(),
		Outcome:   model.OutcomeFailed, // overwritten on close
	}); err != nil {
		return fmt.Errorf("failed to archive session start: %w", err)
	}

	if err := cache.SetActiveSession(ctx, token, c.cfg.SessionWindow); err != nil {
		return fmt.Errorf("failed to open session window: %w", err)
	}

	c.setPhase(model.PhaseOpen, token)
	c.hub.BroadcastEvent(EventSessionOpen, token, map[string]interface{}{
		"windowSec": int(c.cfg.SessionWindow.Seconds()),
		"qrUrl":     "/qr/" + token,
	})

	logger.Info("点歌窗口已打开",
		logger.String("token", token),
		logger.Duration("window", c.cfg.SessionWindow))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.SessionWindow):
	}

	c.setPhase(model.PhaseProcessing, token)
	c.hub.BroadcastEvent(EventSessionClosed, token, nil)

	defer func() {
		if err := cache.ClearSession(context.Background(), token); err != nil {
			logger.Warn("清理会话缓存失败", logger.ErrorField(err))
		}
	}()

	count, err := cache.RequestCount(ctx, token)
	if err != nil {
		return err
	}
	top, err := cache.TopRequests(ctx, token, c.cfg.TopQueries)
	if err != nil {
		return err
	}

	logger.Info("点歌窗口关闭",
		logger.String("token", token),
		logger.Int64("requests", count),
		logger.Strings("topQueries", top))

	if count == 0 || len(top) == 0 {
		c.closeSession(token, count, top, model.OutcomeNoRequests)
		return nil
	}

	outcome := c.process(ctx, token, top)
	c.closeSession(token, count, top, outcome)
	return ctx.Err()
}

// publishQR renders the session QR code locally and mirrors it to MinIO.
func (c *Controller) publishQR(ctx context.Context, token string) error {
	target := fmt.Sprintf("%s/search/%s", strings.TrimRight(c.cfg.PublicBaseURL, "/"), token)

	png, err := qrcode.Encode(target, qrcode.Medium, qrImageSize)
	if err != nil {
		return fmt.Errorf("failed to encode QR for %s: %w", target, err)
	}

	if err := os.MkdirAll(c.cfg.QRDir, 0755); err != nil {
		return err
	}
	localPath := filepath.Join(c.cfg.QRDir, "qr_"+token+".png")
	if err := os.WriteFile(localPath, png, 0644); err != nil {
		return fmt.Errorf("failed to write QR file: %w", err)
	}

	// 次级屏幕从MinIO取图，失败不影响主流程
	if err := storage.UploadQR(ctx, token, png); err != nil {
		logger.Warn("上传二维码失败", logger.ErrorField(err))
	}

	return nil
}

// process turns the winning queries into downloaded tracks and a mix.
// Returns the session outcome.
func (c *Controller) process(ctx context.Context, token string, queries []string) string {
	jobs := c.resolveQueries(ctx, token, queries)
	if len(jobs) > 0 {
		c.download(ctx, token, jobs)
	}

	c.setPhase(model.PhaseMixing, token)
	c.setMixStatus(ctx, token, mixStatusMixing)

	mixTracks, err := c.pickMixTracks(token)
	if err != nil {
		logger.Error("选取混音曲目失败", logger.ErrorField(err))
		c.setMixStatus(ctx, token, mixStatusFailed)
		c.hub.BroadcastEvent(EventMixFailed, token, nil)
		return model.OutcomeFailed
	}
	if mixTracks == nil {
		logger.Warn("可用曲目不足，跳过混音", logger.String("token", token))
		c.setMixStatus(ctx, token, mixStatusFailed)
		c.hub.BroadcastEvent(EventMixFailed, token, map[string]interface{}{
			"reason": model.OutcomeNotEnoughSongs,
		})
		return model.OutcomeNotEnoughSongs
	}

	if err := c.mix(ctx, token, mixTracks); err != nil {
		logger.Error("混音失败", logger.ErrorField(err))
		c.setMixStatus(ctx, token, mixStatusFailed)
		c.hub.BroadcastEvent(EventMixFailed, token, nil)
		return model.OutcomeFailed
	}

	c.setMixStatus(ctx, token, mixStatusReady)
	return model.OutcomeMixed
}

// Redis里的混音状态值
const (
	mixStatusMixing = "mixing"
	mixStatusReady  = "ready"
	mixStatusFailed = "failed"
)

func (c *Controller) setMixStatus(ctx context.Context, token, status string) {
	if err := cache.SetMixStatus(ctx, token, status); err != nil {
		logger.Warn("写入混音状态失败", logger.ErrorField(err))
	}
}

// resolveQueries searches YouTube for each winning query, deduplicating URLs.
func (c *Controller) resolveQueries(ctx context.Context, token string, queries []string) []downloader.Job {
	seen := make(map[string]bool)
	var jobs []downloader.Job

	for _, query := range queries {
		result, err := c.yt.TopResult(ctx, query)
		if err != nil {
			if errors.Is(err, youtube.ErrNoResult) {
				logger.Warn("搜索无结果", logger.String("query", query))
			} else {
				logger.Warn("搜索失败",
					logger.String("query", query),
					logger.ErrorField(err))
			}
			continue
		}

		if seen[result.WatchURL] {
			logger.Info("重复视频，跳过",
				logger.String("query", query),
				logger.String("url", result.WatchURL))
			continue
		}
		seen[result.WatchURL] = true

		if err := downloader.AppendSongLog(c.cfg.SongLogPath, result.WatchURL); err != nil {
			logger.Warn("写入点歌日志失败", logger.ErrorField(err))
		}

		jobs = append(jobs, downloader.Job{Query: query, URL: result.WatchURL})
	}

	return jobs
}

// download runs the jobs through the worker pool and registers each track.
func (c *Controller) download(ctx context.Context, token string, jobs []downloader.Job) {
	c.hub.BroadcastEvent(EventProcessing, token, map[string]interface{}{
		"downloads": len(jobs),
	})

	c.dl.DownloadAll(ctx, jobs, c.cfg.DownloadWorkers, func(res downloader.Result) {
		if res.Err != nil {
			c.hub.BroadcastEvent(EventDownloadDone, token, map[string]interface{}{
				"query": res.Job.Query,
				"ok":    false,
			})
			return
		}
		if res.FilePath != "" {
			c.registerTrack(ctx, token, res)
		}
		c.hub.BroadcastEvent(EventDownloadDone, token, map[string]interface{}{
			"query": res.Job.Query,
			"ok":    true,
		})
	})
}

// registerTrack records one downloaded MP3 against the session.
// The library watcher may race us on the same file; the unique file_path
// column makes the second insert fail harmlessly.
func (c *Controller) registerTrack(ctx context.Context, token string, res downloader.Result) {
	existing, err := c.tracks.GetTrackByFilePath(res.FilePath)
	if err != nil {
		logger.Warn("查询曲目失败", logger.ErrorField(err))
		return
	}
	if existing != nil {
		return
	}

	track := &model.Track{
		SessionToken: token,
		Title:        strings.TrimSuffix(filepath.Base(res.FilePath), filepath.Ext(res.FilePath)),
		Query:        res.Job.Query,
		SourceURL:    res.Job.URL,
		FilePath:     res.FilePath,
		Status:       model.TrackStatusReady,
	}

	if dur, err := c.proc.Duration(ctx, res.FilePath); err == nil {
		track.Duration = float32(dur)
	}

	if _, err := c.tracks.CreateTrack(track); err != nil {
		logger.Warn("注册曲目失败",
			logger.String("file", res.FilePath),
			logger.ErrorField(err))
	}
}

// pickMixTracks chooses the three tracks to mix: this session's downloads
// first, topped up from the library when the session came up short.
// Returns nil when even the library cannot provide three tracks.
func (c *Controller) pickMixTracks(token string) ([]*model.Track, error) {
	tracks, err := c.tracks.GetTracksBySession(token)
	if err != nil {
		return nil, err
	}

	if len(tracks) < 3 {
		recent, err := c.tracks.GetRecentTracks(3 + len(tracks))
		if err != nil {
			return nil, err
		}
		have := make(map[int64]bool, len(tracks))
		for _, t := range tracks {
			have[t.ID] = true
		}
		for _, t := range recent {
			if len(tracks) >= 3 {
				break
			}
			if !have[t.ID] {
				tracks = append(tracks, t)
				have[t.ID] = true
			}
		}
	}

	if len(tracks) < 3 {
		return nil, nil
	}
	return tracks[:3], nil
}

// mix builds and publishes the final mix for the session.
func (c *Controller) mix(ctx context.Context, token string, tracks []*model.Track) error {
	objectName := "mix_" + token + ".mp3"
	outputPath := filepath.Join(c.cfg.MixDir, objectName)

	result, err := c.mixer.MixThree(ctx,
		tracks[0].FilePath, tracks[1].FilePath, tracks[2].FilePath, outputPath)
	if err != nil {
		return err
	}

	object, err := storage.UploadMix(ctx, objectName, outputPath)
	if err != nil {
		// 本地文件还在，记录后继续落库
		logger.Warn("混音上传失败，仅保留本地文件", logger.ErrorField(err))
		object = ""
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = fmt.Sprintf("%d", t.ID)
	}

	mix := &model.Mix{
		SessionToken: token,
		Object:       object,
		FilePath:     outputPath,
		TrackIDs:     strings.Join(ids, ","),
		Duration:     float32(result.Duration),
		TransitionA:  float32(result.TransitionA),
		TransitionB:  float32(result.TransitionB),
	}
	if err := c.mixes.Create(mix); err != nil {
		return err
	}

	c.hub.BroadcastEvent(EventMixReady, token, map[string]interface{}{
		"mixId":    mix.ID,
		"object":   object,
		"duration": result.Duration,
	})

	logger.Info("本轮混音发布",
		logger.String("token", token),
		logger.String("object", object),
		logger.Float64("duration", result.Duration))

	return nil
}

// closeSession archives the window outcome.
func (c *Controller) closeSession(token string, count int64, top []string, outcome string) {
	topJSON, err := json.Marshal(top)
	if err != nil {
		topJSON = []byte("[]")
	}
	if err := c.sessions.CloseSession(token, count, string(topJSON), outcome); err != nil {
		logger.Warn("归档会话失败",
			logger.String("token", token),
			logger.ErrorField(err))
	}
}

func (c *Controller) setPhase(phase model.SessionPhase, token string) {
	c.mu.Lock()
	c.phase = phase
	c.token = token
	c.mu.Unlock()
}

// Status implements Service.
func (c *Controller) Status(ctx context.Context) (*model.SessionStatus, error) {
	c.mu.RLock()
	phase := c.phase
	token := c.token
	c.mu.RUnlock()

	status := &model.SessionStatus{Phase: phase, Token: token}

	if phase == model.PhaseOpen && token != "" {
		_, remaining, err := cache.ActiveSession(ctx)
		if err != nil {
			return nil, err
		}
		status.RemainingSec = int(remaining.Seconds())

		count, err := cache.RequestCount(ctx, token)
		if err != nil {
			return nil, err
		}
		status.RequestCount = count
	}

	if token != "" {
		mixStatus, err := cache.MixStatus(ctx, token)
		if err == nil {
			status.MixStatus = mixStatus
		}
	}

	return status, nil
}

// Submit implements Service.
func (c *Controller) Submit(ctx context.Context, token, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}

	valid, _, err := cache.IsTokenValid(ctx, token)
	if err != nil {
		return err
	}
	if !valid {
		return ErrSessionExpired
	}

	votes, err := cache.AddRequest(ctx, token, query)
	if err != nil {
		return err
	}

	logger.Info("收到点歌",
		logger.String("token", token),
		logger.String("query", query),
		logger.Int64("votes", votes))

	return nil
}
