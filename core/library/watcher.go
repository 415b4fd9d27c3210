package library

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"autodj/core/audio"
	"autodj/logger"
	"autodj/model"
	"autodj/repository"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听下载目录，把新落地的 MP3 注册进曲库
// yt-dlp 写文件是渐进的，所以靠稳定性检查确认文件已经写完
type Watcher struct {
	dir    string
	repo   repository.TrackRepository
	proc   audio.Processor
	onFile func(track *model.Track)
}

// NewWatcher creates a library watcher over dir.
func NewWatcher(dir string, repo repository.TrackRepository, proc audio.Processor) *Watcher {
	return &Watcher{dir: dir, repo: repo, proc: proc}
}

// OnRegister sets an optional callback invoked after each new track is registered.
func (w *Watcher) OnRegister(fn func(track *model.Track)) {
	w.onFile = fn
}

// Run watches the download directory until ctx is cancelled.
// Files already present at startup are registered first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	w.scanExisting(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	logger.Info("曲库监听已启动", logger.String("dir", w.dir))

	// 文件稳定性检查的延迟队列
	pendingFiles := make(map[string]time.Time)
	checkTicker := time.NewTicker(500 * time.Millisecond)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if filepath.Ext(event.Name) == ".mp3" {
					pendingFiles[event.Name] = time.Now()
				}
			}

		case <-checkTicker.C:
			now := time.Now()
			for path, lastMod := range pendingFiles {
				// 1 秒内有写入说明还在下载
				if now.Sub(lastMod) < time.Second {
					continue
				}
				if !isFileComplete(path) {
					continue
				}
				w.register(ctx, path)
				delete(pendingFiles, path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

// scanExisting registers MP3s that were downloaded before the watcher started.
func (w *Watcher) scanExisting(ctx context.Context) {
	files, err := filepath.Glob(filepath.Join(w.dir, "*.mp3"))
	if err != nil {
		logger.Warn("扫描下载目录失败", logger.ErrorField(err))
		return
	}
	for _, path := range files {
		w.register(ctx, path)
	}
}

// register adds one MP3 to the library, skipping files already known.
func (w *Watcher) register(ctx context.Context, path string) {
	existing, err := w.repo.GetTrackByFilePath(path)
	if err != nil {
		logger.Warn("查询曲目失败",
			logger.String("file", path),
			logger.ErrorField(err))
		return
	}
	if existing != nil {
		return
	}

	track := &model.Track{
		Title:    titleFromPath(path),
		FilePath: path,
		Status:   model.TrackStatusReady,
	}

	if dur, err := w.proc.Duration(ctx, path); err != nil {
		logger.Warn("探测时长失败",
			logger.String("file", filepath.Base(path)),
			logger.ErrorField(err))
	} else {
		track.Duration = float32(dur)
	}

	id, err := w.repo.CreateTrack(track)
	if err != nil {
		logger.Warn("注册曲目失败",
			logger.String("file", filepath.Base(path)),
			logger.ErrorField(err))
		return
	}
	track.ID = id

	logger.Info("曲目入库",
		logger.Int64("trackId", id),
		logger.String("title", track.Title),
		logger.Float64("duration", float64(track.Duration)))

	if w.onFile != nil {
		w.onFile(track)
	}
}

// titleFromPath derives a display title from the MP3 filename.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// isFileComplete 检查文件是否写入完成
func isFileComplete(path string) bool {
	info1, err := os.Stat(path)
	if err != nil || info1.Size() == 0 {
		return false
	}

	// 短暂等待后再次检查大小
	time.Sleep(30 * time.Millisecond)

	info2, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info1.Size() == info2.Size()
}
