package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/pkg/logger"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = time.Second

type ConfigReloader func(cfg *config.Config)

type Watcher struct {
	ConfigPath string
	Debounce   time.Duration
	Reloaders  []ConfigReloader
}

func New(configPath string, reloaders ...ConfigReloader) *Watcher {
	return &Watcher{
		ConfigPath: configPath,
		Debounce:   defaultDebounce,
		Reloaders:  reloaders,
	}
}

// Run 监听配置文件，写入后防抖再重新加载，ctx 取消时返回
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.ConfigPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	// 监听目录，编辑器保存时常常是替换文件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case <-timer.C:
			w.reload(absPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(absPath string) {
	newCfg, err := config.LoadConfig(filepath.Dir(absPath))
	if err != nil {
		logger.Log.Error("Failed to reload config", zap.Error(err))
		return
	}
	logger.Log.Info("Config reloaded", zap.String("path", absPath))
	for _, reload := range w.Reloaders {
		reload(newCfg)
	}
}

// LogLevelReloader 配置变更时调整日志级别
func LogLevelReloader(cfg *config.Config) {
	level := logger.ResolveLevel(cfg)
	if level == logger.CurrentLevel() {
		return
	}
	logger.SetLevel(cfg)
	logger.Log.Info("Log level changed", zap.String("level", level.String()))
}
