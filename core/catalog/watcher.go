package catalog

import (
	"context"
	"path/filepath"
	"time"

	"UndercoverFM/core/scheduler"
	"UndercoverFM/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes of a local manifest file. Editors often replace
// files by rename, so the parent directory is watched and events are
// filtered by name. Bursts are coalesced by a debouncer.
type Watcher struct {
	path     string
	debounce *scheduler.Debouncer
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching path; onChange runs after quiet periods of wait.
func NewWatcher(path string, wait time.Duration, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: scheduler.NewDebouncer(scheduler.Real(), wait, onChange),
	}, nil
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	defer w.debounce.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("歌单清单文件变化", logger.String("file", event.Name), logger.String("op", event.Op.String()))
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("清单文件监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
