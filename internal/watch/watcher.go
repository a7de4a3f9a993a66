// Package watch re-samples the particle asset when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/san-kum/pixeldust/internal/logger"
)

const DefaultDebounce = 250 * time.Millisecond

// Watcher calls reload once per burst of writes to a single file. It watches
// the parent directory so editors that replace the file on save still trigger.
type Watcher struct {
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	path     string
	reload   func(path string)
	debounce time.Duration
}

func New(path string, reload func(path string), log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		log:      logger.OrNop(log).Named("watch"),
		watcher:  fw,
		path:     abs,
		reload:   reload,
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce changes the quiet period before a reload. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Start watches in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	timer := time.NewTimer(0)
	<-timer.C

	w.log.Info("watching asset", zap.String("path", w.path))
	go func() {
		defer timer.Stop()
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if w.relevant(event) {
					w.log.Debug("asset changed", zap.String("op", event.Op.String()))
					timer.Reset(w.debounce)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Error("watcher error", zap.Error(err))

			case <-timer.C:
				w.log.Info("re-sampling asset", zap.String("path", w.path))
				w.reload(w.path)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}
