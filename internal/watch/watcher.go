// Package watch re-runs an action when any of a fixed set of files changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDelay is how long the watcher waits for a burst of events to settle.
const DefaultDelay = 300 * time.Millisecond

// FileWatcher watches individual files. Their parent directories are watched
// instead of the files themselves so that editors replacing a file by rename
// are still noticed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce func(func())
	trigger  chan struct{}
	onChange func(ctx context.Context)
	logger   zerolog.Logger
}

// NewFileWatcher creates a watcher calling onChange once per settled burst of
// changes to files.
func NewFileWatcher(files []string, delay time.Duration, onChange func(ctx context.Context), logger zerolog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  watcher,
		files:    make(map[string]bool, len(files)),
		debounce: debounce.New(delay),
		trigger:  make(chan struct{}, 1),
		onChange: onChange,
		logger:   logger.With().Str("component", "watch").Logger(),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		fw.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return fw, nil
}

// Start begins watching for file changes. onChange runs on the calling
// goroutine, so runs never overlap.
func (fw *FileWatcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if fw.shouldTrigger(event) {
				fw.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
				fw.debounce(fw.notify)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			if err != nil {
				// Log error but continue watching
				fw.logger.Warn().Err(err).Msg("watcher error")
			}

		case <-fw.trigger:
			fw.onChange(ctx)
		}
	}
}

func (fw *FileWatcher) notify() {
	select {
	case fw.trigger <- struct{}{}:
	default:
	}
}

// shouldTrigger reports whether event touches a watched file's content.
func (fw *FileWatcher) shouldTrigger(event fsnotify.Event) bool {
	if !fw.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
