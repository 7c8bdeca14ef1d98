// Package watch reports changes to sequence files on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/tubelife/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor emits on save.
const DefaultDebounce = 100 * time.Millisecond

type options struct {
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures File.
type Option func(*options)

// WithDebounce sets how long events must settle before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithLogger sets the logger used for watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// File watches path and sends it on the returned channel each time its
// content settles after a write. The directory is watched rather than the
// file, so atomic rename-on-save keeps working. The channel holds at most one
// pending notification and is closed when ctx ends.
func File(ctx context.Context, path string, opts ...Option) (<-chan string, error) {
	o := options{debounce: DefaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	out := make(chan string, 1)
	go loop(ctx, watcher, abs, path, o, out)
	return out, nil
}

func loop(ctx context.Context, w *fsnotify.Watcher, abs, path string, o options, out chan<- string) {
	defer close(out)
	defer w.Close()

	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(o.debounce)
			} else {
				timer.Reset(o.debounce)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			select {
			case out <- path:
			default:
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			o.logger.Warn("Watcher error", "path", path, "err", err)
		}
	}
}
