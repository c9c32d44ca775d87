package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one newly dropped links file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors a directory for new link-list files and hands each one to
// the handler. Handling is sequential; the batch itself fans out internally.
type Watcher struct {
	dir     string
	handler Handler
	fsw     *fsnotify.Watcher
}

// New creates a Watcher on dir.
func New(dir string, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, handler: handler, fsw: fsw}, nil
}

// Start blocks, processing .txt files as they appear, until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	slog.Info("watching for link lists", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".txt" {
				slog.Debug("ignoring non-list file", "path", event.Name)
				continue
			}

			slog.Info("new links file detected", "path", event.Name)

			// Give the writer a moment to finish the file.
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}

			if err := w.handler(ctx, event.Name); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("links file processing failed", "path", event.Name, "err", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("watcher error", "err", err)
		}
	}
}
