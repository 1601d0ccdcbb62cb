package leodocs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher evicts cache entries whose template file under root
// changes. Cache keys are identifiers relative to root with forward slashes,
// the same identifiers a DirStore accepts.
type TemplateWatcher struct {
	root    string
	cache   *TemplateCache
	logger  *Logger
	watcher *fsnotify.Watcher
}

// NewTemplateWatcher starts watching root and all of its subdirectories.
// Events are handled once Run is called.
func NewTemplateWatcher(root string, cache *TemplateCache, logger *Logger) (*TemplateWatcher, error) {
	if logger == nil {
		logger = NopLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return &TemplateWatcher{root: root, cache: cache, logger: logger, watcher: watcher}, nil
}

// Run handles file events until ctx is done, then releases the watcher.
func (tw *TemplateWatcher) Run(ctx context.Context) error {
	defer tw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return nil
			}
			tw.handle(event)
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return nil
			}
			tw.logger.Warn("Template watcher error: %v", err)
		}
	}
}

func (tw *TemplateWatcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := tw.watcher.Add(event.Name); err != nil {
				tw.logger.Warn("Failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	key := relKey(tw.root, event.Name)
	if key == "" {
		return
	}
	if tw.cache.Remove(key) {
		tw.logger.WithFields(Fields{"template": key, "op": event.Op.String()}).Info("Evicted changed template")
	}
}

// WatchTemplates watches root and evicts changed templates from cache until
// ctx is done.
func WatchTemplates(ctx context.Context, root string, cache *TemplateCache, logger *Logger) error {
	tw, err := NewTemplateWatcher(root, cache, logger)
	if err != nil {
		return err
	}
	return tw.Run(ctx)
}

// relKey converts a watched path into a cache key, or "" when it lies outside root.
func relKey(root, name string) string {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}
