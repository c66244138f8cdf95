package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/specintel/domain"
	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports that a domain document changed on disk. The watcher
// never mutates the registry itself: domains are immutable once
// constructed, so the caller decides when to build a replacement and swap
// it in with Registry.Replace.
type ChangeEvent struct {
	// Path is the changed document.
	Path string

	// DomainID is the document's domain_id, when it could be read.
	// Empty for deletions and unreadable documents.
	DomainID string

	// Removed is true when the document was deleted or renamed away.
	Removed bool
}

// WatcherConfig configures a document watcher.
type WatcherConfig struct {
	// Root is the configuration directory to watch.
	Root string

	// Patterns are the discovery globs (DefaultPatterns when empty).
	Patterns []string

	// DebounceDelay is how long to wait for more changes before emitting.
	DebounceDelay time.Duration

	// Logger for watcher events.
	Logger *slog.Logger
}

// Watcher watches a configuration tree for domain document changes and
// emits debounced ChangeEvents.
type Watcher struct {
	config   WatcherConfig
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	patterns []string

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	events    chan ChangeEvent
	closeOnce sync.Once
}

// NewWatcher creates a watcher for domain documents under cfg.Root.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 250 * time.Millisecond
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	return &Watcher{
		config:   cfg,
		watcher:  fsw,
		logger:   logger,
		patterns: patterns,
		pending:  make(map[string]fsnotify.Op),
		events:   make(chan ChangeEvent, 64),
	}, nil
}

// Events returns the channel of change events.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins watching. It returns immediately; events flow until ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Domain document watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher and closes the event channel.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.closeOnce.Do(func() { close(w.events) })
	return err
}

// addWatchesRecursive adds watches to all directories under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if base := filepath.Base(path); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent records a single fsnotify event for the next flush.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch new directory",
					"path", path,
					"error", err)
			}
			return
		}
	}

	if !w.matchesPatterns(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()
}

// flushPending emits one ChangeEvent per pending document.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range pending {
		ev := ChangeEvent{Path: path}
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			ev.Removed = true
		} else if id, err := domain.PeekDomainID(path); err == nil {
			ev.DomainID = id
		} else {
			w.logger.Warn("Changed document has no readable domain_id",
				"path", path,
				"error", err)
		}

		select {
		case w.events <- ev:
		default:
			w.logger.Warn("Dropping change event: channel full", "path", path)
		}
	}
}

// matchesPatterns reports whether a path is a domain document under the
// watched root.
func (w *Watcher) matchesPatterns(path string) bool {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
