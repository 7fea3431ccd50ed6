package querydoc

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeKind says what happened to a watched document.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is delivered to the OnChange callback. Doc is nil for removals and
// when Err is set.
type Change struct {
	Path string
	Kind ChangeKind
	Doc  *Document
	Err  error
}

// ErrWatcherClosed is returned by Start after Stop or after a failed Start.
var ErrWatcherClosed = errors.New("query watcher closed")

// Watcher reloads query documents under a directory as they change.
type Watcher struct {
	mu sync.RWMutex

	root   string
	logger *zap.Logger

	fsWatcher *fsnotify.Watcher

	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Events for the same file within debounceDelay collapse into one reload.
	debounceDelay time.Duration
	pendingEvents map[string]fsnotify.Op
	eventTimer    *time.Timer
	flushCh       chan struct{} // debounce timer fired; drained by processEvents

	docs   map[string]*Document
	hashes map[string][32]byte

	onChange func(Change)
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay. Default is 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnChange sets the callback invoked after each reload or removal.
func WithOnChange(fn func(Change)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// NewWatcher creates a watcher for root. A nil logger discards output.
func NewWatcher(root string, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		root:          root,
		logger:        logger.Named("querydoc"),
		fsWatcher:     fsw,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		debounceDelay: 100 * time.Millisecond,
		pendingEvents: make(map[string]fsnotify.Op),
		flushCh:       make(chan struct{}, 1),
		docs:          make(map[string]*Document),
		hashes:        make(map[string][32]byte),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the existing documents and begins watching. Documents that
// fail to load are reported through OnChange and skipped. If the root
// cannot be walked the watcher is released and cannot be restarted.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatchesRecursive(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.closed = true
		w.mu.Unlock()
		_ = w.fsWatcher.Close()
		return err
	}

	w.logger.Info("query watcher started", zap.String("root", w.root))

	go w.processEvents()
	return nil
}

// Stop stops the watcher and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.closed = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.logger.Info("query watcher stopped")
	return w.fsWatcher.Close()
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Documents returns the currently loaded documents keyed by path.
func (w *Watcher) Documents() map[string]*Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]*Document, len(w.docs))
	for k, v := range w.docs {
		out[k] = v
	}
	return out
}

// Paths returns the loaded document paths in sorted order.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.docs))
	for p := range w.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if IsDocumentFile(path) {
				w.handleFileChanged(path)
			}
			return nil
		}

		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

// IsDocumentFile reports whether path has a YAML extension.
func IsDocumentFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (w *Watcher) processEvents() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			w.mu.Lock()
			if w.eventTimer != nil {
				w.eventTimer.Stop()
			}
			w.mu.Unlock()
			return

		case <-w.flushCh:
			w.processPendingEvents()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
			w.notify(Change{Path: w.root, Err: err})
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsDocumentFile(event.Name) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.fsWatcher.Add(event.Name); err == nil {
					w.logger.Debug("added watch for new directory", zap.String("path", event.Name))
				}
			}
		}
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Last operation wins for the same file.
	w.pendingEvents[event.Name] = event.Op

	if w.eventTimer != nil {
		w.eventTimer.Stop()
	}
	w.eventTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush hands the pending events to processEvents so reloads never overlap
// and none run after Stop returns.
func (w *Watcher) flush() {
	select {
	case w.flushCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) processPendingEvents() {
	w.mu.Lock()
	events := w.pendingEvents
	w.pendingEvents = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	paths := make([]string, 0, len(events))
	for p := range events {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		op := events[path]
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			w.handleFileRemoved(path)
		case op.Has(fsnotify.Create) || op.Has(fsnotify.Write):
			w.handleFileChanged(path)
		}
	}
}

func (w *Watcher) handleFileChanged(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Editors often remove and recreate; a later event will follow.
		if os.IsNotExist(err) {
			w.handleFileRemoved(path)
			return
		}
		w.logger.Error("failed to read query document", zap.String("path", path), zap.Error(err))
		w.notify(Change{Path: path, Err: err})
		return
	}

	sum := sha256.Sum256(data)
	w.mu.Lock()
	prev, seen := w.hashes[path]
	w.mu.Unlock()
	if seen && bytes.Equal(prev[:], sum[:]) {
		w.logger.Debug("query document unchanged", zap.String("path", path))
		return
	}

	doc, err := Parse(data)
	if err != nil {
		w.logger.Error("failed to reload query document", zap.String("path", path), zap.Error(err))
		w.notify(Change{Path: path, Err: err})
		return
	}

	kind := ChangeCreated
	w.mu.Lock()
	if _, ok := w.docs[path]; ok {
		kind = ChangeModified
	}
	w.docs[path] = doc
	w.hashes[path] = sum
	w.mu.Unlock()

	w.logger.Info("query document reloaded",
		zap.String("query", doc.Name),
		zap.String("event", string(kind)),
		zap.String("path", path),
	)
	w.notify(Change{Path: path, Kind: kind, Doc: doc})
}

func (w *Watcher) handleFileRemoved(path string) {
	w.mu.Lock()
	_, ok := w.docs[path]
	delete(w.docs, path)
	delete(w.hashes, path)
	w.mu.Unlock()
	if !ok {
		return
	}

	w.logger.Info("query document removed", zap.String("path", path))
	w.notify(Change{Path: path, Kind: ChangeRemoved})
}

func (w *Watcher) notify(c Change) {
	if w.onChange != nil {
		w.onChange(c)
	}
}
