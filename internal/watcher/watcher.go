// file: internal/watcher/watcher.go
// version: 3.0.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

// Package watcher watches the inbox tree and hands settled batches of new
// PDF files to a callback.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/fileops"
)

// DefaultDebounce is the default debounce period.
const DefaultDebounce = 2 * time.Second

// Callback receives the PDF files that appeared or changed since the last
// batch, sorted, once events settle for the debounce period.
type Callback func(paths []string)

// Watcher monitors a directory tree for PDF changes and invokes a callback
// after a debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	rootDir   string
	debounce  time.Duration
	callback  Callback
	stop      chan struct{}
	stopped   chan struct{}
	mu        sync.Mutex
	timer     *time.Timer
	pending   map[string]struct{}
	running   bool
}

// New creates a Watcher. Pass 0 for debounce to use DefaultDebounce.
func New(callback Callback, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		callback: callback,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		pending:  make(map[string]struct{}),
	}
}

// Start begins watching rootDir recursively. It is safe to call only once.
func (w *Watcher) Start(rootDir string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.rootDir = rootDir

	if err := w.addRecursive(rootDir); err != nil {
		fsw.Close()
		return err
	}

	log.Info().Str("dir", rootDir).Dur("debounce", w.debounce).Msg("watching inbox")
	go w.eventLoop()
	return nil
}

// Stop gracefully shuts down the watcher and waits for the event loop to
// exit. Pending files that have not settled are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if path != root && isHidden(path) {
				return filepath.SkipDir
			}
			if watchErr := w.fsWatcher.Add(path); watchErr != nil {
				log.Warn().Err(watchErr).Str("dir", path).Msg("cannot watch directory")
			}
			return nil
		}
		// Files copied in together with a new directory produce no events
		// of their own.
		if path != root && IsPDFFile(path) {
			w.markPending(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
	}
	if !IsPDFFile(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename reports the old name; the new one arrives as Create.
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.markPending(event.Name)
	}
}

// markPending records path and restarts the debounce timer.
func (w *Watcher) markPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	w.timer = nil
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	log.Info().Int("files", len(paths)).Str("dir", w.rootDir).Msg("inbox batch ready")
	if w.callback != nil {
		w.callback(paths)
	}
}

// IsPDFFile reports whether name is a visible file with a .pdf extension.
func IsPDFFile(name string) bool {
	return !isHidden(name) && fileops.HasPDFExtension(name)
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
