// Package watcher follows files on disk that back the editing buffers, so
// an external editor can drive a session. Bursts of writes to one file are
// debounced into a single Change carrying the file's new content.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/pubsub"
)

// DefaultDebounce is the quiet period before a change is delivered.
const DefaultDebounce = 150 * time.Millisecond

// Target names the buffer a watched file feeds.
type Target string

const (
	Markup Target = "markup"
	Style  Target = "style"
	Script Target = "script"
)

// Change is published after a watched file settles.
type Change struct {
	Target  Target
	Path    string
	Content string
}

// Config holds watcher configuration options.
type Config struct {
	// Files maps each target to the file that feeds it. Empty paths are
	// skipped.
	Files       map[Target]string
	DebounceDur time.Duration
}

// Watcher watches the configured files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	targets   map[string]Target // cleaned absolute path -> target
	broker    *pubsub.Broker[Change]
	done      chan struct{}
	stopOnce  sync.Once

	mu     sync.Mutex
	timers map[Target]*time.Timer
}

// New creates a watcher. No events are delivered until Start.
func New(cfg Config) (*Watcher, error) {
	debounce := cfg.DebounceDur
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]Target, len(cfg.Files))
	for target, path := range cfg.Files {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s path %s: %w", target, path, err)
		}
		targets[filepath.Clean(abs)] = target
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		targets:   targets,
		broker:    pubsub.NewBroker[Change](),
		done:      make(chan struct{}),
		timers:    make(map[Target]*time.Timer),
	}, nil
}

// Subscribe delivers settled changes until ctx is done.
func (w *Watcher) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return w.broker.Subscribe(ctx)
}

var _ pubsub.Subscriber[Change] = (*Watcher)(nil)

// Start watches the directory of every configured file. Directories are
// watched instead of files so editors that replace files atomically keep
// being followed.
func (w *Watcher) Start() error {
	dirs := make(map[string]struct{})
	for path := range w.targets {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
		log.Debug(log.CatWatcher, "watching directory", "dir", dir)
	}

	go w.loop()
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
		err = w.fsWatcher.Close()
		w.broker.Close()
	})
	return err
}

// Load reads every configured file once, for seeding buffers at startup.
func (w *Watcher) Load() ([]Change, error) {
	out := make([]Change, 0, len(w.targets))
	for path, target := range w.targets {
		data, err := os.ReadFile(path) //nolint:gosec // G304: user-chosen watch file
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, Change{Target: target, Path: path, Content: string(data)})
	}
	return out, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			target, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			w.schedule(target, filepath.Clean(event.Name))

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			return
		}
	}
}

// relevant reports the target of a write or create on a watched file.
func (w *Watcher) relevant(event fsnotify.Event) (Target, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	target, ok := w.targets[filepath.Clean(abs)]
	return target, ok
}

// schedule (re)starts the debounce timer for target.
func (w *Watcher) schedule(target Target, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[target]; ok {
		t.Stop()
	}
	w.timers[target] = time.AfterFunc(w.debounce, func() { w.emit(target, path) })
}

func (w *Watcher) emit(target Target, path string) {
	select {
	case <-w.done:
		return
	default:
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: user-chosen watch file
	if err != nil {
		// Mid-rename; the create event that follows reschedules.
		log.Debug(log.CatWatcher, "read after change failed", "path", path, "error", err)
		return
	}
	log.Debug(log.CatWatcher, "file changed", "target", target, "path", path, "bytes", len(data))
	w.broker.Publish(pubsub.UpdatedEvent, Change{Target: target, Path: path, Content: string(data)})
}
