// Package watch triggers actions when files are rewritten on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/synthsel/ss-sync/pkg/log"
)

// DefaultDebounce coalesces the bursts of writes editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called on the watcher's goroutine once a file has settled.
// log.FromContext(ctx) returns a logger carrying the path.
type Handler func(ctx context.Context, path string)

// Watcher calls a Handler after a watched file is created or written and then
// left alone for the debounce period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	handlers map[string]Handler
	dirs     map[string]bool
}

func New(debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  w,
		debounce: debounce,
		handlers: make(map[string]Handler),
		dirs:     make(map[string]bool),
	}, nil
}

// Watch registers h for path. The parent directory is watched so that files
// replaced by rename are still seen.
func (w *Watcher) Watch(path string, h Handler) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.handlers[abs] = h

	log.Info("Watching file", "path", abs)
	return nil
}

func (w *Watcher) handler(name string) (string, Handler) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return abs, w.handlers[abs]
}

// Run dispatches settled file changes until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	settled := make(chan settle)
	d := newDebouncer(w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path, h := w.handler(event.Name)
			if h == nil {
				continue
			}

			log.Debug("File changed", "path", path, "op", event.Op.String())
			d.arm(path, func(s settle) {
				select {
				case settled <- s:
				case <-ctx.Done():
				}
			})

		case s := <-settled:
			if !d.expired(s) {
				continue
			}
			if _, h := w.handler(s.path); h != nil {
				h(log.IntoContext(ctx, log.WithName("watch").WithValues("path", s.path)), s.path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "File watcher error")
		}
	}
}

// settle is the expiry of the gen-th debounce timer armed for path.
type settle struct {
	path string
	gen  uint64
}

// debouncer keeps one timer per path. A timer that fired while a newer one
// was armed for the same path is stale and its settle is dropped.
// It is only used from the Run goroutine.
type debouncer struct {
	delay  time.Duration
	timers map[string]*time.Timer
	gens   map[string]uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]uint64),
	}
}

func (d *debouncer) arm(path string, fire func(settle)) {
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.gens[path]++
	s := settle{path: path, gen: d.gens[path]}
	d.timers[path] = time.AfterFunc(d.delay, func() { fire(s) })
}

// expired reports whether s is the latest timer for its path and disarms it.
func (d *debouncer) expired(s settle) bool {
	if _, ok := d.timers[s.path]; !ok || d.gens[s.path] != s.gen {
		return false
	}
	delete(d.timers, s.path)
	return true
}

func (d *debouncer) stop() {
	for _, t := range d.timers {
		t.Stop()
	}
}
