package agent

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CreatorMessageWatcher watches the directory containing the creator-message
// drop file and emits a signal on Signal() whenever it is created or
// rewritten, debounced against rapid successive writes from an editor.
// Grounded on the teacher's MangleWatcher (fsnotify.Watcher over a single
// directory, debounce map drained by a ticker), narrowed from "watch and
// repair many files" to "watch and signal on one path".
type CreatorMessageWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	path    string
	log     *zap.Logger

	debounceDur time.Duration
	lastEvent   time.Time
	pending     bool

	signal chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCreatorMessageWatcher watches the directory containing path for changes
// to that specific file.
func NewCreatorMessageWatcher(path string, log *zap.Logger) (*CreatorMessageWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &CreatorMessageWatcher{
		watcher:     watcher,
		path:        filepath.Clean(path),
		log:         log,
		debounceDur: 300 * time.Millisecond,
		signal:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Signal delivers a buffered notification each time the watched file settles
// after a create or write event. The channel never blocks the watcher: a
// pending signal is coalesced if the receiver hasn't drained the last one.
func (w *CreatorMessageWatcher) Signal() <-chan struct{} {
	return w.signal
}

// Run drives the watch loop until ctx is cancelled or Stop is called.
func (w *CreatorMessageWatcher) Run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("creator message watcher error", zap.Error(err))
			}
		case <-debounceTicker.C:
			w.maybeFire()
		}
	}
}

func (w *CreatorMessageWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.mu.Lock()
	w.lastEvent = time.Now()
	w.pending = true
	w.mu.Unlock()
}

func (w *CreatorMessageWatcher) maybeFire() {
	w.mu.Lock()
	fire := w.pending && time.Since(w.lastEvent) >= w.debounceDur
	if fire {
		w.pending = false
	}
	w.mu.Unlock()

	if !fire {
		return
	}

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Stop shuts the watcher down and waits for its goroutine to exit.
func (w *CreatorMessageWatcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}
