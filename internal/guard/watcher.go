package guard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TamperEvent is emitted when the locked file changes on disk and its content
// no longer matches the checksum recorded at lock time.
type TamperEvent struct {
	File       string    `json:"file"`
	DetectedAt time.Time `json:"detected_at"`
}

// Watcher observes the protected file and re-verifies its checksum after
// writes. The lock itself stays advisory; the watcher only detects edits that
// slipped past it.
type Watcher struct {
	guard    *Guard
	debounce time.Duration
	onTamper func(TamperEvent)

	fsWatcher *fsnotify.Watcher
	timer     *time.Timer

	mu         sync.Mutex
	running    bool
	lastTamper *TamperEvent
	cancel     context.CancelFunc
}

func NewWatcher(g *Guard, debounce time.Duration, onTamper func(TamperEvent)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		guard:     g,
		debounce:  debounce,
		onTamper:  onTamper,
		fsWatcher: fsWatcher,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	// fsnotify watches directories; editors replace files rather than
	// writing them in place, so watching the parent survives renames.
	dir := filepath.Dir(w.guard.File())
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}

	log.Info("watching protected file", "file", w.guard.File())

	go w.handleEvents(ctx)
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	target := filepath.Clean(w.guard.File())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			log.Debug("protected file event", "op", event.Op.String())
			w.scheduleCheck()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Debug("watch error", "error", err)
		}
	}
}

func (w *Watcher) scheduleCheck() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.check)
}

func (w *Watcher) check() {
	ok, err := w.guard.Verify()
	if err != nil {
		if errors.Is(err, ErrNoChecksum) {
			return
		}
		log.Warn("checksum verification failed", "file", w.guard.File(), "error", err)
		return
	}
	if ok {
		return
	}

	event := TamperEvent{File: w.guard.File(), DetectedAt: time.Now().UTC()}

	w.mu.Lock()
	w.lastTamper = &event
	w.mu.Unlock()

	log.Warn("locked file modified out of band", "file", event.File)

	if w.onTamper != nil {
		w.onTamper(event)
	}
}

func (w *Watcher) LastTamper() *TamperEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastTamper == nil {
		return nil
	}
	event := *w.lastTamper
	return &event
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.cancel()
	return w.fsWatcher.Close()
}
