// Package watch observes one or more repository roots and emits batched
// change sets for the Indexer to reprocess. It prefers the OS's native
// notification facility (fsnotify) and falls back to polling when that
// fails to initialise, generalizing the teacher's hybrid
// fsnotify/polling watcher from a single root to many.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/urbanisierung/knowledge-index/internal/classify"
)

// ChangeKind is the coalesced kind of one pending change.
type ChangeKind string

const (
	Created  ChangeKind = "created"
	Modified ChangeKind = "modified"
	Deleted  ChangeKind = "deleted"
)

// Change is one coalesced filesystem change awaiting poll.
type Change struct {
	Path       string
	Kind       ChangeKind
	DetectedAt time.Time
}

// Batch groups every pending change for one watched root.
type Batch struct {
	Root    string
	Changes []Change
}

// Options configures a Watcher.
type Options struct {
	DebounceWindow time.Duration
	PollInterval   time.Duration
	IgnorePatterns []string
}

const (
	defaultDebounceWindow = 500 * time.Millisecond
	defaultPollInterval   = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaultDebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	return o
}

type watchedRoot struct {
	path        string
	classifier  *classify.Classifier
	pollWatcher *pollingWatcher
	useFsnotify bool
}

// Watcher observes any number of roots and exposes a non-blocking
// PollChanges drain, matching spec.md's pull-based concurrency contract:
// the background notification source feeds a pending map under its own
// mutex, and PollChanges only ever reads that map.
type Watcher struct {
	opts Options

	mu      sync.Mutex
	roots   map[string]*watchedRoot
	pending map[string]map[string]*Change // root -> path -> change

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New builds a Watcher. If fsnotify cannot be initialised (e.g. platform
// or resource limits), every subsequently-added root falls back to
// polling.
func New(opts Options) *Watcher {
	opts = opts.withDefaults()
	w := &Watcher{
		opts:    opts,
		roots:   make(map[string]*watchedRoot),
		pending: make(map[string]map[string]*Change),
		stopCh:  make(chan struct{}),
	}
	if fsw, err := fsnotify.NewWatcher(); err == nil {
		w.fsWatcher = fsw
		go w.drainFsnotify()
	} else {
		slog.Warn("fsnotify unavailable, falling back to polling for all roots", slog.String("error", err.Error()))
	}
	return w
}

// Watch begins observing root. maxFileSize/ignorePatterns build the same
// Classifier the Indexer uses, but the watcher applies only its ignore
// patterns; extension, size and .gitignore checks are not applied here.
func (w *Watcher) Watch(root string, maxFileSize int64, ignorePatterns []string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	wr := &watchedRoot{
		path:       abs,
		classifier: classify.New(maxFileSize, ignorePatterns),
	}

	w.mu.Lock()
	w.roots[abs] = wr
	w.pending[abs] = make(map[string]*Change)
	w.mu.Unlock()

	if w.fsWatcher != nil {
		if err := w.addRecursive(wr); err == nil {
			wr.useFsnotify = true
			return nil
		}
	}

	wr.pollWatcher = newPollingWatcher(abs, w.opts.PollInterval, func(relPath string, kind ChangeKind) {
		w.record(abs, relPath, kind)
	})
	go wr.pollWatcher.run()
	return nil
}

// addRecursive registers every non-ignored directory under wr.path with
// fsnotify, warning (not failing) when the watch count approaches the
// platform's inotify cap.
func (w *Watcher) addRecursive(wr *watchedRoot) error {
	var dirs []string
	err := filepath.WalkDir(wr.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(wr.path, path)
		if rel != "." && wr.classifier.MatchesIgnorePattern(rel) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return err
	}

	warnIfNearInotifyCap(len(dirs))

	for _, d := range dirs {
		if err := w.fsWatcher.Add(d); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) drainFsnotify() {
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(ev)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(ev fsnotify.Event) {
	w.mu.Lock()
	var wr *watchedRoot
	var root string
	for r, candidate := range w.roots {
		if strings.HasPrefix(ev.Name, r) {
			if len(r) > len(root) {
				root, wr = r, candidate
			}
		}
	}
	w.mu.Unlock()
	if wr == nil {
		return
	}

	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	if wr.classifier.MatchesIgnorePattern(rel) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsWatcher.Add(ev.Name)
		}
		w.record(root, rel, Created)
	case ev.Op&fsnotify.Write != 0:
		w.record(root, rel, Modified)
	case ev.Op&fsnotify.Remove != 0:
		w.record(root, rel, Deleted)
	case ev.Op&fsnotify.Rename != 0:
		w.record(root, rel, Deleted)
	default:
	}
}

// record applies the coalescing rules to a new event for (root, relPath):
// CREATE+MODIFY=CREATE, CREATE+DELETE=nothing, MODIFY+DELETE=DELETE,
// DELETE+CREATE=MODIFY. The timestamp always resets on the latest event.
func (w *Watcher) record(root, relPath string, kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	byPath, ok := w.pending[root]
	if !ok {
		byPath = make(map[string]*Change)
		w.pending[root] = byPath
	}

	now := time.Now()
	existing, ok := byPath[relPath]
	if !ok {
		byPath[relPath] = &Change{Path: relPath, Kind: kind, DetectedAt: now}
		return
	}

	coalesced, cancel := coalesce(existing.Kind, kind)
	if cancel {
		delete(byPath, relPath)
		return
	}
	existing.Kind = coalesced
	existing.DetectedAt = now
}

func coalesce(first, next ChangeKind) (result ChangeKind, cancel bool) {
	switch first {
	case Created:
		switch next {
		case Modified:
			return Created, false
		case Deleted:
			return "", true
		default:
			return next, false
		}
	case Modified:
		if next == Deleted {
			return Deleted, false
		}
		return Modified, false
	case Deleted:
		if next == Created {
			return Modified, false
		}
		return next, false
	default:
		return next, false
	}
}

// PollChanges drains every change that has aged past the debounce
// window, grouped by owning root. It never blocks and holds no Store
// locks.
func (w *Watcher) PollChanges() []Batch {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var batches []Batch
	for root, byPath := range w.pending {
		var ready []Change
		for path, c := range byPath {
			if now.Sub(c.DetectedAt) >= w.opts.DebounceWindow {
				ready = append(ready, *c)
				delete(byPath, path)
			}
		}
		if len(ready) > 0 {
			batches = append(batches, Batch{Root: root, Changes: ready})
		}
	}
	return batches
}

// Stop releases every underlying watch. Safe to call once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.fsWatcher != nil {
			_ = w.fsWatcher.Close()
		}
		w.mu.Lock()
		for _, wr := range w.roots {
			if wr.pollWatcher != nil {
				wr.pollWatcher.stop()
			}
		}
		w.mu.Unlock()
	})
}

// warnIfNearInotifyCap estimates directory count against the per-user
// inotify watch cap and logs a warning (never an error) at 80% usage.
func warnIfNearInotifyCap(dirCount int) {
	data, err := os.ReadFile("/proc/sys/fs/inotify/max_user_watches")
	if err != nil {
		return
	}
	limit, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || limit <= 0 {
		return
	}
	if float64(dirCount) > 0.8*float64(limit) {
		slog.Warn("approaching inotify watch limit",
			slog.Int("directories", dirCount),
			slog.Int("limit", limit))
	}
}
