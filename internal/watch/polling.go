package watch

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// pollingWatcher detects changes under one root by periodic re-scan. It
// is the fallback used when fsnotify could not be initialised for this
// process, grounded on the teacher's scan-diff-emit polling loop.
type pollingWatcher struct {
	root     string
	interval time.Duration
	onChange func(relPath string, kind ChangeKind)

	mu      sync.Mutex
	state   map[string]fileSnapshot
	stopCh  chan struct{}
	stopped bool
}

func newPollingWatcher(root string, interval time.Duration, onChange func(string, ChangeKind)) *pollingWatcher {
	return &pollingWatcher{
		root:     root,
		interval: interval,
		onChange: onChange,
		state:    make(map[string]fileSnapshot),
		stopCh:   make(chan struct{}),
	}
}

func (p *pollingWatcher) run() {
	p.scan(false)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.scan(true)
		}
	}
}

// scan walks the root, comparing against the previous snapshot. When
// emit is false (the initial scan) it only establishes a baseline.
func (p *pollingWatcher) scan(emit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	current := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snap := fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		current[rel] = snap

		if emit {
			if prev, ok := p.state[rel]; !ok {
				p.onChange(rel, Created)
			} else if prev.modTime != snap.modTime || prev.size != snap.size {
				p.onChange(rel, Modified)
			}
		}
		return nil
	})

	if emit {
		for rel := range p.state {
			if _, ok := current[rel]; !ok {
				p.onChange(rel, Deleted)
			}
		}
	}
	p.state = current
}

func (p *pollingWatcher) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}
