package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce_CreateThenModify_StaysCreate(t *testing.T) {
	kind, cancel := coalesce(Created, Modified)
	assert.False(t, cancel)
	assert.Equal(t, Created, kind)
}

func TestCoalesce_CreateThenDelete_Cancels(t *testing.T) {
	_, cancel := coalesce(Created, Deleted)
	assert.True(t, cancel)
}

func TestCoalesce_ModifyThenDelete_BecomesDelete(t *testing.T) {
	kind, cancel := coalesce(Modified, Deleted)
	assert.False(t, cancel)
	assert.Equal(t, Deleted, kind)
}

func TestCoalesce_DeleteThenCreate_BecomesModify(t *testing.T) {
	kind, cancel := coalesce(Deleted, Created)
	assert.False(t, cancel)
	assert.Equal(t, Modified, kind)
}

func newTestWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()
	w := &Watcher{
		opts:    Options{DebounceWindow: debounce}.withDefaults(),
		roots:   make(map[string]*watchedRoot),
		pending: make(map[string]map[string]*Change),
		stopCh:  make(chan struct{}),
	}
	w.opts.DebounceWindow = debounce
	w.pending["/repo"] = make(map[string]*Change)
	return w
}

func TestWatcher_PollChanges_OnlyDrainsAgedEntries(t *testing.T) {
	w := newTestWatcher(t, 50*time.Millisecond)

	w.record("/repo", "stale.txt", Created)
	time.Sleep(80 * time.Millisecond)
	w.record("/repo", "fresh.txt", Modified)

	batches := w.PollChanges()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Changes, 1)
	assert.Equal(t, "stale.txt", batches[0].Changes[0].Path)

	// The still-young change should not have been drained.
	remaining, ok := w.pending["/repo"]["fresh.txt"]
	require.True(t, ok)
	assert.Equal(t, Modified, remaining.Kind)
}

func TestWatcher_Record_CoalescesRapidEvents(t *testing.T) {
	w := newTestWatcher(t, time.Hour)

	w.record("/repo", "a.txt", Created)
	w.record("/repo", "a.txt", Modified)

	c := w.pending["/repo"]["a.txt"]
	require.NotNil(t, c)
	assert.Equal(t, Created, c.Kind)
}

func TestWatcher_Record_CreateThenDeleteRemovesEntry(t *testing.T) {
	w := newTestWatcher(t, time.Hour)

	w.record("/repo", "a.txt", Created)
	w.record("/repo", "a.txt", Deleted)

	_, ok := w.pending["/repo"]["a.txt"]
	assert.False(t, ok)
}

func TestWatcher_PollChanges_GroupsByRoot(t *testing.T) {
	w := newTestWatcher(t, time.Millisecond)
	w.pending["/repo2"] = make(map[string]*Change)

	w.record("/repo", "a.txt", Created)
	w.record("/repo2", "b.txt", Created)
	time.Sleep(5 * time.Millisecond)

	batches := w.PollChanges()
	require.Len(t, batches, 2)
	roots := map[string]bool{}
	for _, b := range batches {
		roots[b.Root] = true
	}
	assert.True(t, roots["/repo"])
	assert.True(t, roots["/repo2"])
}
