package sketch

import (
	"sync"

	"github.com/google/uuid"
)

// HistoryEntry is a committed stroke. Entries are immutable: the brush and
// track are private clones taken at commit time.
type HistoryEntry struct {
	ID    string
	Brush Brush
	Track *Track
}

// History is a linear undo/redo stack of committed strokes.
//
// Committing clears the redo stack. Undo and Redo move the top entry
// between the stacks; entries are never duplicated or dropped.
//
// History is safe for concurrent use.
type History struct {
	mu   sync.RWMutex
	undo []HistoryEntry
	redo []HistoryEntry
	// gen changes whenever entries are removed from or restored to the
	// undo stack, which invalidates any incremental rendering of it.
	gen uint64
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Commit records a stroke drawn with brush and clears the redo stack.
// The brush and track are cloned; later changes to either do not affect
// the recorded entry.
func (h *History) Commit(brush Brush, track *Track) HistoryEntry {
	e := HistoryEntry{
		ID:    uuid.NewString(),
		Brush: brush.Clone(),
		Track: track.Clone(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = append(h.undo, e)
	if len(h.redo) > 0 {
		clear(h.redo)
		h.redo = h.redo[:0]
	}
	return e
}

// Undo moves the most recent entry to the redo stack. It reports whether
// an entry was moved.
func (h *History) Undo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.undo)
	if n == 0 {
		return false
	}
	e := h.undo[n-1]
	h.undo[n-1] = HistoryEntry{}
	h.undo = h.undo[:n-1]
	h.redo = append(h.redo, e)
	h.gen++
	return true
}

// Redo moves the most recently undone entry back. It reports whether an
// entry was moved.
func (h *History) Redo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.redo)
	if n == 0 {
		return false
	}
	e := h.redo[n-1]
	h.redo[n-1] = HistoryEntry{}
	h.redo = h.redo[:n-1]
	h.undo = append(h.undo, e)
	h.gen++
	return true
}

// CanUndo reports whether Undo would move an entry.
func (h *History) CanUndo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo would move an entry.
func (h *History) CanRedo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.redo) > 0
}

// Len returns the number of entries on the undo stack.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.undo)
}

// Entries returns the undo stack from oldest to newest.
func (h *History) Entries() []HistoryEntry {
	entries, _ := h.Snapshot()
	return entries
}

// Snapshot returns the undo stack from oldest to newest together with the
// generation it belongs to.
func (h *History) Snapshot() ([]HistoryEntry, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, len(h.undo))
	copy(out, h.undo)
	return out, h.gen
}

// Generation returns a counter that changes on every Undo, Redo and Clear.
func (h *History) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}

// Clear discards both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
	h.gen++
}
