package track

import (
	"github.com/jstrand/loopdeck/internal/audio"
	"github.com/jstrand/loopdeck/internal/effects"
)

// Snapshot is an immutable copy of a track's buffer and effect chain,
// captured before every destructive mutation (spec.md §3 Undo snapshot).
type Snapshot struct {
	Buffer *audio.Buffer
	Chain  *effects.Chain
}

// undoStack is a bounded LIFO of Snapshots, capacity K (spec.md default 6).
type undoStack struct {
	limit   int
	entries []Snapshot
}

func newUndoStack(limit int) *undoStack {
	if limit <= 0 {
		limit = 6
	}
	return &undoStack{limit: limit}
}

// push adds a snapshot, trimming the oldest entries beyond the limit.
func (u *undoStack) push(s Snapshot) {
	u.entries = append(u.entries, s)
	if len(u.entries) > u.limit {
		u.entries = u.entries[len(u.entries)-u.limit:]
	}
}

// pop removes and returns the most recent snapshot, or false if empty.
func (u *undoStack) pop() (Snapshot, bool) {
	if len(u.entries) == 0 {
		return Snapshot{}, false
	}
	last := u.entries[len(u.entries)-1]
	u.entries = u.entries[:len(u.entries)-1]
	return last, true
}

// len reports the number of snapshots currently held.
func (u *undoStack) len() int {
	return len(u.entries)
}
