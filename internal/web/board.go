package web

import (
	"sync"
	"time"

	"github.com/cjeanneret/ptzkey/internal/stream"
)

// View is the latest rendered screen.
type View struct {
	Lines   []string  `json:"lines"`
	Updated time.Time `json:"updated"`
}

// Board keeps the latest view and broadcasts the rows that changed.
// The session publishes once per tick; handlers read concurrently.
type Board struct {
	mu    sync.RWMutex
	view  View
	bcast *StatusBroadcaster
	now   func() time.Time
}

// NewBoard creates a board publishing through b (may be nil).
func NewBoard(b *StatusBroadcaster) *Board {
	return &Board{bcast: b, now: time.Now}
}

// Publish replaces the view. Only rows whose text changed are broadcast.
// URL credentials are scrubbed: the mirror is served without authentication.
func (b *Board) Publish(lines []string) {
	scrubbed := make([]string, len(lines))
	for i, l := range lines {
		scrubbed[i] = stream.Scrub(l)
	}
	lines = scrubbed

	b.mu.Lock()
	prev := b.view.Lines
	b.view = View{Lines: lines, Updated: b.now()}
	b.mu.Unlock()

	if b.bcast == nil {
		return
	}
	for row, text := range lines {
		if row < len(prev) && prev[row] == text {
			continue
		}
		b.bcast.BroadcastLine(row, text)
	}
}

// Snapshot returns a copy of the latest view.
func (b *Board) Snapshot() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return View{Lines: append([]string(nil), b.view.Lines...), Updated: b.view.Updated}
}
