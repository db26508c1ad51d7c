package registry

import (
	"sync"
	"time"

	"github.com/lox/pokertables/internal/game"
)

// maxJournal bounds the events a handle keeps for feeds that fall behind
const maxJournal = 256

// Handle guards one table
type Handle struct {
	createdAt time.Time

	mu    sync.RWMutex
	table *game.Table

	journalMu sync.Mutex
	journal   []game.Event
	seq       uint64 // sequence number of the newest journal entry

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// View runs fn under the table's read lock. fn must not mutate the table.
func (h *Handle) View(fn func(*game.Table) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.table)
}

// Update runs fn under the table's write lock and notifies subscribers when
// fn succeeds
func (h *Handle) Update(fn func(*game.Table) error) error {
	h.mu.Lock()
	err := fn(h.table)
	h.mu.Unlock()

	if err == nil {
		h.notify()
	}
	return err
}

func (h *Handle) subscribe() (<-chan struct{}, func()) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subsMu.Lock()
			defer h.subsMu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Handle) notify() {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Handle) subscribers() int {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	return len(h.subs)
}

// record appends an event to the journal. The table calls it with the write
// lock held.
func (h *Handle) record(e game.Event) {
	h.journalMu.Lock()
	defer h.journalMu.Unlock()

	h.seq++
	h.journal = append(h.journal, e)
	if len(h.journal) > maxJournal {
		h.journal = h.journal[len(h.journal)-maxJournal:]
	}
}

// eventsSince returns the journal entries newer than cursor, oldest first,
// and the cursor to pass next time. Entries that fell out of the journal are
// skipped.
func (h *Handle) eventsSince(cursor uint64) ([]game.Event, uint64) {
	h.journalMu.Lock()
	defer h.journalMu.Unlock()

	if cursor >= h.seq {
		return nil, h.seq
	}
	n := min(h.seq-cursor, uint64(len(h.journal)))
	out := make([]game.Event, n)
	copy(out, h.journal[len(h.journal)-int(n):])
	return out, h.seq
}

func (h *Handle) cursor() uint64 {
	h.journalMu.Lock()
	defer h.journalMu.Unlock()
	return h.seq
}
