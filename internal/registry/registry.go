// Package registry owns every table on the server.
//
// The id map has its own lock, held only while the map is read or written.
// Each table sits behind a Handle with a separate RWMutex, so mutations of
// one table serialize while unrelated tables proceed concurrently.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/gameid"
	"github.com/lox/pokertables/internal/randutil"
)

// ErrTableNotFound is returned for unknown table ids
var ErrTableNotFound = errors.New("table not found")

// Summary is the lobby view of a table
type Summary struct {
	game.Summary
	CreatedAt time.Time `json:"created_at"`
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithClock sets the clock used for creation times
func WithClock(clock quartz.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithSeed makes every shuffle on the server reproducible from seed
func WithSeed(seed int64) Option {
	return func(r *Registry) { r.seq = randutil.NewSequence(seed) }
}

// WithEvaluator sets the showdown evaluator shared by all tables
func WithEvaluator(ev game.HandEvaluator) Option {
	return func(r *Registry) { r.eval = ev }
}

// WithIDGenerator replaces the time-ordered table ids
func WithIDGenerator(next func() string) Option {
	return func(r *Registry) { r.newID = next }
}

// Registry maps table ids to tables
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Handle

	logger *log.Logger
	clock  quartz.Clock
	seq    *randutil.Sequence
	eval   game.HandEvaluator
	newID  func() string
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		tables: make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	if r.clock == nil {
		r.clock = quartz.NewReal()
	}
	if r.seq == nil {
		r.seq = randutil.NewSequence(randutil.Seed(nil))
	}
	if r.newID == nil {
		r.newID = gameid.New
	}
	return r
}

// Create validates cfg and stores a new NotStarted table
func (r *Registry) Create(cfg game.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	id := r.newID()
	logger := r.logger.With("table", id)
	h := &Handle{
		createdAt: r.clock.Now(),
		subs:      make(map[int]chan struct{}),
	}

	opts := []game.Option{
		game.WithID(id),
		game.WithRand(r.seq.Next()),
		game.WithLogger(r.logger),
		game.WithListener(h.record),
	}
	if r.eval != nil {
		opts = append(opts, game.WithEvaluator(r.eval))
	}

	tbl, err := game.NewTable(cfg, opts...)
	if err != nil {
		return "", err
	}
	h.table = tbl

	r.mu.Lock()
	if _, exists := r.tables[id]; exists {
		r.mu.Unlock()
		return "", fmt.Errorf("duplicate table id %s", id)
	}
	r.tables[id] = h
	r.mu.Unlock()

	logger.Info("Table created",
		"capacity", cfg.Capacity,
		"small_blind", cfg.SmallBlind,
		"big_blind", cfg.BigBlind,
		"initial_balance", cfg.InitialBalance)
	return id, nil
}

// Lookup returns the handle for id
func (r *Registry) Lookup(id string) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.tables[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return h, nil
}

// Len returns the number of tables
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// List summarizes every table, oldest first
func (r *Registry) List() []Summary {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.tables))
	for _, h := range r.tables {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	summaries := make([]Summary, 0, len(handles))
	for _, h := range handles {
		_ = h.View(func(t *game.Table) error {
			summaries = append(summaries, Summary{Summary: t.Summary(), CreatedAt: h.createdAt})
			return nil
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].TableID < summaries[j].TableID
	})
	return summaries
}

// Join seats a participant at table id
func (r *Registry) Join(id string, seat int, nickname string, opts game.JoinOptions) (game.ParticipantID, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return "", err
	}

	var pid game.ParticipantID
	err = h.Update(func(t *game.Table) error {
		var err error
		pid, err = t.Join(seat, nickname, opts)
		return err
	})
	return pid, err
}

// SetReady toggles a participant's readiness
func (r *Registry) SetReady(id string, pid game.ParticipantID, ready bool) error {
	h, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return h.Update(func(t *game.Table) error {
		return t.SetReady(pid, ready)
	})
}

// State returns the table as seen by pid. An empty pid gets the public view.
func (r *Registry) State(id string, pid game.ParticipantID) (game.Snapshot, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return game.Snapshot{}, err
	}

	var snap game.Snapshot
	err = h.View(func(t *game.Table) error {
		snap = t.Snapshot(pid)
		return nil
	})
	return snap, err
}

// Act applies a betting action for pid
func (r *Registry) Act(id string, pid game.ParticipantID, kind game.ActionKind, amount int) error {
	h, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return h.Update(func(t *game.Table) error {
		return t.Act(pid, kind, amount)
	})
}

// Quit confirms pid is seated at table id and returns its seat. The seat
// keeps playing; callers drop the participant's session.
func (r *Registry) Quit(id string, pid game.ParticipantID) (int, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return -1, err
	}

	seat := -1
	var nickname string
	err = h.View(func(t *game.Table) error {
		s, ok := t.SeatOf(pid)
		if !ok {
			return game.ErrParticipantNotFound
		}
		seat = s
		nickname, _ = t.Nickname(s)
		return nil
	})
	if err != nil {
		return -1, err
	}

	r.logger.Info("Participant quit", "table", id, "seat", seat, "nickname", nickname)
	return seat, nil
}

// Subscribe returns a channel that receives a tick after every successful
// change to table id. Ticks coalesce when the reader falls behind. The
// returned func unsubscribes and closes the channel.
func (r *Registry) Subscribe(id string) (<-chan struct{}, func(), error) {
	h, err := r.Lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := h.subscribe()
	return ch, cancel, nil
}

// EventCursor returns the position of table id's newest event, for use with
// Events
func (r *Registry) EventCursor(id string) (uint64, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return 0, err
	}
	return h.cursor(), nil
}

// Events returns the events recorded on table id after cursor, oldest first,
// and the cursor to pass next time. Only the most recent events are kept, so
// a reader that falls far behind misses the oldest ones.
func (r *Registry) Events(id string, cursor uint64) ([]game.Event, uint64, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return nil, cursor, err
	}
	events, next := h.eventsSince(cursor)
	return events, next, nil
}
