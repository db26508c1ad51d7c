package game

import (
	"fmt"
	"io"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lox/pokertables/internal/cards"
	"github.com/lox/pokertables/internal/evaluator"
)

// MinPlayers is the occupancy needed before a table can start
const MinPlayers = 3

// MaxCapacity keeps two hole cards per seat plus the board within one deck
const MaxCapacity = (cards.DeckSize - 5) / 2

// Config holds the immutable parameters of a table
type Config struct {
	Capacity       int
	SmallBlind     int
	BigBlind       int
	InitialBalance int
	// BetTime is reported to clients but never enforced.
	BetTime time.Duration
}

// Validate checks the config
func (c Config) Validate() error {
	switch {
	case c.Capacity < MinPlayers || c.Capacity > MaxCapacity:
		return fmt.Errorf("%w: capacity must be between %d and %d, got %d", ErrInvalidConfig, MinPlayers, MaxCapacity, c.Capacity)
	case c.SmallBlind <= 0:
		return fmt.Errorf("%w: small blind must be positive", ErrInvalidConfig)
	case c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: big blind must be at least the small blind", ErrInvalidConfig)
	case c.InitialBalance <= 0:
		return fmt.Errorf("%w: initial balance must be positive", ErrInvalidConfig)
	case c.BetTime < 0:
		return fmt.Errorf("%w: bet time must not be negative", ErrInvalidConfig)
	}
	return nil
}

// HandEvaluator ranks a seven-card hand: five community cards then two
// hole cards
type HandEvaluator interface {
	Rank(hand [7]cards.Card) (evaluator.Rank, error)
}

// Describer optionally names a hand for showdown results
type Describer interface {
	Describe(cs []cards.Card) (string, error)
}

// JoinOptions carries optional join parameters
type JoinOptions struct {
	Appearance int
	Ready      bool
}

// Option configures a Table
type Option func(*Table)

// WithID sets the table id used in logs, events and snapshots
func WithID(id string) Option {
	return func(t *Table) { t.id = id }
}

// WithRand sets the shuffle source
func WithRand(rng *rand.Rand) Option {
	return func(t *Table) { t.rng = rng }
}

// WithEvaluator replaces the showdown evaluator
func WithEvaluator(ev HandEvaluator) Option {
	return func(t *Table) { t.eval = ev }
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// WithListener registers a callback for table events. It runs while the
// caller holds the table, so it must not call back into it.
func WithListener(fn func(Event)) Option {
	return func(t *Table) { t.listener = fn }
}

// WithParticipantIDs replaces the participant id generator
func WithParticipantIDs(next func() ParticipantID) Option {
	return func(t *Table) { t.newID = next }
}

// Table runs hands for one table. It is not safe for concurrent use; the
// registry serializes access.
type Table struct {
	id     string
	cfg    Config
	logger *log.Logger

	seats        []*Player
	nicknames    []string
	appearance   []int
	participants map[ParticipantID]int

	lifecycle Lifecycle
	phase     Phase
	dealer    int
	active    int

	deck      *cards.Deck
	community [5]cards.Card
	revealed  int

	handNumber int
	lastHand   *HandResult

	rng      *rand.Rand
	eval     HandEvaluator
	listener func(Event)
	newID    func() ParticipantID
}

// NewTable creates an empty NotStarted table
func NewTable(cfg Config, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		cfg:          cfg,
		seats:        make([]*Player, cfg.Capacity),
		nicknames:    make([]string, cfg.Capacity),
		appearance:   make([]int, cfg.Capacity),
		participants: make(map[ParticipantID]int, cfg.Capacity),
		lifecycle:    NotStarted,
		phase:        PreFlop,
		dealer:       -1,
		active:       -1,
		deck:         cards.NewDeck(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = log.New(io.Discard)
	}
	if t.eval == nil {
		t.eval = evaluator.New()
	}
	if t.newID == nil {
		t.newID = func() ParticipantID { return ParticipantID(uuid.NewString()) }
	}
	if t.id != "" {
		t.logger = t.logger.With("table", t.id)
	}
	return t, nil
}

// Join seats a new participant and tries to start the game
func (t *Table) Join(seat int, nickname string, opts JoinOptions) (ParticipantID, error) {
	if seat < 0 || seat >= len(t.seats) {
		return "", fmt.Errorf("%w: %d", ErrSeatOutOfRange, seat)
	}
	if t.seats[seat] != nil {
		return "", fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
	}
	if t.lifecycle != NotStarted {
		return "", ErrGameNotJoinable
	}

	id := t.newID()
	p := NewPlayer(seat, t.cfg.InitialBalance)
	if opts.Ready {
		p.state = Ready
	}
	t.seats[seat] = p
	t.nicknames[seat] = nickname
	t.appearance[seat] = opts.Appearance
	t.participants[id] = seat

	t.logger.Info("Player joined", "seat", seat, "nickname", nickname, "occupied", t.Occupied())
	t.tryStart()
	return id, nil
}

// SetReady toggles a participant's readiness and tries to start the game
func (t *Table) SetReady(id ParticipantID, ready bool) error {
	if t.lifecycle != NotStarted {
		return ErrGameNotJoinable
	}
	p, ok := t.participant(id)
	if !ok {
		return ErrParticipantNotFound
	}
	if err := p.SetReady(ready); err != nil {
		return err
	}

	t.logger.Debug("Readiness changed", "seat", p.seat, "ready", ready)
	t.tryStart()
	return nil
}

// Start begins the first hand when at least three seats are filled and
// every seated player is ready
func (t *Table) Start() error {
	if t.lifecycle != NotStarted {
		return ErrGameNotJoinable
	}
	if n := t.Occupied(); n < MinPlayers {
		return fmt.Errorf("%w: %d seated, need %d", ErrTooFewPlayers, n, MinPlayers)
	}
	for _, p := range t.seats {
		if p != nil && p.state != Ready {
			return fmt.Errorf("%w: seat %d is %s", ErrNotAllReady, p.seat, p.state)
		}
	}

	t.lifecycle = Started
	t.logger.Info("Game started", "players", t.Occupied())
	t.publish(Event{Type: EventGameStarted, Seat: -1})

	t.startRound()
	t.settle()
	return nil
}

func (t *Table) tryStart() {
	if err := t.Start(); err != nil {
		t.logger.Debug("Not starting yet", "reason", err)
	}
}

// Act applies an action on behalf of a participant
func (t *Table) Act(id ParticipantID, kind ActionKind, amount int) error {
	seat, ok := t.SeatOf(id)
	if !ok {
		return ErrParticipantNotFound
	}
	return t.Action(seat, kind, amount)
}

// SeatOf resolves a participant to a seat index
func (t *Table) SeatOf(id ParticipantID) (int, bool) {
	seat, ok := t.participants[id]
	return seat, ok
}

// Player returns a copy of the player at seat
func (t *Table) Player(seat int) (Player, bool) {
	p, ok := t.player(seat)
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (t *Table) player(seat int) (*Player, bool) {
	if seat < 0 || seat >= len(t.seats) || t.seats[seat] == nil {
		return nil, false
	}
	return t.seats[seat], true
}

func (t *Table) participant(id ParticipantID) (*Player, bool) {
	seat, ok := t.participants[id]
	if !ok {
		return nil, false
	}
	return t.player(seat)
}

// Nickname returns the nickname recorded for seat
func (t *Table) Nickname(seat int) (string, bool) {
	if _, ok := t.player(seat); !ok {
		return "", false
	}
	return t.nicknames[seat], true
}

func (t *Table) ID() string           { return t.id }
func (t *Table) Lifecycle() Lifecycle { return t.lifecycle }
func (t *Table) Phase() Phase         { return t.phase }
func (t *Table) HandNumber() int      { return t.handNumber }

// DealerSeat returns the dealer seat, false before the first hand
func (t *Table) DealerSeat() (int, bool) {
	return t.dealer, t.dealer >= 0
}

// ActiveSeat returns the seat to act, false unless a hand is running
func (t *Table) ActiveSeat() (int, bool) {
	return t.active, t.lifecycle == Started && t.active >= 0
}

// Occupied counts seated players
func (t *Table) Occupied() int {
	n := 0
	for _, p := range t.seats {
		if p != nil {
			n++
		}
	}
	return n
}

// Pot is every chip wagered in the running hand
func (t *Table) Pot() int {
	pot := 0
	for _, p := range t.seats {
		if p != nil {
			pot += p.contribution()
		}
	}
	return pot
}

// TotalChips sums balance and wagers over all seats. It only changes when a
// player joins.
func (t *Table) TotalChips() int {
	total := 0
	for _, p := range t.seats {
		if p != nil {
			total += p.Stake()
		}
	}
	return total
}

// Community returns the revealed community cards
func (t *Table) Community() []cards.Card {
	out := make([]cards.Card, t.revealed)
	copy(out, t.community[:t.revealed])
	return out
}

// LastHand returns the result of the most recent showdown
func (t *Table) LastHand() (HandResult, bool) {
	if t.lastHand == nil {
		return HandResult{}, false
	}
	return *t.lastHand, true
}

func (t *Table) publish(e Event) {
	if t.listener == nil {
		return
	}
	e.TableID = t.id
	e.Hand = t.handNumber
	e.Phase = t.phase
	t.listener(e)
}
