package game

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertables/internal/cards"
	"github.com/lox/pokertables/internal/evaluator"
	"github.com/lox/pokertables/internal/randutil"
)

var scenarioConfig = Config{
	Capacity:       3,
	SmallBlind:     10,
	BigBlind:       20,
	InitialBalance: 100,
	BetTime:        30 * time.Second,
}

// fakeEvaluator ranks hands with a function, for rigged showdowns
type fakeEvaluator func(hand [7]cards.Card) (evaluator.Rank, error)

func (f fakeEvaluator) Rank(hand [7]cards.Card) (evaluator.Rank, error) { return f(hand) }

// rigged scores each hand by the seat holding its hole cards. Seats listed
// in failing make the evaluator return an error.
func rigged(tbl **Table, scores map[int]int16, failing ...int) fakeEvaluator {
	return func(hand [7]cards.Card) (evaluator.Rank, error) {
		seat := (*tbl).seatHolding(hand[5], hand[6])
		for _, f := range failing {
			if f == seat {
				return evaluator.Rank{}, fmt.Errorf("cannot rank seat %d", seat)
			}
		}
		return evaluator.NewRank(scores[seat]), nil
	}
}

func (t *Table) seatHolding(first, second cards.Card) int {
	for seat, p := range t.seats {
		if p != nil && p.hole == [2]cards.Card{first, second} {
			return seat
		}
	}
	return -1
}

func newTestTable(t *testing.T, cfg Config, opts ...Option) *Table {
	t.Helper()
	opts = append([]Option{WithID("test"), WithRand(randutil.New(1))}, opts...)
	tbl, err := NewTable(cfg, opts...)
	require.NoError(t, err)
	return tbl
}

// seatPlayers joins one ready participant per seat, in seat order
func seatPlayers(t *testing.T, tbl *Table, n int) []ParticipantID {
	t.Helper()
	ids := make([]ParticipantID, n)
	for i := range n {
		id, err := tbl.Join(i, fmt.Sprintf("player-%d", i), JoinOptions{})
		require.NoError(t, err)
		ids[i] = id
	}
	for _, id := range ids {
		require.NoError(t, tbl.SetReady(id, true))
	}
	return ids
}

// callOrCheck plays the active seat passively
func callOrCheck(t *testing.T, tbl *Table) {
	t.Helper()
	seat, ok := tbl.ActiveSeat()
	require.True(t, ok)
	p, _ := tbl.Player(seat)
	kind := Check
	if p.CurrentBet() < tbl.maxBet() {
		kind = Call
	}
	require.NoError(t, tbl.Action(seat, kind, 0))
}

func playPassiveHand(t *testing.T, tbl *Table) {
	t.Helper()
	hand := tbl.HandNumber()
	for i := 0; tbl.HandNumber() == hand && tbl.Lifecycle() == Started; i++ {
		require.Less(t, i, 100, "hand did not finish")
		callOrCheck(t, tbl)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"scenario", func(*Config) {}, true},
		{"too few seats", func(c *Config) { c.Capacity = 2 }, false},
		{"too many seats", func(c *Config) { c.Capacity = MaxCapacity + 1 }, false},
		{"largest table", func(c *Config) { c.Capacity = MaxCapacity }, true},
		{"zero small blind", func(c *Config) { c.SmallBlind = 0 }, false},
		{"big below small", func(c *Config) { c.BigBlind = 5 }, false},
		{"no chips", func(c *Config) { c.InitialBalance = 0 }, false},
		{"negative bet time", func(c *Config) { c.BetTime = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestEndToEndScenario(t *testing.T) {
	tbl := newTestTable(t, scenarioConfig)
	seatPlayers(t, tbl, 3)

	require.Equal(t, Started, tbl.Lifecycle())
	dealer, ok := tbl.DealerSeat()
	require.True(t, ok)
	assert.Equal(t, 0, dealer)

	sb, _ := tbl.Player(1)
	bb, _ := tbl.Player(2)
	assert.Equal(t, 10, sb.CurrentBet())
	assert.Equal(t, 20, bb.CurrentBet())

	active, ok := tbl.ActiveSeat()
	require.True(t, ok)
	assert.Equal(t, 0, active)

	require.NoError(t, tbl.Action(0, Call, 0))
	p0, _ := tbl.Player(0)
	assert.Equal(t, 80, p0.Balance())
	assert.Equal(t, 20, p0.CurrentBet())

	require.NoError(t, tbl.Action(1, Call, 0))
	p1, _ := tbl.Player(1)
	assert.Equal(t, 80, p1.Balance())
	assert.Equal(t, 20, p1.CurrentBet())

	// the blind is posted through Bet, which leaves the big blind Active, so
	// the last call does not end preflop. The big blind holds the option and
	// closes the round with a check.
	assert.Equal(t, PreFlop, tbl.Phase())
	require.NoError(t, tbl.Action(2, Check, 0))

	assert.Equal(t, Flop, tbl.Phase())
	assert.Len(t, tbl.Community(), 3)
	assert.Equal(t, 60, tbl.Pot())
	for seat := range 3 {
		p, ok := tbl.Player(seat)
		require.True(t, ok)
		assert.Equal(t, 20, p.TotalBet())
		assert.Equal(t, 0, p.CurrentBet())
		assert.Equal(t, Active, p.State())
	}
	active, _ = tbl.ActiveSeat()
	assert.Equal(t, 1, active, "first seat after the dealer opens the flop")
	assert.Equal(t, 300, tbl.TotalChips())
}

func TestJoin(t *testing.T) {
	tbl := newTestTable(t, scenarioConfig)

	_, err := tbl.Join(3, "nobody", JoinOptions{})
	assert.ErrorIs(t, err, ErrSeatOutOfRange)
	_, err = tbl.Join(-1, "nobody", JoinOptions{})
	assert.ErrorIs(t, err, ErrSeatOutOfRange)

	id, err := tbl.Join(1, "alice", JoinOptions{Appearance: 7})
	require.NoError(t, err)
	seat, ok := tbl.SeatOf(id)
	require.True(t, ok)
	assert.Equal(t, 1, seat)
	name, _ := tbl.Nickname(1)
	assert.Equal(t, "alice", name)

	_, err = tbl.Join(1, "bob", JoinOptions{})
	assert.ErrorIs(t, err, ErrSeatTaken)

	p, _ := tbl.Player(1)
	assert.Equal(t, 100, p.Balance())
	assert.Equal(t, NotReady, p.State())
}

func TestJoinRejectedOnceStarted(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 4
	tbl := newTestTable(t, cfg)
	seatPlayers(t, tbl, 3)
	require.Equal(t, Started, tbl.Lifecycle())

	_, err := tbl.Join(3, "late", JoinOptions{})
	assert.ErrorIs(t, err, ErrGameNotJoinable)
}

func TestStartConditions(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 4
	tbl := newTestTable(t, cfg)

	a, err := tbl.Join(0, "a", JoinOptions{Ready: true})
	require.NoError(t, err)
	_, err = tbl.Join(1, "b", JoinOptions{Ready: true})
	require.NoError(t, err)
	assert.ErrorIs(t, tbl.Start(), ErrTooFewPlayers)

	c, err := tbl.Join(2, "c", JoinOptions{})
	require.NoError(t, err)
	assert.Equal(t, NotStarted, tbl.Lifecycle())
	assert.ErrorIs(t, tbl.Start(), ErrNotAllReady)

	require.NoError(t, tbl.SetReady(a, false))
	require.NoError(t, tbl.SetReady(c, true))
	assert.Equal(t, NotStarted, tbl.Lifecycle())

	require.NoError(t, tbl.SetReady(a, true))
	assert.Equal(t, Started, tbl.Lifecycle())
	assert.Equal(t, 1, tbl.HandNumber())

	assert.ErrorIs(t, tbl.Start(), ErrGameNotJoinable)
	assert.ErrorIs(t, tbl.SetReady(a, false), ErrGameNotJoinable)
	assert.ErrorIs(t, tbl.SetReady("missing", true), ErrGameNotJoinable)
}

func TestSetReadyUnknownParticipant(t *testing.T) {
	tbl := newTestTable(t, scenarioConfig)
	assert.ErrorIs(t, tbl.SetReady("missing", true), ErrParticipantNotFound)
}

func TestActionRejections(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		tbl := newTestTable(t, scenarioConfig)
		assert.ErrorIs(t, tbl.Action(0, Check, 0), ErrHandNotRunning)
	})

	tbl := newTestTable(t, scenarioConfig)
	ids := seatPlayers(t, tbl, 3)

	t.Run("not your turn", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Action(1, Call, 0), ErrNotYourTurn)
		assert.ErrorIs(t, tbl.Act(ids[2], Call, 0), ErrNotYourTurn)
	})

	t.Run("unknown participant", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Act("missing", Call, 0), ErrParticipantNotFound)
	})

	t.Run("under-raise", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Action(0, Bet, 10), ErrBetTooSmall)
	})

	t.Run("check below the bet", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Action(0, Check, 0), ErrBetTooSmall)
	})

	t.Run("more than balance", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Action(0, Bet, 500), ErrInsufficientBalance)
	})

	t.Run("negative amount", func(t *testing.T) {
		assert.ErrorIs(t, tbl.Action(0, Bet, -5), ErrInvalidAmount)
	})

	// rejected actions leave the table untouched
	p, _ := tbl.Player(0)
	assert.Equal(t, 100, p.Balance())
	assert.Equal(t, Active, p.State())
	active, _ := tbl.ActiveSeat()
	assert.Equal(t, 0, active)
}

func TestRaiseReopensAction(t *testing.T) {
	tbl := newTestTable(t, scenarioConfig)
	seatPlayers(t, tbl, 3)

	require.NoError(t, tbl.Action(0, Bet, 40))
	require.NoError(t, tbl.Action(1, Call, 0))
	require.NoError(t, tbl.Action(2, Call, 0))

	// the raiser is still active and must close the round
	assert.Equal(t, PreFlop, tbl.Phase())
	active, _ := tbl.ActiveSeat()
	assert.Equal(t, 0, active)
	require.NoError(t, tbl.Action(0, Check, 0))

	assert.Equal(t, Flop, tbl.Phase())
	assert.Equal(t, 120, tbl.Pot())
}

func TestBlindShortfallForcesAllIn(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 4
	tbl := newTestTable(t, cfg)

	ids := make([]ParticipantID, 4)
	for i := range 4 {
		id, err := tbl.Join(i, fmt.Sprintf("p%d", i), JoinOptions{})
		require.NoError(t, err)
		ids[i] = id
	}
	tbl.seats[1].balance = 5
	tbl.seats[2].balance = 15
	for _, id := range ids {
		require.NoError(t, tbl.SetReady(id, true))
	}

	sb, _ := tbl.Player(1)
	assert.Equal(t, AllInState, sb.State())
	assert.Equal(t, 5, sb.CurrentBet())
	assert.Equal(t, 0, sb.Balance())

	bb, _ := tbl.Player(2)
	assert.Equal(t, AllInState, bb.State())
	assert.Equal(t, 15, bb.CurrentBet())

	active, _ := tbl.ActiveSeat()
	assert.Equal(t, 3, active)
}

func TestShowdownPaysWinner(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, map[int]int16{0: 1, 1: 2, 2: 3})))
	seatPlayers(t, tbl, 3)

	playPassiveHand(t, tbl)

	result, ok := tbl.LastHand()
	require.True(t, ok)
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 2, *result.WinnerSeat)
	assert.Equal(t, 60, result.Pot)
	assert.Equal(t, 1, result.HandNumber)
	assert.Len(t, result.Board, 5)
	assert.Len(t, result.Shown, 3)
	assert.False(t, result.Refunded)

	// hand two: dealer moves to seat 1, seat 2 posts the small blind
	assert.Equal(t, 2, tbl.HandNumber())
	dealer, _ := tbl.DealerSeat()
	assert.Equal(t, 1, dealer)
	p2, _ := tbl.Player(2)
	assert.Equal(t, 130, p2.Balance())
	assert.Equal(t, 10, p2.CurrentBet())
	p0, _ := tbl.Player(0)
	assert.Equal(t, 60, p0.Balance())
	assert.Equal(t, 20, p0.CurrentBet())
	assert.Equal(t, 300, tbl.TotalChips())
}

func TestShowdownTieKeepsLowestSeat(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, map[int]int16{0: 5, 1: 5, 2: 5})))
	seatPlayers(t, tbl, 3)

	playPassiveHand(t, tbl)

	result, _ := tbl.LastHand()
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 0, *result.WinnerSeat)
}

func TestShowdownSkipsFoldedSeats(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, map[int]int16{0: 9, 1: 1, 2: 2})))
	seatPlayers(t, tbl, 3)

	require.NoError(t, tbl.Action(0, Fold, 0))
	playPassiveHand(t, tbl)

	result, _ := tbl.LastHand()
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 2, *result.WinnerSeat)
	assert.Equal(t, 40, result.Pot)
	assert.Len(t, result.Shown, 2)
}

func TestShowdownExcludesUnrankableSeat(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, map[int]int16{0: 1, 1: 2, 2: 3}, 2)))
	seatPlayers(t, tbl, 3)

	playPassiveHand(t, tbl)

	result, _ := tbl.LastHand()
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 1, *result.WinnerSeat)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0], "seat 2")
	assert.Equal(t, 300, tbl.TotalChips())
}

func TestShowdownRefundsWhenNothingRanks(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, nil, 0, 1, 2)))
	seatPlayers(t, tbl, 3)

	playPassiveHand(t, tbl)

	result, _ := tbl.LastHand()
	assert.Nil(t, result.WinnerSeat)
	assert.True(t, result.Refunded)
	assert.Len(t, result.Diagnostics, 3)
	for seat := range 3 {
		p, _ := tbl.Player(seat)
		assert.Equal(t, 100, p.Stake(), "seat %d", seat)
	}
}

func TestAllInRunoutEndsTable(t *testing.T) {
	var tbl *Table
	tbl = newTestTable(t, scenarioConfig, WithEvaluator(rigged(&tbl, map[int]int16{0: 3, 1: 2, 2: 1})))
	seatPlayers(t, tbl, 3)

	require.NoError(t, tbl.Action(0, AllIn, 0))
	require.NoError(t, tbl.Action(1, Call, 0))
	require.NoError(t, tbl.Action(2, Call, 0))

	assert.Equal(t, Ended, tbl.Lifecycle())
	result, ok := tbl.LastHand()
	require.True(t, ok)
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 0, *result.WinnerSeat)
	assert.Equal(t, 300, result.Pot)

	p0, _ := tbl.Player(0)
	assert.Equal(t, 300, p0.Balance())
	assert.Equal(t, 300, tbl.TotalChips())

	_, ok = tbl.ActiveSeat()
	assert.False(t, ok)
	assert.ErrorIs(t, tbl.Action(0, Check, 0), ErrHandNotRunning)
}

func TestAllInSeatIsSkipped(t *testing.T) {
	cfg := scenarioConfig
	cfg.InitialBalance = 200
	tbl := newTestTable(t, cfg)

	ids := make([]ParticipantID, 3)
	for i := range 3 {
		id, err := tbl.Join(i, fmt.Sprintf("p%d", i), JoinOptions{})
		require.NoError(t, err)
		ids[i] = id
	}
	tbl.seats[1].balance = 50
	for _, id := range ids {
		require.NoError(t, tbl.SetReady(id, true))
	}

	require.NoError(t, tbl.Action(0, Call, 0))
	require.NoError(t, tbl.Action(1, AllIn, 0))
	require.NoError(t, tbl.Action(2, Call, 0))

	// seat 0 already called, so the short all-in does not reopen the round
	require.Equal(t, Flop, tbl.Phase())
	assert.Equal(t, 120, tbl.Pot())

	// seat 1 is all-in, so the flop is played between seats 2 and 0
	active, _ := tbl.ActiveSeat()
	assert.Equal(t, 2, active)
	require.NoError(t, tbl.Action(2, Check, 0))
	active, _ = tbl.ActiveSeat()
	assert.Equal(t, 0, active)
	assert.Equal(t, 450, tbl.TotalChips())
}

func TestBustedSeatStillDealtIn(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 4
	var tbl *Table
	tbl = newTestTable(t, cfg, WithEvaluator(rigged(&tbl, map[int]int16{0: 4, 1: 3, 2: 2, 3: 1})))
	seatPlayers(t, tbl, 4)

	// seats 0 and 1 shove, seats 2 and 3 fold
	require.NoError(t, tbl.Action(3, Fold, 0))
	require.NoError(t, tbl.Action(0, AllIn, 0))
	require.NoError(t, tbl.Action(1, AllIn, 0))
	require.NoError(t, tbl.Action(2, Fold, 0))

	result, _ := tbl.LastHand()
	require.NotNil(t, result.WinnerSeat)
	assert.Equal(t, 0, *result.WinnerSeat)
	assert.Equal(t, 220, result.Pot)

	// three seats remain funded so the table plays on with seat 1 dealt in
	assert.Equal(t, Started, tbl.Lifecycle())
	assert.Equal(t, 2, tbl.HandNumber())
	p1, _ := tbl.Player(1)
	assert.Equal(t, 0, p1.Balance())
	assert.Equal(t, Active, p1.State())
	_, dealt := p1.HoleCards()
	assert.True(t, dealt)
	assert.Equal(t, 400, tbl.TotalChips())
}

func TestTurnOrderTermination(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 6
	tbl := newTestTable(t, cfg)

	_, ok := tbl.nextOccupied(-1)
	assert.False(t, ok)
	_, ok = tbl.nextEligible(2)
	assert.False(t, ok)

	tbl.seats[1] = NewPlayer(1, 100)
	tbl.seats[4] = NewPlayer(4, 100)

	next, ok := tbl.nextOccupied(4)
	require.True(t, ok)
	assert.Equal(t, 1, next, "wraps past the last seat")

	next, _ = tbl.nextOccupied(-1)
	assert.Equal(t, 1, next)

	next, _ = tbl.nextOccupied(1)
	assert.Equal(t, 4, next)

	tbl.seats[4].state = Folded
	next, ok = tbl.nextEligible(1)
	require.True(t, ok)
	assert.Equal(t, 1, next, "the only eligible seat is found again")

	tbl.seats[1].state = Left
	_, ok = tbl.nextEligible(1)
	assert.False(t, ok)
}

func TestRoundOver(t *testing.T) {
	tbl := newTestTable(t, scenarioConfig)
	for seat := range 3 {
		tbl.seats[seat] = NewPlayer(seat, 100)
	}

	tbl.seats[0].state = Folded
	tbl.seats[1].state = AllInState
	tbl.seats[2].state = Active
	assert.False(t, tbl.roundOver(), "a single active seat keeps the round open")

	tbl.seats[2].state = Called
	assert.True(t, tbl.roundOver())
}

func TestChipConservation(t *testing.T) {
	cfg := scenarioConfig
	cfg.Capacity = 5
	tbl := newTestTable(t, cfg, WithRand(randutil.New(7)))
	seatPlayers(t, tbl, 5)

	rng := randutil.New(99)
	kinds := []ActionKind{Bet, Call, Check, Fold, AllIn}
	for step := 0; step < 2000 && tbl.Lifecycle() == Started; step++ {
		seat, ok := tbl.ActiveSeat()
		require.True(t, ok)

		acted := false
		for _, i := range rng.Perm(len(kinds)) {
			amount := 0
			if kinds[i] == Bet {
				amount = tbl.maxBet() + rng.IntN(3)*cfg.BigBlind
			}
			err := tbl.Action(seat, kinds[i], amount)
			if err == nil {
				acted = true
				break
			}
			require.False(t, errors.Is(err, ErrNotYourTurn), "step %d: %v", step, err)
		}
		require.True(t, acted, "seat %d had no legal action", seat)
		require.Equal(t, 500, tbl.TotalChips(), "step %d", step)
	}
	assert.Equal(t, 500, tbl.TotalChips())
}

func TestEventsPublished(t *testing.T) {
	var events []Event
	tbl := newTestTable(t, scenarioConfig, WithListener(func(e Event) { events = append(events, e) }))
	seatPlayers(t, tbl, 3)

	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventGameStarted, EventHandStarted, EventBlindPosted, EventBlindPosted}, types)
	assert.Equal(t, "test", events[0].TableID)
	assert.Equal(t, 1, events[2].Seat)
	assert.Equal(t, 10, events[2].Amount)
	assert.Equal(t, 20, events[3].Amount)

	events = nil
	require.NoError(t, tbl.Action(0, Call, 0))
	require.Len(t, events, 1)
	assert.Equal(t, EventPlayerActed, events[0].Type)
	assert.Equal(t, "Call", events[0].Action)
	assert.Equal(t, 20, events[0].Amount)
}
