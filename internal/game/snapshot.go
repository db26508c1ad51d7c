package game

import (
	"github.com/lox/pokertables/internal/cards"
)

// SeatView is the public view of one occupied seat
type SeatView struct {
	Seat       int         `json:"seat_index"`
	Balance    int         `json:"balance"`
	State      PlayerState `json:"state"`
	Bet        int         `json:"bet_amount"`
	Nickname   string      `json:"nickname"`
	Appearance int         `json:"appearance"`
}

// Snapshot is the table as seen by one participant. Fields the viewer may
// not see are nil.
type Snapshot struct {
	TableID        string         `json:"game_id"`
	AskerSeat      *int           `json:"asker_seat"`
	ActiveSeat     *int           `json:"active_seat"`
	CommunityCards [5]*cards.Card `json:"community_cards"`
	PersonalCards  [2]*cards.Card `json:"personal_cards"`
	Players        []*SeatView    `json:"players"`
	Pot            int            `json:"pot"`
	SmallBlind     int            `json:"small_blind"`
	BigBlind       int            `json:"big_blind"`
	InitialBalance int            `json:"initial_balance"`
	Capacity       int            `json:"capacity"`
	BetTimeMillis  int64          `json:"bet_time_ms"`
	Lifecycle      Lifecycle      `json:"game_state"`
	Phase          Phase          `json:"phase"`
	DealerSeat     *int           `json:"dealer"`
	HandNumber     int            `json:"hand_number"`
	LastHand       *HandResult    `json:"last_hand"`
}

// Summary is the lobby view of a table
type Summary struct {
	TableID        string    `json:"game_id"`
	Capacity       int       `json:"capacity"`
	Occupied       int       `json:"occupied"`
	SmallBlind     int       `json:"small_blind"`
	BigBlind       int       `json:"big_blind"`
	InitialBalance int       `json:"initial_balance"`
	BetTimeMillis  int64     `json:"bet_time_ms"`
	Lifecycle      Lifecycle `json:"game_state"`
	HandNumber     int       `json:"hand_number"`
}

// Snapshot builds the view for viewer. An unknown or empty viewer gets the
// same shape with every private field withheld.
func (t *Table) Snapshot(viewer ParticipantID) Snapshot {
	s := Snapshot{
		TableID:        t.id,
		Players:        make([]*SeatView, len(t.seats)),
		Pot:            t.Pot(),
		SmallBlind:     t.cfg.SmallBlind,
		BigBlind:       t.cfg.BigBlind,
		InitialBalance: t.cfg.InitialBalance,
		Capacity:       t.cfg.Capacity,
		BetTimeMillis:  t.cfg.BetTime.Milliseconds(),
		Lifecycle:      t.lifecycle,
		Phase:          t.phase,
		HandNumber:     t.handNumber,
	}

	if seat, ok := t.ActiveSeat(); ok {
		s.ActiveSeat = &seat
	}
	if seat, ok := t.DealerSeat(); ok {
		s.DealerSeat = &seat
	}

	for i := 0; i < t.revealed; i++ {
		c := t.community[i]
		s.CommunityCards[i] = &c
	}

	for seat, p := range t.seats {
		if p == nil {
			continue
		}
		s.Players[seat] = &SeatView{
			Seat:       seat,
			Balance:    p.balance,
			State:      p.state,
			Bet:        p.currentBet,
			Nickname:   t.nicknames[seat],
			Appearance: t.appearance[seat],
		}
	}

	seat, seated := t.SeatOf(viewer)
	if seated {
		s.AskerSeat = &seat
		if p := t.seats[seat]; t.lifecycle == Started && p.dealt {
			first, second := p.hole[0], p.hole[1]
			s.PersonalCards = [2]*cards.Card{&first, &second}
		}
	}

	// every seated player was dealt into the last hand; everyone else only
	// sees its outcome
	if t.lastHand != nil {
		last := *t.lastHand
		if !seated {
			last.Shown = nil
		}
		s.LastHand = &last
	}
	return s
}

// Summary builds the lobby view
func (t *Table) Summary() Summary {
	return Summary{
		TableID:        t.id,
		Capacity:       t.cfg.Capacity,
		Occupied:       t.Occupied(),
		SmallBlind:     t.cfg.SmallBlind,
		BigBlind:       t.cfg.BigBlind,
		InitialBalance: t.cfg.InitialBalance,
		BetTimeMillis:  t.cfg.BetTime.Milliseconds(),
		Lifecycle:      t.lifecycle,
		HandNumber:     t.handNumber,
	}
}
