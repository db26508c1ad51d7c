package game

import (
	"fmt"

	"github.com/lox/pokertables/internal/cards"
	"github.com/lox/pokertables/internal/evaluator"
)

// HandResult records how a hand was settled
type HandResult struct {
	HandNumber  int          `json:"hand_number"`
	WinnerSeat  *int         `json:"winner_seat"`
	Pot         int          `json:"pot"`
	Board       []cards.Card `json:"board"`
	Shown       []ShownHand  `json:"shown"`
	Refunded    bool         `json:"refunded"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// ShownHand is a hole-card pair revealed at showdown
type ShownHand struct {
	Seat        int          `json:"seat"`
	Cards       []cards.Card `json:"cards"`
	Description string       `json:"description,omitempty"`
}

// showdown pays the whole pot to the best ranked seat still in the hand.
// Seats are compared in seat order and only a strictly better rank takes
// over, so the lowest seat keeps a tie. When no seat can be ranked every
// contribution is refunded.
func (t *Table) showdown() {
	for _, p := range t.seats {
		if p != nil {
			p.CollectBet()
		}
	}
	pot := t.Pot()

	result := &HandResult{
		HandNumber: t.handNumber,
		Pot:        pot,
		Board:      append([]cards.Card(nil), t.community[:]...),
	}

	winner := -1
	var best evaluator.Rank
	for seat, p := range t.seats {
		if p == nil || !p.state.InHand() || !p.dealt {
			continue
		}
		var hand [7]cards.Card
		copy(hand[:5], t.community[:])
		hand[5], hand[6] = p.hole[0], p.hole[1]

		rank, err := t.eval.Rank(hand)
		if err != nil {
			t.logger.Warn("Failed to evaluate hand, excluding seat", "seat", seat, "error", err)
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("seat %d: %v", seat, err))
			continue
		}
		t.logger.Debug("Ranked hand", "hand", t.handNumber, "seat", seat, "score", rank.Score())

		shown := ShownHand{Seat: seat, Cards: []cards.Card{p.hole[0], p.hole[1]}}
		if d, ok := t.eval.(Describer); ok {
			if desc, err := d.Describe(hand[:]); err == nil {
				shown.Description = desc
			}
		}
		result.Shown = append(result.Shown, shown)

		if winner < 0 || rank.BetterThan(best) {
			winner, best = seat, rank
		}
	}

	if winner < 0 {
		for _, p := range t.seats {
			if p == nil {
				continue
			}
			refund := p.contribution()
			p.forfeit()
			p.CollectWin(refund)
		}
		result.Refunded = true
		t.logger.Warn("No hand could be ranked, refunding pot", "hand", t.handNumber, "pot", pot)
	} else {
		for _, p := range t.seats {
			if p != nil {
				p.forfeit()
			}
		}
		t.seats[winner].CollectWin(pot)
		result.WinnerSeat = &winner
		t.logger.Info("Hand won", "hand", t.handNumber, "seat", winner, "pot", pot)
	}

	t.lastHand = result
	ev := Event{Type: EventHandEnded, Seat: -1, Amount: pot}
	if result.WinnerSeat != nil {
		ev.Seat = winner
	}
	t.publish(ev)

	t.phase = PreFlop
	t.revealed = 0
}
