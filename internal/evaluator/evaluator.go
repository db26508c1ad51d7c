// Package evaluator ranks seven-card Hold'em hands.
//
// It adapts github.com/paulhankin/poker to the table's card type. The table
// engine only needs a total order over hands, exposed as Rank.BetterThan.
package evaluator

import (
	"fmt"

	"github.com/paulhankin/poker"

	"github.com/lox/pokertables/internal/cards"
)

// Rank is the strength of a seven-card hand. The zero value is weaker than
// every hand produced by Evaluate.
type Rank struct {
	score int16
	valid bool
}

// NewRank builds a rank from a raw score, higher being stronger. It exists
// for fakes that need to rig a showdown.
func NewRank(score int16) Rank {
	return Rank{score: score, valid: true}
}

// BetterThan reports whether r beats other
func (r Rank) BetterThan(other Rank) bool {
	if !r.valid {
		return false
	}
	if !other.valid {
		return true
	}
	return r.score > other.score
}

// Score returns the raw library score (higher is stronger)
func (r Rank) Score() int16 {
	return r.score
}

// Evaluator ranks hands. It holds no state and is safe for concurrent use.
type Evaluator struct{}

// New returns an evaluator
func New() *Evaluator {
	return &Evaluator{}
}

// Rank evaluates exactly seven distinct cards
func (e *Evaluator) Rank(hand [7]cards.Card) (Rank, error) {
	pcs, err := convertHand(hand)
	if err != nil {
		return Rank{}, err
	}
	return NewRank(poker.Eval7(&pcs)), nil
}

// Describe returns a human readable name for the best hand, e.g.
// "flush, ace high"
func (e *Evaluator) Describe(cs []cards.Card) (string, error) {
	pcs := make([]poker.Card, len(cs))
	for i, c := range cs {
		pc, err := toLibrary(c)
		if err != nil {
			return "", err
		}
		pcs[i] = pc
	}
	return poker.Describe(pcs)
}

func convertHand(hand [7]cards.Card) ([7]poker.Card, error) {
	var out [7]poker.Card
	seen := make(map[cards.Card]bool, len(hand))
	for i, c := range hand {
		if seen[c] {
			return out, fmt.Errorf("duplicate card %s in hand", c)
		}
		seen[c] = true
		pc, err := toLibrary(c)
		if err != nil {
			return out, err
		}
		out[i] = pc
	}
	return out, nil
}

// toLibrary maps our ranks 2..14 onto the library's 1..13 with Ace as 1
func toLibrary(c cards.Card) (poker.Card, error) {
	var zero poker.Card
	if !c.Valid() {
		return zero, fmt.Errorf("invalid card %d/%d", c.Rank, c.Suit)
	}

	var s poker.Suit
	switch c.Suit {
	case cards.Clubs:
		s = poker.Club
	case cards.Diamonds:
		s = poker.Diamond
	case cards.Hearts:
		s = poker.Heart
	default:
		s = poker.Spade
	}

	r := poker.Rank(c.Rank)
	if c.Rank == cards.Ace {
		r = poker.Rank(1)
	}

	pc, err := poker.MakeCard(s, r)
	if err != nil {
		return zero, fmt.Errorf("convert card %s: %w", c, err)
	}
	return pc, nil
}
