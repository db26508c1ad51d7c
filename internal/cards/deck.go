package cards

import (
	rand "math/rand/v2"
)

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// Deck is a standard 52-card deck dealt from the top
type Deck struct {
	cards [DeckSize]Card
	next  int
}

// NewDeck returns an unshuffled deck ordered by suit, then rank
func NewDeck() *Deck {
	d := &Deck{}
	i := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	return d
}

// Shuffle reorders the deck with Fisher-Yates and resets the deal position.
// A nil rng falls back to the global math/rand/v2 source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal returns the next n cards, or false if fewer than n remain
func (d *Deck) Deal(n int) ([]Card, bool) {
	if n < 0 || d.next+n > len(d.cards) {
		return nil, false
	}
	out := make([]Card, n)
	copy(out, d.cards[d.next:d.next+n])
	d.next += n
	return out, true
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Cards returns a copy of the deck in its current order
func (d *Deck) Cards() [DeckSize]Card {
	return d.cards
}
