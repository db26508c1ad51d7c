// Package cards defines playing cards and the 52-card deck used at a table.
package cards

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const suitLetters = "shdc"

// String returns the lowercase letter used in card notation ("s", "h", "d", "c")
func (s Suit) String() string {
	if int(s) < len(suitLetters) {
		return suitLetters[s : s+1]
	}
	return "?"
}

// Symbol returns the unicode symbol for the suit
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true for hearts and diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank, Two (2) through Ace (14)
type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankLetters = "23456789TJQKA"

// String returns the single character used in card notation
func (r Rank) String() string {
	if r >= Two && r <= Ace {
		i := r - Two
		return rankLetters[i : i+1]
	}
	return "?"
}

// Card is an immutable rank and suit pair
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// Valid reports whether the card is one of the 52 standard cards
func (c Card) Valid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit <= Clubs
}

// String returns two-character notation, e.g. "As" or "Td"
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Pretty returns rank plus suit symbol, e.g. "A♠"
func (c Card) Pretty() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// MarshalText encodes the card in two-character notation
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot encode invalid card %d/%d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes two-character notation
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a single card such as "As", "th" or "2C"
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q: expected 2 characters", s)
	}
	ri := strings.IndexByte(rankLetters, upper(s[0]))
	if ri < 0 {
		return Card{}, fmt.Errorf("invalid rank %q in card %q", s[0], s)
	}
	si := strings.IndexByte(suitLetters, lower(s[1]))
	if si < 0 {
		return Card{}, fmt.Errorf("invalid suit %q in card %q", s[1], s)
	}
	return Card{Rank: Two + Rank(ri), Suit: Suit(si)}, nil
}

// ParseCards parses concatenated notation such as "AsKsQs"
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string %q: odd length", s)
	}
	out := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseCards is ParseCards for fixtures; it panics on bad input
func MustParseCards(s string) []Card {
	cs, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cs
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
