package game

import (
	"fmt"
	"strings"
)

// ParticipantID identifies a seated participant to callers
type ParticipantID string

// Lifecycle is the one-way table state: NotStarted → Started → Ended
type Lifecycle uint8

const (
	NotStarted Lifecycle = iota
	Started
	Ended
)

func (l Lifecycle) String() string {
	switch l {
	case NotStarted:
		return "NotStarted"
	case Started:
		return "Started"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

func (l Lifecycle) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Lifecycle) UnmarshalText(text []byte) error {
	for v := NotStarted; v <= Ended; v++ {
		if v.String() == string(text) {
			*l = v
			return nil
		}
	}
	return fmt.Errorf("unknown game state %q", text)
}

// Phase is the betting round within a hand
type Phase uint8

const (
	PreFlop Phase = iota
	Flop
	Turn
	River
)

func (p Phase) String() string {
	switch p {
	case PreFlop:
		return "PreFlop"
	case Flop:
		return "Flop"
	case Turn:
		return "Turn"
	case River:
		return "River"
	default:
		return "Unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(text []byte) error {
	for v := PreFlop; v <= River; v++ {
		if v.String() == string(text) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// revealed returns how many community cards are face up during the phase
func (p Phase) revealed() int {
	switch p {
	case Flop:
		return 3
	case Turn:
		return 4
	case River:
		return 5
	default:
		return 0
	}
}

// ActionKind is a betting decision submitted by the seat to act
type ActionKind uint8

const (
	Bet ActionKind = iota
	Call
	Check
	Fold
	AllIn
)

func (a ActionKind) String() string {
	switch a {
	case Bet:
		return "Bet"
	case Call:
		return "Call"
	case Check:
		return "Check"
	case Fold:
		return "Fold"
	case AllIn:
		return "AllIn"
	default:
		return "Unknown"
	}
}

func (a ActionKind) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}

// ParseActionKind accepts action names case-insensitively. "raise" is an
// alias for Bet and "all_in"/"all-in" for AllIn.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bet", "raise":
		return Bet, nil
	case "call":
		return Call, nil
	case "check":
		return Check, nil
	case "fold":
		return Fold, nil
	case "allin", "all_in", "all-in":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}
