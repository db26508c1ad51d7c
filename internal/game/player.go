package game

import (
	"fmt"

	"github.com/lox/pokertables/internal/cards"
)

// PlayerState is the betting state of a seated player
type PlayerState uint8

const (
	NotReady PlayerState = iota // before the game starts
	Ready                       // before the game starts
	Active                      // still owes a decision this round
	Checked
	Called
	AllInState // committed the whole balance; stays eligible for showdown
	Folded     // out for the rest of the hand
	Left       // out for the rest of the hand
)

func (s PlayerState) String() string {
	switch s {
	case NotReady:
		return "NotReady"
	case Ready:
		return "Ready"
	case Active:
		return "Active"
	case Checked:
		return "Checked"
	case Called:
		return "Called"
	case AllInState:
		return "AllIn"
	case Folded:
		return "Folded"
	case Left:
		return "Left"
	default:
		return "Unknown"
	}
}

func (s PlayerState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PlayerState) UnmarshalText(text []byte) error {
	for v := NotReady; v <= Left; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown player state %q", text)
}

// InHand reports whether the player can still win the current hand
func (s PlayerState) InHand() bool {
	return s != Folded && s != Left
}

func (s PlayerState) preHand() bool {
	return s == NotReady || s == Ready
}

// Player is the per-seat betting state machine. Chips only move between
// balance and the current bet, except through CollectWin and settlement.
type Player struct {
	seat       int
	balance    int
	currentBet int
	totalBet   int
	state      PlayerState
	hole       [2]cards.Card
	dealt      bool
}

// NewPlayer seats a player holding balance chips
func NewPlayer(seat, balance int) *Player {
	return &Player{seat: seat, balance: balance, state: NotReady}
}

func (p *Player) Seat() int                        { return p.seat }
func (p *Player) Balance() int                     { return p.balance }
func (p *Player) CurrentBet() int                  { return p.currentBet }
func (p *Player) TotalBet() int                    { return p.totalBet }
func (p *Player) State() PlayerState               { return p.state }
func (p *Player) Stake() int                       { return p.balance + p.currentBet + p.totalBet }
func (p *Player) contribution() int                { return p.currentBet + p.totalBet }
func (p *Player) HoleCards() ([2]cards.Card, bool) { return p.hole, p.dealt }

// SetReady toggles readiness; only legal before the first hand
func (p *Player) SetReady(ready bool) error {
	if !p.state.preHand() {
		return ErrGameNotJoinable
	}
	if ready {
		p.state = Ready
	} else {
		p.state = NotReady
	}
	return nil
}

// Bet moves amount from the balance into the current bet
func (p *Player) Bet(amount int) error {
	if err := p.canWager(amount); err != nil {
		return err
	}
	p.commit(amount, Active)
	return nil
}

// Call tops the current bet up to targetTotal
func (p *Player) Call(targetTotal int) error {
	delta := max(targetTotal-p.currentBet, 0)
	if err := p.canWager(delta); err != nil {
		return err
	}
	p.commit(delta, Called)
	return nil
}

// Check passes without adding chips; the current bet must already cover
// targetTotal
func (p *Player) Check(targetTotal int) error {
	if err := p.canAct(); err != nil {
		return err
	}
	if p.currentBet < targetTotal {
		return fmt.Errorf("%w: bet %d below %d", ErrBetTooSmall, p.currentBet, targetTotal)
	}
	if p.state != AllInState {
		p.state = Checked
	}
	return nil
}

// AllIn pushes the whole balance, which may be zero
func (p *Player) AllIn() error {
	if err := p.canAct(); err != nil {
		return err
	}
	p.currentBet += p.balance
	p.balance = 0
	p.state = AllInState
	return nil
}

// Fold gives up the hand; chips already wagered stay in the pot
func (p *Player) Fold() error {
	if err := p.canAct(); err != nil {
		return err
	}
	p.state = Folded
	return nil
}

// CollectBet moves the current round's bet into the hand total
func (p *Player) CollectBet() {
	p.totalBet += p.currentBet
	p.currentBet = 0
}

// CollectWin credits winnings to the balance
func (p *Player) CollectWin(amount int) {
	p.balance += amount
}

// SetActive reopens the player for a new round. Forced reactivation (a new
// hand) brings back everyone but Left; otherwise Folded and AllIn stay put.
func (p *Player) SetActive(force bool) {
	switch p.state {
	case Left:
		return
	case Folded, AllInState:
		if !force {
			return
		}
	}
	p.state = Active
}

func (p *Player) canAct() error {
	if !p.state.InHand() || p.state.preHand() {
		return fmt.Errorf("%w: state %s", ErrPlayerInactive, p.state)
	}
	return nil
}

func (p *Player) canWager(amount int) error {
	if err := p.canAct(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > p.balance {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, amount, p.balance)
	}
	return nil
}

func (p *Player) commit(amount int, next PlayerState) {
	p.balance -= amount
	p.currentBet += amount
	if p.balance == 0 {
		p.state = AllInState
	} else {
		p.state = next
	}
}

func (p *Player) resetForHand() {
	p.currentBet = 0
	p.totalBet = 0
	p.hole = [2]cards.Card{}
	p.dealt = false
}

func (p *Player) deal(first, second cards.Card) {
	p.hole = [2]cards.Card{first, second}
	p.dealt = true
}

// forfeit clears the player's contribution once the pot has been paid out
func (p *Player) forfeit() {
	p.currentBet = 0
	p.totalBet = 0
}
