package game

import (
	"fmt"
)

// startRound begins a hand, or ends the table when at most two seats can
// still pay. It leaves t.active on the big blind; settle finds the first
// seat to act.
func (t *Table) startRound() {
	if funded := t.funded(); funded <= 2 {
		t.lifecycle = Ended
		t.active = -1
		t.logger.Info("Game ended", "funded_seats", funded, "hands", t.handNumber)
		t.publish(Event{Type: EventGameEnded, Seat: -1})
		return
	}

	t.handNumber++
	t.phase = PreFlop
	t.revealed = 0

	for _, p := range t.seats {
		if p == nil {
			continue
		}
		p.SetActive(true)
		p.resetForHand()
	}

	if err := t.dealHand(); err != nil {
		t.lifecycle = Ended
		t.active = -1
		t.logger.Error("Failed to deal, ending game", "error", err)
		t.publish(Event{Type: EventGameEnded, Seat: -1})
		return
	}

	if t.dealer < 0 {
		t.dealer, _ = t.nextOccupied(-1)
	} else {
		t.dealer, _ = t.nextOccupied(t.dealer)
	}

	t.logger.Debug("Hand started", "hand", t.handNumber, "dealer", t.dealer)
	t.publish(Event{Type: EventHandStarted, Seat: t.dealer})

	t.postBlinds()
}

// dealHand shuffles and deals two hole cards per occupied seat in seat
// order, then reserves the five community cards
func (t *Table) dealHand() error {
	t.deck.Shuffle(t.rng)
	for _, p := range t.seats {
		if p == nil {
			continue
		}
		hole, ok := t.deck.Deal(2)
		if !ok {
			return fmt.Errorf("deck exhausted dealing seat %d", p.seat)
		}
		p.deal(hole[0], hole[1])
	}

	board, ok := t.deck.Deal(len(t.community))
	if !ok {
		return fmt.Errorf("deck exhausted dealing the board")
	}
	copy(t.community[:], board)
	return nil
}

// postBlinds forces the small and big blinds. A seat that cannot cover its
// blind goes all-in for whatever it has left.
func (t *Table) postBlinds() {
	sb, ok := t.nextEligible(t.dealer)
	if !ok {
		t.logger.Warn("No seat can post the small blind")
		return
	}
	bb, ok := t.nextEligible(sb)
	if !ok {
		t.logger.Warn("No seat can post the big blind")
		return
	}

	t.postBlind(sb, t.cfg.SmallBlind)
	t.postBlind(bb, t.cfg.BigBlind)
	t.active = bb

	t.logger.Debug("Blinds posted", "small_blind_seat", sb, "big_blind_seat", bb)
}

func (t *Table) postBlind(seat, amount int) {
	p := t.seats[seat]
	before := p.balance
	if err := p.Bet(amount); err != nil {
		t.logger.Debug("Blind short, forcing all-in", "seat", seat, "blind", amount, "balance", p.balance)
		if err := p.AllIn(); err != nil {
			t.logger.Warn("Failed to force blind all-in", "seat", seat, "error", err)
			return
		}
	}
	t.publish(Event{Type: EventBlindPosted, Seat: seat, Amount: before - p.balance})
}

// nextOccupied returns the first occupied seat after from, wrapping. A
// from of -1 starts the scan at seat 0.
func (t *Table) nextOccupied(from int) (int, bool) {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		seat := (from + i + n) % n
		if t.seats[seat] != nil {
			return seat, true
		}
	}
	return -1, false
}

// nextEligible returns the first occupied seat after from that is still in
// the hand. It visits every seat at most once.
func (t *Table) nextEligible(from int) (int, bool) {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		seat := (from + i + n) % n
		if p := t.seats[seat]; p != nil && p.state.InHand() {
			return seat, true
		}
	}
	return -1, false
}

func (t *Table) funded() int {
	n := 0
	for _, p := range t.seats {
		if p != nil && p.balance > 0 {
			n++
		}
	}
	return n
}

func (t *Table) maxBet() int {
	highest := 0
	for _, p := range t.seats {
		if p != nil && p.currentBet > highest {
			highest = p.currentBet
		}
	}
	return highest
}

// roundOver reports whether nobody still owes a decision this round
func (t *Table) roundOver() bool {
	for _, p := range t.seats {
		if p != nil && p.state == Active {
			return false
		}
	}
	return true
}

// Action applies a betting decision for the seat to act and then runs the
// table forward until another decision is needed
func (t *Table) Action(seat int, kind ActionKind, amount int) error {
	if t.lifecycle != Started {
		return ErrHandNotRunning
	}
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if seat != t.active {
		return fmt.Errorf("%w: seat %d, active seat %d", ErrNotYourTurn, seat, t.active)
	}
	p, ok := t.player(seat)
	if !ok {
		return fmt.Errorf("%w: seat %d", ErrSeatEmpty, seat)
	}

	target := t.maxBet()
	before := p.balance

	var err error
	switch kind {
	case Bet:
		if amount+p.currentBet < target {
			err = fmt.Errorf("%w: %d short of %d", ErrBetTooSmall, target-amount-p.currentBet, target)
		} else {
			err = p.Bet(amount)
		}
	case Call:
		err = p.Call(target)
	case Check:
		err = p.Check(target)
	case AllIn:
		err = p.AllIn()
	case Fold:
		err = p.Fold()
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownAction, kind)
	}
	if err != nil {
		return fmt.Errorf("seat %d %s: %w", seat, kind, err)
	}

	t.logger.Debug("Player acted", "seat", seat, "action", kind, "amount", before-p.balance, "state", p.state)
	t.publish(Event{Type: EventPlayerActed, Seat: seat, Action: kind.String(), Amount: before - p.balance})

	t.settle()
	return nil
}

// settle passes the turn from t.active. All-in seats are played
// automatically, and finished rounds advance the phase, so the loop stops
// only at a seat that owes a decision or once the table has ended.
func (t *Table) settle() {
	for t.lifecycle == Started {
		if t.roundOver() {
			if t.phase == River {
				t.showdown()
				t.startRound()
				continue
			}
			t.advancePhase()
		}

		seat, ok := t.nextEligible(t.active)
		if !ok {
			t.logger.Warn("No eligible seat left, settling hand", "hand", t.handNumber)
			t.showdown()
			t.startRound()
			continue
		}
		t.active = seat

		p := t.seats[seat]
		if p.state != AllInState {
			return
		}
		if err := p.AllIn(); err != nil {
			t.logger.Warn("Auto all-in failed", "seat", seat, "error", err)
			return
		}
		t.publish(Event{Type: EventPlayerActed, Seat: seat, Action: AllIn.String(), Auto: true})
	}
}

// advancePhase collects the round's bets, reveals the next community cards
// and reopens betting from the dealer
func (t *Table) advancePhase() {
	for _, p := range t.seats {
		if p == nil {
			continue
		}
		p.CollectBet()
		p.SetActive(false)
	}

	t.phase++
	t.revealed = t.phase.revealed()
	t.active = t.dealer

	t.logger.Debug("Phase changed", "hand", t.handNumber, "phase", t.phase, "pot", t.Pot())
	t.publish(Event{Type: EventPhaseChanged, Seat: -1, Amount: t.Pot()})
}
