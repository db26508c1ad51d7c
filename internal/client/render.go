package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/pokertables/internal/cards"
	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/registry"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1)

	redCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	blackCardStyle = lipgloss.NewStyle().
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)
)

func renderCard(c *cards.Card) string {
	if c == nil {
		return mutedStyle.Render("[]")
	}
	if c.Suit.IsRed() {
		return redCardStyle.Render(c.Pretty())
	}
	return blackCardStyle.Render(c.Pretty())
}

func renderCards(cs []*cards.Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

// RenderSnapshot formats a table snapshot for the terminal
func RenderSnapshot(s game.Snapshot) string {
	var b strings.Builder

	header := fmt.Sprintf("Game %s  %s", s.TableID, s.Lifecycle)
	if s.Lifecycle == game.Started {
		header += fmt.Sprintf("  hand #%d %s", s.HandNumber, s.Phase)
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Blinds %d/%d  Pot %d\n", s.SmallBlind, s.BigBlind, s.Pot)
	fmt.Fprintf(&b, "Board  %s\n", renderCards(s.CommunityCards[:]))
	if s.AskerSeat != nil {
		fmt.Fprintf(&b, "Hand   %s  (seat %d)\n", renderCards(s.PersonalCards[:]), *s.AskerSeat)
	}

	rows := make([]string, 0, len(s.Players))
	for seat, p := range s.Players {
		if p == nil {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d  (empty)", seat)))
			continue
		}

		marker := " "
		if s.DealerSeat != nil && *s.DealerSeat == seat {
			marker = "D"
		}
		row := fmt.Sprintf("%s %d  %-12s %6d  bet %-5d %s", marker, seat, p.Nickname, p.Balance, p.Bet, p.State)
		switch {
		case s.ActiveSeat != nil && *s.ActiveSeat == seat:
			row = activeStyle.Render(row + "  <- to act")
		case p.State == game.Folded || p.State == game.Left:
			row = mutedStyle.Render(row)
		}
		rows = append(rows, row)
	}
	b.WriteString(tableStyle.Render(strings.Join(rows, "\n")))

	if r := s.LastHand; r != nil {
		b.WriteString("\n")
		if r.WinnerSeat != nil {
			b.WriteString(resultStyle.Render(fmt.Sprintf("Hand #%d: seat %d won %d", r.HandNumber, *r.WinnerSeat, r.Pot)))
		} else if r.Refunded {
			b.WriteString(resultStyle.Render(fmt.Sprintf("Hand #%d: pot of %d refunded", r.HandNumber, r.Pot)))
		}
		for _, shown := range r.Shown {
			hole := make([]*cards.Card, len(shown.Cards))
			for i := range shown.Cards {
				hole[i] = &shown.Cards[i]
			}
			fmt.Fprintf(&b, "\n  seat %d  %s  %s", shown.Seat, renderCards(hole), shown.Description)
		}
	}
	return b.String()
}

// RenderGames formats the lobby listing
func RenderGames(games []registry.Summary) string {
	if len(games) == 0 {
		return mutedStyle.Render("No games")
	}

	rows := []string{headerStyle.Render(fmt.Sprintf("%-36s  %-10s  %5s  %9s  %6s", "GAME", "STATE", "SEATS", "BLINDS", "HAND"))}
	for _, g := range games {
		rows = append(rows, fmt.Sprintf("%-36s  %-10s  %2d/%-2d  %9s  %6d",
			g.TableID, g.Lifecycle, g.Occupied, g.Capacity,
			fmt.Sprintf("%d/%d", g.SmallBlind, g.BigBlind), g.HandNumber))
	}
	return strings.Join(rows, "\n")
}

// RenderEvent formats one feed event as a single line
func RenderEvent(e game.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hand #%d %s: ", e.Hand, e.Phase)
	switch e.Type {
	case game.EventHandStarted:
		fmt.Fprintf(&b, "dealt, dealer seat %d", e.Seat)
	case game.EventBlindPosted:
		fmt.Fprintf(&b, "seat %d posts %d", e.Seat, e.Amount)
	case game.EventPlayerActed:
		fmt.Fprintf(&b, "seat %d %s", e.Seat, e.Action)
		if e.Amount > 0 {
			fmt.Fprintf(&b, " %d", e.Amount)
		}
		if e.Auto {
			b.WriteString(" (auto)")
		}
	case game.EventPhaseChanged:
		fmt.Fprintf(&b, "pot %d", e.Amount)
	case game.EventHandEnded:
		if e.Seat >= 0 {
			fmt.Fprintf(&b, "seat %d wins %d", e.Seat, e.Amount)
		} else {
			fmt.Fprintf(&b, "pot %d refunded", e.Amount)
		}
	default:
		b.WriteString(strings.ReplaceAll(string(e.Type), "_", " "))
	}
	return mutedStyle.Render(b.String())
}
