package game

// EventType names a table transition
type EventType string

const (
	EventGameStarted  EventType = "game_started"
	EventHandStarted  EventType = "hand_started"
	EventBlindPosted  EventType = "blinds_posted"
	EventPlayerActed  EventType = "player_acted"
	EventPhaseChanged EventType = "phase_changed"
	EventHandEnded    EventType = "hand_ended"
	EventGameEnded    EventType = "game_ended"
)

// Event describes one transition on a table. Seat is -1 when the event is
// not about a single seat. Amount is the chips moved by the seat for blinds
// and actions, the pot for phase changes and hand results.
type Event struct {
	Type    EventType `json:"type"`
	TableID string    `json:"table_id"`
	Hand    int       `json:"hand"`
	Phase   Phase     `json:"phase"`
	Seat    int       `json:"seat"`
	Action  string    `json:"action,omitempty"`
	Amount  int       `json:"amount"`
	Auto    bool      `json:"auto,omitempty"`
}
