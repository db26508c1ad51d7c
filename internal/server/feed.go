package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertables/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

const (
	// FeedMessageState carries a table snapshot in Data
	FeedMessageState = "state"
	// FeedMessageEvent carries one table transition in Event
	FeedMessageEvent = "event"
)

// FeedMessage is a frame pushed to feed listeners. Events recorded since the
// previous state frame are sent first, in order, followed by the new state.
type FeedMessage struct {
	Type  string         `json:"type"`
	Data  *game.Snapshot `json:"data,omitempty"`
	Event *game.Event    `json:"event,omitempty"`
}

// feed is one websocket listener on a table
type feed struct {
	conn      *websocket.Conn
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newFeed(conn *websocket.Conn, logger *log.Logger) *feed {
	ctx, cancel := context.WithCancel(context.Background())
	return &feed{
		conn:   conn,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close closes the connection
func (f *feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.cancel()
		err = f.conn.Close()
	})
	return err
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "gameID")
	viewer := participantFrom(r.Context())

	ticks, unsubscribe, err := s.registry.Subscribe(tableID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer unsubscribe()

	cursor, err := s.registry.EventCursor(tableID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	f := newFeed(conn, s.logger.With("table", tableID))
	s.track(f)
	defer s.untrack(f)
	defer func() { _ = f.Close() }() // Ignore close errors during cleanup

	f.logger.Debug("Feed opened", "viewer", viewer != "")
	go f.readPump()
	s.writePump(f, ticks, tableID, viewer, cursor)
	f.logger.Debug("Feed closed")
}

// readPump drains the peer so pongs and close frames are processed
func (f *feed) readPump() {
	defer func() { _ = f.Close() }() // Ignore close errors during cleanup

	f.conn.SetReadLimit(maxMessageSize)
	_ = f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		_ = f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := f.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("WebSocket error", "error", err)
			}
			return
		}
	}
}

// writePump pushes the current snapshot once, then the new events and
// snapshot after every table change, until the table ends or either side goes
// away.
func (s *Server) writePump(f *feed, ticks <-chan struct{}, tableID string, viewer game.ParticipantID, cursor uint64) {
	ticker := s.clock.NewTicker(s.pingPeriod, "feed", "ping")
	defer ticker.Stop()

	write := func(msg FeedMessage) bool {
		_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := f.conn.WriteJSON(msg); err != nil {
			f.logger.Debug("Failed to write message", "error", err)
			return false
		}
		return true
	}

	push := func() bool {
		events, next, err := s.registry.Events(tableID, cursor)
		if err != nil {
			f.logger.Error("Failed to read table events", "error", err)
			return false
		}
		cursor = next
		for i := range events {
			if !write(FeedMessage{Type: FeedMessageEvent, Event: &events[i]}) {
				return false
			}
		}

		snap, err := s.registry.State(tableID, viewer)
		if err != nil {
			f.logger.Error("Failed to read table", "error", err)
			return false
		}
		if !write(FeedMessage{Type: FeedMessageState, Data: &snap}) {
			return false
		}
		if snap.Lifecycle == game.Ended {
			_ = f.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game ended"),
				time.Now().Add(writeWait))
			return false
		}
		return true
	}

	if !push() {
		return
	}
	for {
		select {
		case _, ok := <-ticks:
			if !ok || !push() {
				return
			}

		case <-ticker.C:
			_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-f.ctx.Done():
			return
		}
	}
}
