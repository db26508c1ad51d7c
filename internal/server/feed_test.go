package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertables/internal/game"
)

func (e *testEnv) dial(t *testing.T, gameID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/games/" + gameID + "/listen"
	if token != "" {
		url += "?token=" + token
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readState skips event frames up to the next snapshot
func readState(t *testing.T, conn *websocket.Conn) game.Snapshot {
	t.Helper()
	for {
		msg := readFrame(t, conn)
		if msg.Type == FeedMessageEvent {
			continue
		}
		require.Equal(t, FeedMessageState, msg.Type)
		require.NotNil(t, msg.Data)
		return *msg.Data
	}
}

func TestFeedPushesStateOnChange(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)

	conn := env.dial(t, id, "")
	initial := readState(t, conn)
	assert.Equal(t, id, initial.TableID)
	assert.Nil(t, initial.Players[0])

	env.join(t, id, 0, "alice", false)
	afterJoin := readState(t, conn)
	require.NotNil(t, afterJoin.Players[0])
	assert.Equal(t, "alice", afterJoin.Players[0].Nickname)
	assert.Equal(t, game.NotReady, afterJoin.Players[0].State)
}

func TestFeedViewerSeesOwnCards(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)
	token := env.join(t, id, 0, "alice", true)

	conn := env.dial(t, id, token)
	before := readState(t, conn)
	require.NotNil(t, before.AskerSeat)
	assert.Equal(t, 0, *before.AskerSeat)

	env.join(t, id, 1, "bob", true)
	readState(t, conn)
	env.join(t, id, 2, "carol", true)

	started := readState(t, conn)
	assert.Equal(t, game.Started, started.Lifecycle)
	assert.NotNil(t, started.PersonalCards[0])
	assert.NotNil(t, started.PersonalCards[1])
}

func TestFeedPushesEventsBeforeState(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)
	env.join(t, id, 0, "alice", true)
	env.join(t, id, 1, "bob", true)

	conn := env.dial(t, id, "")
	readState(t, conn)

	env.join(t, id, 2, "carol", true)

	var events []game.Event
	for {
		msg := readFrame(t, conn)
		if msg.Type == FeedMessageState {
			require.NotNil(t, msg.Data)
			assert.Equal(t, game.Started, msg.Data.Lifecycle)
			break
		}
		require.Equal(t, FeedMessageEvent, msg.Type)
		require.NotNil(t, msg.Event)
		assert.Nil(t, msg.Data)
		events = append(events, *msg.Event)
	}

	types := make([]game.EventType, len(events))
	for i, e := range events {
		assert.Equal(t, id, e.TableID)
		types[i] = e.Type
	}
	assert.Equal(t, []game.EventType{
		game.EventGameStarted,
		game.EventHandStarted,
		game.EventBlindPosted,
		game.EventBlindPosted,
	}, types)
	assert.Equal(t, 10, events[2].Amount)
	assert.Equal(t, 20, events[3].Amount)
}

func TestFeedRejections(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)
	other := env.createGame(t)
	otherToken := env.join(t, other, 0, "bob", false)

	base := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/games/"
	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"unknown table", base + "missing/listen", http.StatusNotFound},
		{"bad token", base + id + "/listen?token=garbage", http.StatusUnauthorized},
		{"other table", base + id + "/listen?token=" + otherToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestFeedPings(t *testing.T) {
	env := newTestEnv(t, WithClock(quartz.NewReal()), WithPingPeriod(10*time.Millisecond))
	id := env.createGame(t)
	conn := env.dial(t, id, "")

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestServeShutsDownFeeds(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := New(env.reg, env.tokens, WithLogger(log.New(io.Discard)))
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/games/" + id + "/listen"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	readState(t, conn)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "feeds are closed on shutdown")
}
