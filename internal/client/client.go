// Package client talks to a pokertables server over its HTTP API and
// websocket feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/registry"
	"github.com/lox/pokertables/internal/server" // Reuse request types
)

// APIError is a rejection reported by the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Session is a seat held by this client
type Session struct {
	GameID        string `json:"game_id"`
	ParticipantID string `json:"participant_id"`
	Seat          int    `json:"seat"`
	Token         string `json:"token"`
}

// Client calls the table API
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a client for serverURL
func NewClient(serverURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}

	return &Client{
		base:   u,
		http:   &http.Client{Timeout: timeout},
		logger: logger.WithPrefix("client"),
	}, nil
}

// response is the union of every success payload
type response struct {
	Message       string             `json:"message"`
	Code          string             `json:"code"`
	Content       string             `json:"content"`
	GameID        string             `json:"game_id"`
	Games         []registry.Summary `json:"games"`
	ParticipantID string             `json:"participant_id"`
	Seat          int                `json:"seat"`
	Token         string             `json:"token"`
	GameState     *game.Snapshot     `json:"game_state"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s %s: decode response (%d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Message != "success" {
		return nil, &APIError{Status: resp.StatusCode, Code: out.Code, Message: out.Content}
	}
	return &out, nil
}

// Health reports whether the server answers its health check
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath("health").String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// CreateGame creates a table and returns its id
func (c *Client) CreateGame(ctx context.Context, req server.CreateGameRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "games", "", req)
	if err != nil {
		return "", err
	}
	return resp.GameID, nil
}

// ListGames returns every table in creation order
func (c *Client) ListGames(ctx context.Context) ([]registry.Summary, error) {
	resp, err := c.do(ctx, http.MethodGet, "games", "", nil)
	if err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// Join takes a seat at gameID
func (c *Client) Join(ctx context.Context, gameID string, req server.JoinGameRequest) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "games/"+url.PathEscape(gameID)+"/join", "", req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Joined game", "game", gameID, "seat", resp.Seat)
	return &Session{
		GameID:        gameID,
		ParticipantID: resp.ParticipantID,
		Seat:          resp.Seat,
		Token:         resp.Token,
	}, nil
}

// SetReady toggles the session's readiness
func (c *Client) SetReady(ctx context.Context, s *Session, ready bool) error {
	_, err := c.do(ctx, http.MethodPost, gamePath(s.GameID, "ready"), s.Token, server.SetReadyRequest{NewReadyState: ready})
	return err
}

// State fetches the table as seen by token. An empty token gets the public view.
func (c *Client) State(ctx context.Context, gameID, token string) (game.Snapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, gamePath(gameID, "state"), token, nil)
	if err != nil {
		return game.Snapshot{}, err
	}
	if resp.GameState == nil {
		return game.Snapshot{}, errors.New("state response without game_state")
	}
	return *resp.GameState, nil
}

// Act submits a betting action. bet is only sent for bets and raises.
func (c *Client) Act(ctx context.Context, s *Session, action string, bet int) error {
	req := server.ActionRequest{Action: action}
	if kind, err := game.ParseActionKind(action); err == nil && kind == game.Bet {
		req.Bet = &bet
	}
	_, err := c.do(ctx, http.MethodPost, gamePath(s.GameID, "action"), s.Token, req)
	return err
}

// Quit gives up the session. The seat keeps playing server-side.
func (c *Client) Quit(ctx context.Context, s *Session) (int, error) {
	resp, err := c.do(ctx, http.MethodPost, gamePath(s.GameID, "quit"), s.Token, nil)
	if err != nil {
		return -1, err
	}
	return resp.Seat, nil
}

// WatchOption configures Watch
type WatchOption func(*watchOptions)

type watchOptions struct {
	onEvent func(game.Event)
}

// WithEvents passes the feed's table events to fn, each before the snapshot
// that follows it
func WithEvents(fn func(game.Event)) WatchOption {
	return func(o *watchOptions) { o.onEvent = fn }
}

// Watch streams snapshots of gameID to fn until ctx is cancelled, the
// server closes the feed, or fn returns an error.
func (c *Client) Watch(ctx context.Context, gameID, token string, fn func(game.Snapshot) error, opts ...WatchOption) error {
	var o watchOptions
	for _, opt := range opts {
		opt(&o)
	}

	u := *c.base.JoinPath(gamePath(gameID, "listen"))
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			var out response
			if json.NewDecoder(resp.Body).Decode(&out) == nil && out.Code != "" {
				return &APIError{Status: resp.StatusCode, Code: out.Code, Message: out.Content}
			}
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg server.FeedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		switch {
		case msg.Type == server.FeedMessageEvent && msg.Event != nil:
			if o.onEvent != nil {
				o.onEvent(*msg.Event)
			}
		case msg.Type == server.FeedMessageState && msg.Data != nil:
			if err := fn(*msg.Data); err != nil {
				return err
			}
		default:
			c.logger.Debug("Ignoring feed message", "type", msg.Type)
		}
	}
}

func gamePath(gameID, action string) string {
	return strings.Join([]string{"games", url.PathEscape(gameID), action}, "/")
}
