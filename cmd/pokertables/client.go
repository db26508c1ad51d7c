package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertables/cmd/pokertables/shared"
	"github.com/lox/pokertables/internal/client"
	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/server"
)

// ClientFlags holds common configuration for client commands
type ClientFlags struct {
	ClientConfig string `kong:"name='client-config',default='pokertables-client.hcl',env='POKERTABLES_CLIENT_CONFIG',help='Path to client HCL configuration file'"`
	URL          string `kong:"env='POKERTABLES_URL',help='Server URL (overrides config)'"`
	Sessions     string `kong:"env='POKERTABLES_SESSIONS',help='Session file (overrides config)'"`
	LogLevel     string `kong:"name='log-level',default='warn',env='POKERTABLES_CLIENT_LOG_LEVEL',help='Client log level'"`
}

// session bundles everything a client command needs
type session struct {
	api    *client.Client
	cfg    *client.ClientConfig
	store  *client.SessionStore
	logger *log.Logger
}

func (f *ClientFlags) setup() (*session, error) {
	cfg, err := client.LoadClientConfig(f.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if f.URL != "" {
		cfg.Server.URL = f.URL
	}
	if f.Sessions != "" {
		cfg.Player.SessionFile = f.Sessions
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := shared.SetupLogger(f.LogLevel)
	if err != nil {
		return nil, err
	}
	api, err := client.NewClient(cfg.Server.URL, cfg.Timeout(), logger)
	if err != nil {
		return nil, err
	}

	return &session{
		api:    api,
		cfg:    cfg,
		store:  client.NewSessionStore(cfg.Player.SessionFile),
		logger: logger,
	}, nil
}

// GamesCmd lists tables
type GamesCmd struct {
	ClientFlags `kong:"embed"`
}

func (c *GamesCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	games, err := s.api.ListGames(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(client.RenderGames(games))
	return nil
}

// CreateCmd creates a table
type CreateCmd struct {
	ClientFlags `kong:"embed"`

	Seats          int   `kong:"default='6',help='Number of seats'"`
	SmallBlind     int   `kong:"default='5',help='Small blind amount'"`
	BigBlind       int   `kong:"default='10',help='Big blind amount'"`
	InitialBalance int   `kong:"default='1000',help='Starting balance per seat'"`
	BetTime        int64 `kong:"default='30',help='Advertised seconds per decision'"`
}

func (c *CreateCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	id, err := s.api.CreateGame(context.Background(), server.CreateGameRequest{
		SeatsCount:     c.Seats,
		SmallBlind:     c.SmallBlind,
		BigBlind:       c.BigBlind,
		InitialBalance: c.InitialBalance,
		BetTime:        c.BetTime,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// JoinCmd takes a seat and stores the session token
type JoinCmd struct {
	ClientFlags `kong:"embed"`

	Game       string `kong:"arg,help='Game id'"`
	Seat       int    `kong:"arg,help='Seat index'"`
	Name       string `kong:"short='n',help='Player name (overrides config)'"`
	Appearance *int   `kong:"help='Appearance type (overrides config)'"`
	Ready      bool   `kong:"help='Mark ready immediately'"`
}

func (c *JoinCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}

	name := s.cfg.Player.Name
	if c.Name != "" {
		name = c.Name
	}
	if name == "" {
		return errors.New("player name is required")
	}
	appearance := s.cfg.Player.Appearance
	if c.Appearance != nil {
		appearance = *c.Appearance
	}

	sess, err := s.api.Join(context.Background(), c.Game, server.JoinGameRequest{
		PlayerName:     name,
		ChosenSeat:     c.Seat,
		AppearanceType: appearance,
		Ready:          c.Ready,
	})
	if err != nil {
		return err
	}
	if err := s.store.Put(*sess); err != nil {
		return err
	}
	fmt.Printf("Joined %s at seat %d as %s\n", sess.GameID, sess.Seat, name)
	return nil
}

// ReadyCmd toggles readiness
type ReadyCmd struct {
	ClientFlags `kong:"embed"`

	Game    string `kong:"arg,help='Game id'"`
	Unready bool   `kong:"help='Clear readiness instead'"`
}

func (c *ReadyCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	sess, err := s.store.Get(c.Game)
	if err != nil {
		return err
	}
	return s.api.SetReady(context.Background(), sess, !c.Unready)
}

// ActCmd submits a betting action
type ActCmd struct {
	ClientFlags `kong:"embed"`

	Game   string `kong:"arg,help='Game id'"`
	Action string `kong:"arg,enum='bet,raise,call,check,fold,allin',help='Action to take'"`
	Amount int    `kong:"arg,optional,help='Chips to add for bet or raise'"`
}

func (c *ActCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	sess, err := s.store.Get(c.Game)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := s.api.Act(ctx, sess, c.Action, c.Amount); err != nil {
		return err
	}
	snap, err := s.api.State(ctx, c.Game, sess.Token)
	if err != nil {
		return err
	}
	fmt.Println(client.RenderSnapshot(snap))
	return nil
}

// QuitCmd gives up a seat's session
type QuitCmd struct {
	ClientFlags `kong:"embed"`

	Game string `kong:"arg,help='Game id'"`
}

func (c *QuitCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	sess, err := s.store.Get(c.Game)
	if err != nil {
		return err
	}
	seat, err := s.api.Quit(context.Background(), sess)
	if err != nil {
		return err
	}
	if err := s.store.Delete(c.Game); err != nil {
		return err
	}
	fmt.Printf("Left %s, seat %d keeps playing\n", c.Game, seat)
	return nil
}

// StateCmd prints a table snapshot
type StateCmd struct {
	ClientFlags `kong:"embed"`

	Game   string `kong:"arg,help='Game id'"`
	Public bool   `kong:"help='Ignore any stored session'"`
}

func (c *StateCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}
	snap, err := s.api.State(context.Background(), c.Game, s.token(c.Game, c.Public))
	if err != nil {
		return err
	}
	fmt.Println(client.RenderSnapshot(snap))
	return nil
}

// WatchCmd follows a table's change feed
type WatchCmd struct {
	ClientFlags `kong:"embed"`

	Game   string `kong:"arg,help='Game id'"`
	Public bool   `kong:"help='Ignore any stored session'"`
}

func (c *WatchCmd) Run() error {
	s, err := c.setup()
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(s.logger)
	defer cancel()

	token := s.token(c.Game, c.Public)
	updates := make(chan string, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		send := func(out string) error {
			select {
			case updates <- out:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return s.api.Watch(gctx, c.Game, token, func(snap game.Snapshot) error {
			return send(client.RenderSnapshot(snap) + "\n")
		}, client.WithEvents(func(e game.Event) {
			_ = send(client.RenderEvent(e))
		}))
	})
	g.Go(func() error {
		for out := range updates {
			fmt.Println(out)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// token returns the stored session token for gameID, or empty for the public view
func (s *session) token(gameID string, public bool) string {
	if public {
		return ""
	}
	sess, err := s.store.Get(gameID)
	if err != nil {
		s.logger.Debug("No session, using the public view", "game", gameID, "error", err)
		return ""
	}
	return sess.Token
}
