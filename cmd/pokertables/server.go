package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertables/cmd/pokertables/shared"
	"github.com/lox/pokertables/internal/auth"
	"github.com/lox/pokertables/internal/config"
	"github.com/lox/pokertables/internal/evaluator"
	"github.com/lox/pokertables/internal/registry"
	"github.com/lox/pokertables/internal/server"
)

// ServerCmd runs the table server
type ServerCmd struct {
	Config    string `kong:"default='pokertables.hcl',env='POKERTABLES_CONFIG',help='Path to HCL configuration file'"`
	Address   string `kong:"env='POKERTABLES_ADDRESS',help='Listen address (overrides config)'"`
	Port      int    `kong:"env='POKERTABLES_PORT',help='Listen port (overrides config)'"`
	LogLevel  string `kong:"env='POKERTABLES_LOG_LEVEL',help='Log level (overrides config)'"`
	JWTSecret string `kong:"name='jwt-secret',env='POKERTABLES_JWT_SECRET',help='Token signing secret (overrides config)'"`
	TokenTTL  string `kong:"name='token-ttl',env='POKERTABLES_TOKEN_TTL',help='Token lifetime, 0 for no expiry (overrides config)'"`
	Seed      *int64 `kong:"env='POKERTABLES_SEED',help='Deterministic RNG seed (optional)'"`
}

// load merges the config file with flag overrides
func (c *ServerCmd) load() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.JWTSecret != "" {
		cfg.Server.JWTSecret = c.JWTSecret
	}
	if c.TokenTTL != "" {
		cfg.Server.TokenTTL = c.TokenTTL
	}
	if c.Seed != nil {
		cfg.Server.Seed = *c.Seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", c.Config, err)
	}
	return cfg, nil
}

func (c *ServerCmd) Run() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	secret := cfg.Server.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("No jwt_secret configured, using a random one; tokens will not survive a restart")
	}
	ttl, err := cfg.Server.TTL()
	if err != nil {
		return err
	}
	tokens, err := auth.NewIssuer(secret, ttl, nil)
	if err != nil {
		return err
	}

	opts := []registry.Option{
		registry.WithLogger(logger.WithPrefix("registry")),
		registry.WithEvaluator(evaluator.New()),
	}
	if seed := cfg.Server.Seed; seed != 0 {
		logger.Info("Using deterministic seed", "seed", seed)
		opts = append(opts, registry.WithSeed(seed))
	} else {
		seed := time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
		opts = append(opts, registry.WithSeed(seed))
	}
	reg := registry.New(opts...)

	for _, preset := range cfg.Tables {
		gc, err := preset.GameConfig()
		if err != nil {
			return err
		}
		id, err := reg.Create(gc)
		if err != nil {
			return fmt.Errorf("table %s: %w", preset.Name, err)
		}
		logger.Info("Created preset table", "name", preset.Name, "game", id,
			"seats", gc.Capacity, "small_blind", gc.SmallBlind, "big_blind", gc.BigBlind)
	}

	srv := server.New(reg, tokens, server.WithLogger(logger))

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	logger.Info("Starting pokertables server",
		"address", cfg.Server.Addr(),
		"token_ttl", ttl,
		"tables", reg.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Addr())
	})
	return g.Wait()
}
