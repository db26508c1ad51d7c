// Package config loads the server's HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokertables/internal/game"
)

const (
	DefaultAddress  = "localhost"
	DefaultPort     = 8080
	DefaultLogLevel = "info"
	DefaultTokenTTL = 24 * time.Hour
)

// Config is the complete server configuration
type Config struct {
	Server Server  `hcl:"server,block"`
	Tables []Table `hcl:"table,block"`
}

// Server contains server-level settings
type Server struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	JWTSecret string `hcl:"jwt_secret,optional"`
	TokenTTL  string `hcl:"token_ttl,optional"`

	// Seed fixes every shuffle when non-zero
	Seed int64 `hcl:"seed,optional"`
}

// Table is a preset table created at startup
type Table struct {
	Name           string `hcl:"name,label"`
	Seats          int    `hcl:"seats"`
	SmallBlind     int    `hcl:"small_blind"`
	BigBlind       int    `hcl:"big_blind"`
	InitialBalance int    `hcl:"initial_balance,optional"`
	BetTime        string `hcl:"bet_time,optional"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Server: Server{
			Address:  DefaultAddress,
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
			TokenTTL: DefaultTokenTTL.String(),
		},
	}
}

// Load reads filename, returning defaults when it does not exist
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.TokenTTL == "" {
		c.Server.TokenTTL = DefaultTokenTTL.String()
	}

	for i := range c.Tables {
		if c.Tables[i].InitialBalance == 0 {
			c.Tables[i].InitialBalance = c.Tables[i].BigBlind * 100
		}
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}
	if _, err := c.Server.TTL(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("table %s: defined twice", table.Name)
		}
		seen[table.Name] = true

		gc, err := table.GameConfig()
		if err != nil {
			return err
		}
		if err := gc.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
	}
	return nil
}

// Addr returns the listen address
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// TTL parses the token lifetime
func (s Server) TTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(s.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid token_ttl %q: %w", s.TokenTTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("invalid token_ttl %q: must not be negative", s.TokenTTL)
	}
	return ttl, nil
}

// GameConfig converts a preset into table parameters
func (t Table) GameConfig() (game.Config, error) {
	var betTime time.Duration
	if t.BetTime != "" {
		d, err := time.ParseDuration(t.BetTime)
		if err != nil {
			return game.Config{}, fmt.Errorf("table %s: invalid bet_time %q: %w", t.Name, t.BetTime, err)
		}
		betTime = d
	}
	return game.Config{
		Capacity:       t.Seats,
		SmallBlind:     t.SmallBlind,
		BigBlind:       t.BigBlind,
		InitialBalance: t.InitialBalance,
		BetTime:        betTime,
	}, nil
}
