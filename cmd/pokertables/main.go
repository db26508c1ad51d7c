package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the table server"`
	Games   GamesCmd         `cmd:"" help:"List tables"`
	Create  CreateCmd        `cmd:"" help:"Create a table"`
	Join    JoinCmd          `cmd:"" help:"Take a seat at a table"`
	Ready   ReadyCmd         `cmd:"" help:"Mark your seat ready"`
	Act     ActCmd           `cmd:"" help:"Bet, call, check, fold or go all in"`
	Quit    QuitCmd          `cmd:"" help:"Give up your session at a table"`
	State   StateCmd         `cmd:"" help:"Show a table"`
	Watch   WatchCmd         `cmd:"" help:"Follow a table as it changes"`
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokertables"),
		kong.Description("Multi-table Texas Hold'em server and client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
