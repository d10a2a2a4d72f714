package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/cervello/internal/config"
)

var version = "dev"

var (
	cli struct {
		Globals

		Serve  ServeCmd  `cmd:"" help:"Run the HTTP API."`
		Upsert UpsertCmd `cmd:"" help:"Insert text, or update the nearest record when it is similar enough."`
		Delete DeleteCmd `cmd:"" help:"Delete the nearest record when it is similar enough."`
		Search SearchCmd `cmd:"" help:"List the records nearest to a text."`
		Ask    AskCmd    `cmd:"" help:"Answer a prompt from the knowledge base."`
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx := kong.Parse(
		&cli,
		kong.Name("cervello"),
		kong.Description("A similarity-gated record store."),
		kong.Configuration(config.YAML, "cervello.yaml", "~/.config/cervello/config.yaml"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
