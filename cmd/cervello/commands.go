package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/cervello"
	"github.com/w-h-a/cervello/server"
	httpserver "github.com/w-h-a/cervello/server/http"
)

type ServeCmd struct {
	Address         string        `help:"Address to listen on." default:":8000" env:"CERVELLO_ADDRESS"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"10s" env:"CERVELLO_SHUTDOWN_TIMEOUT"`
	CorsOrigins     []string      `help:"Allowed CORS origins." default:"*" env:"CERVELLO_CORS_ORIGINS"`
	RateLimit       int           `help:"Requests allowed per client per window. Zero disables limiting." default:"0" env:"CERVELLO_RATE_LIMIT"`
	RateWindow      time.Duration `help:"Rate limit window." default:"1m" env:"CERVELLO_RATE_WINDOW"`
	RedisLocation   string        `help:"Redis URL used for rate limiting." default:"redis://localhost:6379/0" env:"CERVELLO_REDIS_LOCATION"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}

	middleware := []func(h http.Handler) http.Handler{
		httpserver.Logger,
		httpserver.CORS(c.CorsOrigins...),
	}

	if c.RateLimit > 0 {
		redisOpts, err := redis.ParseURL(c.RedisLocation)
		if err != nil {
			return fmt.Errorf("parse redis location: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()

		middleware = append(middleware, httpserver.RateLimit(client, c.RateLimit, c.RateWindow))
	}

	srv := httpserver.NewServer(
		server.WithName("cervello"),
		server.WithAddress(c.Address),
		server.WithShutdownTimeout(c.ShutdownTimeout),
		httpserver.WithHandler(app.Handler()),
		httpserver.WithMiddleware(middleware...),
	)

	return srv.Run(ctx)
}

type UpsertCmd struct {
	Text     string            `arg:"" help:"Text to store."`
	Metadata map[string]string `help:"Metadata as key=value pairs." mapsep:","`
}

func (c *UpsertCmd) Run(g *Globals) error {
	metadata := map[string]any{}
	for k, v := range c.Metadata {
		metadata[k] = v
	}

	ctx := context.Background()

	app, err := newApp(ctx, g, false)
	if err != nil {
		return err
	}

	outcome, err := app.Upsert(ctx, c.Text, metadata)
	if err != nil {
		return err
	}

	return printJSON(outcome)
}

type DeleteCmd struct {
	Text  string `arg:"" help:"Text whose nearest record is deleted."`
	Force bool   `help:"Delete the nearest record even below the threshold."`
}

func (c *DeleteCmd) Run(g *Globals) error {
	ctx := context.Background()

	app, err := newApp(ctx, g, false)
	if err != nil {
		return err
	}

	outcome, err := app.Delete(ctx, c.Text, c.Force)
	if err != nil {
		return err
	}

	return printJSON(outcome)
}

type SearchCmd struct {
	Text  string `arg:"" help:"Text to search for."`
	Limit int    `help:"Maximum results." default:"5"`
}

func (c *SearchCmd) Run(g *Globals) error {
	ctx := context.Background()

	app, err := newApp(ctx, g, false)
	if err != nil {
		return err
	}

	records, err := app.Search(ctx, c.Text, c.Limit)
	if err != nil {
		return err
	}

	return printJSON(records)
}

type AskCmd struct {
	Prompt          string `arg:"" help:"Prompt to answer."`
	ConversationId  string `help:"Continue an existing conversation."`
	UserId          string `help:"User owning any ticket the answer opens."`
	FunctionCalling bool   `help:"Let the model call knowledge base tools." default:"true" negatable:""`
}

func (c *AskCmd) Run(g *Globals) error {
	ctx := context.Background()

	app, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}

	ans, err := app.Ask(
		ctx,
		c.Prompt,
		cervello.WithConversationId(c.ConversationId),
		cervello.WithUserId(c.UserId),
		cervello.WithFunctionCalling(c.FunctionCalling),
	)
	if err != nil {
		return err
	}

	return printJSON(ans)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
