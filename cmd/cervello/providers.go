package main

import (
	"context"
	"fmt"

	"github.com/w-h-a/cervello"
	"github.com/w-h-a/cervello/embedder"
	googleembedder "github.com/w-h-a/cervello/embedder/google"
	"github.com/w-h-a/cervello/embedder/hashing"
	openaiembedder "github.com/w-h-a/cervello/embedder/openai"
	"github.com/w-h-a/cervello/generator"
	anthropicgenerator "github.com/w-h-a/cervello/generator/anthropic"
	googlegenerator "github.com/w-h-a/cervello/generator/google"
	openaigenerator "github.com/w-h-a/cervello/generator/openai"
	"github.com/w-h-a/cervello/storer"
	memorystorer "github.com/w-h-a/cervello/storer/memory"
	"github.com/w-h-a/cervello/storer/postgres"
	"github.com/w-h-a/cervello/storer/qdrant"
	redisstorer "github.com/w-h-a/cervello/storer/redis"
	"github.com/w-h-a/cervello/storer/sqlite"
	"github.com/w-h-a/cervello/ticketer"
	memoryticketer "github.com/w-h-a/cervello/ticketer/memory"
	"github.com/w-h-a/cervello/ticketer/mongo"
)

func newStorer(g *Globals) storer.Storer {
	opts := []storer.Option{
		storer.WithLocation(g.IndexLocation),
		storer.WithApiKey(g.IndexApiKey),
		storer.WithCollection(g.Collection),
		storer.WithVectorSize(g.VectorSize),
	}

	switch g.IndexProvider {
	case "qdrant":
		return qdrant.NewStorer(opts...)
	case "postgres":
		return postgres.NewStorer(opts...)
	case "sqlite":
		return sqlite.NewStorer(opts...)
	case "redis":
		return redisstorer.NewStorer(opts...)
	default:
		return memorystorer.NewStorer(opts...)
	}
}

// newEmbedder builds the embedder for the index's vector size. Google models
// have a fixed output size, so it is checked once against the index here.
func newEmbedder(ctx context.Context, g *Globals) (embedder.Embedder, error) {
	opts := []embedder.Option{
		embedder.WithApiKey(g.EmbedderApiKey),
		embedder.WithDimension(g.VectorSize),
	}

	if len(g.EmbedderModel) > 0 {
		opts = append(opts, embedder.WithModel(g.EmbedderModel))
	}

	switch g.EmbedderProvider {
	case "openai":
		return openaiembedder.NewEmbedder(opts...), nil
	case "google":
		emb := googleembedder.NewEmbedder(opts...)
		if err := checkDimension(ctx, g.EmbedderProvider, emb, g.VectorSize); err != nil {
			return nil, err
		}
		return emb, nil
	default:
		return hashing.NewEmbedder(opts...), nil
	}
}

func checkDimension(ctx context.Context, provider string, emb embedder.Embedder, size int) error {
	vector, err := emb.Embed(ctx, "dimension check")
	if err != nil {
		return fmt.Errorf("%s embedder: %w", provider, err)
	}

	if len(vector) != size {
		return fmt.Errorf("%s embedder produces %d-dimensional vectors but the index expects %d: set --vector-size=%d", provider, len(vector), size, len(vector))
	}

	return nil
}

func newGenerator(g *Globals) generator.Generator {
	opts := []generator.Option{
		generator.WithApiKey(g.GeneratorApiKey),
		generator.WithMaxTokens(g.MaxTokens),
		generator.WithTemperature(g.Temperature),
	}

	if len(g.GeneratorModel) > 0 {
		opts = append(opts, generator.WithModel(g.GeneratorModel))
	}

	switch g.GeneratorProvider {
	case "anthropic":
		return anthropicgenerator.NewGenerator(opts...)
	case "google":
		return googlegenerator.NewGenerator(opts...)
	default:
		return openaigenerator.NewGenerator(opts...)
	}
}

func newTicketer(g *Globals) ticketer.Ticketer {
	switch g.TicketProvider {
	case "mongo":
		return mongo.NewTicketer(
			ticketer.WithLocation(g.TicketLocation),
			ticketer.WithDatabase(g.TicketDatabase),
		)
	default:
		return memoryticketer.NewTicketer()
	}
}

// newApp wires the providers. The generator is only built when answers
// are needed so record commands run without generator credentials.
func newApp(ctx context.Context, g *Globals, withGenerator bool) (*cervello.Cervello, error) {
	emb, err := newEmbedder(ctx, g)
	if err != nil {
		return nil, err
	}

	var gen generator.Generator
	if withGenerator {
		gen = newGenerator(g)
	}

	return cervello.New(
		newStorer(g),
		emb,
		gen,
		newTicketer(g),
		cervello.WithVersion(version),
		cervello.WithCollection(g.Collection),
		cervello.WithVectorSize(g.VectorSize),
		cervello.WithThreshold(g.Threshold),
		cervello.WithWindow(g.Window),
		cervello.WithSearchLimit(g.SearchLimit),
		cervello.WithHistoryLimit(g.HistoryLimit),
		cervello.WithLowConfidence(g.LowConfidence),
		cervello.WithWriteBack(g.WriteBack),
		cervello.WithSystemPrompt(g.SystemPrompt),
	), nil
}
