package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/cervello/embedder"
)

type openAIEmbedder struct {
	options embedder.Options
	client  *openai.Client
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.options.Model),
	}

	if e.options.Dimension > 0 {
		req.Dimensions = e.options.Dimension
	}

	rsp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return rsp.Data[0].Embedding, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.ApiKey) == 0 {
		panic("missing api key for openai embedder")
	}

	if len(options.Model) == 0 {
		options.Model = string(openai.SmallEmbedding3)
	}

	e := &openAIEmbedder{
		options: options,
	}

	config := openai.DefaultConfig(options.ApiKey)
	if len(options.Location) > 0 {
		config.BaseURL = options.Location
	}

	e.client = openai.NewClientWithConfig(config)

	return e
}
