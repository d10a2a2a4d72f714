package generator

import "context"

type Option func(*Options)

type Options struct {
	Location     string
	ApiKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Context      context.Context
}

// WithLocation overrides the provider's API base URL.
func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens:   1024,
		Temperature: 0.7,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
