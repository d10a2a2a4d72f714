package cervello

import (
	"context"

	"github.com/w-h-a/cervello/internal/service/record"
)

type Option func(*Options)

type Options struct {
	Name          string
	Version       string
	Collection    string
	VectorSize    int
	Threshold     float32
	Window        int
	SearchLimit   int
	HistoryLimit  int
	LowConfidence float32
	WriteBack     bool
	SystemPrompt  string
	Context       context.Context
}

func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

func WithVersion(version string) Option {
	return func(o *Options) {
		o.Version = version
	}
}

// WithCollection and WithVectorSize only describe the index in status
// responses. Configure the storer itself with storer options.
func WithCollection(collection string) Option {
	return func(o *Options) {
		o.Collection = collection
	}
}

func WithVectorSize(size int) Option {
	return func(o *Options) {
		o.VectorSize = size
	}
}

func WithThreshold(threshold float32) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

func WithWindow(window int) Option {
	return func(o *Options) {
		o.Window = window
	}
}

func WithSearchLimit(limit int) Option {
	return func(o *Options) {
		o.SearchLimit = limit
	}
}

func WithHistoryLimit(limit int) Option {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

func WithLowConfidence(score float32) Option {
	return func(o *Options) {
		o.LowConfidence = score
	}
}

func WithWriteBack(enabled bool) Option {
	return func(o *Options) {
		o.WriteBack = enabled
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Name:          "cervello",
		Version:       "dev",
		Threshold:     record.DefaultThreshold,
		Window:        20,
		SearchLimit:   5,
		HistoryLimit:  10,
		LowConfidence: 0.3,
		WriteBack:     true,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
