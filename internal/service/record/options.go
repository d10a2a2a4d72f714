package record

import (
	"context"

	"github.com/w-h-a/cervello/embedder"
	"github.com/w-h-a/cervello/storer"
)

const (
	DefaultThreshold float32 = 0.90
)

type Option func(*Options)

type Options struct {
	Storer    storer.Storer
	Embedder  embedder.Embedder
	Threshold float32
	Context   context.Context
}

func WithStorer(s storer.Storer) Option {
	return func(o *Options) {
		o.Storer = s
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

// WithThreshold sets the inclusive similarity at or above which a write
// targets the existing record instead of creating a new one.
func WithThreshold(threshold float32) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Threshold: DefaultThreshold,
		Context:   context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type DeleteOption func(*DeleteOptions)

type DeleteOptions struct {
	Force bool
}

// WithForce deletes the nearest record even when it scores below the threshold.
func WithForce(force bool) DeleteOption {
	return func(o *DeleteOptions) {
		o.Force = force
	}
}

func NewDeleteOptions(opts ...DeleteOption) DeleteOptions {
	options := DeleteOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type StoreOption func(*StoreOptions)

type StoreOptions struct {
	Id string
}

func WithId(id string) StoreOption {
	return func(o *StoreOptions) {
		o.Id = id
	}
}

func NewStoreOptions(opts ...StoreOption) StoreOptions {
	options := StoreOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
