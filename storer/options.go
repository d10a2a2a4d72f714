package storer

import "context"

type Option func(*Options)

type Options struct {
	Location   string
	ApiKey     string
	Collection string
	VectorSize int
	Distance   string
	Context    context.Context
}

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

func WithDistance(distance string) Option {
	return func(o *Options) {
		o.Distance = distance
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Collection: "my_collection",
		Distance:   "Cosine",
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
