package handler

import "context"

type Option func(*Options)

type Options struct {
	Name       string
	Version    string
	Collection string
	VectorSize int
	Context    context.Context
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

func NewOptions(opts ...Option) Options {
	options := Options{
		Name:    "cervello",
		Version: "dev",
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
