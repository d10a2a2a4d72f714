package answer

import "context"

const (
	defaultSystemPrompt  = "You are a helpful assistant answering questions from a knowledge base. Use the provided context when it is relevant and say so when the context does not contain the answer."
	defaultSearchLimit   = 5
	defaultHistoryLimit  = 10
	defaultLowConfidence = 0.3
	defaultTicketUser    = "system"
	maxContextSnippets   = 3
)

type Option func(*Options)

type Options struct {
	SystemPrompt  string
	SearchLimit   int
	HistoryLimit  int
	LowConfidence float32
	WriteBack     bool
	TicketUser    string
	Context       context.Context
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
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

// WithLowConfidence sets the best retrieval score below which an answer
// opens a ticket.
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

func WithTicketUser(userId string) Option {
	return func(o *Options) {
		o.TicketUser = userId
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		SystemPrompt:  defaultSystemPrompt,
		SearchLimit:   defaultSearchLimit,
		HistoryLimit:  defaultHistoryLimit,
		LowConfidence: defaultLowConfidence,
		WriteBack:     true,
		TicketUser:    defaultTicketUser,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type AskOption func(*AskOptions)

type AskOptions struct {
	ConversationId  string
	IncludeHistory  bool
	SearchLimit     int
	UserId          string
	FunctionCalling bool
}

func WithConversationId(id string) AskOption {
	return func(o *AskOptions) {
		o.ConversationId = id
	}
}

func WithIncludeHistory(include bool) AskOption {
	return func(o *AskOptions) {
		o.IncludeHistory = include
	}
}

func WithAskSearchLimit(limit int) AskOption {
	return func(o *AskOptions) {
		o.SearchLimit = limit
	}
}

func WithUserId(userId string) AskOption {
	return func(o *AskOptions) {
		o.UserId = userId
	}
}

// WithFunctionCalling lets the model call catalog tools while answering.
// Generators without function calling support ignore it.
func WithFunctionCalling(enabled bool) AskOption {
	return func(o *AskOptions) {
		o.FunctionCalling = enabled
	}
}

func NewAskOptions(opts ...AskOption) AskOptions {
	options := AskOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
