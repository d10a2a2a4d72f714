package cervello

import (
	"context"
	"net/http"

	"github.com/w-h-a/cervello/embedder"
	"github.com/w-h-a/cervello/generator"
	"github.com/w-h-a/cervello/internal/handler"
	"github.com/w-h-a/cervello/internal/service/answer"
	"github.com/w-h-a/cervello/internal/service/conversation"
	"github.com/w-h-a/cervello/internal/service/record"
	"github.com/w-h-a/cervello/internal/service/ticket"
	"github.com/w-h-a/cervello/storer"
	"github.com/w-h-a/cervello/ticketer"
	ticketmemory "github.com/w-h-a/cervello/ticketer/memory"
	recordtools "github.com/w-h-a/cervello/tool_handler/record"
)

type (
	Record       = storer.Record
	Outcome      = record.Outcome
	Answer       = answer.Answer
	AskOption    = answer.AskOption
	Conversation = conversation.Conversation
	Ticket       = ticketer.Ticket
	PromptItem   = ticketer.PromptItem
)

var (
	ErrEmptyText            = record.ErrEmptyText
	ErrEmbeddingFailure     = record.ErrEmbeddingFailure
	ErrStoreUnavailable     = record.ErrStoreUnavailable
	ErrNotFound             = record.ErrNotFound
	ErrEmptyPrompt          = answer.ErrEmptyPrompt
	ErrUnknownTool          = answer.ErrUnknownTool
	ErrNoGenerator          = answer.ErrNoGenerator
	ErrConversationNotFound = conversation.ErrConversationNotFound
	ErrTicketNotFound       = ticketer.ErrNotFound
)

var (
	WithConversationId  = answer.WithConversationId
	WithIncludeHistory  = answer.WithIncludeHistory
	WithAskSearchLimit  = answer.WithAskSearchLimit
	WithUserId          = answer.WithUserId
	WithFunctionCalling = answer.WithFunctionCalling
)

type Cervello struct {
	records       *record.Service
	answers       *answer.Service
	conversations *conversation.Service
	tickets       *ticket.Service
	options       Options
}

func (c *Cervello) Threshold() float32 {
	return c.records.Threshold()
}

// Upsert writes text, updating the nearest record in place when it is
// similar enough.
func (c *Cervello) Upsert(ctx context.Context, text string, metadata map[string]any) (Outcome, error) {
	return c.records.Upsert(ctx, text, metadata)
}

// Delete removes the nearest record when it is similar enough, or
// unconditionally when force is set.
func (c *Cervello) Delete(ctx context.Context, text string, force bool) (Outcome, error) {
	return c.records.Delete(ctx, text, record.WithForce(force))
}

func (c *Cervello) Search(ctx context.Context, text string, limit int) ([]Record, error) {
	return c.records.Search(ctx, text, limit)
}

func (c *Cervello) Store(ctx context.Context, text string, metadata map[string]any, id string) (string, error) {
	return c.records.Store(ctx, text, metadata, record.WithId(id))
}

func (c *Cervello) DeleteById(ctx context.Context, id string) error {
	return c.records.DeleteById(ctx, id)
}

func (c *Cervello) Count(ctx context.Context) (int, error) {
	return c.records.Count(ctx)
}

func (c *Cervello) Ask(ctx context.Context, prompt string, opts ...AskOption) (Answer, error) {
	return c.answers.Ask(ctx, prompt, opts...)
}

func (c *Cervello) GetConversation(ctx context.Context, id string) (Conversation, error) {
	return c.conversations.Get(ctx, id)
}

func (c *Cervello) DeleteConversation(ctx context.Context, id string) error {
	return c.conversations.Delete(ctx, id)
}

func (c *Cervello) CreateTicket(ctx context.Context, userId string, history []PromptItem, reason string) (Ticket, error) {
	return c.tickets.Create(ctx, userId, history, reason, false)
}

func (c *Cervello) ListTickets(ctx context.Context) ([]Ticket, error) {
	return c.tickets.List(ctx)
}

// Handler returns the HTTP API over this instance.
func (c *Cervello) Handler() http.Handler {
	return handler.New(
		c.records,
		c.answers,
		c.conversations,
		c.tickets,
		handler.WithName(c.options.Name),
		handler.WithVersion(c.options.Version),
		handler.WithCollection(c.options.Collection),
		handler.WithVectorSize(c.options.VectorSize),
	).Router()
}

// New wires the services. A nil ticketer falls back to the in-memory one.
func New(
	st storer.Storer,
	emb embedder.Embedder,
	gen generator.Generator,
	tk ticketer.Ticketer,
	opts ...Option,
) *Cervello {
	options := NewOptions(opts...)

	records := record.New(
		record.WithStorer(st),
		record.WithEmbedder(emb),
		record.WithThreshold(options.Threshold),
	)

	conversations := conversation.New(options.Window)

	if tk == nil {
		tk = ticketmemory.NewTicketer()
	}

	tickets := ticket.New(tk)

	answers := answer.New(
		records,
		gen,
		conversations,
		tickets,
		recordtools.NewToolHandlers(
			recordtools.WithRecords(records),
			recordtools.WithDefaultSearchLimit(options.SearchLimit),
		),
		answer.WithSystemPrompt(options.SystemPrompt),
		answer.WithSearchLimit(options.SearchLimit),
		answer.WithHistoryLimit(options.HistoryLimit),
		answer.WithLowConfidence(options.LowConfidence),
		answer.WithWriteBack(options.WriteBack),
	)

	return &Cervello{
		records:       records,
		answers:       answers,
		conversations: conversations,
		tickets:       tickets,
		options:       options,
	}
}
