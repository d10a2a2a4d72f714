package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/w-h-a/cervello/ticketer"
)

type memoryTicketer struct {
	options ticketer.Options
	tickets []ticketer.Ticket
	mtx     sync.RWMutex
}

func (m *memoryTicketer) Create(ctx context.Context, ticket ticketer.Ticket) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ticket.PromptHistory = slices.Clone(ticket.PromptHistory)

	m.tickets = append(m.tickets, ticket)

	return nil
}

func (m *memoryTicketer) List(ctx context.Context) ([]ticketer.Ticket, error) {
	return m.filter(func(ticketer.Ticket) bool { return true }), nil
}

func (m *memoryTicketer) ListByUser(ctx context.Context, userId string) ([]ticketer.Ticket, error) {
	return m.filter(func(t ticketer.Ticket) bool { return t.UserId == userId }), nil
}

func (m *memoryTicketer) Get(ctx context.Context, ticketId string) (ticketer.Ticket, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	for _, t := range m.tickets {
		if t.TicketId == ticketId {
			t.PromptHistory = slices.Clone(t.PromptHistory)
			return t, nil
		}
	}

	return ticketer.Ticket{}, ticketer.ErrNotFound
}

func (m *memoryTicketer) filter(keep func(ticketer.Ticket) bool) []ticketer.Ticket {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	out := []ticketer.Ticket{}

	for _, t := range m.tickets {
		if keep(t) {
			t.PromptHistory = slices.Clone(t.PromptHistory)
			out = append(out, t)
		}
	}

	return out
}

func NewTicketer(opts ...ticketer.Option) ticketer.Ticketer {
	options := ticketer.NewOptions(opts...)

	return &memoryTicketer{
		options: options,
		tickets: []ticketer.Ticket{},
	}
}
