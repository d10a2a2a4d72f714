package ticketer

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("ticket not found")
)

// Ticketer persists support tickets. List results are ordered by creation
// time, oldest first.
type Ticketer interface {
	Create(ctx context.Context, ticket Ticket) error
	List(ctx context.Context) ([]Ticket, error)
	ListByUser(ctx context.Context, userId string) ([]Ticket, error)
	Get(ctx context.Context, ticketId string) (Ticket, error)
}
