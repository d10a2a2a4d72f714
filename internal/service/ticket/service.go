package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/ticketer"
)

var (
	ErrUserRequired = errors.New("user id is required")
)

type Service struct {
	ticketer ticketer.Ticketer
}

// Create opens a ticket. Items without a timestamp are stamped with the
// creation time.
func (s *Service) Create(ctx context.Context, userId string, history []ticketer.PromptItem, reason string, bySystem bool) (ticketer.Ticket, error) {
	if len(strings.TrimSpace(userId)) == 0 {
		return ticketer.Ticket{}, ErrUserRequired
	}

	now := time.Now().UTC()

	items := slices.Clone(history)
	if items == nil {
		items = []ticketer.PromptItem{}
	}

	for i := range items {
		if items[i].Timestamp.IsZero() {
			items[i].Timestamp = now
		}
	}

	t := ticketer.Ticket{
		TicketId:      uuid.New().String(),
		UserId:        userId,
		PromptHistory: items,
		Status:        ticketer.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
		Metadata: ticketer.TicketMetadata{
			LowConfidenceReason: reason,
			CreatedBySystem:     bySystem,
		},
	}

	if err := s.ticketer.Create(ctx, t); err != nil {
		return ticketer.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}

	slog.InfoContext(ctx, "ticket created", "ticket_id", t.TicketId, "user_id", userId, "by_system", bySystem)

	return t, nil
}

func (s *Service) List(ctx context.Context) ([]ticketer.Ticket, error) {
	return s.ticketer.List(ctx)
}

func (s *Service) ListByUser(ctx context.Context, userId string) ([]ticketer.Ticket, error) {
	return s.ticketer.ListByUser(ctx, userId)
}

func (s *Service) Get(ctx context.Context, ticketId string) (ticketer.Ticket, error) {
	return s.ticketer.Get(ctx, ticketId)
}

func New(
	ticketer ticketer.Ticketer,
) *Service {
	return &Service{
		ticketer: ticketer,
	}
}
