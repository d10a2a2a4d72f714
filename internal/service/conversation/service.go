package conversation

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWindow = 20
)

// Service holds conversations in process memory. Each conversation keeps at
// most window turns; older turns are dropped as new ones arrive.
type Service struct {
	conversations map[string]*Conversation
	window        int
	mtx           sync.RWMutex
}

// AddTurn appends a turn, creating the conversation when needed. An empty id
// starts a new conversation; the id used is returned.
func (s *Service) AddTurn(ctx context.Context, id string, role string, content string) string {
	id = strings.TrimSpace(id)
	if len(id) == 0 {
		id = uuid.New().String()
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		conv = &Conversation{Id: id, Turns: []Turn{}}
		s.conversations[id] = conv
	}

	conv.Turns = append(conv.Turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})

	if len(conv.Turns) > s.window {
		conv.Turns = slices.Clone(conv.Turns[len(conv.Turns)-s.window:])
	}

	return id
}

// History returns the most recent turns, oldest first. A limit below one
// returns the whole window. An unknown id has no history.
func (s *Service) History(ctx context.Context, id string, limit int) []Turn {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return []Turn{}
	}

	turns := conv.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	return slices.Clone(turns)
}

func (s *Service) Get(ctx context.Context, id string) (Conversation, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}

	return Conversation{Id: conv.Id, Turns: slices.Clone(conv.Turns)}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrConversationNotFound
	}

	delete(s.conversations, id)

	return nil
}

func (s *Service) ListIds(ctx context.Context) []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func New(window int) *Service {
	if window <= 0 {
		window = defaultWindow
	}

	return &Service{
		conversations: map[string]*Conversation{},
		window:        window,
		mtx:           sync.RWMutex{},
	}
}
