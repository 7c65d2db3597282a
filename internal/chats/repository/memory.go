package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/novacode/novacode-backend/internal/chats/domain"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	chats map[string]domain.Chat
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{chats: make(map[string]domain.Chat), now: time.Now}
}

// WithClock replaces the timestamp source.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Save(_ context.Context, id string, in domain.NewChat) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[id]; ok {
		return nil, domain.ErrExists
	}
	c := domain.Chat{
		ID:        id,
		UID:       in.UID,
		ProjectID: in.ProjectID,
		Title:     in.Title,
		Messages:  append([]domain.Message{}, in.Messages...),
		Timestamp: r.now().UTC(),
	}
	r.chats[id] = c
	return cloneChat(c), nil
}

func (r *MemoryRepository) Append(_ context.Context, id string, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chats[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Messages = append(c.Messages, msg)
	r.chats[id] = c
	return nil
}

func (r *MemoryRepository) List(_ context.Context, uid, projectID string) ([]domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Chat, 0, 8)
	for _, c := range r.chats {
		if c.UID == uid && c.ProjectID == projectID {
			out = append(out, *cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func cloneChat(c domain.Chat) *domain.Chat {
	c.Messages = append([]domain.Message{}, c.Messages...)
	return &c
}

var _ Repository = (*MemoryRepository)(nil)
