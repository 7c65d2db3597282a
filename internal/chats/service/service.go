package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/chats/domain"
	"github.com/novacode/novacode-backend/internal/chats/repository"
	"github.com/novacode/novacode-backend/internal/logging"
)

const saveAttempts = 3

type Service struct {
	repo repository.Repository
	now  func() time.Time
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Save stores a new transcript under a "{uid}-{projectID}-{millis}" id.
func (s *Service) Save(ctx context.Context, in domain.NewChat) (*domain.Chat, error) {
	in.UID = strings.TrimSpace(in.UID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.UID == "" || in.ProjectID == "" || strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("chats.save", "uid, projectID, and title are required")
	}

	at := s.now()
	for attempt := 0; ; attempt++ {
		c, err := s.repo.Save(ctx, domain.ChatID(in.UID, in.ProjectID, at), in)
		if err == nil {
			return c, nil
		}
		if errors.Is(err, domain.ErrExists) && attempt < saveAttempts-1 {
			at = at.Add(time.Millisecond)
			continue
		}
		if errors.Is(err, domain.ErrExists) {
			return nil, apperr.Conflict("chats.save", "Error saving chat message", err)
		}
		logging.NewLogger(ctx).LogError("chats.save", err)
		return nil, apperr.Upstream("chats.save", "Error saving chat message", err)
	}
}

func (s *Service) Append(ctx context.Context, chatID string, msg domain.Message) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" || domain.EmptyMessage(msg) {
		return apperr.Validation("chats.update", "chatId and newMessage are required")
	}

	err := s.repo.Append(ctx, chatID, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("chats.update", "Chat not found", err)
	default:
		logging.NewLogger(ctx).LogError("chats.update", err)
		return apperr.Upstream("chats.update", "Error updating chat", err)
	}
}

func (s *Service) List(ctx context.Context, uid, projectID string) ([]domain.Chat, error) {
	uid = strings.TrimSpace(uid)
	projectID = strings.TrimSpace(projectID)
	if uid == "" || projectID == "" {
		return nil, apperr.Validation("chats.list", "Both uid and projectID are required")
	}

	items, err := s.repo.List(ctx, uid, projectID)
	if err != nil {
		logging.NewLogger(ctx).LogError("chats.list", err)
		return nil, apperr.Upstream("chats.list", "Failed to retrieve chats", err)
	}
	return items, nil
}
