package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/logging"
)

const replyTimeout = 90 * time.Second

// Service forwards chat prompts to the model. Each prompt is independent;
// the client resends context it wants the model to see.
type Service struct {
	model Model
}

func NewService(model Model) *Service {
	return &Service{model: model}
}

func (s *Service) Reply(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.Validation("assistant.reply", "Message is required")
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	start := time.Now()
	out, err := s.model.Generate(ctx, message)
	if errors.Is(err, ErrBlocked) {
		logging.NewLogger(ctx).LogWarnf("assistant.reply", "no reply: %v", err)
		return "", apperr.Upstream("assistant.reply", "The model declined to answer this request.", err)
	}
	if err != nil {
		logging.NewLogger(ctx).LogError("assistant.reply", err)
		return "", apperr.Upstream("assistant.reply", "Error processing request", err)
	}
	logging.NewLogger(ctx).LogInfof("assistant.reply", "reply of %d chars in %s", len(out), time.Since(start))
	return out, nil
}
