package assistant

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novacode/novacode-backend/internal/apperr"
)

type echoModel struct{ prompts []string }

func (m *echoModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return "echo: " + prompt, nil
}

func TestReply(t *testing.T) {
	m := &echoModel{}
	out, err := NewService(m).Reply(context.Background(), "what is main.go?")
	require.NoError(t, err)
	assert.Equal(t, "echo: what is main.go?", out)
	assert.Len(t, m.prompts, 1)
}

func TestReplyRejectsBlank(t *testing.T) {
	m := &echoModel{}
	_, err := NewService(m).Reply(context.Background(), "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, m.prompts)
}

func TestReplyUnconfigured(t *testing.T) {
	_, err := NewService(Unconfigured{}).Reply(context.Background(), "hi")
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGeminiModel(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type blockedModel struct{}

func (blockedModel) Generate(context.Context, string) (string, error) {
	return replyText(&genai.GenerateContentResponse{})
}

func TestReplyBlockedIsNotAnEmptyAnswer(t *testing.T) {
	out, err := NewService(blockedModel{}).Reply(context.Background(), "something unsafe")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "The model declined to answer this request.", apperr.As(err).Message)
}

func TestReplyText(t *testing.T) {
	out, err := replyText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("main "), genai.Text("starts the server")}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "main starts the server", out)

	_, err = replyText(nil)
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = replyText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, ErrBlocked)
}
