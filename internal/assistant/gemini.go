package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash-001"

var (
	ErrNotConfigured = errors.New("ai model is not configured")
	// ErrBlocked means the model produced no usable reply, typically
	// because a safety filter stopped it.
	ErrBlocked = errors.New("reply blocked")
)

// Model produces one reply per prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiModel calls the Gemini API with a fixed generation config.
type GeminiModel struct {
	client    *genai.Client
	modelName string
}

func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiModel{client: cl, modelName: modelName}, nil
}

func (g *GeminiModel) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiModel) model() *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.SetMaxOutputTokens(8192)
	m.SetTemperature(1)
	m.SetTopP(0.95)
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	}
	return m
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", ErrBlocked, blocked)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return replyText(resp)
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrBlocked)
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", fmt.Errorf("%w: candidate has no content", ErrBlocked)
	}

	var b strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// Unconfigured is used when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

var (
	_ Model = (*GeminiModel)(nil)
	_ Model = Unconfigured{}
)
