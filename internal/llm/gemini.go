package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiModel calls the Gemini API through the genai SDK.
type GeminiModel struct {
	Model    string
	generate generateFunc
}

// NewGeminiModel creates a Gemini API client for apiKey.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiModel{Model: model, generate: client.Models.GenerateContent}, nil
}

// Name implements Model.
func (m *GeminiModel) Name() string { return "gemini" }

// Generate implements Model. System turns become the system instruction;
// assistant turns map to the "model" role.
func (m *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	contents, system := toGeminiContents(req.Messages)

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	res, err := m.generate(ctx, m.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}
	return b.String(), nil
}

func toGeminiContents(turns []domain.ChatTurn) ([]*genai.Content, string) {
	var system []string
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			system = append(system, t.Content)
		case domain.RoleAssistant:
			out = append(out, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			out = append(out, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}
	return out, strings.Join(system, "\n\n")
}
