// Package services – ChatService
//
// This file implements ChatService, which turns a visitor's chat message and
// recent history into a single completion call against the configured model.
// The fixed system prompt is always sent first and only the most recent
// history turns are forwarded.
//
// Observability: Reply is OpenTelemetry-instrumented and every model call is
// counted in upstream_requests_total.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/llm"
	"github.com/tbourn/trustedloops-edge/internal/observability"
)

const (
	defaultHistoryWindow = 10
	defaultMaxTokens     = 512
	defaultModelLabel    = "LoopsAI"
)

// ChatService forwards chat requests to an llm.Model.
type ChatService struct {
	// Model is the provider adapter.
	Model llm.Model

	// SystemPrompt is prepended to every request.
	SystemPrompt string
	// ModelLabel is what clients see as "model" regardless of provider.
	ModelLabel string
	// HistoryWindow is how many trailing history turns are forwarded.
	HistoryWindow int
	// MaxTokens caps the generated output.
	MaxTokens int
	// Timeout bounds one model call. Zero means no extra deadline.
	Timeout time.Duration
}

// NewChatService constructs a ChatService with the default window and token cap.
func NewChatService(m llm.Model, systemPrompt string) *ChatService {
	return &ChatService{
		Model:         m,
		SystemPrompt:  systemPrompt,
		ModelLabel:    defaultModelLabel,
		HistoryWindow: defaultHistoryWindow,
		MaxTokens:     defaultMaxTokens,
	}
}

// BuildMessages returns [system] + last window turns of history + [user message].
// A window <= 0 forwards no history.
func BuildMessages(system string, history []domain.ChatTurn, message string, window int) []domain.ChatTurn {
	if window < 0 {
		window = 0
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	out := make([]domain.ChatTurn, 0, len(history)+2)
	out = append(out, domain.ChatTurn{Role: domain.RoleSystem, Content: system})
	out = append(out, history...)
	out = append(out, domain.ChatTurn{Role: domain.RoleUser, Content: message})
	return out
}

// Reply validates message, calls the model and returns the assistant text.
// Provider failures come back as *UpstreamError.
func (s *ChatService) Reply(ctx context.Context, message string, history []domain.ChatTurn) (*domain.ChatReply, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Reply",
		trace.WithAttributes(
			attribute.Int("chat.history_len", len(history)),
			attribute.String("llm.provider", s.Model.Name()),
		),
	)
	defer span.End()

	if err := ValidateChat(message); err != nil {
		return nil, err
	}

	window := s.HistoryWindow
	if window == 0 {
		window = defaultHistoryWindow
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	msgs := BuildMessages(s.SystemPrompt, history, message, window)
	span.SetAttributes(attribute.Int("llm.messages", len(msgs)))

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.Model.Generate(callCtx, llm.Request{Messages: msgs, MaxTokens: maxTokens})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		malformed := errors.Is(err, llm.ErrMalformedResponse)
		observability.ObserveUpstream(UpstreamLLM, outcomeOf(err, malformed), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, &UpstreamError{Upstream: UpstreamLLM, Malformed: malformed, Err: err}
	}
	observability.ObserveUpstream(UpstreamLLM, observability.OutcomeOK, elapsed)

	label := s.ModelLabel
	if label == "" {
		label = defaultModelLabel
	}
	return &domain.ChatReply{Response: text, Model: label}, nil
}

// outcomeOf maps an upstream error to its metrics label.
func outcomeOf(err error, malformed bool) string {
	switch {
	case malformed:
		return observability.OutcomeMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeTimeout
	default:
		return observability.OutcomeError
	}
}
