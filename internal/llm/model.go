// Package llm adapts chat-completion providers behind a single Model
// interface. Providers receive the full ordered message list (system turn
// first) and return the assistant's text.
package llm

import (
	"context"
	"errors"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// ErrMalformedResponse is returned when the provider answered successfully at
// the transport level but the payload lacks the generated text.
var ErrMalformedResponse = errors.New("llm: malformed provider response")

// Request is one completion call.
type Request struct {
	Messages  []domain.ChatTurn
	MaxTokens int
}

// Model generates an assistant reply.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}
