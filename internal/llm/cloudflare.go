package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// CloudflareModel calls Workers AI over its REST API.
type CloudflareModel struct {
	BaseURL   string // e.g. https://api.cloudflare.com/client/v4
	AccountID string
	APIToken  string
	Model     string // e.g. @cf/meta/llama-3.1-8b-instruct
	HTTP      *http.Client
}

// NewCloudflareModel returns a CloudflareModel with a timeout-bounded client.
func NewCloudflareModel(baseURL, accountID, token, model string, timeout time.Duration) *CloudflareModel {
	return &CloudflareModel{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AccountID: accountID,
		APIToken:  token,
		Model:     model,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Name implements Model.
func (m *CloudflareModel) Name() string { return "cloudflare" }

type cfRequest struct {
	Messages  []domain.ChatTurn `json:"messages"`
	MaxTokens int               `json:"max_tokens,omitempty"`
}

type cfResponse struct {
	Success bool `json:"success"`
	Result  *struct {
		Response *string `json:"response"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
}

// Generate implements Model.
func (m *CloudflareModel) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(cfRequest{Messages: req.Messages, MaxTokens: req.MaxTokens})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", m.BaseURL, m.AccountID, m.Model)

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Authorization", "Bearer "+m.APIToken)
	hreq.Header.Set("Content-Type", "application/json")

	hc := m.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(hreq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("cloudflare: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zerolog.Ctx(ctx).Error().
			Str("model", m.Model).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Workers AI error")
		return "", &StatusError{Provider: m.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out cfResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !out.Success {
		zerolog.Ctx(ctx).Error().Str("model", m.Model).Str("body", string(body)).Msg("Workers AI reported failure")
		if len(out.Errors) > 0 {
			return "", fmt.Errorf("%w: %s", ErrMalformedResponse, out.Errors[0].Message)
		}
		return "", fmt.Errorf("%w: success=false", ErrMalformedResponse)
	}
	if out.Result == nil || out.Result.Response == nil {
		return "", fmt.Errorf("%w: missing result.response", ErrMalformedResponse)
	}
	return *out.Result.Response, nil
}
