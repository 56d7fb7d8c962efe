package mail

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
)

// Mailer sends a rendered message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// ProviderError reports a non-2xx response from the email provider. Body is
// for server-side logs only.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("resend: unexpected status %d", e.StatusCode)
}

// ResendMailer posts to the Resend HTTP API.
type ResendMailer struct {
	BaseURL string // default https://api.resend.com
	APIKey  string
	HTTP    *http.Client
}

// NewResendMailer returns a ResendMailer with a timeout-bounded client.
func NewResendMailer(baseURL, apiKey string, timeout time.Duration) *ResendMailer {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendMailer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Send implements Mailer.
func (r *ResendMailer) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(resendPayload{
		From:    m.From,
		To:      m.To,
		ReplyTo: m.ReplyTo,
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	hc := r.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		zerolog.Ctx(ctx).Error().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("Resend API error")
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
