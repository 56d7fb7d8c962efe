package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent identifies the gateway to the feed host.
const DefaultUserAgent = "TrustedLoops-Feed-Fetcher/1.0"

// maxFeedBytes caps how much of the upstream document is read.
const maxFeedBytes = 8 << 20

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch feed: %d", e.StatusCode)
}

// Client downloads the raw feed document.
type Client struct {
	URL       string
	UserAgent string
	HTTP      *http.Client
}

// NewClient returns a Client with a timeout-bounded http.Client.
func NewClient(url, userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		URL:       url,
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Fetch GETs the feed and returns its body. Non-2xx responses yield *StatusError.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}
	return string(b), nil
}
