package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cam-watcher/cam/internal/version"
)

// Transport dispatches a Payload to the configured external endpoint
// (spec.md §6 "Webhook delivery endpoint").
type Transport interface {
	Send(ctx context.Context, payload Payload) error
}

// HTTPConfig configures the generic HTTP transport.
type HTTPConfig struct {
	URL         string
	BearerToken string
	Timeout     time.Duration
}

// HTTPTransport POSTs the payload as JSON with a bearer-token Authorization
// header, matching spec.md §6's "HTTP POST with configured URL, bearer
// token" literally. This is the default transport; Slack is an optional
// alternative for deployments that configure one.
type HTTPTransport struct {
	client *http.Client
	cfg    HTTPConfig
}

// NewHTTPTransport builds an HTTPTransport from cfg.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshaling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())
	if t.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: dispatching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// A persistent 4xx implies a schema mismatch that retrying will not
		// fix (spec.md §7); the caller does not retry automatically.
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
