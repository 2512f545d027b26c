package webhook

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

// SlackConfig configures the optional Slack-native transport, grounded on
// the teacher's pkg/slack.ServiceConfig.
type SlackConfig struct {
	Token   string
	Channel string
	Timeout time.Duration
}

// SlackTransport posts the payload as a Slack message, for deployments that
// want native channel delivery instead of a generic bearer-token endpoint.
type SlackTransport struct {
	api     *goslack.Client
	channel string
	timeout time.Duration
}

// NewSlackTransport builds a SlackTransport, or nil if cfg is incomplete
// (mirrors the teacher's nil-safe Service pattern).
func NewSlackTransport(cfg SlackConfig) *SlackTransport {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackTransport{
		api:     goslack.New(cfg.Token),
		channel: cfg.Channel,
		timeout: timeout,
	}
}

// Send implements Transport, formatting payload as a single text message.
// Nil-safe: a nil *SlackTransport is a no-op, matching the teacher's
// fail-open convention for optional notification sinks.
func (t *SlackTransport) Send(ctx context.Context, payload Payload) error {
	if t == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text := fmt.Sprintf("[%s] %s — %s", payload.Urgency, payload.AgentID, payload.Summary)
	if payload.TerminalSnapshot != "" {
		text += "\n```\n" + payload.TerminalSnapshot + "\n```"
	}

	_, _, err := t.api.PostMessageContext(ctx, t.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("webhook: slack chat.postMessage failed: %w", err)
	}
	return nil
}
