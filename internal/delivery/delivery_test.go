package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/store"
	"github.com/cam-watcher/cam/internal/webhook"
)

type stubClassifier struct{ response string }

func (s stubClassifier) Classify(_ context.Context, _, _ string) (string, error) {
	return s.response, nil
}

type stubExtractor struct{ response string }

func (s stubExtractor) Extract(_ context.Context, _, _ string) (string, error) {
	return s.response, nil
}

func newPipeline(t *testing.T, classifierResp, extractorResp string) (*Pipeline, *store.NotificationLog) {
	t.Helper()
	paths := store.NewPaths(t.TempDir())
	dedupStore := store.NewDedupStateStore(paths)
	d, err := dedup.New(dedupStore)
	require.NoError(t, err)
	notifyLog := store.NewNotificationLog(paths)

	p := &Pipeline{
		Deduplicator:  d,
		NotifyLog:     notifyLog,
		Transport:     noopTransport{},
		Classifier:    stubClassifier{response: classifierResp},
		Extractor:     stubExtractor{response: extractorResp},
		AgentAdapters: agents.NewRegistry(),
		Now:           func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}
	return p, notifyLog
}

type noopTransport struct{}

func (noopTransport) Send(_ context.Context, _ webhook.Payload) error { return nil }

type capturingTransport struct{ sent []webhook.Payload }

func (c *capturingTransport) Send(_ context.Context, p webhook.Payload) error {
	c.sent = append(c.sent, p)
	return nil
}

func TestSendSkipsExternalAgents(t *testing.T) {
	p, _ := newPipeline(t, "WAITING", "")
	r := p.Send(context.Background(), model.Event{Kind: model.EventWaitingForInput, AgentID: "ext-123"}, "claude-code")
	assert.Equal(t, Skipped, r.Outcome)
	assert.Equal(t, "external session", r.Reason)
}

func TestSendSkipsLowUrgencyEvents(t *testing.T) {
	p, _ := newPipeline(t, "WAITING", "")
	r := p.Send(context.Background(), model.Event{Kind: model.EventToolUse, AgentID: "cam-A"}, "claude-code")
	assert.Equal(t, Skipped, r.Outcome)
	assert.Equal(t, "low urgency", r.Reason)
}

func TestSendSkipsWhenSnapshotLooksLikeProcessing(t *testing.T) {
	p, _ := newPipeline(t, "WAITING", "")
	r := p.Send(context.Background(), model.Event{
		Kind:     model.EventWaitingForInput,
		AgentID:  "cam-A",
		Snapshot: "Brewing (3s · 120 tokens)",
	}, "claude-code")
	assert.Equal(t, Skipped, r.Outcome)
	assert.Equal(t, "agent processing", r.Reason)
}

func TestSendSucceedsAndExtractsMessage(t *testing.T) {
	extractorResp := `{"has_question":true,"context_complete":true,"message":"Continue?","fingerprint":"continue-confirm","message_type":"confirmation"}`
	p, notifyLog := newPipeline(t, "WAITING", extractorResp)

	r := p.Send(context.Background(), model.Event{
		Kind:     model.EventWaitingForInput,
		AgentID:  "cam-A",
		Snapshot: "some settled terminal content\nasking a question",
	}, "claude-code")
	require.NoError(t, r.Err)
	assert.Equal(t, Sent, r.Outcome)
	_ = notifyLog
}

func TestSendDedupesSecondIdenticalEventWithinWindow(t *testing.T) {
	extractorResp := `{"has_question":true,"context_complete":true,"message":"Continue?","fingerprint":"continue-confirm","message_type":"confirmation"}`
	p, _ := newPipeline(t, "WAITING", extractorResp)

	evt := model.Event{
		Kind:     model.EventWaitingForInput,
		AgentID:  "cam-A",
		Snapshot: "same snapshot content every time",
	}
	first := p.Send(context.Background(), evt, "claude-code")
	require.Equal(t, Sent, first.Outcome)

	second := p.Send(context.Background(), evt, "claude-code")
	assert.Equal(t, Skipped, second.Outcome)
}

func TestSendDeliversEmbeddedErrorInsteadOfSelfSuppressing(t *testing.T) {
	extractorResp := `{"has_question":true,"context_complete":true,"message":"ERROR: permission denied: /etc/shadow","has_error":true,"error_message":"permission denied: /etc/shadow","message_type":"statement"}`
	p, _ := newPipeline(t, "WAITING", extractorResp)
	transport := &capturingTransport{}
	p.Transport = transport

	r := p.Send(context.Background(), model.Event{
		Kind:     model.EventWaitingForInput,
		AgentID:  "cam-A",
		Snapshot: "some settled terminal content\nPermission denied",
	}, "claude-code")
	require.NoError(t, r.Err)
	assert.Equal(t, Sent, r.Outcome)

	require.Len(t, transport.sent, 1, "the embedded error must not be dedup-suppressed by the waiting pass's own record")
	assert.Equal(t, model.EventError, transport.sent[0].EventType)
}

func TestSendHonorsSkipDedup(t *testing.T) {
	extractorResp := `{"has_question":true,"context_complete":true,"message":"Continue?","fingerprint":"continue-confirm","message_type":"confirmation"}`
	p, _ := newPipeline(t, "WAITING", extractorResp)

	evt := model.Event{
		Kind:      model.EventWaitingForInput,
		AgentID:   "cam-A",
		Snapshot:  "same snapshot content every time",
		SkipDedup: true,
	}
	first := p.Send(context.Background(), evt, "claude-code")
	require.Equal(t, Sent, first.Outcome)

	second := p.Send(context.Background(), evt, "claude-code")
	assert.Equal(t, Sent, second.Outcome)
}
