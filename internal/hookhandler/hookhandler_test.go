package hookhandler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/delivery"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/store"
	"github.com/cam-watcher/cam/internal/webhook"
)

type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, _, _ string) (string, error) { return "WAITING", nil }

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _, _ string) (string, error) {
	return `{"has_question":false,"context_complete":true,"agent_status":"processing"}`, nil
}

type noopTransport struct{ sent []webhook.Payload }

func (t *noopTransport) Send(_ context.Context, p webhook.Payload) error {
	t.sent = append(t.sent, p)
	return nil
}

type stubTmux struct{ snapshot string }

func (s stubTmux) CapturePane(_ context.Context, _ string, _ int) (string, error) {
	return s.snapshot, nil
}

func newHandler(t *testing.T, records []model.AgentRecord) (*Handler, *noopTransport) {
	t.Helper()
	paths := store.NewPaths(t.TempDir())
	registry := store.NewRegistryStore(paths)
	require.NoError(t, registry.Save(records))
	hookTracker := store.NewHookTrackerStore(paths)
	dd, err := dedup.New(store.NewDedupStateStore(paths))
	require.NoError(t, err)
	transport := &noopTransport{}

	pipeline := &delivery.Pipeline{
		Deduplicator:  dd,
		NotifyLog:     store.NewNotificationLog(paths),
		Transport:     transport,
		Classifier:    stubClassifier{},
		Extractor:     stubExtractor{},
		AgentAdapters: agents.NewRegistry(),
		Now:           func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}

	h := New(registry, hookTracker, pipeline, stubTmux{snapshot: "waiting for input\n"})
	h.Now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return h, transport
}

func TestHandleResolvesAgentBySessionIDAndTouchesHookTracker(t *testing.T) {
	rec := model.AgentRecord{AgentID: "cam-1", AgentType: "claude-code", UpstreamSessionID: "sess-1", ProjectDir: "/work/proj", TmuxSession: "cam-cam-1"}
	h, transport := newHandler(t, []model.AgentRecord{rec})

	body := strings.NewReader(`{"session_id":"sess-1","cwd":"/work/proj","hook_event_name":"Notification","message":"need your input"}`)
	result, err := h.Handle(context.Background(), "claude-code", "Notification", body)
	require.NoError(t, err)
	assert.Equal(t, delivery.Sent, result.Outcome)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "cam-1", transport.sent[0].AgentID)

	tracker, err := h.HookTracker.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), tracker["cam-1"])
}

func TestHandleResolvesAgentByProjectDirectoryPrefix(t *testing.T) {
	rec := model.AgentRecord{AgentID: "cam-2", AgentType: "claude-code", ProjectDir: "/work/proj", TmuxSession: "cam-cam-2"}
	h, transport := newHandler(t, []model.AgentRecord{rec})

	body := strings.NewReader(`{"session_id":"","cwd":"/work/proj/subdir","hook_event_name":"Notification"}`)
	_, err := h.Handle(context.Background(), "claude-code", "Notification", body)
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "cam-2", transport.sent[0].AgentID)
}

func TestHandleSkipsWhenNoAgentMatches(t *testing.T) {
	h, transport := newHandler(t, nil)
	body := strings.NewReader(`{"session_id":"unknown","cwd":"/nowhere"}`)
	result, err := h.Handle(context.Background(), "claude-code", "Notification", body)
	require.NoError(t, err)
	assert.Equal(t, delivery.Skipped, result.Outcome)
	assert.Equal(t, "no matching agent", result.Reason)
	assert.Empty(t, transport.sent)
}

func TestHandleCodexTurnCompleteMapsToWaitingForInput(t *testing.T) {
	rec := model.AgentRecord{AgentID: "cam-3", AgentType: "codex", ProjectDir: "/work/codex", TmuxSession: "cam-cam-3"}
	h, transport := newHandler(t, []model.AgentRecord{rec})

	body := strings.NewReader(`{"type":"agent-turn-complete","thread-id":"abc","turn-id":"def","cwd":"/work/codex"}`)
	_, err := h.Handle(context.Background(), "codex", "", body)
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, model.EventWaitingForInput, transport.sent[0].EventType)
}

func TestHandlePreToolUseAskUserQuestionMapsToPermissionRequest(t *testing.T) {
	rec := model.AgentRecord{AgentID: "cam-4", AgentType: "claude-code", ProjectDir: "/work/proj4", TmuxSession: "cam-cam-4"}
	h, transport := newHandler(t, []model.AgentRecord{rec})

	body := strings.NewReader(`{"session_id":"","cwd":"/work/proj4","hook_event_name":"PreToolUse","tool_name":"AskUserQuestion"}`)
	_, err := h.Handle(context.Background(), "claude-code", "PreToolUse", body)
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, model.EventPermissionReq, transport.sent[0].EventType)
}
