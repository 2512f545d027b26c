// Package hookhandler implements the hook callback path spec.md §6
// describes: "An external CLI command invoked by the agent's own lifecycle
// hooks... parses a JSON payload from its argument or stdin, resolves the
// agent via project-directory lookup or an explicit session ID, constructs
// a Notification event, and calls the same Delivery Pipeline as the
// polling path. It also appends to the hook-event tracker file."
//
// Grounded on other_examples' xzbdmw-claude-notifications-go hooks.go for
// the Claude Code payload shape (HookData: transcript_path, session_id,
// cwd, tool_name, hook_event_name) and original_source's
// src/cli/codex_notify.rs for Codex's differently-shaped flat payload
// (type, thread-id, turn-id, cwd) — the two decoders this package
// dispatches between by agent type (spec.md's "codex_notify hook shape"
// supplemented feature).
package hookhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cam-watcher/cam/internal/delivery"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/store"
)

// CaptureLines is the snapshot depth taken at hook time, matching the
// polling path's internal/watcherloop.CaptureLines.
const CaptureLines = 50

// Multiplexer is the subset of internal/tmux.Manager the hook path needs:
// a best-effort snapshot of the agent's pane at the moment the hook fired.
type Multiplexer interface {
	CapturePane(ctx context.Context, sessionName string, lines int) (string, error)
}

// ClaudePayload is Claude Code's native hook JSON shape.
type ClaudePayload struct {
	SessionID      string          `json:"session_id"`
	CWD            string          `json:"cwd"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	HookEventName  string          `json:"hook_event_name,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// CodexPayload is Codex CLI's flat notify-hook shape
// (src/cli/codex_notify.rs): `{"type":"agent-turn-complete","thread-id":
// "...","turn-id":"...","cwd":"..."}`.
type CodexPayload struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread-id"`
	TurnID   string `json:"turn-id"`
	CWD      string `json:"cwd"`
}

// Handler wires the hook path to the shared Delivery Pipeline and the
// hook-event tracker.
type Handler struct {
	Registry    *store.RegistryStore
	HookTracker *store.HookTrackerStore
	Pipeline    *delivery.Pipeline
	Tmux        Multiplexer

	Now func() time.Time

	logger *slog.Logger
}

// New builds a Handler.
func New(registry *store.RegistryStore, hookTracker *store.HookTrackerStore, pipeline *delivery.Pipeline, tmux Multiplexer) *Handler {
	return &Handler{
		Registry:    registry,
		HookTracker: hookTracker,
		Pipeline:    pipeline,
		Tmux:        tmux,
		logger:      slog.With("component", "hookhandler"),
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Handle decodes body per agentType's payload shape, resolves the matching
// registry record, touches the hook-event tracker, builds the
// corresponding Notification event, and calls the Delivery Pipeline.
func (h *Handler) Handle(ctx context.Context, agentType, hookEventName string, body io.Reader) (delivery.Result, error) {
	sessionID, cwd, evt, err := h.decode(agentType, hookEventName, body)
	if err != nil {
		return delivery.Result{}, err
	}

	records, err := h.Registry.Load()
	if err != nil {
		return delivery.Result{}, fmt.Errorf("hookhandler: loading registry: %w", err)
	}
	rec, found := resolveAgent(records, sessionID, cwd)
	if !found {
		h.logger.Debug("no matching agent for hook event", "hook_event", hookEventName, "session_id", sessionID, "cwd", cwd)
		return delivery.Result{Outcome: delivery.Skipped, Reason: "no matching agent"}, nil
	}

	if err := h.HookTracker.Touch(rec.AgentID, h.now().Unix()); err != nil {
		h.logger.Error("failed to touch hook tracker", "agent_id", rec.AgentID, "error", err)
	}

	evt.AgentID = rec.AgentID
	evt.Project = rec.ProjectDir

	if h.Tmux != nil && rec.TmuxSession != "" && evt.Snapshot == "" {
		if snapshot, err := h.Tmux.CapturePane(ctx, rec.TmuxSession, CaptureLines); err == nil {
			evt.Snapshot = snapshot
		} else {
			h.logger.Debug("hook-time pane capture failed", "agent_id", rec.AgentID, "error", err)
		}
	}

	return h.Pipeline.Send(ctx, evt, rec.AgentType), nil
}

// decode parses body into the agent type's native payload shape and
// returns the fields common to every payload plus a partially-built event
// (Kind, Subtype, HasQuestion, Message already set; AgentID/Project/
// Snapshot left for Handle to fill in).
func (h *Handler) decode(agentType, hookEventName string, body io.Reader) (sessionID, cwd string, evt model.Event, err error) {
	if agentType == "codex" {
		var p CodexPayload
		if decodeErr := json.NewDecoder(body).Decode(&p); decodeErr != nil {
			return "", "", model.Event{}, fmt.Errorf("hookhandler: decoding codex payload: %w", decodeErr)
		}
		return p.ThreadID, p.CWD, codexEvent(p), nil
	}

	var p ClaudePayload
	if decodeErr := json.NewDecoder(body).Decode(&p); decodeErr != nil {
		return "", "", model.Event{}, fmt.Errorf("hookhandler: decoding hook payload: %w", decodeErr)
	}
	name := hookEventName
	if name == "" {
		name = p.HookEventName
	}
	return p.SessionID, p.CWD, claudeEvent(name, p), nil
}

// claudeEvent maps a Claude-Code-shaped hook event name to a Notification
// event kind (spec.md §6: "session start/end, notification, permission
// request, stop").
func claudeEvent(hookEventName string, p ClaudePayload) model.Event {
	switch hookEventName {
	case "SessionStart":
		return model.Event{Kind: model.EventSessionStart}
	case "SessionEnd":
		return model.Event{Kind: model.EventSessionEnd}
	case "PreToolUse":
		if isPermissionTool(p.ToolName) {
			return model.Event{Kind: model.EventPermissionReq, ToolName: p.ToolName}
		}
		return model.Event{Kind: model.EventToolUse, ToolName: p.ToolName}
	case "Notification":
		return model.Event{Kind: model.EventNotification, Subtype: model.SubtypeIdlePrompt, Message: p.Message}
	case "Stop", "SubagentStop":
		return model.Event{Kind: model.EventStop, HasQuestion: looksLikeQuestion(p.Message)}
	default:
		return model.Event{Kind: model.EventNotification, Subtype: model.SubtypeIdlePrompt, Message: p.Message}
	}
}

// codexEvent maps Codex's turn-complete notify payload onto the same
// event shape a WaitingForInput observation would take (spec.md's
// supplemented "codex_notify hook shape" feature): a turn completing is
// Codex's analogue of the agent settling into a waiting state.
func codexEvent(p CodexPayload) model.Event {
	if p.Type == "agent-turn-complete" {
		return model.Event{Kind: model.EventWaitingForInput}
	}
	return model.Event{Kind: model.EventNotification, Subtype: model.SubtypeIdlePrompt}
}

// isPermissionTool recognizes the small set of tool names that represent a
// permission/confirmation prompt rather than ordinary tool use.
func isPermissionTool(toolName string) bool {
	switch toolName {
	case "AskUserQuestion", "ExitPlanMode":
		return true
	default:
		return false
	}
}

func looksLikeQuestion(message string) bool {
	trimmed := strings.TrimSpace(message)
	return strings.HasSuffix(trimmed, "?")
}

// resolveAgent finds the registry record matching sessionID (exact,
// preferred) or cwd (longest ProjectDir prefix match), per spec.md §6:
// "resolves the agent via project-directory lookup or an explicit session
// ID."
func resolveAgent(records []model.AgentRecord, sessionID, cwd string) (model.AgentRecord, bool) {
	if sessionID != "" {
		for _, rec := range records {
			if rec.UpstreamSessionID == sessionID {
				return rec, true
			}
		}
	}
	if cwd == "" {
		return model.AgentRecord{}, false
	}
	best := model.AgentRecord{}
	bestLen := -1
	for _, rec := range records {
		if rec.ProjectDir == "" {
			continue
		}
		if cwd == rec.ProjectDir || strings.HasPrefix(cwd, rec.ProjectDir+"/") {
			if len(rec.ProjectDir) > bestLen {
				best = rec
				bestLen = len(rec.ProjectDir)
			}
		}
	}
	return best, bestLen >= 0
}
