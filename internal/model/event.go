package model

// EventKind discriminates the NotificationEvent tagged union (spec.md §3, §9
// "Tagged variants over inheritance").
type EventKind string

// Event kinds.
const (
	EventWaitingForInput  EventKind = "waiting_for_input"
	EventPermissionReq    EventKind = "permission_request"
	EventNotification     EventKind = "notification"
	EventError            EventKind = "error"
	EventAgentExited      EventKind = "agent_exited"
	EventAgentResumed     EventKind = "agent_resumed"
	EventStop             EventKind = "stop"
	EventSessionStart     EventKind = "session_start"
	EventSessionEnd       EventKind = "session_end"
	EventToolUse          EventKind = "tool_use"
)

// Notification subtypes (spec.md §4.6).
const (
	SubtypePermissionPrompt = "permission_prompt"
	SubtypeIdlePrompt       = "idle_prompt"
)

// Event is the single envelope type for every NotificationEvent variant.
// Every event carries the common fields; variant-specific fields are zero
// unless Kind selects them. Components pattern-match on Kind rather than
// performing a dynamic dispatch, per spec.md §9.
type Event struct {
	Kind EventKind `json:"kind"`

	AgentID  string `json:"agent_id"`
	Project  string `json:"project,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`

	// DedupKey, when set by the caller, overrides the derived dedup key
	// (spec.md §4.7 step 4).
	DedupKey string `json:"dedup_key,omitempty"`
	// SkipDedup bypasses the Deduplicator entirely (spec.md §4.7 step 5).
	SkipDedup bool `json:"skip_dedup,omitempty"`

	// WaitingForInput fields.
	PatternHint       string `json:"pattern_hint,omitempty"`
	DecisionRequired  bool   `json:"decision_required,omitempty"`

	// PermissionRequest fields.
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// Notification fields.
	Subtype string `json:"subtype,omitempty"`
	Message string `json:"message,omitempty"`

	// Error fields reuse Message.

	// Stop fields.
	HasQuestion bool `json:"has_question,omitempty"`
}
