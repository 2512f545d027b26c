// Package webhook implements the webhook delivery endpoint spec.md §6
// describes: "HTTP POST with configured URL, bearer token, optional
// default channel/target." Grounded on the teacher's pkg/slack package —
// the nil-safe, fail-open Service shape and the slack-go transport are both
// carried over — generalized to a configurable generic endpoint plus an
// optional Slack transport for deployments that want native channel delivery.
package webhook

import (
	"encoding/json"
	"time"

	"github.com/cam-watcher/cam/internal/model"
)

// Payload is the system-event payload spec.md §6 defines. Both snake_case
// and camelCase field names are emitted for legacy consumers that predate
// the migration the spec calls out, so every field pair is written twice
// via MarshalJSON rather than via struct tags alone.
type Payload struct {
	Type      string
	Version   string
	Urgency   model.Urgency
	EventType model.EventKind
	AgentID   string
	Project   string
	Timestamp time.Time

	Event   map[string]any
	Summary string

	TerminalSnapshot    string
	RiskLevel           string
	ExtractedMessage    string
	QuestionFingerprint string
}

// CurrentVersion is the payload schema version emitted in every payload.
const CurrentVersion = "1"

// NewPayload builds the base payload envelope for evt, to be filled in
// further by the caller (delivery pipeline) before dispatch.
func NewPayload(evt model.Event, urgency model.Urgency, summary string, now time.Time) Payload {
	return Payload{
		Type:      "cam_notification",
		Version:   CurrentVersion,
		Urgency:   urgency,
		EventType: evt.Kind,
		AgentID:   evt.AgentID,
		Project:   evt.Project,
		Timestamp: now,
		Summary:   summary,
		Event:     map[string]any{"kind": string(evt.Kind)},
	}
}

// MarshalJSON emits both snake_case and camelCase field names for the
// consumer fields spec.md §6 calls out ("Both snake_case and camelCase are
// emitted for back-compat with older consumers that predate the
// migration").
func (p Payload) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type":      p.Type,
		"version":   p.Version,
		"urgency":   p.Urgency,
		"project":   p.Project,
		"timestamp": p.Timestamp.Format(time.RFC3339),
		"event":     p.Event,
		"summary":   p.Summary,

		"eventType":  p.EventType,
		"event_type": p.EventType,
		"agentId":    p.AgentID,
		"agent_id":   p.AgentID,
	}
	if p.TerminalSnapshot != "" {
		m["terminalSnapshot"] = p.TerminalSnapshot
		m["terminal_snapshot"] = p.TerminalSnapshot
	}
	if p.RiskLevel != "" {
		m["riskLevel"] = p.RiskLevel
		m["risk_level"] = p.RiskLevel
	}
	if p.ExtractedMessage != "" {
		m["extractedMessage"] = p.ExtractedMessage
		m["extracted_message"] = p.ExtractedMessage
	}
	if p.QuestionFingerprint != "" {
		m["questionFingerprint"] = p.QuestionFingerprint
		m["question_fingerprint"] = p.QuestionFingerprint
	}
	return json.Marshal(m)
}
