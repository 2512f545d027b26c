// Package model holds the plain data types shared across the watcher engine:
// agent registry records, stability state, dedup records, notification events,
// extraction results, and urgency/notification records.
package model

import (
	"strings"
	"time"
)

// AgentStatus is the lifecycle status tracked on an AgentRecord.
type AgentStatus string

// Agent status values.
const (
	StatusProcessing       AgentStatus = "processing"
	StatusWaitingForInput  AgentStatus = "waiting_for_input"
	StatusDecisionRequired AgentStatus = "decision_required"
	StatusRunning          AgentStatus = "running"
	StatusUnknown          AgentStatus = "unknown"
)

// ExternalPrefix marks agent identifiers the system did not start itself.
// External agents are tracked but never notified (spec.md §3, §4.7).
const ExternalPrefix = "ext-"

// IsExternal reports whether agentID belongs to an externally-started agent.
func IsExternal(agentID string) bool {
	return strings.HasPrefix(agentID, ExternalPrefix)
}

// AgentRecord is the registry entry for a monitored agent (spec.md §3).
type AgentRecord struct {
	AgentID           string      `json:"agent_id"`
	AgentType         string      `json:"agent_type"`
	ProjectDir        string      `json:"project_dir"`
	TmuxSession       string      `json:"tmux_session"`
	UpstreamSessionID string      `json:"upstream_session_id,omitempty"`
	LogFilePath       string      `json:"log_file_path,omitempty"`
	JSONLOffset       int64       `json:"jsonl_offset,omitempty"`
	LastOutputDigest  string      `json:"last_output_digest,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	Status            AgentStatus `json:"status"`
}

// IsExternal reports whether this record describes an externally-started agent.
func (a *AgentRecord) IsExternal() bool {
	return IsExternal(a.AgentID)
}

// Registry is the on-disk shape of agents.json: {"agents": [...]}.
type Registry struct {
	Agents []AgentRecord `json:"agents"`
}
