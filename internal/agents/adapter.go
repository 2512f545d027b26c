// Package agents implements the per-agent-type adapter table spec.md §4.1
// refers to ("an adapter lookup keyed by agent type") and supplements it
// with the four adapters original_source/src/agent_mod/adapter/*.rs define:
// Claude Code, Codex, OpenCode, and a Generic fallback.
package agents

import "sync"

// SchedulingPolicy controls whether an agent is polled every tick or only
// when its hook timestamps go stale (spec.md §4.1 "Scheduling policy").
type SchedulingPolicy string

// Scheduling policies.
const (
	HookOnly         SchedulingPolicy = "hook_only"
	HookWithPolling  SchedulingPolicy = "hook_with_polling"
	PollingOnly      SchedulingPolicy = "polling_only"
)

// HookInactiveThreshold is the age (seconds) past which a HookOnly agent's
// stale hook timestamp causes the loop to fall back to polling (spec.md
// §4.1: "HOOK_INACTIVE_THRESHOLD (300 s)").
const HookInactiveThreshold = 300

// Adapter describes one agent type's CLI conventions: its prompt glyph (for
// detecting in-progress user input, spec.md §4.4) and its scheduling
// policy. Spinner/animation tokens are shared across all adapters per
// spec.md §4.2's fixed normalization token set, so they live in
// internal/normalize rather than per-adapter.
type Adapter struct {
	Type        string
	PromptGlyph string
	Policy      SchedulingPolicy
}

// ShouldPoll reports whether the loop should poll this tick given the
// agent's last known hook timestamp age in seconds (spec.md §4.1).
func (a Adapter) ShouldPoll(hookAgeSeconds int64, hookSeen bool) bool {
	switch a.Policy {
	case HookOnly:
		return !hookSeen || hookAgeSeconds >= HookInactiveThreshold
	case HookWithPolling, PollingOnly:
		return true
	default:
		return true
	}
}

// Built-in adapters, grounded in original_source's four agent_mod/adapter
// files.
var (
	ClaudeCode = Adapter{Type: "claude-code", PromptGlyph: ">", Policy: HookWithPolling}
	Codex      = Adapter{Type: "codex", PromptGlyph: "▌", Policy: HookWithPolling}
	OpenCode   = Adapter{Type: "opencode", PromptGlyph: "│", Policy: PollingOnly}
	Generic    = Adapter{Type: "generic", PromptGlyph: "$", Policy: PollingOnly}
)

// Registry is a thread-safe lookup table of adapters by agent type,
// matching the shape of the teacher's config.AgentRegistry
// (pkg/config/agent.go).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns a Registry pre-populated with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range []Adapter{ClaudeCode, Codex, OpenCode, Generic} {
		r.adapters[a.Type] = a
	}
	return r
}

// Register adds or replaces an adapter, allowing configuration to extend
// the built-in set.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Type] = a
}

// Get returns the adapter for agentType, falling back to Generic when the
// type is unrecognized.
func (r *Registry) Get(agentType string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[agentType]; ok {
		return a
	}
	return Generic
}
