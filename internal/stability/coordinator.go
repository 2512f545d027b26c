// Package stability implements the Stability & Hook Coordinator (spec.md
// §4.2): the gate that decides whether a settled terminal screen is worth
// the cost of a classifier call.
package stability

import (
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
)

// Thresholds, named exactly as spec.md §4.2 names them.
const (
	StabilityThresholdSeconds = 6
	HookQuietPeriodSeconds    = 30
)

// DenyReason is the logging tag attached when the Coordinator denies.
type DenyReason string

const (
	DenyContentChanged DenyReason = "content_changed"
	DenyAlreadyChecked DenyReason = "already_checked"
	DenyNotSettled     DenyReason = "not_settled"
	DenyHookQuietPeriod DenyReason = "hook_quiet_period"
)

// Decision is the Coordinator's verdict for one agent on one sweep.
type Decision struct {
	Permit bool
	Reason DenyReason
	// Hash is the normalized content hash computed this call; callers
	// update their stability state with it regardless of the verdict.
	Hash uint64
}

// Evaluate runs the five ordered checks of spec.md §4.2 against snapshot
// and returns the Coordinator's decision. state is the agent's current
// stability state as held in memory by the caller; state is read-only here —
// callers apply state transitions themselves (Reset/mark-checked), since
// the Coordinator only advises.
func Evaluate(snapshot string, now int64, state model.StabilityState, hookEventEpoch int64, hookSeen bool) Decision {
	hash := normalize.Hash(normalize.Screen(snapshot))

	if hash != state.Hash {
		return Decision{Permit: false, Reason: DenyContentChanged, Hash: hash}
	}
	if state.AIChecked {
		return Decision{Permit: false, Reason: DenyAlreadyChecked, Hash: hash}
	}
	if state.Age(now) < StabilityThresholdSeconds {
		return Decision{Permit: false, Reason: DenyNotSettled, Hash: hash}
	}
	if hookSeen && now-hookEventEpoch < HookQuietPeriodSeconds {
		return Decision{Permit: false, Reason: DenyHookQuietPeriod, Hash: hash}
	}
	return Decision{Permit: true, Hash: hash}
}
