// Package classifier implements the State Classifier (spec.md §4.3): a
// single language-model call that reduces a terminal snapshot to one of a
// small set of coarse states, bounded in cost by the Stability Coordinator.
package classifier

import (
	"context"
	"strings"

	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
)

// TailLineCount is the snapshot truncation spec.md §4.3 specifies.
const TailLineCount = 30

// Caller is the subset of internal/llmclient.Client this package needs,
// kept narrow so tests can supply a stub.
type Caller interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const systemPrompt = `You are classifying the current state of a coding agent's terminal session.
Respond with exactly one word: PROCESSING, WAITING, DECISION, or ERROR.
PROCESSING: the agent is actively working — spinner characters, ellipsis-status words ("Thinking…", "Brewing…"), or a progress bar are visible and no question is posed.
WAITING: the agent has stopped and is waiting for open-ended user input.
DECISION: the agent presents a confirmation prompt or a numbered list of choices awaiting selection.
ERROR: the terminal shows a recognized error-message frame.
Respond with the single word only, nothing else.`

// Result carries the mapped status plus the raw response word, so callers
// can tell Processing and Error apart (both map loosely but the loop treats
// Error as its own event kind per spec.md §4.3).
type Result struct {
	Status model.AgentStatus
	Raw    string
	IsError bool
}

// Classify submits the last TailLineCount lines of snapshot to the
// classifier endpoint and maps its response (spec.md §4.3). Any transport
// failure or timeout yields Status=Unknown; the classifier is never fatal
// to a sweep.
func Classify(ctx context.Context, caller Caller, snapshot string) Result {
	truncated := normalize.TailLines(snapshot, TailLineCount)
	raw, err := caller.Classify(ctx, systemPrompt, truncated)
	if err != nil {
		return Result{Status: model.StatusUnknown}
	}
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch upper {
	case "PROCESSING":
		return Result{Status: model.StatusProcessing, Raw: raw}
	case "WAITING", "DECISION":
		return Result{Status: model.StatusWaitingForInput, Raw: raw}
	case "ERROR":
		return Result{Status: model.StatusRunning, Raw: raw, IsError: true}
	default:
		return Result{Status: model.StatusUnknown, Raw: raw}
	}
}
