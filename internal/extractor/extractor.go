// Package extractor implements the ReAct Extractor (spec.md §4.4): an
// iterative context-expansion loop that asks a language model to pull a
// formatted question and a dedup fingerprint out of a terminal snapshot.
// Grounded on internal/agent/controller/react.go's iterate-until-complete
// shape in the teacher repo, generalized from tool-call planning to a
// fixed schedule of snapshot sizes.
package extractor

import (
	"context"
	"encoding/json"

	"github.com/cam-watcher/cam/internal/classifier"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
)

// ContextSchedule is the default line-count schedule spec.md §4.4 names.
var ContextSchedule = []int{80, 150, 300, 500, 800}

// MaxIterations bounds the walk even if ContextSchedule is longer.
const MaxIterations = 5

const systemPrompt = `You are extracting a question a coding agent is asking its user from a terminal snapshot.
Respond with a JSON object with exactly these fields:
  has_question (bool): true if the agent is waiting on user input right now.
  context_complete (bool): true if this snapshot gives you enough context to answer confidently; false to request a larger snapshot.
  message (string): the question, reformatted for a notification, omitting ANSI noise and box-drawing.
  fingerprint (string): a short hyphen-joined English slug that uniquely identifies this semantic question. Identical questions phrased differently must produce the same fingerprint.
  message_type (string): one of "choice", "confirmation", "open_ended", "idle".
  is_decision (bool): true if message_type is "choice" or "confirmation".
  agent_status (string): your best guess at the agent's current status.
  last_action (string, optional): the most recent action the agent took, if apparent.
  has_error (bool, optional): true if the snapshot shows a terminal error.
  error_message (string, optional): the error text, if has_error is true.
Respond with the JSON object only, nothing else.`

// Caller is the subset of internal/llmclient.Client this package needs for
// extraction calls.
type Caller interface {
	Extract(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extract runs the bounded iterative-context-expansion loop against
// snapshot (spec.md §4.4) and returns the outcome. cc is consulted once,
// pre-flight, against the largest scheduled context (spec.md §4.4
// "Pre-flight").
func Extract(ctx context.Context, cc classifier.Caller, caller Caller, snapshot, promptGlyph string) model.ExtractionResult {
	largest := normalize.TailLines(snapshot, ContextSchedule[len(ContextSchedule)-1])
	pre := classifier.Classify(ctx, cc, largest)
	if pre.Status == model.StatusProcessing {
		return model.ExtractionResult{Outcome: model.ExtractionProcessing}
	}

	iterations := MaxIterations
	if len(ContextSchedule) < iterations {
		iterations = len(ContextSchedule)
	}

	for i := 0; i < iterations; i++ {
		truncated := normalize.TailLines(snapshot, ContextSchedule[i])
		truncated = normalize.Screen(truncated)
		truncated = normalize.RewriteInProgressInput(truncated, promptGlyph)

		raw, err := caller.Extract(ctx, systemPrompt, truncated)
		if err != nil {
			continue
		}

		var parsed model.LLMExtraction
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			continue
		}

		if !parsed.ContextComplete {
			continue
		}

		if parsed.HasQuestion {
			if parsed.Message == "" {
				// Protocol invariant violation (spec.md §7): has_question=true
				// with an empty message. Treated as Failed, not Success.
				continue
			}
			return model.ExtractionResult{
				Outcome:         model.ExtractionSuccess,
				Content:         parsed.Message,
				Fingerprint:     parsed.Fingerprint,
				ContextComplete: true,
				MessageType:     parsed.MessageType,
				HasError:        parsed.HasErrorField,
				ErrorMessage:    parsed.ErrorMessage,
			}
		}
		return model.ExtractionResult{
			Outcome:        model.ExtractionIdle,
			MessageType:    model.MessageIdle,
			IdleStatus:     parsed.AgentStatus,
			IdleLastAction: parsed.LastAction,
		}
	}
	return model.ExtractionResult{Outcome: model.ExtractionFailed, Reason: "exhausted context schedule"}
}
