package model

// MessageType classifies the kind of question extracted from a terminal
// snapshot (spec.md §3, §4.4).
type MessageType string

// Message types.
const (
	MessageChoice       MessageType = "choice"
	MessageConfirmation MessageType = "confirmation"
	MessageOpenEnded    MessageType = "open_ended"
	MessageIdle         MessageType = "idle"
)

// ExtractionOutcome discriminates the ExtractionResult tagged union
// (spec.md §3, §4.4).
type ExtractionOutcome string

// Extraction outcomes.
const (
	ExtractionSuccess         ExtractionOutcome = "success"
	ExtractionNeedMoreContext ExtractionOutcome = "need_more_context"
	ExtractionProcessing      ExtractionOutcome = "processing"
	ExtractionIdle            ExtractionOutcome = "idle"
	ExtractionFailed          ExtractionOutcome = "failed"
)

// ExtractionResult is the outcome of one internal/extractor.Extract call.
type ExtractionResult struct {
	Outcome ExtractionOutcome

	// Success fields.
	Content         string
	Fingerprint     string
	ContextComplete bool
	MessageType     MessageType

	// Idle sub-fields (MessageType == MessageIdle).
	IdleStatus     string
	IdleLastAction string

	// Failed fields.
	Reason string

	// Embedded error detection (spec.md §4.7 step 7: content begins "ERROR: ").
	HasError     bool
	ErrorMessage string
}

// LLMExtraction is the JSON shape returned by the extractor's LM call
// (spec.md §4.4).
type LLMExtraction struct {
	HasQuestion     bool        `json:"has_question"`
	ContextComplete bool        `json:"context_complete"`
	Message         string      `json:"message"`
	Fingerprint     string      `json:"fingerprint"`
	MessageType     MessageType `json:"message_type"`
	IsDecision      bool        `json:"is_decision"`
	AgentStatus     string      `json:"agent_status"`
	LastAction      string      `json:"last_action,omitempty"`
	HasErrorField   bool        `json:"has_error,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
}
