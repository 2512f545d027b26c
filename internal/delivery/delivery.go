// Package delivery implements the Delivery Pipeline (spec.md §4.7): the
// single chokepoint every notification-worthy event passes through before
// reaching the on-disk log and the webhook client.
package delivery

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/classifier"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/extractor"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
	"github.com/cam-watcher/cam/internal/store"
	"github.com/cam-watcher/cam/internal/urgency"
	"github.com/cam-watcher/cam/internal/webhook"
)

// DedupKeyLineCount and SnapshotAttachmentLineCount are the truncation
// constants spec.md §4.7 names for dedup-key derivation and outbound
// payload attachment respectively.
const (
	DedupKeyLineCount           = 30
	SnapshotAttachmentLineCount = 15
)

// processingPattern is the belt-and-suspenders regex guard of step 2: a
// quick textual check for the spinner/animation tokens the Coordinator
// already normalizes away (all but the generic "tokens" counter), in case
// the hook path bypassed it.
var processingPattern = regexp.MustCompile(`Flowing|Brewing|Thinking|Running…`)

// Outcome discriminates the send() result (spec.md §4.7 Contract).
type Outcome string

const (
	Sent    Outcome = "sent"
	Skipped Outcome = "skipped"
)

// Result is the tagged Outcome/reason pair the pipeline returns.
type Result struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// Pipeline wires together every collaborator the algorithm in spec.md §4.7
// invokes.
type Pipeline struct {
	Deduplicator   *dedup.Deduplicator
	NotifyLog      *store.NotificationLog
	Transport      webhook.Transport
	Classifier     classifier.Caller
	Extractor      extractor.Caller
	AgentAdapters  *agents.Registry
	Now            func() time.Time
}

// Send runs the nine-step algorithm of spec.md §4.7 against evt.
func (p *Pipeline) Send(ctx context.Context, evt model.Event, adapterType string) Result {
	// Step 1: external agents cannot be replied-to remotely.
	if model.IsExternal(evt.AgentID) {
		return Result{Outcome: Skipped, Reason: "external session"}
	}

	// Step 2: belt-and-suspenders processing guard.
	if evt.Snapshot != "" && processingPattern.MatchString(evt.Snapshot) {
		return Result{Outcome: Skipped, Reason: "agent processing"}
	}

	// Step 3: urgency routing; Low is dropped.
	u := urgency.Route(evt.Kind, urgency.Context{
		NotificationSubtype: evt.Subtype,
		StopHasQuestion:     evt.HasQuestion,
	})
	if urgency.IsLow(u) {
		return Result{Outcome: Skipped, Reason: "low urgency"}
	}

	// Step 4: dedup key derivation.
	dedupContent := p.dedupKey(evt)

	// Step 5: dedup consultation.
	now := p.now()
	if !evt.SkipDedup && p.Deduplicator != nil {
		decision, reason, err := p.Deduplicator.ShouldSend(evt.AgentID, dedupContent, now.Unix())
		if err != nil {
			return Result{Outcome: Skipped, Reason: "dedup error", Err: err}
		}
		if decision == dedup.Suppressed {
			return Result{Outcome: Skipped, Reason: "duplicate: " + reason}
		}
	}

	// Step 6: build the payload envelope.
	payload := webhook.NewPayload(evt, u, p.summary(evt), now)
	if evt.Snapshot != "" {
		payload.TerminalSnapshot = normalize.TailLines(evt.Snapshot, SnapshotAttachmentLineCount)
	}

	// Step 7: ReAct extraction for WaitingForInput / PermissionRequest with
	// a snapshot.
	if evt.Snapshot != "" && (evt.Kind == model.EventWaitingForInput || evt.Kind == model.EventPermissionReq) {
		promptGlyph := p.AgentAdapters.Get(adapterType).PromptGlyph
		result := extractor.Extract(ctx, p.Classifier, p.Extractor, evt.Snapshot, promptGlyph)
		if result.Outcome == model.ExtractionSuccess {
			payload.ExtractedMessage = result.Content
			payload.QuestionFingerprint = result.Fingerprint

			if result.HasError || looksLikeTerminalError(result.Content) {
				errEvt := evt
				errEvt.Kind = model.EventError
				errEvt.Message = result.ErrorMessage
				if errEvt.Message == "" {
					errEvt.Message = result.Content
				}
				// The waiting pass already recorded this snapshot's dedup
				// content at `now` in step 5; re-running ShouldSend against
				// the identical content would find that record and suppress
				// the error itself. The error must always reach the user.
				errEvt.SkipDedup = true
				return p.Send(ctx, errEvt, adapterType)
			}
		}
	}

	// Step 8: append before dispatch, for crash-consistency.
	rec := model.NotificationRecord{
		Timestamp: now,
		AgentID:   evt.AgentID,
		Urgency:   u,
		EventKind: evt.Kind,
		Summary:   payload.Summary,
		Project:   evt.Project,
		Snapshot:  payload.TerminalSnapshot,
	}
	if p.NotifyLog != nil {
		if _, err := p.NotifyLog.Append(rec); err != nil {
			return Result{Outcome: Skipped, Reason: "notification log append failed", Err: err}
		}
	}

	// Step 9: dispatch.
	if p.Transport != nil {
		if err := p.Transport.Send(ctx, payload); err != nil {
			return Result{Outcome: Skipped, Reason: "webhook dispatch failed", Err: err}
		}
	}
	return Result{Outcome: Sent}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) summary(evt model.Event) string {
	if evt.Message != "" {
		return evt.Message
	}
	return string(evt.Kind)
}

// dedupKey implements step 4's fallback chain.
func (p *Pipeline) dedupKey(evt model.Event) string {
	if evt.DedupKey != "" {
		return evt.DedupKey
	}
	if evt.Snapshot != "" {
		return normalize.TailLines(evt.Snapshot, DedupKeyLineCount)
	}
	return strconv.FormatUint(normalize.Hash(string(evt.Kind)+"|"+evt.Message), 10)
}

// looksLikeTerminalError detects the embedded-error convention spec.md §4.7
// step 7 names: content beginning "ERROR: ".
func looksLikeTerminalError(content string) bool {
	return len(content) >= len("ERROR: ") && content[:len("ERROR: ")] == "ERROR: "
}
