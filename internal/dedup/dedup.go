// Package dedup implements the Deduplicator (spec.md §4.5): a small
// similarity gate that prevents the same semantic question from producing
// more than an initial Send and a single SendReminder within a window.
// Grounded on the teacher's pkg/slack/fingerprint.go Jaccard-similarity
// dedup approach, generalized from Slack-message fingerprints to
// terminal-extracted question text.
package dedup

import (
	"strings"

	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/store"
)

// WindowSeconds and SimilarityThreshold are the defaults spec.md §4.5
// names.
const (
	WindowSeconds       = 120
	SimilarityThreshold = 0.8
)

// replyHintPrefixes are the recognized prefixes that introduce a reply
// instruction rather than the question itself (spec.md §4.5 step 1).
var replyHintPrefixes = []string{"回复", "Reply", "reply", "y/n", "Y/N"}

// Decision is the Deduplicator's verdict (spec.md §4.5 Contract).
type Decision string

const (
	Send        Decision = "send"
	SendReminder Decision = "send_reminder"
	Suppressed  Decision = "suppressed"
)

// Deduplicator tracks, per agent, the last derived question and when it was
// last sent. State is loaded eagerly at construction and saved synchronously
// after every mutation (spec.md §4.5 "State").
type Deduplicator struct {
	dedupStore *store.DedupStateStore
	state      model.DedupState
	window     int64
	threshold  float64
}

// New constructs a Deduplicator backed by dedupStore, loading its state
// eagerly.
func New(dedupStore *store.DedupStateStore) (*Deduplicator, error) {
	state, err := dedupStore.Load()
	if err != nil {
		return nil, err
	}
	return &Deduplicator{
		dedupStore: dedupStore,
		state:      state,
		window:     WindowSeconds,
		threshold:  SimilarityThreshold,
	}, nil
}

// ShouldSend runs the should_send algorithm (spec.md §4.5) for agentID
// against content at time now (epoch seconds), persisting any state
// mutation synchronously before returning.
func (d *Deduplicator) ShouldSend(agentID, content string, now int64) (Decision, string, error) {
	derived := deriveQuestion(content)
	d.prune(now)

	rec, ok := d.state[agentID]
	if !ok || now-rec.SentEpoch >= d.window {
		d.state[agentID] = model.DedupRecord{Fingerprint: derived, SentEpoch: now}
		if err := d.dedupStore.Save(d.state); err != nil {
			return Suppressed, "", err
		}
		return Send, "", nil
	}

	similarity := jaccard3gram(derived, rec.Fingerprint)
	if similarity >= d.threshold {
		return Suppressed, "similar question within window", nil
	}

	d.state[agentID] = model.DedupRecord{Fingerprint: derived, SentEpoch: now}
	if err := d.dedupStore.Save(d.state); err != nil {
		return Suppressed, "", err
	}
	return Send, "", nil
}

// ClearLock removes agentID's tracked question, called by the loop whenever
// it observes a transition out of WaitingForInput (spec.md §4.5 "Clear on
// resume").
func (d *Deduplicator) ClearLock(agentID string) error {
	delete(d.state, agentID)
	return d.dedupStore.Save(d.state)
}

func (d *Deduplicator) prune(now int64) {
	for id, rec := range d.state {
		if now-rec.SentEpoch >= d.window {
			delete(d.state, id)
		}
	}
}

// deriveQuestion extracts the question body from content: the block
// between the first and second double-newline, with reply-hint lines
// stripped (spec.md §4.5 step 1).
func deriveQuestion(content string) string {
	body := content
	if parts := strings.SplitN(content, "\n\n", 3); len(parts) >= 2 {
		body = parts[1]
	}

	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if hasReplyHint(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func hasReplyHint(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range replyHintPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// jaccard3gram computes Jaccard similarity between a and b over character
// 3-grams.
func jaccard3gram(a, b string) float64 {
	if a == b {
		return 1
	}
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for g := range setA {
		if setB[g] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func trigramSet(s string) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool)
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = true
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}
