// Package watcherloop implements the Watcher Loop (spec.md §4.1, §5): the
// single goroutine that sweeps the agent registry once per tick, wiring
// together every other collaborator in this module. Grounded on the
// teacher's pkg/queue/worker.go: the same stopCh/sync.Once/sync.WaitGroup
// shutdown dance, with a run loop that selects on stop, ctx.Done and a
// ticker — generalized from claiming one DB-backed session at a time to
// sweeping every registered agent each tick.
package watcherloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cam-watcher/cam/internal/agents"
	"github.com/cam-watcher/cam/internal/classifier"
	"github.com/cam-watcher/cam/internal/dedup"
	"github.com/cam-watcher/cam/internal/delivery"
	"github.com/cam-watcher/cam/internal/jsonllog"
	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
	"github.com/cam-watcher/cam/internal/stability"
	"github.com/cam-watcher/cam/internal/store"
)

// CaptureLines is the terminal snapshot depth spec.md §4.1 step 3 names
// ("the last N (N≈50) terminal lines").
const CaptureLines = 50

// ReminderDelaySeconds is how long a WaitingForInput agent must stay on the
// same normalized screen before the loop forces a single reminder resend
// past whatever the Deduplicator itself would otherwise suppress (spec.md
// §4.5 "send_reminder": a one-shot the watcher, not the deduplicator,
// tracks). Carried over from the legacy lock's own REMINDER_DELAY_SECS —
// the dedup window changed from 30 minutes to 120 seconds, but nothing in
// spec.md names a replacement reminder delay, so the original 30-minute
// value is kept (see DESIGN.md).
const ReminderDelaySeconds = 1800

// Multiplexer is the subset of internal/tmux.Manager the loop needs, kept
// narrow so tests can supply a stub.
type Multiplexer interface {
	SessionExists(ctx context.Context, sessionName string) bool
	CapturePane(ctx context.Context, sessionName string, lines int) (string, error)
}

// reminderState tracks, per agent, whether a single post-delay reminder has
// already fired for the current normalized screen (keyed by its hash).
type reminderState struct {
	dedupKey      string
	firstSeenUnix int64
	reminderSent  bool
}

// Loop is the watcher daemon's single polling goroutine.
type Loop struct {
	Registry     *store.RegistryStore
	HookTracker  *store.HookTrackerStore
	Dedup        *dedup.Deduplicator
	Tmux         Multiplexer
	AgentAdapters *agents.Registry
	Classifier   classifier.Caller
	Pipeline     *delivery.Pipeline
	TickInterval time.Duration

	logger *slog.Logger

	mu         sync.RWMutex
	stability  map[string]model.StabilityState
	reminders  map[string]*reminderState
	lastSeen   map[string]model.AgentRecord
	startedAt  time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Loop. Callers must set TickInterval; a zero value falls
// back to one second.
func New(registry *store.RegistryStore, hookTracker *store.HookTrackerStore, dd *dedup.Deduplicator, mux Multiplexer, adapters *agents.Registry, cls classifier.Caller, pipeline *delivery.Pipeline, tickInterval time.Duration) *Loop {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Loop{
		Registry:      registry,
		HookTracker:   hookTracker,
		Dedup:         dd,
		Tmux:          mux,
		AgentAdapters: adapters,
		Classifier:    cls,
		Pipeline:      pipeline,
		TickInterval:  tickInterval,
		logger:        slog.With("component", "watcherloop"),
		stability:     make(map[string]model.StabilityState),
		reminders:     make(map[string]*reminderState),
		lastSeen:      make(map[string]model.AgentRecord),
		startedAt:     time.Now(),
	}
}

// Start launches the polling goroutine.
func (l *Loop) Start(ctx context.Context) {
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop signals the goroutine to exit and waits for it.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.stopCh != nil {
			close(l.stopCh)
		}
	})
	l.wg.Wait()
}

// StartedAt reports when the loop was constructed, for the status server's
// Source interface.
func (l *Loop) StartedAt() time.Time {
	return l.startedAt
}

// Agents returns the last-seen registry snapshot, for the status server's
// Source interface.
func (l *Loop) Agents() []model.AgentRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.AgentRecord, 0, len(l.lastSeen))
	for _, rec := range l.lastSeen {
		out = append(out, rec)
	}
	return out
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.PollOnce(ctx); err != nil {
				l.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// PollOnce runs one full sweep of the registry: spec.md §4.1's per-agent
// algorithm, applied sequentially to every record. A per-agent error is
// logged and does not abort the sweep; a failure to load the registry or
// hook tracker itself is fatal to the sweep and returned.
func (l *Loop) PollOnce(ctx context.Context) error {
	hookTracker, err := l.HookTracker.Load()
	if err != nil {
		return fmt.Errorf("watcherloop: loading hook tracker: %w", err)
	}
	records, err := l.Registry.Load()
	if err != nil {
		return fmt.Errorf("watcherloop: loading registry: %w", err)
	}

	now := time.Now().Unix()
	seen := make(map[string]model.AgentRecord, len(records))
	for _, rec := range records {
		seen[rec.AgentID] = rec
		if err := l.pollAgent(ctx, rec, hookTracker, now); err != nil {
			l.logger.Error("agent sweep failed", "agent_id", rec.AgentID, "error", err)
		}
	}

	l.mu.Lock()
	l.lastSeen = seen
	l.mu.Unlock()
	return nil
}

func (l *Loop) pollAgent(ctx context.Context, rec model.AgentRecord, hookTracker model.HookTracker, now int64) error {
	adapter := l.AgentAdapters.Get(rec.AgentType)
	hookEpoch, hookSeen := hookTracker[rec.AgentID]
	hookAge := now
	if hookSeen {
		hookAge = now - hookEpoch
	}
	if !adapter.ShouldPoll(hookAge, hookSeen) {
		return nil
	}

	// Step 1: liveness probe.
	if !l.Tmux.SessionExists(ctx, rec.TmuxSession) {
		return l.handleExited(ctx, rec)
	}

	// Step 2: incremental JSONL ingest.
	if rec.LogFilePath != "" {
		newRecords, newOffset, err := jsonllog.ReadNew(rec.LogFilePath, rec.JSONLOffset)
		if err != nil {
			return fmt.Errorf("reading jsonl log: %w", err)
		}
		for _, jr := range newRecords {
			l.emitJSONLEvent(ctx, rec, jr)
		}
		if newOffset != rec.JSONLOffset {
			if err := l.Registry.UpdateJSONLOffset(rec.AgentID, newOffset); err != nil {
				l.logger.Error("failed to persist jsonl offset", "agent_id", rec.AgentID, "error", err)
			}
		}
	}

	// Step 3: capture, stability consult, classify.
	snapshot, err := l.Tmux.CapturePane(ctx, rec.TmuxSession, CaptureLines)
	if err != nil {
		return fmt.Errorf("capturing pane: %w", err)
	}

	state := l.loadStability(rec.AgentID)
	decision := stability.Evaluate(snapshot, now, state, hookEpoch, hookSeen)
	if decision.Hash != state.Hash {
		state.Reset(decision.Hash, now)
	} else {
		state.Count++
	}
	l.storeStability(rec.AgentID, state)
	if !decision.Permit {
		l.logger.Debug("coordinator denied classification", "agent_id", rec.AgentID, "reason", decision.Reason)
		// The reminder timer must keep running even while the Coordinator
		// denies re-classification of an unchanged screen (spec.md §8): once
		// AIChecked latches true, the hash never changes again for a static
		// waiting prompt, so this is the only place left that ever sees
		// these sweeps.
		if rec.Status == model.StatusWaitingForInput {
			l.handleWaiting(ctx, rec, snapshot, now)
		}
		return nil
	}

	result := classifier.Classify(ctx, l.Classifier, snapshot)
	state = l.loadStability(rec.AgentID)
	state.AIChecked = true
	l.storeStability(rec.AgentID, state)

	if result.IsError {
		l.Pipeline.Send(ctx, model.Event{
			Kind:     model.EventError,
			AgentID:  rec.AgentID,
			Project:  rec.ProjectDir,
			Snapshot: snapshot,
			Message:  "agent reported an error",
		}, rec.AgentType)
	}

	newStatus := result.Status
	previousStatus := rec.Status

	// Step 4: persist a status change.
	if newStatus != model.StatusUnknown && newStatus != previousStatus {
		if err := l.Registry.UpdateStatus(rec.AgentID, newStatus); err != nil {
			l.logger.Error("failed to persist status", "agent_id", rec.AgentID, "error", err)
		}
	}

	// Step 5: WaitingForInput notification, gated by the reminder tracker.
	if newStatus == model.StatusWaitingForInput {
		l.handleWaiting(ctx, rec, snapshot, now)
	}

	// Step 6: transition out of WaitingForInput clears the dedup lock and
	// fires AgentResumed.
	if previousStatus == model.StatusWaitingForInput && newStatus != model.StatusWaitingForInput && newStatus != model.StatusUnknown {
		l.handleResumed(ctx, rec)
	}

	return nil
}

// emitJSONLEvent translates one parsed JSONL record into a notification
// event (spec.md §4.1 step 2: "translate tool-use and error records into
// events").
func (l *Loop) emitJSONLEvent(ctx context.Context, rec model.AgentRecord, jr jsonllog.Record) {
	switch jr.Type {
	case "tool_use":
		l.Pipeline.Send(ctx, model.Event{
			Kind:     model.EventToolUse,
			AgentID:  rec.AgentID,
			Project:  rec.ProjectDir,
			ToolName: jr.ToolName,
		}, rec.AgentType)
	case "error":
		l.Pipeline.Send(ctx, model.Event{
			Kind:    model.EventError,
			AgentID: rec.AgentID,
			Project: rec.ProjectDir,
			Message: jr.Error,
		}, rec.AgentType)
	}
}

// handleWaiting applies the reminder policy on top of the pipeline's own
// dedup consultation: the first observation of a normalized screen always
// goes through the pipeline's normal Send path; a screen that is still
// current past ReminderDelaySeconds gets exactly one forced resend
// (SkipDedup) before falling silent again. Called both right after a fresh
// classification lands on WaitingForInput and, every sweep thereafter, for
// an agent whose persisted status is already WaitingForInput — the screen
// staying stable latches AIChecked and stops further classification, so
// this second call site is what keeps the reminder clock running against a
// terminal prompt that never changes.
func (l *Loop) handleWaiting(ctx context.Context, rec model.AgentRecord, snapshot string, now int64) {
	l.mu.Lock()
	rs, ok := l.reminders[rec.AgentID]
	dedupKey := dedupKeyFor(snapshot)
	if !ok || rs.dedupKey != dedupKey {
		rs = &reminderState{dedupKey: dedupKey, firstSeenUnix: now}
		l.reminders[rec.AgentID] = rs
	}
	age := now - rs.firstSeenUnix
	forceResend := age >= ReminderDelaySeconds && !rs.reminderSent
	if forceResend {
		rs.reminderSent = true
	}
	alreadyReminded := age >= ReminderDelaySeconds && !forceResend
	l.mu.Unlock()

	if alreadyReminded {
		return
	}

	l.Pipeline.Send(ctx, model.Event{
		Kind:      model.EventWaitingForInput,
		AgentID:   rec.AgentID,
		Project:   rec.ProjectDir,
		Snapshot:  snapshot,
		SkipDedup: forceResend,
	}, rec.AgentType)
}

func (l *Loop) handleResumed(ctx context.Context, rec model.AgentRecord) {
	l.mu.Lock()
	delete(l.reminders, rec.AgentID)
	l.mu.Unlock()

	if l.Dedup != nil {
		if err := l.Dedup.ClearLock(rec.AgentID); err != nil {
			l.logger.Error("failed to clear dedup lock", "agent_id", rec.AgentID, "error", err)
		}
	}
	l.Pipeline.Send(ctx, model.Event{
		Kind:    model.EventAgentResumed,
		AgentID: rec.AgentID,
		Project: rec.ProjectDir,
	}, rec.AgentType)
}

// handleExited purges every per-agent state fragment (spec.md §4.1 step 1)
// and emits AgentExited before removing the record from the registry.
func (l *Loop) handleExited(ctx context.Context, rec model.AgentRecord) error {
	l.mu.Lock()
	delete(l.stability, rec.AgentID)
	delete(l.reminders, rec.AgentID)
	l.mu.Unlock()

	if l.Dedup != nil {
		if err := l.Dedup.ClearLock(rec.AgentID); err != nil {
			l.logger.Error("failed to clear dedup lock on exit", "agent_id", rec.AgentID, "error", err)
		}
	}
	if err := l.HookTracker.Purge(rec.AgentID); err != nil {
		l.logger.Error("failed to purge hook tracker on exit", "agent_id", rec.AgentID, "error", err)
	}

	l.Pipeline.Send(ctx, model.Event{
		Kind:    model.EventAgentExited,
		AgentID: rec.AgentID,
		Project: rec.ProjectDir,
	}, rec.AgentType)

	if err := l.Registry.Remove(rec.AgentID); err != nil {
		return fmt.Errorf("removing exited agent from registry: %w", err)
	}
	return nil
}

func (l *Loop) loadStability(agentID string) model.StabilityState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stability[agentID]
}

func (l *Loop) storeStability(agentID string, state model.StabilityState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stability[agentID] = state
}

func dedupKeyFor(snapshot string) string {
	return fmt.Sprintf("%d", normalize.Hash(normalize.Screen(snapshot)))
}
