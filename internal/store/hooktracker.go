package store

import "github.com/cam-watcher/cam/internal/model"

// HookTrackerStore reads and writes last_hook_events.json. Touch is called
// only from the hook path; the polling path reads the tracker and calls
// Purge to drop an exited agent's entry.
type HookTrackerStore struct {
	paths Paths
}

// NewHookTrackerStore returns a HookTrackerStore rooted at paths.
func NewHookTrackerStore(paths Paths) *HookTrackerStore {
	return &HookTrackerStore{paths: paths}
}

// Load re-reads the tracker from disk. The Watcher Loop calls this at the
// start of every sweep (spec.md §4.1, §4.2) so cross-process hook writes
// are visible immediately.
func (s *HookTrackerStore) Load() (model.HookTracker, error) {
	tracker := model.HookTracker{}
	if err := ReadJSON(s.paths.LastHookEventsJSON(), &tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

// Touch records nowEpoch as the most recent hook timestamp for agentID and
// persists the tracker. Only the hook path (internal/hookhandler) should
// call this.
func (s *HookTrackerStore) Touch(agentID string, nowEpoch int64) error {
	tracker, err := s.Load()
	if err != nil {
		return err
	}
	tracker[agentID] = nowEpoch
	return WriteJSONAtomic(s.paths.LastHookEventsJSON(), tracker)
}

// Purge removes agentID's entry (spec.md §4.1 step 1: purge per-agent state
// on dead session).
func (s *HookTrackerStore) Purge(agentID string) error {
	tracker, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := tracker[agentID]; !ok {
		return nil
	}
	delete(tracker, agentID)
	return WriteJSONAtomic(s.paths.LastHookEventsJSON(), tracker)
}
