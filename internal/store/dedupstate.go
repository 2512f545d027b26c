package store

import "github.com/cam-watcher/cam/internal/model"

// DedupStateStore reads and writes dedup_state.json. internal/dedup owns
// the similarity algorithm; this type owns only the file I/O, mirroring the
// teacher's separation of transport (pkg/slack/client.go) from policy
// (pkg/slack/service.go).
type DedupStateStore struct {
	paths Paths
}

// NewDedupStateStore returns a DedupStateStore rooted at paths.
func NewDedupStateStore(paths Paths) *DedupStateStore {
	return &DedupStateStore{paths: paths}
}

// Load reads the full dedup state eagerly (spec.md §4.5: "Load is eager at
// construction").
func (s *DedupStateStore) Load() (model.DedupState, error) {
	state := model.DedupState{}
	if err := ReadJSON(s.paths.DedupStateJSON(), &state); err != nil {
		return nil, err
	}
	return state, nil
}

// Save persists the full dedup state (spec.md §4.5: "save is synchronous
// after every mutation").
func (s *DedupStateStore) Save(state model.DedupState) error {
	return WriteJSONAtomic(s.paths.DedupStateJSON(), state)
}

// Purge removes agentID's entry (spec.md §4.1 step 1: purge per-agent state
// on dead session).
func (s *DedupStateStore) Purge(agentID string) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := state[agentID]; !ok {
		return nil
	}
	delete(state, agentID)
	return s.Save(state)
}
