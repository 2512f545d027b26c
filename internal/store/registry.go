package store

import (
	"fmt"

	"github.com/cam-watcher/cam/internal/model"
)

// RegistryStore reads and writes agents.json. The registrar (out of scope,
// spec.md §1) is the primary writer; the watcher writes only on a status
// transition or when a dead session is purged (spec.md §3, §6).
type RegistryStore struct {
	paths Paths
}

// NewRegistryStore returns a RegistryStore rooted at paths.
func NewRegistryStore(paths Paths) *RegistryStore {
	return &RegistryStore{paths: paths}
}

// Load reads the current registry. Readers tolerate unknown fields per
// spec.md §6 by virtue of encoding/json's default unmarshal behavior.
func (s *RegistryStore) Load() ([]model.AgentRecord, error) {
	var reg model.Registry
	if err := ReadJSON(s.paths.AgentsJSON(), &reg); err != nil {
		return nil, err
	}
	return reg.Agents, nil
}

// Save replaces agents.json with records.
func (s *RegistryStore) Save(records []model.AgentRecord) error {
	return WriteJSONAtomic(s.paths.AgentsJSON(), model.Registry{Agents: records})
}

// UpdateStatus sets the status field for agentID and persists the registry.
// Returns an error if agentID is not present.
func (s *RegistryStore) UpdateStatus(agentID string, status model.AgentStatus) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	found := false
	for i := range records {
		if records[i].AgentID == agentID {
			records[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("agent %s not found in registry", agentID)
	}
	return s.Save(records)
}

// UpdateJSONLOffset sets the jsonl_offset field for agentID and persists
// the registry. A no-op, not an error, if agentID is no longer present
// (the agent may have been purged between Load and this call).
func (s *RegistryStore) UpdateJSONLOffset(agentID string, offset int64) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].AgentID == agentID {
			records[i].JSONLOffset = offset
			return s.Save(records)
		}
	}
	return nil
}

// Remove deletes agentID from the registry (spec.md §4.1 step 1: purge on
// dead session).
func (s *RegistryStore) Remove(agentID string) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	out := records[:0]
	for _, r := range records {
		if r.AgentID != agentID {
			out = append(out, r)
		}
	}
	return s.Save(out)
}
