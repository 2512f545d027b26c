package store

import "path/filepath"

// Paths resolves the well-known file names spec.md §6 lists under a single
// user-local configuration directory.
type Paths struct {
	Dir string
}

// NewPaths returns a Paths rooted at dir.
func NewPaths(dir string) Paths { return Paths{Dir: dir} }

func (p Paths) AgentsJSON() string          { return filepath.Join(p.Dir, "agents.json") }
func (p Paths) DedupStateJSON() string      { return filepath.Join(p.Dir, "dedup_state.json") }
func (p Paths) LastHookEventsJSON() string  { return filepath.Join(p.Dir, "last_hook_events.json") }
func (p Paths) NotificationsLog() string    { return filepath.Join(p.Dir, "notifications.log") }
func (p Paths) WatcherPID() string          { return filepath.Join(p.Dir, "watcher.pid") }
func (p Paths) WatcherLog() string          { return filepath.Join(p.Dir, "watcher.log") }
