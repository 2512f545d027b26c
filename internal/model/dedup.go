package model

// DedupRecord is the persisted per-agent deduplication state (spec.md §3):
// the fingerprint of the last notification sent and when it was sent.
type DedupRecord struct {
	Fingerprint string `json:"fingerprint"`
	SentEpoch   int64  `json:"sent_epoch"`
}

// DedupState is the on-disk shape of dedup_state.json: agent id -> record.
type DedupState map[string]DedupRecord

// HookTracker is the on-disk shape of last_hook_events.json: agent id ->
// epoch seconds of the most recent hook callback observed for that agent
// (spec.md §3, §4.2).
type HookTracker map[string]int64
