// Package state owns the watcher's persisted memory: which tickets have been
// seen and at what revision. The whole aggregate is rewritten as one
// human-readable JSON document each cycle.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// SeenRecord is the per-ticket memory. ModifyDate holds the last observed
// revision marker; it is always overwritten with the latest upstream value
// (last-write-wins), never rolled back by the detector.
type SeenRecord struct {
	ModifyDate  string    `json:"modify_date"`
	FirstSeen   time.Time `json:"first_seen"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// WatcherState is the persisted aggregate: one SeenRecord per ticket
// identifier plus the timestamp of the last completed check. Records are
// never deleted; unbounded growth is an accepted tradeoff for a state file
// humans can still read and prune by hand.
type WatcherState struct {
	SeenTickets map[string]*SeenRecord `json:"seen_tickets"`
	LastCheck   time.Time              `json:"last_check,omitzero"`
}

// New returns an empty state, ready to record first sightings.
func New() *WatcherState {
	return &WatcherState{SeenTickets: make(map[string]*SeenRecord)}
}

// Load reads the state file. A missing file or malformed content is not
// fatal: both mean "no history" and yield a fresh empty state, so a corrupt
// file costs at most one round of duplicate alerts.
func Load(path string) *WatcherState {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var st WatcherState
	if err := json.Unmarshal(data, &st); err != nil {
		return New()
	}
	if st.SeenTickets == nil {
		st.SeenTickets = make(map[string]*SeenRecord)
	}
	return &st
}

// Save rewrites the whole state file, creating the parent directory if
// needed. Indented so the file stays inspectable with a pager.
func Save(st *WatcherState, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
