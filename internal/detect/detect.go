// Package detect partitions a page of recently-modified tickets against the
// watcher's persisted state into new, updated, and unchanged.
package detect

import (
	"time"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/state"
)

// Changes is the result of one detection pass. Unchanged tickets are
// dropped, not reported.
type Changes struct {
	New     []helpdesk.Ticket
	Updated []helpdesk.Ticket
}

// Detect diffs the queried tickets against st and records what it saw.
// A ticket transitions at most once per pass: absent → New (SeenRecord
// inserted with FirstSeen=now), present with a different revision marker →
// Updated (marker overwritten, last-write-wins even if the new marker sorts
// earlier), same marker → dropped. Mutations are in-memory only; persisting
// st is the caller's job, and only after the whole cycle's detection
// succeeded.
func Detect(now time.Time, tickets []helpdesk.Ticket, st *state.WatcherState) Changes {
	var ch Changes
	for _, t := range tickets {
		if t.ID == "" {
			continue
		}
		rec, seen := st.SeenTickets[t.ID]
		switch {
		case !seen:
			ch.New = append(ch.New, t)
			st.SeenTickets[t.ID] = &state.SeenRecord{
				ModifyDate: t.ModifyDate,
				FirstSeen:  now,
			}
		case rec.ModifyDate != t.ModifyDate:
			ch.Updated = append(ch.Updated, t)
			rec.ModifyDate = t.ModifyDate
			rec.LastUpdated = now
		}
	}
	st.LastCheck = now
	return ch
}

// FilterImportant keeps only High and Urgent priority tickets.
func FilterImportant(tickets []helpdesk.Ticket) []helpdesk.Ticket {
	var important []helpdesk.Ticket
	for _, t := range tickets {
		if t.Priority.Important() {
			important = append(important, t)
		}
	}
	return important
}
