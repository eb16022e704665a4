package helpdesk

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Priority is a ticket's priority as reported by the helpdesk. The API
// sends free-form strings; anything unrecognized maps to PriorityUnknown
// rather than propagating arbitrary values downstream.
type Priority int

const (
	PriorityUnknown Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// ParsePriority maps an API priority string to a Priority value.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent":
		return PriorityUrgent
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	default:
		return PriorityUnknown
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Glyph returns the colored circle used in alert output for this priority.
func (p Priority) Glyph() string {
	switch p {
	case PriorityUrgent:
		return "🔴"
	case PriorityHigh:
		return "🟠"
	case PriorityMedium:
		return "🟡"
	case PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// Important reports whether this priority warrants update alerts.
func (p Priority) Important() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// MarshalJSON renders the priority as its display string so JSON output
// matches what the helpdesk UI shows.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Ticket is a single support ticket as returned by the helpdesk query API.
// ModifyDate is the revision marker: an epoch-seconds string that is opaque
// to everything except the change detector, which compares it for equality.
type Ticket struct {
	ID         string   `json:"ticket_id"`
	Hash       string   `json:"ticket_hash"`
	Subject    string   `json:"subject"`
	Email      string   `json:"email"`
	Company    string   `json:"company_name"`
	Status     string   `json:"status"`
	Priority   Priority `json:"priority"`
	ModifyDate string   `json:"modify_date"`
}

// ModifiedAt parses the revision marker as a timestamp for display.
// Returns the zero time when the marker is not numeric.
func (t Ticket) ModifiedAt() time.Time {
	secs, err := strconv.ParseInt(t.ModifyDate, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// Detail is the full ticket record fetched per ticket. Content is the raw
// (often HTML) body of the most recent message.
type Detail struct {
	Content string `json:"content"`
}

// apiTicket is the wire shape of a ticket record. Numeric fields arrive as
// either JSON numbers or strings depending on the helpdesk version, so
// everything identifier-like decodes through json.Number.
type apiTicket struct {
	ID         json.Number `json:"ticket_id"`
	Hash       string      `json:"ticket_hash"`
	Subject    string      `json:"subject"`
	Email      string      `json:"email"`
	Company    string      `json:"company_name"`
	Status     string      `json:"status"`
	Priority   string      `json:"priority"`
	ModifyDate json.Number `json:"modify_date"`
}

func (a apiTicket) ticket() Ticket {
	return Ticket{
		ID:         a.ID.String(),
		Hash:       a.Hash,
		Subject:    a.Subject,
		Email:      a.Email,
		Company:    a.Company,
		Status:     a.Status,
		Priority:   ParsePriority(a.Priority),
		ModifyDate: a.ModifyDate.String(),
	}
}
