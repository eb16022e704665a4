// Package triage classifies tickets: a keyword pre-filter suppresses
// non-actionable noise, and a verdict generator produces a four-field
// judgment per actionable ticket, via the reasoning model when available
// and a deterministic rule table otherwise.
package triage

import (
	"fmt"
	"strings"
)

// Category is the closed triage category enumeration.
type Category string

const (
	CategoryRouting   Category = "routing"
	CategoryVoicemail Category = "voicemail"
	CategoryHardware  Category = "hardware"
	CategoryBilling   Category = "billing"
	CategoryAccess    Category = "access"
	CategorySpam      Category = "spam"
	CategoryOther     Category = "other"
)

// ParseCategory maps a string to a known category. Unrecognized values are
// rejected rather than propagated.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryRouting:
		return CategoryRouting, true
	case CategoryVoicemail:
		return CategoryVoicemail, true
	case CategoryHardware:
		return CategoryHardware, true
	case CategoryBilling:
		return CategoryBilling, true
	case CategoryAccess:
		return CategoryAccess, true
	case CategorySpam:
		return CategorySpam, true
	case CategoryOther:
		return CategoryOther, true
	}
	return "", false
}

// Urgency is the closed urgency enumeration.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
	UrgencyNone   Urgency = "none"
)

// Glyph returns the colored circle used in rendered verdicts.
func (u Urgency) Glyph() string {
	switch u {
	case UrgencyHigh:
		return "🔴"
	case UrgencyMedium:
		return "🟡"
	case UrgencyLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// Label returns the human display form, e.g. "🔴 High".
func (u Urgency) Label() string {
	if u == "" {
		u = UrgencyNone
	}
	name := strings.ToUpper(string(u)[:1]) + string(u)[1:]
	return u.Glyph() + " " + name
}

// Verdict is the triage judgment for one ticket: a one-sentence summary,
// a category, an urgency, and a recommended action. Transient output;
// never persisted.
type Verdict struct {
	Summary  string
	Category Category
	Urgency  Urgency
	Action   string
}

// Render formats the verdict in the four-line template posted to chat.
func (v Verdict) Render() string {
	return fmt.Sprintf("**Summary:** %s\n**Category:** %s\n**Urgency:** %s\n**Action:** %s",
		v.Summary, v.Category, v.Urgency.Label(), v.Action)
}
