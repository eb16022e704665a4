package triage

import (
	"strings"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
)

// Fallback classifier keyword tables, evaluated in order against the
// lowercased subject plus the first 500 characters of body text. Some
// keywords overlap the skip filter ("invoice"); the skip filter always runs
// first, so these only see tickets it let through.
var (
	SpamSignals = []string{
		"unsubscribe", "click here", "act now", "limited time", "invoice attached",
		"get funds", "eligible invoices", "marketing", "newsletter",
	}

	AutoReplySignals = []string{
		"automatic reply", "auto-reply", "autoreply", "i am currently out",
		"i will be out of the office", "i'm currently out",
		"thank you for your email", "i will respond when i return",
	}

	// RequestSignals mark real asks. An "out of office" ticket that also
	// says "please forward my calls" is a request, not a bounce.
	RequestSignals = []string{
		"please", "need", "want", "can you", "could you",
		"forward", "change", "update",
	}

	BillingSignals = []string{"invoice", "payment", "billing", "charge", "receipt", "account balance"}

	UrgentSignals = []string{
		"down", "not working", "emergency", "urgent", "asap",
		"can't make calls", "no dial tone",
	}

	RoutingSignals   = []string{"forward", "routing", "route", "transfer", "redirect"}
	VoicemailSignals = []string{"voicemail", "vm", "greeting", "message"}
	HardwareSignals  = []string{"phone", "handset", "device", "hardware"}
)

// fallbackBodyChars bounds how much body text the rule table inspects.
const fallbackBodyChars = 500

// Fallback produces a deterministic rule-based verdict. It is total: every
// input, including empty subject and body, yields a well-formed four-field
// verdict. This is the availability guarantee when the reasoning model is
// down. reason, when non-empty, is appended to the action for operator
// visibility into why the model was bypassed.
func Fallback(t helpdesk.Ticket, content, reason string) Verdict {
	subject := strings.ToLower(t.Subject)
	body := Truncate(strings.ToLower(content), fallbackBodyChars)
	combined := subject + " " + body

	if containsAny(combined, SpamSignals) {
		return Verdict{
			Summary:  "Likely spam or marketing email",
			Category: CategorySpam,
			Urgency:  UrgencyNone,
			Action:   "Ignore - spam/marketing",
		}
	}

	if containsAny(combined, AutoReplySignals) && !containsAny(combined, RequestSignals) {
		return Verdict{
			Summary:  "Auto-reply/OOO message",
			Category: CategoryOther,
			Urgency:  UrgencyNone,
			Action:   "Close - auto-reply",
		}
	}

	summary := Truncate(t.Subject, 60)
	if summary == "" {
		summary = "Support ticket (no subject)"
	}

	if containsAny(combined, BillingSignals) {
		return Verdict{
			Summary:  summary,
			Category: CategoryBilling,
			Urgency:  UrgencyLow,
			Action:   "Forward to accounting",
		}
	}

	urgency := UrgencyMedium
	if containsAny(combined, UrgentSignals) {
		urgency = UrgencyHigh
	}

	category := CategoryOther
	switch {
	case containsAny(combined, RoutingSignals):
		category = CategoryRouting
	case containsAny(combined, VoicemailSignals):
		category = CategoryVoicemail
	case containsAny(combined, HardwareSignals):
		category = CategoryHardware
	}

	action := "Review ticket"
	if reason != "" {
		action += " (fallback: " + Truncate(reason, 50) + ")"
	}

	return Verdict{
		Summary:  summary,
		Category: category,
		Urgency:  urgency,
		Action:   action,
	}
}
