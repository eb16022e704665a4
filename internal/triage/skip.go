package triage

import (
	"strings"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
)

// Skip-filter keyword tables. These run before any detail fetch or model
// call: a matching ticket is never triaged or routed, only logged. Kept as
// package-level tables so the suppression policy can be audited and extended
// without touching control flow.
var (
	// BillingKeywords in the subject mark invoice/funding traffic that
	// belongs with accounting, not the tech queue.
	BillingKeywords = []string{
		"invoice", "payment", "funding", "funds", "billing",
		"receipt", "statement", "balance due", "pay now",
		"eligible invoices", "get funds", "received your invoice",
	}

	// SpamSenderDomains are substrings of known spam/marketing sender
	// addresses.
	SpamSenderDomains = []string{"marketing", "newsletter", "promo", "noreply@"}

	// SystemKeywords in the subject mark auto-generated system mail.
	SystemKeywords = []string{"automatic notification", "do not reply", "system alert"}
)

// ShouldSkip reports whether a ticket is non-actionable noise, and why.
// Subject keywords are checked before sender domains; the first match wins.
func ShouldSkip(t helpdesk.Ticket) (bool, string) {
	subject := strings.ToLower(t.Subject)
	email := strings.ToLower(t.Email)

	if containsAny(subject, BillingKeywords) {
		return true, "billing/invoice"
	}
	if containsAny(email, SpamSenderDomains) {
		return true, "spam sender"
	}
	if containsAny(subject, SystemKeywords) {
		return true, "system notification"
	}
	return false, ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
