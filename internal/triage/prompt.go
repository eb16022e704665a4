package triage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
)

// MaxContentChars bounds the body text embedded in a triage prompt.
const MaxContentChars = 2000

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML replaces tags with spaces and collapses runs of whitespace,
// turning raw ticket HTML into prompt-safe plain text.
func StripHTML(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// BuildPrompt renders the triage prompt for one ticket. Content must already
// be HTML-stripped; it is truncated here to MaxContentChars.
func BuildPrompt(t helpdesk.Ticket, content string) string {
	subject := t.Subject
	if subject == "" {
		subject = "No subject"
	}
	company := t.Company
	if company == "" {
		company = "Unknown"
	}

	return fmt.Sprintf(`Triage this support ticket. Even if you can't gather telecom context, ALWAYS provide a useful summary.

Ticket: %s
Subject: %s
Company: %s
Priority: %s
From: %s

Content:
%s

Respond with this EXACT format (fill in the brackets):

**Summary:** [One sentence: what does the customer need?]
**Category:** [routing | voicemail | hardware | billing | access | spam | other]
**Urgency:** [🔴 High - service down/urgent | 🟡 Medium - needs attention today | 🟢 Low - can wait | ⚪ None - spam/auto-reply]
**Action:** [What should a tech do? Or "Ignore - spam" / "Close - auto-reply" if not actionable]

Rules:
- ALWAYS fill in all 4 fields, even for spam/junk tickets
- If it's spam, marketing, or an auto-reply: Category=spam, Urgency=⚪ None, Action=Ignore
- If it's billing/invoice related: Category=billing, suggest forwarding to accounting
- Keep total response under 400 chars
- No extra commentary`,
		t.Hash, subject, company, t.Priority, t.Email, Truncate(content, MaxContentChars))
}

// ParseVerdict extracts the four-field verdict from model output. Any
// missing or unrecognized field is an error; the caller falls back to the
// rule-based verdict instead of propagating malformed judgments.
func ParseVerdict(text string) (Verdict, error) {
	var v Verdict
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "**Summary:**"):
			v.Summary = fieldValue(line, "**Summary:**")
		case strings.HasPrefix(line, "**Category:**"):
			cat, ok := ParseCategory(fieldValue(line, "**Category:**"))
			if !ok {
				return Verdict{}, fmt.Errorf("unrecognized category in %q", line)
			}
			v.Category = cat
		case strings.HasPrefix(line, "**Urgency:**"):
			urg, ok := parseUrgencyLine(fieldValue(line, "**Urgency:**"))
			if !ok {
				return Verdict{}, fmt.Errorf("unrecognized urgency in %q", line)
			}
			v.Urgency = urg
		case strings.HasPrefix(line, "**Action:**"):
			v.Action = fieldValue(line, "**Action:**")
		}
	}

	if v.Summary == "" || v.Category == "" || v.Urgency == "" || v.Action == "" {
		return Verdict{}, fmt.Errorf("incomplete verdict: %+v", v)
	}
	return v, nil
}

func fieldValue(line, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, marker))
}

// parseUrgencyLine matches the urgency word inside a rendered urgency field
// like "🔴 High - service down/urgent".
func parseUrgencyLine(s string) (Urgency, bool) {
	lower := strings.ToLower(s)
	for _, u := range []Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow, UrgencyNone} {
		if strings.Contains(lower, string(u)) {
			return u, true
		}
	}
	return "", false
}
