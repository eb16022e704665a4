package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
)

func fixedClock() time.Time {
	return time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
}

func sampleTicket() helpdesk.Ticket {
	return helpdesk.Ticket{
		ID:         "101",
		Hash:       "HTK-101",
		Subject:    "No dial tone on main line",
		Email:      "owner@acme.com",
		Company:    "Acme Dental",
		Status:     "Open",
		Priority:   helpdesk.PriorityUrgent,
		ModifyDate: "1756710000",
	}
}

func sampleVerdict() triage.Verdict {
	return triage.Verdict{
		Summary:  "Main line is dead.",
		Category: triage.CategoryHardware,
		Urgency:  triage.UrgencyHigh,
		Action:   "Check SIP trunk registration.",
	}
}

func makeBatch(n int) []helpdesk.Ticket {
	tickets := make([]helpdesk.Ticket, 0, n)
	for i := 0; i < n; i++ {
		tickets = append(tickets, helpdesk.Ticket{
			ID:       fmt.Sprintf("%d", i+1),
			Hash:     fmt.Sprintf("HTK-%d", i+1),
			Subject:  fmt.Sprintf("ticket %d", i+1),
			Priority: helpdesk.PriorityMedium,
		})
	}
	return tickets
}

func TestDiscordPostVerdict(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, "https://desk.example.com")
	d.now = fixedClock

	err := d.PostVerdict(context.Background(), sampleTicket(), sampleVerdict())
	require.NoError(t, err)

	embeds := payload["embeds"].([]any)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)

	assert.Equal(t, "🔴 HTK-101: No dial tone on main line", embed["title"])
	assert.Equal(t, "https://desk.example.com/manage/#/ticket/ticket_details/HTK-101/101", embed["url"])
	assert.Equal(t, float64(0xff0000), embed["color"])
	assert.Contains(t, embed["description"], "**Summary:** Main line is dead.")
	assert.Contains(t, embed["description"], "**Urgency:** 🔴 High")

	footer := embed["footer"].(map[string]any)
	assert.Contains(t, footer["text"], "Acme Dental")
}

func TestDiscordPostBatchCapsAtTen(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, "https://desk.example.com")
	d.now = fixedClock

	err := d.PostBatch(context.Background(), "🎫 14 New Ticket(s)", makeBatch(14), ColorNew)
	require.NoError(t, err)

	embed := payload["embeds"].([]any)[0].(map[string]any)
	assert.Len(t, embed["fields"].([]any), 10)

	footer := embed["footer"].(map[string]any)
	assert.Contains(t, footer["text"], "+4 more")
}

func TestDiscordPostBatchEmptyIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, "")
	require.NoError(t, d.PostBatch(context.Background(), "title", nil, ColorNew))
	assert.False(t, called)
}

func TestDiscordPostFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, "")
	err := d.PostVerdict(context.Background(), sampleTicket(), sampleVerdict())
	assert.Error(t, err)
}

func TestSlackPostVerdict(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	s := NewSlackChannel("xoxb-test", "htel-team", "https://desk.example.com")
	s.APIURL = server.URL
	s.now = fixedClock

	err := s.PostVerdict(context.Background(), sampleTicket(), sampleVerdict())
	require.NoError(t, err)

	assert.Equal(t, "htel-team", payload["channel"])
	assert.Equal(t, false, payload["unfurl_links"])

	blocks := payload["blocks"].([]any)
	require.Len(t, blocks, 4)

	header := blocks[0].(map[string]any)
	assert.Equal(t, "header", header["type"])
	assert.Contains(t, header["text"].(map[string]any)["text"], "HTK-101")

	section := blocks[1].(map[string]any)
	assert.Contains(t, section["text"].(map[string]any)["text"], "**Summary:**")

	contextBlock := blocks[2].(map[string]any)
	elements := contextBlock["elements"].([]any)
	assert.Contains(t, elements[0].(map[string]any)["text"], "View Ticket")

	assert.Equal(t, "divider", blocks[3].(map[string]any)["type"])
}

func TestSlackPostRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer server.Close()

	s := NewSlackChannel("xoxb-test", "nope", "")
	s.APIURL = server.URL

	err := s.PostVerdict(context.Background(), sampleTicket(), sampleVerdict())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestStdoutDestination(t *testing.T) {
	var buf bytes.Buffer
	s := &StdoutDestination{W: &buf}

	require.NoError(t, s.PostVerdict(context.Background(), sampleTicket(), sampleVerdict()))
	out := buf.String()
	assert.Contains(t, out, "--- HTK-101 ---")
	assert.Contains(t, out, "**Summary:** Main line is dead.")

	buf.Reset()
	require.NoError(t, s.PostBatch(context.Background(), "🎫 12 New Ticket(s)", makeBatch(12), ColorNew))
	out = buf.String()
	assert.Contains(t, out, "🎫 12 New Ticket(s)")
	assert.Contains(t, out, "HTK-10")
	assert.NotContains(t, out, "HTK-11 ")
	assert.Contains(t, out, "+2 more")
}

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  RouteConfig
		want string
	}{
		{
			name: "slack wins over webhook",
			cfg:  RouteConfig{SlackChannel: "team", SlackToken: "xoxb", WebhookURL: "https://hook"},
			want: "slack",
		},
		{
			name: "webhook when no slack",
			cfg:  RouteConfig{WebhookURL: "https://hook"},
			want: "discord",
		},
		{
			name: "slack channel without token falls to webhook",
			cfg:  RouteConfig{SlackChannel: "team", WebhookURL: "https://hook"},
			want: "discord",
		},
		{
			name: "stdout by default",
			cfg:  RouteConfig{},
			want: "stdout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.cfg).Name())
		})
	}
}

// failEveryOther fails on odd posts so the router's isolation is observable.
type failEveryOther struct {
	calls int
}

func (f *failEveryOther) Name() string { return "flaky" }

func (f *failEveryOther) PostVerdict(context.Context, helpdesk.Ticket, triage.Verdict) error {
	f.calls++
	if f.calls%2 == 1 {
		return fmt.Errorf("delivery failed on call %d", f.calls)
	}
	return nil
}

func (f *failEveryOther) PostBatch(context.Context, string, []helpdesk.Ticket, int) error {
	return nil
}

func TestRouteVerdictsIsolatesFailures(t *testing.T) {
	outcomes := []triage.Outcome{
		{Ticket: helpdesk.Ticket{Hash: "A"}, Kind: triage.OutcomeTriaged, Verdict: sampleVerdict()},
		{Ticket: helpdesk.Ticket{Hash: "B"}, Kind: triage.OutcomeTriaged, Verdict: sampleVerdict()},
		{Ticket: helpdesk.Ticket{Hash: "C"}, Kind: triage.OutcomeSkipped, Reason: "billing/invoice"},
		{Ticket: helpdesk.Ticket{Hash: "D"}, Kind: triage.OutcomeTriaged, Verdict: sampleVerdict()},
		{Ticket: helpdesk.Ticket{Hash: "E"}, Kind: triage.OutcomePending},
	}

	dest := &failEveryOther{}
	delivered := RouteVerdicts(context.Background(), dest, outcomes, zerolog.Nop())

	// Three triaged outcomes attempted; the first and third fail, the
	// second lands. Skipped/pending are never posted.
	assert.Equal(t, 3, dest.calls)
	assert.Equal(t, 1, delivered)
}

func TestFormatRevision(t *testing.T) {
	assert.Equal(t, "garbage", formatRevision("garbage"))
	formatted := formatRevision("1756710000")
	assert.True(t, strings.HasPrefix(formatted, "20"), "numeric markers render as dates, got %q", formatted)
}
