package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
)

// DiscordWebhook posts embed payloads to a Discord-compatible webhook.
type DiscordWebhook struct {
	URL        string
	PortalURL  string
	HTTPClient *http.Client

	// now is injectable for stable footers in tests.
	now func() time.Time
}

var _ Destination = (*DiscordWebhook)(nil)

// NewDiscordWebhook creates a webhook destination with the default timeout.
func NewDiscordWebhook(url, portal string) *DiscordWebhook {
	return &DiscordWebhook{
		URL:        url,
		PortalURL:  portal,
		HTTPClient: &http.Client{Timeout: destinationTimeout},
		now:        time.Now,
	}
}

func (d *DiscordWebhook) Name() string { return "discord" }

type discordEmbed struct {
	Title       string         `json:"title"`
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// PostVerdict posts one triage verdict as an embed linking back to the
// ticket.
func (d *DiscordWebhook) PostVerdict(ctx context.Context, t helpdesk.Ticket, v triage.Verdict) error {
	embed := discordEmbed{
		Title:       fmt.Sprintf("%s %s: %s", t.Priority.Glyph(), t.Hash, triage.Truncate(t.Subject, 80)),
		URL:         helpdesk.TicketURL(d.PortalURL, t),
		Description: triage.Truncate(v.Render(), 2000),
		Color:       priorityColor(t.Priority),
		Footer:      &discordFooter{Text: fmt.Sprintf("%s • %s", orUnknown(t.Company), d.clock().Format("15:04"))},
	}
	return d.post(ctx, embed)
}

// PostBatch posts a batch alert itemizing up to 10 tickets, appending a
// "+N more" indicator for the rest.
func (d *DiscordWebhook) PostBatch(ctx context.Context, title string, tickets []helpdesk.Ticket, color int) error {
	if len(tickets) == 0 {
		return nil
	}

	shown := tickets
	if len(shown) > batchItemCap {
		shown = shown[:batchItemCap]
	}

	fields := make([]discordField, 0, len(shown))
	for _, t := range shown {
		fields = append(fields, discordField{
			Name: fmt.Sprintf("%s %s — %s", t.Priority.Glyph(), t.Hash, orUnknown(t.Status)),
			Value: fmt.Sprintf("**%s**\n%s • %s",
				triage.Truncate(t.Subject, 100),
				triage.Truncate(orUnknown(t.Company), 30),
				formatRevision(t.ModifyDate)),
		})
	}

	footer := fmt.Sprintf("Vision Helpdesk • %s", d.clock().Format("2006-01-02 15:04"))
	if len(tickets) > batchItemCap {
		footer += fmt.Sprintf(" • +%d more", len(tickets)-batchItemCap)
	}

	embed := discordEmbed{
		Title:  title,
		Color:  color,
		Fields: fields,
		Footer: &discordFooter{Text: footer},
	}
	return d.post(ctx, embed)
}

func (d *DiscordWebhook) post(ctx context.Context, embed discordEmbed) error {
	payload, err := json.Marshal(map[string]any{"embeds": []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("marshaling embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: destinationTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (d *DiscordWebhook) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
