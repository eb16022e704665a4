package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
)

const defaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

// SlackChannel posts block payloads to a channel via the bot chat.postMessage
// API. Unlike webhooks, the response body carries success ("ok") and must be
// checked.
type SlackChannel struct {
	Token      string
	Channel    string
	PortalURL  string
	APIURL     string // overridable for tests
	HTTPClient *http.Client

	now func() time.Time
}

var _ Destination = (*SlackChannel)(nil)

// NewSlackChannel creates a Slack bot destination with the default timeout.
func NewSlackChannel(token, channel, portal string) *SlackChannel {
	return &SlackChannel{
		Token:      token,
		Channel:    channel,
		PortalURL:  portal,
		APIURL:     defaultSlackAPIURL,
		HTTPClient: &http.Client{Timeout: destinationTimeout},
		now:        time.Now,
	}
}

func (s *SlackChannel) Name() string { return "slack" }

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// PostVerdict posts one triage verdict as header/section/context/divider
// blocks.
func (s *SlackChannel) PostVerdict(ctx context.Context, t helpdesk.Ticket, v triage.Verdict) error {
	headline := fmt.Sprintf("%s %s: %s", t.Priority.Glyph(), t.Hash, triage.Truncate(t.Subject, 80))
	ticketURL := helpdesk.TicketURL(s.PortalURL, t)

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: headline, Emoji: true}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: triage.Truncate(v.Render(), 2900)}},
		{Type: "context", Elements: []slackText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("*%s* • %s • %s • <%s|View Ticket>",
				orUnknown(t.Company), t.Priority, s.clock().Format("15:04"), ticketURL),
		}}},
		{Type: "divider"},
	}
	return s.post(ctx, headline, blocks)
}

// PostBatch posts a batch alert: a header block plus one line per ticket,
// capped at 10 with a "+N more" context line.
func (s *SlackChannel) PostBatch(ctx context.Context, title string, tickets []helpdesk.Ticket, color int) error {
	if len(tickets) == 0 {
		return nil
	}

	shown := tickets
	if len(shown) > batchItemCap {
		shown = shown[:batchItemCap]
	}

	var lines []string
	for _, t := range shown {
		lines = append(lines, fmt.Sprintf("%s *%s* — %s (%s • %s)",
			t.Priority.Glyph(), t.Hash,
			triage.Truncate(t.Subject, 100),
			triage.Truncate(orUnknown(t.Company), 30),
			formatRevision(t.ModifyDate)))
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title, Emoji: true}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: strings.Join(lines, "\n")}},
	}
	if len(tickets) > batchItemCap {
		blocks = append(blocks, slackBlock{
			Type: "context",
			Elements: []slackText{{
				Type: "mrkdwn",
				Text: fmt.Sprintf("+%d more", len(tickets)-batchItemCap),
			}},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})
	return s.post(ctx, title, blocks)
}

func (s *SlackChannel) post(ctx context.Context, fallbackText string, blocks []slackBlock) error {
	payload, err := json.Marshal(map[string]any{
		"channel":      s.Channel,
		"text":         fallbackText,
		"blocks":       blocks,
		"unfurl_links": false,
	})
	if err != nil {
		return fmt.Errorf("marshaling blocks: %w", err)
	}

	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = defaultSlackAPIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: destinationTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack post rejected: %s", result.Error)
	}
	return nil
}

func (s *SlackChannel) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
