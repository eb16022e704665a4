// Package alert formats triage verdicts and raw ticket batches and delivers
// them to a configured notification destination: a Discord-style webhook, a
// Slack bot channel, or local stdout.
package alert

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
)

// Destination is a notification sink. Both calls are fire-and-forget: the
// response is inspected only for success, and a failure is reported to the
// caller for logging without blocking the rest of the batch.
type Destination interface {
	Name() string
	PostVerdict(ctx context.Context, t helpdesk.Ticket, v triage.Verdict) error
	PostBatch(ctx context.Context, title string, tickets []helpdesk.Ticket, color int) error
}

// Alert colors, Discord-style 24-bit RGB.
const (
	ColorNew    = 0x00ff00
	ColorUpdate = 0xffaa00
)

// batchItemCap bounds itemized entries in a batch alert; the remainder is
// summarized as "+N more".
const batchItemCap = 10

const destinationTimeout = 10 * time.Second

// priorityColor maps ticket priority to the embed accent color.
func priorityColor(p helpdesk.Priority) int {
	switch p {
	case helpdesk.PriorityUrgent:
		return 0xff0000
	case helpdesk.PriorityHigh:
		return 0xff8800
	case helpdesk.PriorityMedium:
		return 0xffcc00
	case helpdesk.PriorityLow:
		return 0x00cc00
	default:
		return 0x888888
	}
}

// formatRevision renders an epoch-seconds revision marker for humans,
// falling back to the raw marker when it is not numeric.
func formatRevision(marker string) string {
	secs, err := strconv.ParseInt(marker, 10, 64)
	if err != nil {
		return marker
	}
	return time.Unix(secs, 0).Format("2006-01-02 15:04")
}

// RouteConfig selects and configures a destination. Precedence: Slack bot
// channel > webhook > local output.
type RouteConfig struct {
	SlackChannel string
	SlackToken   string
	WebhookURL   string
	PortalURL    string
	Out          io.Writer // defaults to os.Stdout
}

// Select picks the destination for this run.
func Select(cfg RouteConfig) Destination {
	if cfg.SlackChannel != "" && cfg.SlackToken != "" {
		return NewSlackChannel(cfg.SlackToken, cfg.SlackChannel, cfg.PortalURL)
	}
	if cfg.WebhookURL != "" {
		return NewDiscordWebhook(cfg.WebhookURL, cfg.PortalURL)
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &StdoutDestination{W: out, PortalURL: cfg.PortalURL}
}
