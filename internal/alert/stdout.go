package alert

import (
	"context"
	"fmt"
	"io"

	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
)

// StdoutDestination prints alerts to a local writer. The default when no
// chat destination is configured.
type StdoutDestination struct {
	W         io.Writer
	PortalURL string
}

var _ Destination = (*StdoutDestination)(nil)

func (s *StdoutDestination) Name() string { return "stdout" }

func (s *StdoutDestination) PostVerdict(_ context.Context, t helpdesk.Ticket, v triage.Verdict) error {
	_, err := fmt.Fprintf(s.W, "--- %s ---\n%s\n\n", t.Hash, v.Render())
	return err
}

func (s *StdoutDestination) PostBatch(_ context.Context, title string, tickets []helpdesk.Ticket, _ int) error {
	if len(tickets) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(s.W, title); err != nil {
		return err
	}
	shown := tickets
	if len(shown) > batchItemCap {
		shown = shown[:batchItemCap]
	}
	for _, t := range shown {
		if _, err := fmt.Fprintf(s.W, "  %s %s — %s (%s)\n",
			t.Priority.Glyph(), t.Hash, triage.Truncate(t.Subject, 100), orUnknown(t.Company)); err != nil {
			return err
		}
	}
	if len(tickets) > batchItemCap {
		if _, err := fmt.Fprintf(s.W, "  +%d more\n", len(tickets)-batchItemCap); err != nil {
			return err
		}
	}
	return nil
}
