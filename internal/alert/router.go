package alert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/htel-ops/visionwatch/internal/triage"
)

// RouteVerdicts delivers triaged outcomes to the destination. Each post is
// isolated: a delivery failure is logged and the remaining tickets still go
// out. Returns the number of verdicts delivered. Skipped and pending
// outcomes are not routed; they were already logged by the triager.
func RouteVerdicts(ctx context.Context, dest Destination, outcomes []triage.Outcome, log zerolog.Logger) int {
	delivered := 0
	for _, o := range outcomes {
		if o.Kind != triage.OutcomeTriaged {
			continue
		}
		if err := dest.PostVerdict(ctx, o.Ticket, o.Verdict); err != nil {
			log.Error().
				Str("destination", dest.Name()).
				Str("ticket", o.Ticket.Hash).
				Err(err).
				Msg("verdict delivery failed")
			continue
		}
		delivered++
		log.Info().
			Str("destination", dest.Name()).
			Str("ticket", o.Ticket.Hash).
			Msg("posted triage verdict")
	}
	return delivered
}
