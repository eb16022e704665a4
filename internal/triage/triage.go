package triage

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/htel-ops/visionwatch/internal/ai"
	"github.com/htel-ops/visionwatch/internal/helpdesk"
)

// Per-cycle classification bounds: scan up to DefaultMaxScan candidates to
// find DefaultMaxTriage non-skipped tickets; everything past the bound is
// reported pending rather than classified.
const (
	DefaultMaxTriage = 5
	DefaultMaxScan   = 10
)

// OutcomeKind classifies what happened to one ticket during a triage pass.
type OutcomeKind int

const (
	// OutcomeTriaged means a verdict was produced (model or fallback).
	OutcomeTriaged OutcomeKind = iota
	// OutcomeSkipped means the pre-filter suppressed the ticket.
	OutcomeSkipped
	// OutcomePending means the ticket fell outside the per-cycle bounds
	// and is left for human review.
	OutcomePending
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTriaged:
		return "triaged"
	case OutcomeSkipped:
		return "skipped"
	case OutcomePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Outcome is the per-ticket result of a triage pass.
type Outcome struct {
	Ticket  helpdesk.Ticket
	Kind    OutcomeKind
	Reason  string  // skip reason when Kind == OutcomeSkipped
	Verdict Verdict // valid when Kind == OutcomeTriaged
	// Fallback marks a verdict produced by the rule table rather than
	// the model.
	Fallback bool
}

// DetailFetcher is the per-ticket detail collaborator. Failures degrade to
// an empty-content triage, never abort the pass.
type DetailFetcher interface {
	TicketDetails(ctx context.Context, id string) (helpdesk.Detail, error)
}

// Triager runs the two-stage classification over a batch of tickets.
type Triager struct {
	// Reasoner generates verdicts. Nil disables the model entirely and
	// every triaged ticket gets the rule-based fallback.
	Reasoner ai.Reasoner

	// Details fetches ticket bodies. Nil means triage on subject alone.
	Details DetailFetcher

	// Limiter paces model calls within a cycle. Nil means no pacing.
	Limiter *rate.Limiter

	// MaxTriage and MaxScan override the per-cycle bounds when positive.
	MaxTriage int
	MaxScan   int

	Log zerolog.Logger
}

// Run classifies tickets in order and returns one Outcome per input ticket.
// The skip filter is evaluated before any detail fetch or model call, so
// suppressed tickets cost nothing and never reach a destination. The pass is
// cancellable between tickets: once ctx is done, remaining tickets are
// reported pending.
func (tr *Triager) Run(ctx context.Context, tickets []helpdesk.Ticket) []Outcome {
	maxTriage := tr.MaxTriage
	if maxTriage <= 0 {
		maxTriage = DefaultMaxTriage
	}
	maxScan := tr.MaxScan
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}

	outcomes := make([]Outcome, 0, len(tickets))
	scanned, triaged := 0, 0

	for _, t := range tickets {
		if ctx.Err() != nil || scanned >= maxScan || triaged >= maxTriage {
			tr.Log.Info().Str("ticket", t.Hash).Msg("triage budget exhausted, pending review")
			outcomes = append(outcomes, Outcome{Ticket: t, Kind: OutcomePending})
			continue
		}
		scanned++

		if skip, reason := ShouldSkip(t); skip {
			tr.Log.Info().Str("ticket", t.Hash).Str("reason", reason).Msg("skipping ticket")
			outcomes = append(outcomes, Outcome{Ticket: t, Kind: OutcomeSkipped, Reason: reason})
			continue
		}

		triaged++
		verdict, usedFallback := tr.triageOne(ctx, t)
		outcomes = append(outcomes, Outcome{
			Ticket:   t,
			Kind:     OutcomeTriaged,
			Verdict:  verdict,
			Fallback: usedFallback,
		})
	}

	return outcomes
}

// triageOne produces a verdict for a single non-skipped ticket. Every
// failure path lands in the deterministic fallback, so this never fails.
func (tr *Triager) triageOne(ctx context.Context, t helpdesk.Ticket) (Verdict, bool) {
	var content string
	if tr.Details != nil && t.ID != "" {
		detail, err := tr.Details.TicketDetails(ctx, t.ID)
		if err != nil {
			tr.Log.Warn().Str("ticket", t.Hash).Err(err).Msg("detail fetch failed, triaging without content")
		} else {
			content = StripHTML(detail.Content)
		}
	}
	content = Truncate(content, MaxContentChars)

	if tr.Reasoner == nil {
		return Fallback(t, content, ""), true
	}

	if tr.Limiter != nil {
		if err := tr.Limiter.Wait(ctx); err != nil {
			return Fallback(t, content, "canceled"), true
		}
	}

	text, err := tr.Reasoner.Judge(ctx, BuildPrompt(t, content))
	if err != nil {
		tr.Log.Warn().Str("ticket", t.Hash).Err(err).Msg("reasoner failed, using rule-based verdict")
		return Fallback(t, content, err.Error()), true
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		tr.Log.Warn().Str("ticket", t.Hash).Err(err).Msg("unparseable model output, using rule-based verdict")
		return Fallback(t, content, "unparseable model output"), true
	}
	return verdict, false
}
