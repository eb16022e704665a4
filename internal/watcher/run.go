// Package watcher orchestrates one polling cycle: load state, detect
// changes, filter, classify, route, persist. One cycle per invocation; the
// scheduler (cron, systemd timer) lives outside.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/htel-ops/visionwatch/internal/alert"
	"github.com/htel-ops/visionwatch/internal/detect"
	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/state"
	"github.com/htel-ops/visionwatch/internal/triage"
)

// Phase is the cycle state machine position. A normal run walks Loading
// through Done in order; an upstream query failure jumps straight to
// Aborted, where state is deliberately not persisted so the next run
// re-detects from last-known-good history.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseDetecting
	PhaseFiltering
	PhaseClassifying
	PhaseRouting
	PhasePersisting
	PhaseDone
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseDetecting:
		return "detecting"
	case PhaseFiltering:
		return "filtering"
	case PhaseClassifying:
		return "classifying"
	case PhaseRouting:
		return "routing"
	case PhasePersisting:
		return "persisting"
	case PhaseDone:
		return "done"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// DefaultLookback is the query window when none is configured.
const DefaultLookback = 2 * time.Hour

// Runner wires one cycle's collaborators together.
type Runner struct {
	Helpdesk    helpdesk.Client
	Triager     *triage.Triager
	Destination alert.Destination

	StatePath     string
	Lookback      time.Duration
	ImportantOnly bool
	TriageEnabled bool

	Log zerolog.Logger

	// Now is injectable for deterministic tests. Defaults to time.Now.
	Now func() time.Time
}

// Result is what one cycle observed and did.
type Result struct {
	RunID     string
	New       []helpdesk.Ticket
	Updated   []helpdesk.Ticket
	Outcomes  []triage.Outcome
	Delivered int
	Phase     Phase

	// HadNew is the idle-vs-active exit signal for the caller. Not an
	// error condition.
	HadNew bool
}

// RunCycle executes one full polling cycle. The returned error is non-nil
// only for failures that terminate the cycle (lock contention, upstream
// query failure, state persist failure); triage and routing degradations
// are logged and absorbed so a flaky notification channel never causes a
// ticket to be re-reported as new.
func (r *Runner) RunCycle(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Phase: PhaseIdle}
	log := r.Log.With().Str("run_id", res.RunID).Logger()
	now := r.clock()

	res.Phase = PhaseLoading
	lockPath, err := state.AcquireLock(r.StatePath)
	if err != nil {
		res.Phase = PhaseAborted
		return res, fmt.Errorf("acquiring state lock: %w", err)
	}
	defer func() {
		if err := state.ReleaseLock(lockPath); err != nil {
			log.Error().Err(err).Msg("failed to release state lock")
		}
	}()
	st := state.Load(r.StatePath)
	log.Debug().Int("seen_tickets", len(st.SeenTickets)).Msg("state loaded")

	res.Phase = PhaseDetecting
	lookback := r.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	tickets, err := r.Helpdesk.ModifiedSince(ctx, now.Add(-lookback))
	if err != nil {
		// State untouched on disk: next run re-detects the window.
		res.Phase = PhaseAborted
		return res, err
	}
	changes := detect.Detect(now, tickets, st)
	res.New, res.Updated = changes.New, changes.Updated
	res.HadNew = len(changes.New) > 0
	log.Info().
		Int("queried", len(tickets)).
		Int("new", len(res.New)).
		Int("updated", len(res.Updated)).
		Msg("detection complete")

	res.Phase = PhaseFiltering
	if r.ImportantOnly {
		res.New = detect.FilterImportant(res.New)
		res.Updated = detect.FilterImportant(res.Updated)
	}

	res.Phase = PhaseClassifying
	if r.TriageEnabled && r.Triager != nil && len(res.New) > 0 {
		res.Outcomes = r.Triager.Run(ctx, res.New)
	}

	res.Phase = PhaseRouting
	r.route(ctx, res, log)

	// Persist regardless of triage/routing outcomes: detection and
	// notification are deliberately decoupled.
	res.Phase = PhasePersisting
	if err := state.Save(st, r.StatePath); err != nil {
		return res, fmt.Errorf("persisting watcher state: %w", err)
	}

	res.Phase = PhaseDone
	return res, nil
}

// route delivers either per-ticket verdicts (triage mode) or batch alerts.
// All delivery failures are absorbed here.
func (r *Runner) route(ctx context.Context, res *Result, log zerolog.Logger) {
	if r.Destination == nil {
		return
	}

	if r.TriageEnabled && len(res.Outcomes) > 0 {
		res.Delivered = alert.RouteVerdicts(ctx, r.Destination, res.Outcomes, log)
		return
	}

	if len(res.New) > 0 {
		title := fmt.Sprintf("🎫 %d New Ticket(s)", len(res.New))
		if err := r.Destination.PostBatch(ctx, title, res.New, alert.ColorNew); err != nil {
			log.Error().Str("destination", r.Destination.Name()).Err(err).Msg("new-ticket alert failed")
		}
	}
	if important := detect.FilterImportant(res.Updated); len(important) > 0 {
		title := fmt.Sprintf("🔄 %d High-Priority Update(s)", len(important))
		if err := r.Destination.PostBatch(ctx, title, important, alert.ColorUpdate); err != nil {
			log.Error().Str("destination", r.Destination.Name()).Err(err).Msg("update alert failed")
		}
	}
}

func (r *Runner) clock() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
