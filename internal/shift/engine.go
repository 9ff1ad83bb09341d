package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/store"
)

// Engine recomputes live shift metrics for every machine on a fixed
// cadence and finalizes shifts once their end has passed.
type Engine struct {
	store    *store.Store
	table    *Table
	machines []string
	running  map[string]bool
	interval time.Duration
	logger   zerolog.Logger

	// finalized remembers (machine, shift, start) keys already written to
	// the final table this process lifetime. The final table's insert-once
	// constraint backstops restarts.
	finalized map[string]struct{}
}

func NewEngine(st *store.Store, table *Table, machines []string, running map[string]bool, interval time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     st,
		table:     table,
		machines:  machines,
		running:   running,
		interval:  interval,
		logger:    logger.With().Str("component", "shift-engine").Logger(),
		finalized: make(map[string]struct{}),
	}
}

// Run ticks until the context is cancelled. Per-tick errors are logged and
// retried on the next tick.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.tick(ctx, time.Now()); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Warn().Err(err).Msg("shift calculation failed, will retry")
			}
		}
	}
}

func (e *Engine) tick(ctx context.Context, now time.Time) error {
	curr := e.table.Current(now)
	prev := e.table.Previous(now)

	fetchStart := prev.Start
	if curr.Start.Before(fetchStart) {
		fetchStart = curr.Start
	}
	fetchEnd := curr.End
	if now.After(fetchEnd) {
		fetchEnd = now
	}

	for _, machine := range e.machines {
		logs, err := e.store.GetStatusLogs(ctx, machine, fetchStart, fetchEnd)
		if err != nil {
			return fmt.Errorf("fetch logs for %s: %w", machine, err)
		}

		for _, w := range []Window{prev, curr} {
			runtimeS, idleS := ComputeRuntimeIdle(logs, w, now, e.running)
			m := store.ShiftMetric{
				MachineName: machine,
				ShiftName:   w.Name,
				RuntimeS:    runtimeS,
				IdleS:       idleS,
				OtherS:      OtherSeconds(w, now, runtimeS, idleS),
				ShiftStart:  w.Start,
				ShiftEnd:    w.End,
			}
			if err := e.store.SaveShiftMetric(ctx, m); err != nil {
				return err
			}
			if err := e.maybeFinalize(ctx, w, now, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// maybeFinalize writes the one-time final row when the shift has ended.
func (e *Engine) maybeFinalize(ctx context.Context, w Window, now time.Time, m store.ShiftMetric) error {
	if w.End.After(now) {
		return nil
	}
	key := fmt.Sprintf("%s_%s_%s", m.MachineName, m.ShiftName, w.Start.Format(time.RFC3339))
	if _, done := e.finalized[key]; done {
		return nil
	}

	// For a completed shift the unaccounted bucket is derived from the
	// full window duration.
	m.OtherS = w.Duration().Seconds() - m.RuntimeS - m.IdleS
	if m.OtherS < 0 {
		m.OtherS = 0
	}

	if err := e.store.SaveFinalShiftMetric(ctx, m); err != nil {
		return err
	}
	e.finalized[key] = struct{}{}
	e.logger.Info().
		Str("machine", m.MachineName).
		Str("shift", m.ShiftName).
		Time("shift_start", w.Start).
		Msg("shift finalized")
	return nil
}
