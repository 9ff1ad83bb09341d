package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/store"
)

// Engine rescans the recent status log on a fixed cadence and upserts the
// cycles it finds. Re-scanning the same window is idempotent: the upsert
// key is (machine, program, start) and only the end time grows.
type Engine struct {
	store    *store.Store
	machines []string
	running  map[string]bool
	interval time.Duration
	logger   zerolog.Logger
}

func NewEngine(st *store.Store, machines []string, running map[string]bool, interval time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    st,
		machines: machines,
		running:  running,
		interval: interval,
		logger:   logger.With().Str("component", "cycle-engine").Logger(),
	}
}

// Run ticks until the context is cancelled.
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
				e.logger.Warn().Err(err).Msg("cycle scan failed, will retry")
			}
		}
	}
}

// tick scans from the start of the previous local day through the end of
// today, so cycles spanning midnight stay whole.
func (e *Engine) tick(ctx context.Context, now time.Time) error {
	local := now.Local()
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location()).AddDate(0, 0, -1)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, int(time.Second-time.Microsecond), local.Location())

	for _, machine := range e.machines {
		logs, err := e.store.GetStatusLogs(ctx, machine, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("fetch logs for %s: %w", machine, err)
		}
		cycles := Scan(logs, e.running)
		if len(cycles) == 0 {
			continue
		}
		if err := e.store.SaveProgramCycles(ctx, cycles); err != nil {
			return err
		}
		e.logger.Debug().Str("machine", machine).Int("cycles", len(cycles)).Msg("cycles saved")
	}
	return nil
}
