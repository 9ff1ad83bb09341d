package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/store"
)

// Engine answers dashboard queries. It runs in the caller's request
// scope rather than in a background loop; each call reads the cycle and
// status tables fresh.
type Engine struct {
	store        *store.Store
	running      map[string]bool
	gapThreshold time.Duration
	logger       zerolog.Logger
}

func NewEngine(st *store.Store, running map[string]bool, gapThreshold time.Duration, logger zerolog.Logger) *Engine {
	if gapThreshold <= 0 {
		gapThreshold = DefaultSessionGap
	}
	return &Engine{
		store:        st,
		running:      running,
		gapThreshold: gapThreshold,
		logger:       logger.With().Str("component", "analysis").Logger(),
	}
}

// SubProgramReport builds the efficiency view for one machine and date
// range. mainFilter optionally narrows cycles to programs containing the
// substring; targets supplies operator reference figures per program.
func (e *Engine) SubProgramReport(ctx context.Context, machine string, from, to time.Time, mainFilter string, targets map[string]Target) ([]store.SubProgramReport, error) {
	cycles, err := e.store.GetProgramCycles(ctx, machine, from, to, mainFilter)
	if err != nil {
		return nil, fmt.Errorf("fetch cycles for %s: %w", machine, err)
	}
	logs, err := e.store.GetStatusLogs(ctx, machine, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for %s: %w", machine, err)
	}

	reports := BuildSubProgramReports(machine, dateOf(from), cycles, logs, e.running, targets)
	e.logger.Debug().
		Str("machine", machine).
		Int("programs", len(reports)).
		Msg("sub-program report built")
	return reports, nil
}

// SessionAnalysis segments the status log over the range into sessions
// of the given main program. A zero gap override uses the engine's
// configured threshold.
func (e *Engine) SessionAnalysis(ctx context.Context, machine, mainName string, from, to time.Time, gapOverride time.Duration) ([]Session, error) {
	logs, err := e.store.GetStatusLogs(ctx, machine, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch logs for %s: %w", machine, err)
	}

	gap := e.gapThreshold
	if gapOverride > 0 {
		gap = gapOverride
	}
	sessions := Sessions(Pieces(logs, to), mainName, e.running, gap)
	e.logger.Debug().
		Str("machine", machine).
		Str("main_name", mainName).
		Int("sessions", len(sessions)).
		Msg("session analysis built")
	return sessions, nil
}

// ArchiveSubProgramReports persists efficiency rows to the monthly
// archive.
func (e *Engine) ArchiveSubProgramReports(ctx context.Context, reports []store.SubProgramReport) error {
	for _, r := range reports {
		if err := e.store.SaveSubProgramReport(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveSessions persists sessions plus their loss breakdowns. qty is
// the operator-supplied piece count for the whole range; it feeds both
// the per-session quantity column and the per-piece loss view.
func (e *Engine) ArchiveSessions(ctx context.Context, machine string, reportDate time.Time, sessions []Session, qty int, notesQty string) error {
	for _, s := range sessions {
		row := store.MainProgramSession{
			MachineName:     machine,
			ProgramMainName: s.MainName,
			SessionStart:    s.Start,
			SessionEnd:      s.End,
			TotalProcessS:   s.ProcessS,
			TotalLossS:      s.LossS,
			CycleTimeS:      s.CycleTimeS(),
			Quantity:        qty,
			Notes:           strings.Join(s.Notes, "; "),
			NotesQty:        notesQty,
		}
		if err := e.store.SaveMainProgramSession(ctx, row); err != nil {
			return err
		}
	}

	breakdown := LossBreakdown(machine, reportDate, sessions, 0)
	if err := e.store.SaveLossBreakdown(ctx, breakdown, false); err != nil {
		return err
	}
	if qty > 0 {
		perPiece := LossBreakdown(machine, reportDate, sessions, qty)
		if err := e.store.SaveLossBreakdown(ctx, perPiece, true); err != nil {
			return err
		}
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
