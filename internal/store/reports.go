package store

import (
	"context"
	"fmt"
	"time"
)

// SubProgramReport is one archived sub-program efficiency row.
type SubProgramReport struct {
	MachineName        string
	ReportDate         time.Time
	ProgramName        string
	ActualAvgDurationS float64
	TargetDurationS    float64
	EfficiencyPct      float64
	EfficiencyStatus   string
	ActualSpindle      int
	TargetSpindle      int
	ActualFeed         int
	TargetFeed         int
	Quantity           int
	Notes              string
}

// MainProgramSession is one archived main-program session row.
type MainProgramSession struct {
	MachineName     string
	ProgramMainName string
	SessionStart    time.Time
	SessionEnd      time.Time
	TotalProcessS   float64
	TotalLossS      float64
	CycleTimeS      float64
	Quantity        int
	Notes           string
	NotesQty        string
}

// LossBreakdownRow is one archived loss category total.
type LossBreakdownRow struct {
	MachineName string
	ReportDate  time.Time
	Category    string
	DurationS   float64
}

// SaveSubProgramReport upserts an efficiency row, refreshing every non-key
// column and stamping archived_at.
func (s *Store) SaveSubProgramReport(ctx context.Context, r SubProgramReport) error {
	table := TableFor(SubProgramPrefix, r.ReportDate)
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (machine_name, report_date, program_name,
			actual_avg_duration_seconds, target_duration_seconds,
			efficiency_percent, efficiency_status,
			actual_spindle_speed, target_spindle_speed,
			actual_feed_rate, target_feed_rate,
			quantity, notes, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		ON CONFLICT (machine_name, report_date, program_name) DO UPDATE SET
			actual_avg_duration_seconds = EXCLUDED.actual_avg_duration_seconds,
			target_duration_seconds = EXCLUDED.target_duration_seconds,
			efficiency_percent = EXCLUDED.efficiency_percent,
			efficiency_status = EXCLUDED.efficiency_status,
			actual_spindle_speed = EXCLUDED.actual_spindle_speed,
			target_spindle_speed = EXCLUDED.target_spindle_speed,
			actual_feed_rate = EXCLUDED.actual_feed_rate,
			target_feed_rate = EXCLUDED.target_feed_rate,
			quantity = EXCLUDED.quantity,
			notes = EXCLUDED.notes,
			archived_at = now()`,
		quoteIdent(table))

	return s.withWriteLock(func() error {
		_, err := s.pool.Exec(ctx, q,
			r.MachineName, r.ReportDate.UTC(), r.ProgramName,
			r.ActualAvgDurationS, r.TargetDurationS,
			r.EfficiencyPct, r.EfficiencyStatus,
			r.ActualSpindle, r.TargetSpindle,
			r.ActualFeed, r.TargetFeed,
			r.Quantity, r.Notes)
		if err != nil {
			return fmt.Errorf("upsert sub-program report %s/%s: %w", r.MachineName, r.ProgramName, err)
		}
		return nil
	})
}

// SaveMainProgramSession upserts a session row keyed by
// (machine, main name, session start).
func (s *Store) SaveMainProgramSession(ctx context.Context, r MainProgramSession) error {
	table := TableFor(MainProgramPrefix, r.SessionStart)
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (machine_name, program_main_name, session_start_time, session_end_time,
			total_process_time_seconds, total_loss_time_seconds, cycle_time_seconds,
			quantity, notes, notes_qty, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (machine_name, program_main_name, session_start_time) DO UPDATE SET
			session_end_time = EXCLUDED.session_end_time,
			total_process_time_seconds = EXCLUDED.total_process_time_seconds,
			total_loss_time_seconds = EXCLUDED.total_loss_time_seconds,
			cycle_time_seconds = EXCLUDED.cycle_time_seconds,
			quantity = EXCLUDED.quantity,
			notes = EXCLUDED.notes,
			notes_qty = EXCLUDED.notes_qty,
			archived_at = now()`,
		quoteIdent(table))

	return s.withWriteLock(func() error {
		_, err := s.pool.Exec(ctx, q,
			r.MachineName, r.ProgramMainName, r.SessionStart.UTC(), r.SessionEnd.UTC(),
			r.TotalProcessS, r.TotalLossS, r.CycleTimeS,
			r.Quantity, r.Notes, r.NotesQty)
		if err != nil {
			return fmt.Errorf("upsert main-program session %s/%s: %w", r.MachineName, r.ProgramMainName, err)
		}
		return nil
	})
}

// SaveLossBreakdown upserts loss category rows. perPiece selects the
// per-piece archive table.
func (s *Store) SaveLossBreakdown(ctx context.Context, rows []LossBreakdownRow, perPiece bool) error {
	prefix := LossBreakdownPrefix
	if perPiece {
		prefix = LossPerPiecePrefix
	}

	for _, r := range rows {
		table := TableFor(prefix, r.ReportDate)
		if err := s.EnsureTable(ctx, table); err != nil {
			return err
		}
		q := fmt.Sprintf(`
			INSERT INTO %s (machine_name, report_date, loss_category, duration_seconds, archived_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (machine_name, report_date, loss_category) DO UPDATE SET
				duration_seconds = EXCLUDED.duration_seconds,
				archived_at = now()`,
			quoteIdent(table))

		err := s.withWriteLock(func() error {
			_, err := s.pool.Exec(ctx, q, r.MachineName, r.ReportDate.UTC(), r.Category, r.DurationS)
			if err != nil {
				return fmt.Errorf("upsert loss breakdown %s/%s: %w", r.MachineName, r.Category, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
