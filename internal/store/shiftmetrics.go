package store

import (
	"context"
	"fmt"
	"time"
)

// ShiftMetric is one machine's utilization over one shift window. Live
// rows are refreshed every engine tick; final rows are written once after
// the shift ends.
type ShiftMetric struct {
	MachineName string
	ShiftName   string
	RuntimeS    float64
	IdleS       float64
	OtherS      float64
	ShiftStart  time.Time
	ShiftEnd    time.Time
}

// SaveShiftMetric upserts a live row keyed by (machine, shift, shift_start)
// into the partition of the shift's start month.
func (s *Store) SaveShiftMetric(ctx context.Context, m ShiftMetric) error {
	table := TableFor(ShiftMetricsPrefix, m.ShiftStart)
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (machine_name, shift_name, runtime_seconds, idletime_seconds, other_time_seconds, shift_start_time, shift_end_time, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (machine_name, shift_name, shift_start_time) DO UPDATE SET
			runtime_seconds = EXCLUDED.runtime_seconds,
			idletime_seconds = EXCLUDED.idletime_seconds,
			other_time_seconds = EXCLUDED.other_time_seconds,
			shift_end_time = EXCLUDED.shift_end_time,
			last_updated = now()`,
		quoteIdent(table))

	return s.withWriteLock(func() error {
		_, err := s.pool.Exec(ctx, q,
			m.MachineName, m.ShiftName, m.RuntimeS, m.IdleS, m.OtherS,
			m.ShiftStart.UTC(), m.ShiftEnd.UTC())
		if err != nil {
			return fmt.Errorf("upsert shift metric for %s/%s: %w", m.MachineName, m.ShiftName, err)
		}
		return nil
	})
}

// SaveFinalShiftMetric writes the one-time finalized row for a completed
// shift, insert-or-skip on (machine, shift_start).
func (s *Store) SaveFinalShiftMetric(ctx context.Context, m ShiftMetric) error {
	table := TableFor(FinalShiftMetricsPrefix, m.ShiftStart)
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (machine_name, shift_name, runtime_seconds, idletime_seconds, other_time_seconds, shift_start_time, shift_end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (machine_name, shift_start_time) DO NOTHING`,
		quoteIdent(table))

	return s.withWriteLock(func() error {
		_, err := s.pool.Exec(ctx, q,
			m.MachineName, m.ShiftName, m.RuntimeS, m.IdleS, m.OtherS,
			m.ShiftStart.UTC(), m.ShiftEnd.UTC())
		if err != nil {
			return fmt.Errorf("insert final shift metric for %s/%s: %w", m.MachineName, m.ShiftName, err)
		}
		return nil
	})
}
