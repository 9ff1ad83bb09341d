package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ProgramCycle is one contiguous running interval for a program.
type ProgramCycle struct {
	MachineName string
	ProgramName string
	Start       time.Time
	End         time.Time
	DurationS   int
	ReportDate  time.Time // date component of Start
}

// SaveProgramCycles upserts cycles into the partitions of their start
// months. On key collision the end time and duration are refreshed, so an
// in-progress cycle grows across engine runs.
func (s *Store) SaveProgramCycles(ctx context.Context, cycles []ProgramCycle) error {
	if len(cycles) == 0 {
		return nil
	}

	byTable := make(map[string][]ProgramCycle)
	for _, c := range cycles {
		t := TableFor(ProgramReportPrefix, c.Start)
		byTable[t] = append(byTable[t], c)
	}

	for table, group := range byTable {
		if err := s.EnsureTable(ctx, table); err != nil {
			return err
		}
		q := fmt.Sprintf(`
			INSERT INTO %s (machine_name, program_name, start_time, end_time, duration_seconds, report_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (machine_name, program_name, start_time) DO UPDATE SET
				end_time = EXCLUDED.end_time,
				duration_seconds = EXCLUDED.duration_seconds`,
			quoteIdent(table))

		err := s.withWriteLock(func() error {
			for _, c := range group {
				_, err := s.pool.Exec(ctx, q,
					c.MachineName, c.ProgramName, c.Start.UTC(), c.End.UTC(),
					c.DurationS, c.ReportDate.UTC())
				if err != nil {
					return fmt.Errorf("upsert cycle %s/%s: %w", c.MachineName, c.ProgramName, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetProgramCycles returns cycles for one machine whose report_date falls
// in [startDate, endDate], ascending by start time. programFilter, when
// non-empty, restricts rows to program names containing it
// (case-insensitive); an empty filter matches everything.
func (s *Store) GetProgramCycles(ctx context.Context, machine string, startDate, endDate time.Time, programFilter string) ([]ProgramCycle, error) {
	var out []ProgramCycle
	for _, month := range monthsCovering(startDate, endDate) {
		table := TableFor(ProgramReportPrefix, month)
		exists, err := s.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		q := fmt.Sprintf(`
			SELECT machine_name, program_name, start_time, end_time, duration_seconds, report_date
			FROM %s
			WHERE machine_name = $1 AND report_date >= $2 AND report_date <= $3
			  AND ($4 = '' OR program_name ILIKE '%%' || $4 || '%%')
			ORDER BY start_time ASC`, quoteIdent(table))

		rows, err := s.pool.Query(ctx, q, machine, startDate.UTC(), endDate.UTC(), programFilter)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		for rows.Next() {
			var c ProgramCycle
			if err := rows.Scan(&c.MachineName, &c.ProgramName, &c.Start, &c.End, &c.DurationS, &c.ReportDate); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", table, err)
			}
			out = append(out, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// RenameProgram rewrites a program name across every program_report
// partition in the date range, inside one transaction. Administrative
// operation; not a hot path.
func (s *Store) RenameProgram(ctx context.Context, machine, oldName, newName string, startDate, endDate time.Time) (int64, error) {
	var total int64
	err := s.withWriteLock(func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin rename tx: %w", err)
		}
		defer tx.Rollback(ctx)

		for _, month := range monthsCovering(startDate, endDate) {
			table := TableFor(ProgramReportPrefix, month)
			exists, err := s.tableExists(ctx, table)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			q := fmt.Sprintf(`
				UPDATE %s SET program_name = $1
				WHERE machine_name = $2 AND program_name = $3
				  AND report_date >= $4 AND report_date <= $5`, quoteIdent(table))
			tag, err := tx.Exec(ctx, q, newName, machine, oldName, startDate.UTC(), endDate.UTC())
			if err != nil {
				return fmt.Errorf("rename in %s: %w", table, err)
			}
			total += tag.RowsAffected()
		}

		return tx.Commit(ctx)
	})
	return total, err
}
