package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// StatusLogEntry is one persisted machine sample. Raw preserves the
// pre-normalization reading as JSON.
type StatusLogEntry struct {
	MachineName    string
	Timestamp      time.Time
	StatusText     string
	SpindleSpeed   *int
	FeedRate       *int
	CurrentProgram string
	Raw            []byte
}

// SaveStatusLogs writes one row per entry into the current month's
// partition, insert-or-skip on (machine_name, timestamp_log). Re-running
// with the same entries produces no new rows.
func (s *Store) SaveStatusLogs(ctx context.Context, entries []StatusLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Entries may straddle a month boundary around midnight on the 1st.
	byTable := make(map[string][]StatusLogEntry)
	for _, e := range entries {
		t := TableFor(StatusLogPrefix, e.Timestamp)
		byTable[t] = append(byTable[t], e)
	}

	for table, group := range byTable {
		if err := s.EnsureTable(ctx, table); err != nil {
			return err
		}
		q := fmt.Sprintf(`
			INSERT INTO %s (machine_name, timestamp_log, status_text, spindle_speed, feed_rate, current_program, raw_log_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (machine_name, timestamp_log) DO NOTHING`,
			quoteIdent(table))

		err := s.withWriteLock(func() error {
			for _, e := range group {
				var program *string
				if e.CurrentProgram != "" {
					program = &e.CurrentProgram
				}
				_, err := s.pool.Exec(ctx, q,
					e.MachineName, utc(e.Timestamp), e.StatusText,
					e.SpindleSpeed, e.FeedRate, program, e.Raw)
				if err != nil {
					return fmt.Errorf("insert status log for %s: %w", e.MachineName, err)
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

// GetStatusLogs returns all entries for one machine in [start, end],
// ascending, unioned over every monthly partition the range touches.
// Partitions that never existed are skipped; partitions predating the
// current_program column are read without it.
func (s *Store) GetStatusLogs(ctx context.Context, machine string, start, end time.Time) ([]StatusLogEntry, error) {
	var out []StatusLogEntry
	for _, month := range monthsCovering(start, end) {
		table := TableFor(StatusLogPrefix, month)
		exists, err := s.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		entries, err := s.queryStatusLogs(ctx, table, machine, start, end, true)
		if isUndefinedColumn(err) {
			entries, err = s.queryStatusLogs(ctx, table, machine, start, end, false)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) queryStatusLogs(ctx context.Context, table, machine string, start, end time.Time, withProgram bool) ([]StatusLogEntry, error) {
	cols := "machine_name, timestamp_log, status_text, spindle_speed, feed_rate"
	if withProgram {
		cols += ", current_program"
	}
	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE machine_name = $1 AND timestamp_log >= $2 AND timestamp_log <= $3
		ORDER BY timestamp_log ASC`, cols, quoteIdent(table))

	rows, err := s.pool.Query(ctx, q, machine, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var entries []StatusLogEntry
	for rows.Next() {
		var (
			e       StatusLogEntry
			status  *string
			program *string
		)
		dest := []any{&e.MachineName, &e.Timestamp, &status, &e.SpindleSpeed, &e.FeedRate}
		if withProgram {
			dest = append(dest, &program)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if status != nil {
			e.StatusText = *status
		}
		if program != nil {
			e.CurrentProgram = *program
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42703"
}
