package store

import (
	"fmt"
	"strings"
	"time"
)

// Monthly table prefixes. Every time-indexed table is sharded by calendar
// month with a lowercase YYYY_MM suffix.
const (
	StatusLogPrefix         = "machine_status_log_"
	ShiftMetricsPrefix      = "shift_metrics_"
	FinalShiftMetricsPrefix = "final_shift_metrics_"
	ProgramReportPrefix     = "program_report_"
	SubProgramPrefix        = "sub-program_analysis_"
	MainProgramPrefix       = "main_program_analysis_"
	LossBreakdownPrefix     = "loss_breakdown_"
	LossPerPiecePrefix      = "loss_breakdown_per_piece_"
)

// monthSuffix returns the YYYY_MM shard suffix for t. Timestamps are
// sharded by their UTC month.
func monthSuffix(t time.Time) string {
	return strings.ToLower(t.UTC().Format("2006_01"))
}

// TableFor returns the monthly table name for a prefix and timestamp.
func TableFor(prefix string, t time.Time) string {
	return prefix + monthSuffix(t)
}

// monthsCovering returns the first day (UTC) of every month touched by the
// inclusive range [start, end], in ascending order.
func monthsCovering(start, end time.Time) []time.Time {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return nil
	}
	var months []time.Time
	m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(last) {
		months = append(months, m)
		m = m.AddDate(0, 1, 0)
	}
	return months
}

// quoteIdent quotes a table name for interpolation into DDL and queries.
// Table names here are built from fixed prefixes and a digit suffix, never
// from user input; quoting exists because some prefixes contain a dash.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createStatementFor returns the idempotent DDL for a monthly table name,
// or an error when the name does not match a known prefix.
func createStatementFor(table string) (string, error) {
	q := quoteIdent(table)
	switch {
	case strings.HasPrefix(table, StatusLogPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				machine_name TEXT NOT NULL,
				timestamp_log TIMESTAMPTZ NOT NULL,
				status_text TEXT,
				spindle_speed INTEGER,
				feed_rate INTEGER,
				current_program TEXT,
				raw_log_data JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (machine_name, timestamp_log)
			)`, q), nil

	case strings.HasPrefix(table, ShiftMetricsPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				machine_name TEXT NOT NULL,
				shift_name TEXT NOT NULL,
				runtime_seconds REAL NOT NULL DEFAULT 0,
				idletime_seconds REAL NOT NULL DEFAULT 0,
				other_time_seconds REAL NOT NULL DEFAULT 0,
				shift_start_time TIMESTAMPTZ NOT NULL,
				shift_end_time TIMESTAMPTZ NOT NULL,
				last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (machine_name, shift_name, shift_start_time)
			)`, q), nil

	case strings.HasPrefix(table, FinalShiftMetricsPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				machine_name TEXT NOT NULL,
				shift_name TEXT NOT NULL,
				runtime_seconds REAL NOT NULL DEFAULT 0,
				idletime_seconds REAL NOT NULL DEFAULT 0,
				other_time_seconds REAL NOT NULL DEFAULT 0,
				shift_start_time TIMESTAMPTZ NOT NULL,
				shift_end_time TIMESTAMPTZ NOT NULL,
				date_saved TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (machine_name, shift_start_time)
			)`, q), nil

	case strings.HasPrefix(table, ProgramReportPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				machine_name TEXT NOT NULL,
				program_name TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ NOT NULL,
				duration_seconds INTEGER NOT NULL,
				report_date DATE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (machine_name, program_name, start_time)
			);
			CREATE INDEX IF NOT EXISTS %s ON %s (machine_name);
			CREATE INDEX IF NOT EXISTS %s ON %s (report_date);
			CREATE INDEX IF NOT EXISTS %s ON %s (program_name)`,
			q,
			quoteIdent("idx_"+table+"_machine"), q,
			quoteIdent("idx_"+table+"_date"), q,
			quoteIdent("idx_"+table+"_program"), q), nil

	case strings.HasPrefix(table, SubProgramPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				machine_name TEXT NOT NULL,
				report_date DATE NOT NULL,
				program_name TEXT NOT NULL,
				actual_avg_duration_seconds REAL NOT NULL DEFAULT 0,
				target_duration_seconds REAL NOT NULL DEFAULT 0,
				efficiency_percent REAL NOT NULL DEFAULT 0,
				efficiency_status TEXT,
				actual_spindle_speed INTEGER,
				target_spindle_speed INTEGER,
				actual_feed_rate INTEGER,
				target_feed_rate INTEGER,
				quantity INTEGER NOT NULL DEFAULT 1,
				notes TEXT,
				archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (machine_name, report_date, program_name)
			)`, q), nil

	case strings.HasPrefix(table, MainProgramPrefix):
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				machine_name TEXT NOT NULL,
				program_main_name TEXT NOT NULL,
				session_start_time TIMESTAMPTZ NOT NULL,
				session_end_time TIMESTAMPTZ NOT NULL,
				total_process_time_seconds REAL NOT NULL DEFAULT 0,
				total_loss_time_seconds REAL NOT NULL DEFAULT 0,
				cycle_time_seconds REAL NOT NULL DEFAULT 0,
				quantity INTEGER NOT NULL DEFAULT 1,
				notes TEXT,
				notes_qty TEXT,
				archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (machine_name, program_main_name, session_start_time)
			)`, q), nil

	case strings.HasPrefix(table, LossPerPiecePrefix):
		return lossBreakdownDDL(q), nil

	case strings.HasPrefix(table, LossBreakdownPrefix):
		return lossBreakdownDDL(q), nil
	}
	return "", fmt.Errorf("no schema known for table %q", table)
}

func lossBreakdownDDL(quoted string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			machine_name TEXT NOT NULL,
			report_date DATE NOT NULL,
			loss_category TEXT NOT NULL,
			duration_seconds REAL NOT NULL DEFAULT 0,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (machine_name, report_date, loss_category)
		)`, quoted)
}
