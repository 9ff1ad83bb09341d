package store

import (
	"strings"
	"testing"
	"time"
)

func TestTableFor(t *testing.T) {
	ts := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	if got := TableFor(StatusLogPrefix, ts); got != "machine_status_log_2026_08" {
		t.Errorf("TableFor() = %q, want machine_status_log_2026_08", got)
	}
	if got := TableFor(SubProgramPrefix, ts); got != "sub-program_analysis_2026_08" {
		t.Errorf("TableFor() = %q, want sub-program_analysis_2026_08", got)
	}
}

func TestMonthSuffix_Injective(t *testing.T) {
	// Every timestamp within a month maps to that month's table and no other.
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 365; d++ {
		ts := jan.AddDate(0, 0, d)
		want := strings.ToLower(ts.Format("2006_01"))
		if got := monthSuffix(ts); got != want {
			t.Fatalf("monthSuffix(%v) = %q, want %q", ts, got, want)
		}
	}

	// Boundary: the last instant of a month stays in that month.
	endOfJan := time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC)
	if got := monthSuffix(endOfJan); got != "2026_01" {
		t.Errorf("monthSuffix(end of Jan) = %q, want 2026_01", got)
	}
	startOfFeb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := monthSuffix(startOfFeb); got != "2026_02" {
		t.Errorf("monthSuffix(start of Feb) = %q, want 2026_02", got)
	}
}

func TestMonthsCovering(t *testing.T) {
	start := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	months := monthsCovering(start, end)
	want := []string{"2025_11", "2025_12", "2026_01", "2026_02"}
	if len(months) != len(want) {
		t.Fatalf("monthsCovering() = %d months, want %d", len(months), len(want))
	}
	for i, m := range months {
		if got := monthSuffix(m); got != want[i] {
			t.Errorf("month %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestMonthsCovering_SingleMonth(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	if months := monthsCovering(start, end); len(months) != 1 {
		t.Errorf("monthsCovering() = %d months, want 1", len(months))
	}
}

func TestMonthsCovering_Inverted(t *testing.T) {
	start := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if months := monthsCovering(start, end); months != nil {
		t.Errorf("monthsCovering(inverted) = %v, want nil", months)
	}
}

func TestCreateStatementFor_AllPrefixes(t *testing.T) {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	prefixes := []string{
		StatusLogPrefix, ShiftMetricsPrefix, FinalShiftMetricsPrefix,
		ProgramReportPrefix, SubProgramPrefix, MainProgramPrefix,
		LossBreakdownPrefix, LossPerPiecePrefix,
	}
	for _, p := range prefixes {
		table := TableFor(p, ts)
		ddl, err := createStatementFor(table)
		if err != nil {
			t.Errorf("createStatementFor(%q) error: %v", table, err)
			continue
		}
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("createStatementFor(%q) not idempotent: %q", table, ddl)
		}
		if !strings.Contains(ddl, quoteIdent(table)) {
			t.Errorf("createStatementFor(%q) does not reference its table", table)
		}
	}
}

func TestCreateStatementFor_UnknownPrefix(t *testing.T) {
	if _, err := createStatementFor("mystery_table_2026_08"); err == nil {
		t.Error("createStatementFor(unknown) = nil error")
	}
}

func TestCreateStatementFor_ConstraintKeys(t *testing.T) {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	ddl, _ := createStatementFor(TableFor(StatusLogPrefix, ts))
	if !strings.Contains(ddl, "UNIQUE (machine_name, timestamp_log)") {
		t.Error("status log DDL missing dedup constraint")
	}

	ddl, _ = createStatementFor(TableFor(ShiftMetricsPrefix, ts))
	if !strings.Contains(ddl, "PRIMARY KEY (machine_name, shift_name, shift_start_time)") {
		t.Error("shift metrics DDL missing live key")
	}

	ddl, _ = createStatementFor(TableFor(FinalShiftMetricsPrefix, ts))
	if !strings.Contains(ddl, "UNIQUE (machine_name, shift_start_time)") {
		t.Error("final shift metrics DDL missing insert-once key")
	}

	ddl, _ = createStatementFor(TableFor(ProgramReportPrefix, ts))
	if !strings.Contains(ddl, "UNIQUE (machine_name, program_name, start_time)") {
		t.Error("program report DDL missing cycle key")
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("sub-program_analysis_2026_08"); got != `"sub-program_analysis_2026_08"` {
		t.Errorf("quoteIdent() = %s", got)
	}
}
