package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/testutil"
)

// These tests need a live PostgreSQL; they skip themselves otherwise.

func TestStatusLogRoundTrip(t *testing.T) {
	pool := testutil.Pool(t)
	st := New(pool, zerolog.Nop())
	ctx := context.Background()

	ts := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	testutil.DropTables(t, pool, TableFor(StatusLogPrefix, ts))

	spindle := 8000
	entries := []StatusLogEntry{
		{
			MachineName:    "it-machine",
			Timestamp:      ts,
			StatusText:     "Running",
			SpindleSpeed:   &spindle,
			CurrentProgram: "N1-1",
		},
		{MachineName: "it-machine", Timestamp: ts.Add(10 * time.Second), StatusText: "Idle"},
	}
	if err := st.SaveStatusLogs(ctx, entries); err != nil {
		t.Fatalf("SaveStatusLogs() error: %v", err)
	}
	// Duplicate timestamps are skipped, not duplicated.
	if err := st.SaveStatusLogs(ctx, entries); err != nil {
		t.Fatalf("SaveStatusLogs() second call error: %v", err)
	}

	got, err := st.GetStatusLogs(ctx, "it-machine", ts.Add(-time.Minute), ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("GetStatusLogs() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetStatusLogs() = %d rows, want 2", len(got))
	}
	if got[0].StatusText != "Running" || got[0].CurrentProgram != "N1-1" {
		t.Errorf("first row = %+v", got[0])
	}
	if got[0].SpindleSpeed == nil || *got[0].SpindleSpeed != 8000 {
		t.Errorf("spindle = %v, want 8000", got[0].SpindleSpeed)
	}
}

func TestProgramCycleUpsertGrowsEnd(t *testing.T) {
	pool := testutil.Pool(t)
	st := New(pool, zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	testutil.DropTables(t, pool, TableFor(ProgramReportPrefix, start))

	cycle := ProgramCycle{
		MachineName: "it-machine",
		ProgramName: "N7-2",
		Start:       start,
		End:         start.Add(time.Minute),
		DurationS:   60,
		ReportDate:  time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	}
	if err := st.SaveProgramCycles(ctx, []ProgramCycle{cycle}); err != nil {
		t.Fatalf("SaveProgramCycles() error: %v", err)
	}

	cycle.End = start.Add(2 * time.Minute)
	cycle.DurationS = 120
	if err := st.SaveProgramCycles(ctx, []ProgramCycle{cycle}); err != nil {
		t.Fatalf("SaveProgramCycles() upsert error: %v", err)
	}

	got, err := st.GetProgramCycles(ctx, "it-machine",
		cycle.ReportDate, cycle.ReportDate.AddDate(0, 0, 1), "")
	if err != nil {
		t.Fatalf("GetProgramCycles() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetProgramCycles() = %d rows, want 1 (upsert, not insert)", len(got))
	}
	if got[0].DurationS != 120 {
		t.Errorf("DurationS = %d, want 120 after upsert", got[0].DurationS)
	}
}
