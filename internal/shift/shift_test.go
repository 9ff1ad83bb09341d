package shift

import (
	"testing"
	"time"

	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/store"
)

var runningSet = map[string]bool{"Running": true}

func defaultTable() *Table {
	return NewTable([]appconfig.Shift{
		{Name: "shift_1", StartHour: 8, EndHour: 16},
		{Name: "shift_2", StartHour: 16, EndHour: 0},
		{Name: "shift_3", StartHour: 0, EndHour: 8},
	}, time.UTC)
}

func entry(machine string, ts time.Time, status string) store.StatusLogEntry {
	return store.StatusLogEntry{MachineName: machine, Timestamp: ts, StatusText: status}
}

func TestCurrentShift(t *testing.T) {
	table := defaultTable()

	cases := []struct {
		at        time.Time
		wantName  string
		wantStart time.Time
	}{
		{
			at:        time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
			wantName:  "shift_1",
			wantStart: time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC),
		},
		{
			at:        time.Date(2026, 8, 24, 23, 59, 59, 0, time.UTC),
			wantName:  "shift_2",
			wantStart: time.Date(2026, 8, 24, 16, 0, 0, 0, time.UTC),
		},
		{
			at:        time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			wantName:  "shift_3",
			wantStart: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			// Shift start is inclusive.
			at:        time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC),
			wantName:  "shift_1",
			wantStart: time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		w := table.Current(tc.at)
		if w.Name != tc.wantName {
			t.Errorf("Current(%v).Name = %q, want %q", tc.at, w.Name, tc.wantName)
		}
		if !w.Start.Equal(tc.wantStart) {
			t.Errorf("Current(%v).Start = %v, want %v", tc.at, w.Start, tc.wantStart)
		}
	}
}

func TestCurrentShift_MidnightEnd(t *testing.T) {
	table := defaultTable()
	w := table.Current(time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC))
	wantEnd := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Errorf("shift_2 End = %v, want %v", w.End, wantEnd)
	}
}

func TestCurrentShift_UnscheduledFallback(t *testing.T) {
	table := NewTable([]appconfig.Shift{
		{Name: "day", StartHour: 8, EndHour: 16},
	}, time.UTC)
	at := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	w := table.Current(at)
	if w.Name != UnscheduledShift {
		t.Errorf("Current() = %q, want %q", w.Name, UnscheduledShift)
	}
	if w.Duration() != 8*time.Hour {
		t.Errorf("Unscheduled duration = %v, want 8h", w.Duration())
	}
}

func TestCurrentShift_UnscheduledStartStableAcrossTicks(t *testing.T) {
	table := NewTable([]appconfig.Shift{
		{Name: "day", StartHour: 8, EndHour: 16},
	}, time.UTC)

	// The live upsert key includes the window start; successive engine
	// ticks inside the same hour must produce the same window.
	at := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	first := table.Current(at)
	second := table.Current(at.Add(5 * time.Second))

	if !first.Start.Equal(second.Start) {
		t.Errorf("Unscheduled start moved across ticks: %v -> %v", first.Start, second.Start)
	}
	if !first.End.Equal(second.End) {
		t.Errorf("Unscheduled end moved across ticks: %v -> %v", first.End, second.End)
	}
	if first.Start.Minute() != 0 || first.Start.Second() != 0 {
		t.Errorf("Unscheduled start %v not aligned to the hour", first.Start)
	}
	if at.Before(first.Start) || !at.Before(first.End) {
		t.Errorf("window [%v, %v) does not contain %v", first.Start, first.End, at)
	}
}

func TestPreviousShift(t *testing.T) {
	table := defaultTable()

	// During shift_1, the previous shift is last night's shift_3.
	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	w := table.Previous(at)
	if w.Name != "shift_3" {
		t.Errorf("Previous().Name = %q, want shift_3", w.Name)
	}
	if !w.Start.Equal(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Previous().Start = %v", w.Start)
	}

	// During shift_3 (just after midnight), previous is yesterday's shift_2.
	at = time.Date(2026, 8, 24, 1, 0, 0, 0, time.UTC)
	w = table.Previous(at)
	if w.Name != "shift_2" {
		t.Errorf("Previous().Name = %q, want shift_2", w.Name)
	}
	if !w.Start.Equal(time.Date(2026, 8, 23, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("Previous().Start = %v", w.Start)
	}
}

func TestComputeRuntimeIdle_BoundarySynthesis(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{
		Name:  "shift_1",
		Start: day.Add(8 * time.Hour),
		End:   day.Add(16 * time.Hour),
	}
	logs := []store.StatusLogEntry{
		entry("m", day.Add(7*time.Hour+50*time.Minute), "Running"),
		entry("m", day.Add(8*time.Hour+30*time.Minute), "Idle"),
		entry("m", day.Add(9*time.Hour), "Running"),
		entry("m", day.Add(16*time.Hour), "Idle"),
	}
	now := day.Add(17 * time.Hour)

	runtimeS, idleS := ComputeRuntimeIdle(logs, w, now, runningSet)

	wantRuntime := (30*time.Minute + 7*time.Hour).Seconds()
	wantIdle := (30 * time.Minute).Seconds()
	if runtimeS != wantRuntime {
		t.Errorf("runtime = %v, want %v", runtimeS, wantRuntime)
	}
	if idleS != wantIdle {
		t.Errorf("idle = %v, want %v", idleS, wantIdle)
	}
	if other := OtherSeconds(w, now, runtimeS, idleS); other != 0 {
		t.Errorf("other = %v, want 0", other)
	}
}

func TestComputeRuntimeIdle_OngoingShift(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{Start: day.Add(8 * time.Hour), End: day.Add(16 * time.Hour)}
	logs := []store.StatusLogEntry{
		entry("m", day.Add(8*time.Hour), "Running"),
	}
	now := day.Add(10 * time.Hour)

	runtimeS, idleS := ComputeRuntimeIdle(logs, w, now, runningSet)
	if runtimeS != (2 * time.Hour).Seconds() {
		t.Errorf("runtime = %v, want 2h (segment ends at now, not shift end)", runtimeS)
	}
	if idleS != 0 {
		t.Errorf("idle = %v, want 0", idleS)
	}
}

func TestComputeRuntimeIdle_NoLogs(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{Start: day.Add(8 * time.Hour), End: day.Add(16 * time.Hour)}
	runtimeS, idleS := ComputeRuntimeIdle(nil, w, day.Add(12*time.Hour), runningSet)
	if runtimeS != 0 || idleS != 0 {
		t.Errorf("runtime, idle = %v, %v, want 0, 0", runtimeS, idleS)
	}
}

func TestComputeRuntimeIdle_DuplicateTimestampsKeepNewest(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{Start: day.Add(8 * time.Hour), End: day.Add(16 * time.Hour)}
	ts := day.Add(8 * time.Hour)
	logs := []store.StatusLogEntry{
		entry("m", ts, "Idle"),
		entry("m", ts, "Running"), // later duplicate wins
		entry("m", day.Add(9*time.Hour), "Idle"),
	}
	now := day.Add(16 * time.Hour)

	runtimeS, idleS := ComputeRuntimeIdle(logs, w, now, runningSet)
	if runtimeS != (1 * time.Hour).Seconds() {
		t.Errorf("runtime = %v, want 1h", runtimeS)
	}
	if idleS != (7 * time.Hour).Seconds() {
		t.Errorf("idle = %v, want 7h", idleS)
	}
}

func TestComputeRuntimeIdle_NeverExceedsWindow(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{Start: day.Add(8 * time.Hour), End: day.Add(16 * time.Hour)}
	logs := []store.StatusLogEntry{
		entry("m", day.Add(6*time.Hour), "Running"),
		entry("m", day.Add(12*time.Hour), "Idle"),
		entry("m", day.Add(20*time.Hour), "Running"), // beyond window
	}
	now := day.Add(24 * time.Hour)

	runtimeS, idleS := ComputeRuntimeIdle(logs, w, now, runningSet)
	if total, max := runtimeS+idleS, w.Duration().Seconds(); total > max {
		t.Errorf("runtime+idle = %v exceeds window %v", total, max)
	}
}

func TestOtherSeconds_NeverNegative(t *testing.T) {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	w := Window{Start: day, End: day.Add(8 * time.Hour)}
	if got := OtherSeconds(w, day.Add(8*time.Hour), 30000, 30000); got != 0 {
		t.Errorf("OtherSeconds() = %v, want 0", got)
	}
}
