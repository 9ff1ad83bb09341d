// Package shift computes per-shift machine utilization. Shifts are named
// wall-clock intervals in local time; the engine buckets status log
// segments into runtime and idle and derives the unaccounted remainder.
package shift

import (
	"time"

	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/store"
)

// UnscheduledShift covers instants no configured shift contains.
const UnscheduledShift = "Unscheduled"

// Window is one shift occurrence with resolved UTC boundaries.
type Window struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Table resolves instants to shift windows using a fixed location.
type Table struct {
	shifts []appconfig.Shift
	loc    *time.Location
}

// NewTable builds a Table. A nil location means host local time.
func NewTable(shifts []appconfig.Shift, loc *time.Location) *Table {
	if loc == nil {
		loc = time.Local
	}
	return &Table{shifts: shifts, loc: loc}
}

// Current returns the shift window containing t (start inclusive, end
// exclusive). When no configured shift matches, an Unscheduled window
// spanning ±4h around t's hour is returned. Anchoring to the hour keeps
// the window start, and with it the live upsert key, stable across
// engine ticks.
func (t *Table) Current(at time.Time) Window {
	local := at.In(t.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.loc)

	for _, s := range t.shifts {
		start := day.Add(time.Duration(s.StartHour) * time.Hour)
		var end time.Time
		if s.EndHour == 0 {
			end = day.AddDate(0, 0, 1)
		} else {
			end = day.Add(time.Duration(s.EndHour) * time.Hour)
		}
		if !local.Before(start) && local.Before(end) {
			return Window{Name: s.Name, Start: start.UTC(), End: end.UTC()}
		}
	}

	hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, t.loc)
	return Window{
		Name:  UnscheduledShift,
		Start: hour.Add(-4 * time.Hour).UTC(),
		End:   hour.Add(4 * time.Hour).UTC(),
	}
}

// Previous returns the shift window containing the instant one second
// before the current shift's start.
func (t *Table) Previous(at time.Time) Window {
	curr := t.Current(at)
	return t.Current(curr.Start.Add(-time.Second))
}

// ComputeRuntimeIdle buckets the log entries into runtime and idle seconds
// over the window [w.Start, w.End], evaluated at time now.
//
// When the earliest in-window entry starts after the window and an earlier
// entry exists, a synthetic entry at the window start carries the preceding
// status in. Exact-timestamp duplicates collapse to the most recent. Each
// segment runs from one entry to the next; the final segment ends at now
// while the shift is ongoing, else at the window end.
func ComputeRuntimeIdle(logs []store.StatusLogEntry, w Window, now time.Time, running map[string]bool) (runtimeS, idleS float64) {
	var inWindow []store.StatusLogEntry
	var preceding *store.StatusLogEntry
	for i := range logs {
		e := logs[i]
		switch {
		case e.Timestamp.Before(w.Start):
			preceding = &logs[i]
		case !e.Timestamp.After(w.End):
			inWindow = append(inWindow, e)
		}
	}

	if preceding != nil && (len(inWindow) == 0 || inWindow[0].Timestamp.After(w.Start)) {
		synth := *preceding
		synth.Timestamp = w.Start
		inWindow = append([]store.StatusLogEntry{synth}, inWindow...)
	}
	if len(inWindow) == 0 {
		return 0, 0
	}

	// Collapse exact-timestamp duplicates, keeping the later entry.
	dedup := inWindow[:1]
	for _, e := range inWindow[1:] {
		if e.Timestamp.Equal(dedup[len(dedup)-1].Timestamp) {
			dedup[len(dedup)-1] = e
			continue
		}
		dedup = append(dedup, e)
	}

	windowEnd := w.End
	if now.Before(windowEnd) {
		windowEnd = now
	}

	for i, e := range dedup {
		segStart := e.Timestamp
		if segStart.Before(w.Start) {
			segStart = w.Start
		}
		var segEnd time.Time
		if i+1 < len(dedup) {
			segEnd = dedup[i+1].Timestamp
		} else {
			segEnd = windowEnd
		}
		if segEnd.After(windowEnd) {
			segEnd = windowEnd
		}
		d := segEnd.Sub(segStart).Seconds()
		if d <= 0 {
			continue
		}
		if running[e.StatusText] {
			runtimeS += d
		} else {
			idleS += d
		}
	}
	return runtimeS, idleS
}

// OtherSeconds derives the unaccounted bucket for a window evaluated at
// now. Never negative.
func OtherSeconds(w Window, now time.Time, runtimeS, idleS float64) float64 {
	end := w.End
	if now.Before(end) {
		end = now
	}
	other := end.Sub(w.Start).Seconds() - runtimeS - idleS
	if other < 0 {
		return 0
	}
	return other
}
