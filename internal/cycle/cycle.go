// Package cycle reconstructs program execution cycles from the status log.
// A cycle is a maximal contiguous running interval; the program captured at
// the cycle's start names it for its whole duration.
package cycle

import (
	"math"
	"time"

	"github.com/Atot4/iot-project/internal/store"
)

// NoProgram labels cycles whose opening log entry carried no program.
const NoProgram = "N/A (No Program)"

// minCycleDuration filters sub-millisecond cycles, which are polling noise.
const minCycleDuration = time.Millisecond

// Scan walks logs in ascending time order and returns the closed cycles.
// A cycle opens when the status enters the running set and closes when it
// leaves it; program changes while running do not split a cycle. A cycle
// still open after the last entry closes at that entry's timestamp.
func Scan(logs []store.StatusLogEntry, running map[string]bool) []store.ProgramCycle {
	var cycles []store.ProgramCycle

	var (
		open      bool
		start     time.Time
		program   string
		machine   string
		lastStamp time.Time
	)

	for _, e := range logs {
		lastStamp = e.Timestamp
		isRunning := running[e.StatusText]

		switch {
		case !open && isRunning:
			open = true
			start = e.Timestamp
			machine = e.MachineName
			program = e.CurrentProgram
			if program == "" {
				program = NoProgram
			}
		case open && !isRunning:
			cycles = appendCycle(cycles, machine, program, start, e.Timestamp)
			open = false
		}
	}

	if open {
		cycles = appendCycle(cycles, machine, program, start, lastStamp)
	}
	return cycles
}

func appendCycle(cycles []store.ProgramCycle, machine, program string, start, end time.Time) []store.ProgramCycle {
	d := end.Sub(start)
	if d < minCycleDuration {
		return cycles
	}
	return append(cycles, store.ProgramCycle{
		MachineName: machine,
		ProgramName: program,
		Start:       start,
		End:         end,
		DurationS:   int(math.Round(d.Seconds())),
		ReportDate:  dateOf(start),
	})
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
