// Package analysis computes on-demand efficiency reports from the cycle
// table and the raw status log: per-sub-program target-vs-actual figures,
// main-program session segmentation, and loss-time breakdowns.
package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Atot4/iot-project/internal/store"
)

// DefaultSessionGap separates sessions when no configured threshold applies.
const DefaultSessionGap = 300 * time.Second

// MainName returns the program text before the first dash, trimmed.
// "N1234-5B77" has main name "N1234".
func MainName(program string) string {
	if i := strings.Index(program, "-"); i >= 0 {
		program = program[:i]
	}
	return strings.TrimSpace(program)
}

// IsStandardProgram reports whether the program's main name follows the
// shop naming convention (leading N, case-insensitive). Anything else is
// treated as loss context during session analysis.
func IsStandardProgram(program string) bool {
	main := MainName(program)
	return main != "" && (main[0] == 'N' || main[0] == 'n')
}

// Mode returns the modal value of vs, preferring nonzero samples: zeros
// only win when every sample is zero. Ties break toward the smaller value
// so the result is deterministic.
func Mode(vs []int) int {
	counts := make(map[int]int)
	for _, v := range vs {
		if v != 0 {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return 0
	}
	best, bestN := 0, 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// Efficiency returns min(100, target/actual x 100), or 0 when there is no
// actual time to compare against.
func Efficiency(targetS, actualPerPieceS float64) float64 {
	if actualPerPieceS <= 0 {
		return 0
	}
	pct := targetS / actualPerPieceS * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// EfficiencyBand buckets a percentage into Good / Average / Bad.
func EfficiencyBand(pct float64) string {
	switch {
	case pct >= 85:
		return "Good"
	case pct >= 75:
		return "Average"
	default:
		return "Bad"
	}
}

// Target carries the operator-supplied reference figures for one
// sub-program. Quantity defaults to 1 when unset.
type Target struct {
	DurationS float64
	Quantity  int
	Spindle   int
	Feed      int
	Notes     string
}

// BuildSubProgramReports groups cycles by program name and joins each
// group with its operator target and with spindle/feed modes taken from
// Running-status log entries for that program.
func BuildSubProgramReports(machine string, reportDate time.Time, cycles []store.ProgramCycle, logs []store.StatusLogEntry, running map[string]bool, targets map[string]Target) []store.SubProgramReport {
	totals := make(map[string]float64)
	for _, c := range cycles {
		totals[c.ProgramName] += float64(c.DurationS)
	}

	spindles := make(map[string][]int)
	feeds := make(map[string][]int)
	for _, l := range logs {
		if !running[l.StatusText] || l.CurrentProgram == "" {
			continue
		}
		if l.SpindleSpeed != nil {
			spindles[l.CurrentProgram] = append(spindles[l.CurrentProgram], *l.SpindleSpeed)
		}
		if l.FeedRate != nil {
			feeds[l.CurrentProgram] = append(feeds[l.CurrentProgram], *l.FeedRate)
		}
	}

	programs := make([]string, 0, len(totals))
	for p := range totals {
		programs = append(programs, p)
	}
	sort.Strings(programs)

	reports := make([]store.SubProgramReport, 0, len(programs))
	for _, p := range programs {
		t := targets[p]
		qty := t.Quantity
		if qty < 1 {
			qty = 1
		}
		perPiece := totals[p] / float64(qty)
		pct := Efficiency(t.DurationS, perPiece)

		reports = append(reports, store.SubProgramReport{
			MachineName:        machine,
			ReportDate:         reportDate,
			ProgramName:        p,
			ActualAvgDurationS: perPiece,
			TargetDurationS:    t.DurationS,
			EfficiencyPct:      pct,
			EfficiencyStatus:   EfficiencyBand(pct),
			ActualSpindle:      Mode(spindles[p]),
			TargetSpindle:      t.Spindle,
			ActualFeed:         Mode(feeds[p]),
			TargetFeed:         t.Feed,
			Quantity:           qty,
			Notes:              t.Notes,
		})
	}
	return reports
}

// Piece is one homogeneous stretch of the status log: the machine held
// this status and program from Start until the next log entry at End.
type Piece struct {
	Start   time.Time
	End     time.Time
	Status  string
	Program string
}

func (p Piece) seconds() float64 { return p.End.Sub(p.Start).Seconds() }

// Pieces converts ascending log entries into contiguous pieces. The last
// entry's piece runs to windowEnd so the tail of the range is accounted
// for.
func Pieces(logs []store.StatusLogEntry, windowEnd time.Time) []Piece {
	if len(logs) == 0 {
		return nil
	}
	pieces := make([]Piece, 0, len(logs))
	for i, l := range logs {
		end := windowEnd
		if i+1 < len(logs) {
			end = logs[i+1].Timestamp
		}
		if !end.After(l.Timestamp) {
			continue
		}
		pieces = append(pieces, Piece{
			Start:   l.Timestamp,
			End:     end,
			Status:  l.StatusText,
			Program: l.CurrentProgram,
		})
	}
	return pieces
}

// Session is one contiguous production run of a main program. Loss time
// is the portion of the session envelope spent not actually cutting,
// bucketed by status text for the breakdown views.
type Session struct {
	MainName     string
	Start        time.Time
	End          time.Time
	ProcessS     float64
	LossS        float64
	Notes        []string
	LossByStatus map[string]float64
}

// CycleTimeS is the net cutting time: process minus loss.
func (s Session) CycleTimeS() float64 { return s.ProcessS - s.LossS }

// Sessions segments pieces into sessions of the target main program. A
// session opens on a running piece of the target main, absorbs short
// gaps as loss, and closes when another standard program takes over, a
// gap exceeds gapThreshold, or the range ends.
func Sessions(pieces []Piece, targetMain string, running map[string]bool, gapThreshold time.Duration) []Session {
	if gapThreshold <= 0 {
		gapThreshold = DefaultSessionGap
	}

	var (
		sessions []Session
		cur      *Session
	)

	open := func(p Piece) {
		note := "session start"
		if len(sessions) > 0 {
			note = "session continuation"
		}
		cur = &Session{
			MainName:     targetMain,
			Start:        p.Start,
			Notes:        []string{note},
			LossByStatus: make(map[string]float64),
		}
	}
	finish := func(at time.Time, note string) {
		cur.End = at
		cur.Notes = append(cur.Notes, note)
		sessions = append(sessions, *cur)
		cur = nil
	}

	var rangeEnd time.Time
	for _, p := range pieces {
		rangeEnd = p.End
		std := IsStandardProgram(p.Program)
		isRunning := running[p.Status]
		thisMain := isRunning && std && strings.EqualFold(MainName(p.Program), targetMain)
		otherMain := isRunning && std && !thisMain

		switch {
		case cur == nil && thisMain:
			open(p)
			cur.ProcessS += p.seconds()
		case cur == nil:
			// Nothing to attribute until the target main runs.
		case thisMain:
			cur.ProcessS += p.seconds()
		case otherMain:
			finish(p.Start, fmt.Sprintf("interrupted by %s", MainName(p.Program)))
		default: // gap: idle, other status, or non-standard program
			d := p.End.Sub(p.Start)
			if d > gapThreshold {
				finish(p.Start, fmt.Sprintf("long gap (%.0fs)", d.Seconds()))
				continue
			}
			cur.ProcessS += p.seconds()
			cur.LossS += p.seconds()
			cur.LossByStatus[p.Status] += p.seconds()
		}
	}

	if cur != nil {
		finish(rangeEnd, "normal end")
	}
	return sessions
}

// LossBreakdown totals loss time across sessions per status category.
// When perPieceQty > 0 every total is divided by it, yielding the
// per-piece view.
func LossBreakdown(machine string, reportDate time.Time, sessions []Session, perPieceQty int) []store.LossBreakdownRow {
	totals := make(map[string]float64)
	for _, s := range sessions {
		for category, secs := range s.LossByStatus {
			totals[category] += secs
		}
	}

	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	rows := make([]store.LossBreakdownRow, 0, len(categories))
	for _, c := range categories {
		d := totals[c]
		if perPieceQty > 0 {
			d /= float64(perPieceQty)
		}
		rows = append(rows, store.LossBreakdownRow{
			MachineName: machine,
			ReportDate:  reportDate,
			Category:    c,
			DurationS:   d,
		})
	}
	return rows
}
