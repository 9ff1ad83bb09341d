package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/analysis"
	"github.com/Atot4/iot-project/internal/store"
)

var (
	analyzeMachine string
	analyzeFrom    string
	analyzeTo      string
	analyzeFilter  string
	analyzeMain    string
	analyzeGapSec  int
	analyzeArchive bool
	analyzeQty     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run efficiency analysis over a date range",
}

var analyzeProgramsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Per-sub-program cycle totals and spindle/feed modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := analyzeRange()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		database, st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		engine := newAnalysisEngine(st)
		reports, err := engine.SubProgramReport(ctx, analyzeMachine, from, to, analyzeFilter, nil)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No cycles found in range.")
			return nil
		}

		fmt.Printf("%-20s %12s %10s %10s %8s\n", "PROGRAM", "AVG DURATION", "SPINDLE", "FEED", "STATUS")
		for _, r := range reports {
			fmt.Printf("%-20s %11.1fs %10d %10d %8s\n",
				r.ProgramName, r.ActualAvgDurationS, r.ActualSpindle, r.ActualFeed, r.EfficiencyStatus)
		}

		if analyzeArchive {
			if err := engine.ArchiveSubProgramReports(ctx, reports); err != nil {
				return err
			}
			fmt.Printf("Archived %d report rows.\n", len(reports))
		}
		return nil
	},
}

var analyzeSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Main-program session segmentation with loss breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeMain == "" {
			return fmt.Errorf("--main is required")
		}
		from, to, err := analyzeRange()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		database, st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		engine := newAnalysisEngine(st)
		sessions, err := engine.SessionAnalysis(ctx, analyzeMachine, analyzeMain, from, to,
			time.Duration(analyzeGapSec)*time.Second)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Printf("No %s sessions found in range.\n", analyzeMain)
			return nil
		}

		for i, s := range sessions {
			fmt.Printf("Session %d: %s — %s\n", i+1,
				s.Start.Local().Format(time.DateTime), s.End.Local().Format(time.DateTime))
			fmt.Printf("  process: %.0fs  loss: %.0fs  cycle: %.0fs\n", s.ProcessS, s.LossS, s.CycleTimeS())
			fmt.Printf("  notes: %s\n", strings.Join(s.Notes, "; "))
		}

		if analyzeArchive {
			date := from.UTC().Truncate(24 * time.Hour)
			if err := engine.ArchiveSessions(ctx, analyzeMachine, date, sessions, analyzeQty, ""); err != nil {
				return err
			}
			fmt.Printf("Archived %d sessions.\n", len(sessions))
		}
		return nil
	},
}

func newAnalysisEngine(st *store.Store) *analysis.Engine {
	gap := time.Duration(cfg.Intervals.SessionGapSeconds) * time.Second
	return analysis.NewEngine(st, cfg.Vocabulary.RunningSet(), gap, logger)
}

func analyzeRange() (time.Time, time.Time, error) {
	if analyzeMachine == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--machine is required")
	}
	from, err := time.ParseInLocation(time.DateOnly, analyzeFrom, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --from: %w", err)
	}
	to := from.AddDate(0, 0, 1)
	if analyzeTo != "" {
		end, err := time.ParseInLocation(time.DateOnly, analyzeTo, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
		to = end.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func init() {
	pf := analyzeCmd.PersistentFlags()
	pf.StringVar(&analyzeMachine, "machine", "", "Machine name")
	pf.StringVar(&analyzeFrom, "from", "", "Range start date (YYYY-MM-DD)")
	pf.StringVar(&analyzeTo, "to", "", "Range end date, inclusive (default: same as --from)")
	pf.BoolVar(&analyzeArchive, "archive", false, "Persist results to the monthly archive tables")

	analyzeProgramsCmd.Flags().StringVar(&analyzeFilter, "filter", "", "Only programs containing this substring")

	analyzeSessionsCmd.Flags().StringVar(&analyzeMain, "main", "", "Target main program name (e.g. N1234)")
	analyzeSessionsCmd.Flags().IntVar(&analyzeGapSec, "gap-seconds", 0, "Session gap threshold override")
	analyzeSessionsCmd.Flags().IntVar(&analyzeQty, "qty", 0, "Piece quantity for per-piece figures")

	analyzeCmd.AddCommand(analyzeProgramsCmd, analyzeSessionsCmd)
	rootCmd.AddCommand(analyzeCmd)
}
