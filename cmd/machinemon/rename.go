package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	renameMachine string
	renameFrom    string
	renameTo      string
	renameStart   string
	renameEnd     string
)

var renameCmd = &cobra.Command{
	Use:   "rename-program",
	Short: "Rename a program across archived cycle rows",
	Long: `Rename-program rewrites program_name in every monthly cycle table
covering the date range, inside a single transaction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if renameMachine == "" || renameFrom == "" || renameTo == "" {
			return fmt.Errorf("--machine, --from-name and --to-name are required")
		}
		start, err := time.ParseInLocation(time.DateOnly, renameStart, time.Local)
		if err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
		end, err := time.ParseInLocation(time.DateOnly, renameEnd, time.Local)
		if err != nil {
			return fmt.Errorf("parse --end: %w", err)
		}

		ctx := cmd.Context()
		database, st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := st.RenameProgram(ctx, renameMachine, renameFrom, renameTo, start, end.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %d cycle rows.\n", n)
		return nil
	},
}

func init() {
	f := renameCmd.Flags()
	f.StringVar(&renameMachine, "machine", "", "Machine name")
	f.StringVar(&renameFrom, "from-name", "", "Current program name")
	f.StringVar(&renameTo, "to-name", "", "New program name")
	f.StringVar(&renameStart, "start", "", "Range start date (YYYY-MM-DD)")
	f.StringVar(&renameEnd, "end", "", "Range end date, inclusive (YYYY-MM-DD)")
	rootCmd.AddCommand(renameCmd)
}
