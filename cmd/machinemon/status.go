package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest machine states",
	Long:  `Status reads the snapshot file written by a running monitor and prints one line per machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := snapshot.ReadFile(cfg.Snapshot.Path)
		if err != nil {
			fmt.Println("No snapshot found. Is the monitor running?")
			fmt.Printf("  (error: %v)\n", err)
			return nil
		}

		names := make([]string, 0, len(state))
		seen := make(map[string]bool, len(state))
		for _, n := range cfg.DisplayOrder {
			if _, ok := state[n]; ok {
				names = append(names, n)
				seen[n] = true
			}
		}
		rest := make([]string, 0, len(state))
		for n := range state {
			if !seen[n] {
				rest = append(rest, n)
			}
		}
		sort.Strings(rest)
		names = append(names, rest...)

		now := time.Now()
		for _, name := range names {
			s := state[name]
			stale := ""
			if age := now.Sub(s.Timestamp()); age > 15*time.Second {
				stale = fmt.Sprintf("  (stale — %s ago)", age.Truncate(time.Second))
			}
			program := s.CurrentProgram
			if program == "" {
				program = "N/A"
			}
			fmt.Printf("%-24s %-28s prog=%s%s\n", name, s.StatusText, program, stale)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
