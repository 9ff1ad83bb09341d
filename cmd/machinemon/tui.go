package main

import (
	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive machine wallboard",
	Long:  `Tui renders a fullscreen dashboard of machine tiles from the snapshot file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(&cfg)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
