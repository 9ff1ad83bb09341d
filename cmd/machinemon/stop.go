package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a backgrounded monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.Stop(); err != nil {
			return err
		}
		fmt.Println("Monitor stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
