package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/analysis"
	"github.com/Atot4/iot-project/internal/daemon"
	"github.com/Atot4/iot-project/internal/monitor"
	"github.com/Atot4/iot-project/internal/register"
	"github.com/Atot4/iot-project/internal/server"
)

var (
	serveNoAPI      bool
	serveBackground bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring pipeline",
	Long: `Serve starts the full pipeline: one polling worker per machine,
the snapshot writer, the status-log writer, the shift engine, and the
program cycle engine, plus the dashboard HTTP/WebSocket API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		if serveBackground && !daemon.IsDaemonProcess() {
			if pid, alive := daemon.IsRunning(); alive {
				return fmt.Errorf("monitor already running (pid %d)", pid)
			}
			args := []string{"serve"}
			args = append(args, backgroundArgs(cmd)...)
			pid, err := daemon.Background(args)
			if err != nil {
				return err
			}
			fmt.Printf("Monitor started in background (pid %d).\n", pid)
			return nil
		}
		if daemon.IsDaemonProcess() {
			if err := daemon.WritePID(); err != nil {
				return err
			}
			defer daemon.RemovePID()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		reg := register.New(time.Duration(cfg.Intervals.SnapshotSeconds)*time.Second, logger)

		if !serveNoAPI {
			an := analysis.NewEngine(st, cfg.Vocabulary.RunningSet(),
				time.Duration(cfg.Intervals.SessionGapSeconds)*time.Second, logger)
			srv := server.New(reg, st, an, &cfg, logger)
			srv.StartBackground(ctx, fmt.Sprintf("%s:%d", cfg.Server.Listen, cfg.Server.Port))
		}

		return monitor.New(&cfg, st, reg, logger).Run(ctx)
	},
}

// backgroundArgs rebuilds the flags the detached child needs. The
// --background flag itself is carried so the child takes the daemon
// branch guarded by the env marker.
func backgroundArgs(cmd *cobra.Command) []string {
	var args []string
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if cmd.Flags().Changed("log-level") {
		args = append(args, "--log-level", logLevel)
	}
	args = append(args, "--log-format", "json")
	if serveNoAPI {
		args = append(args, "--no-api")
	}
	args = append(args, "--background")
	return args
}

func init() {
	f := serveCmd.Flags()
	f.BoolVar(&serveNoAPI, "no-api", false, "Disable the dashboard HTTP/WebSocket API")
	f.BoolVar(&serveBackground, "background", false, "Detach and run in the background")
	rootCmd.AddCommand(serveCmd)
}
