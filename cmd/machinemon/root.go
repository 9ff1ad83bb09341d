package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/config"
	"github.com/Atot4/iot-project/internal/db"
	"github.com/Atot4/iot-project/internal/store"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string

	cfg       appconfig.Config
	logger    zerolog.Logger
	logOutput io.Writer
)

var rootCmd = &cobra.Command{
	Use:   "machinemon",
	Short: "CNC machine monitoring backend",
	Long: `machinemon polls CNC machines over OPC UA, normalizes their
vendor-specific status codes into a unified vocabulary, and derives
shift utilization, program cycles, and efficiency reports from the
resulting status log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = appconfig.Load(cfgPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		switch cfg.Logging.Format {
		case "json":
			logOutput = os.Stdout
		default:
			logOutput = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		logger = zerolog.New(logOutput).With().Timestamp().Logger()

		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		logger = logger.Level(level)

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgPath, "config", "", "Path to config file (default: machinemon.toml, ~/.machinemon/config.toml, /etc/machinemon/config.toml)")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
}

// openStore connects the shared pool and wraps it in a Store. The
// caller owns the returned DB and must Close it.
func openStore(ctx context.Context) (*db.DB, *store.Store, error) {
	var dbCfg config.DatabaseConfig
	if err := dbCfg.ParseURI(cfg.Database.URL); err != nil {
		return nil, nil, fmt.Errorf("database url: %w", err)
	}
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	if err := dbCfg.Validate(); err != nil {
		return nil, nil, err
	}

	database, err := db.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return database, store.New(database.Pool, logger), nil
}
