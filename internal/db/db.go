package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/config"
)

// DB wraps the shared connection pool. Monthly table DDL is applied lazily
// by the store as partitions are first touched, so there is no up-front
// migration step beyond a connectivity check.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

func Open(ctx context.Context, dbCfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	cfg.MaxConns = dbCfg.MaxConns
	cfg.MinConns = dbCfg.MinConns
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{
		Pool:   pool,
		logger: logger.With().Str("component", "db").Logger(),
	}
	d.logger.Info().
		Str("host", dbCfg.Host).
		Str("dbname", dbCfg.DBName).
		Int32("max_conns", dbCfg.MaxConns).
		Msg("database pool ready")

	return d, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
