// Package store is the monthly-sharded Postgres layer behind the monitor.
// Every writer shares one pool and one process-wide write mutex; monthly
// partitions are created lazily and verified once per process.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store owns all reads and writes against the monthly-sharded tables.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger

	// writeMu serializes every write transaction. Dynamic CREATE TABLE and
	// shared-index updates from concurrent workers deadlock without it.
	writeMu sync.Mutex

	verifiedMu sync.Mutex
	verified   map[string]struct{}
}

func New(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:     pool,
		logger:   logger.With().Str("component", "store").Logger(),
		verified: make(map[string]struct{}),
	}
}

// EnsureTable creates the monthly table when missing. Each table name is
// verified at most once per process; later calls return immediately.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	s.verifiedMu.Lock()
	_, done := s.verified[table]
	s.verifiedMu.Unlock()
	if done {
		return nil
	}

	ddl, err := createStatementFor(table)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	s.verifiedMu.Lock()
	s.verified[table] = struct{}{}
	s.verifiedMu.Unlock()

	s.logger.Debug().Str("table", table).Msg("monthly table verified")
	return nil
}

// tableExists probes the catalog without touching the verified set, for
// readers that must skip absent historical partitions.
func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var reg *string
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&reg); err != nil {
		return false, fmt.Errorf("probe table %s: %w", table, err)
	}
	return reg != nil, nil
}

// withWriteLock runs fn holding the global write mutex.
func (s *Store) withWriteLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// utc truncates to second precision in UTC; log timestamps carry no
// sub-second component.
func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
