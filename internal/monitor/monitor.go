// Package monitor wires the full pipeline together: one polling worker
// per machine feeding the latest-state register, plus the snapshot
// writer, the status-log flusher, the shift engine, and the cycle
// engine running as background workers.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/cycle"
	"github.com/Atot4/iot-project/internal/normalize"
	"github.com/Atot4/iot-project/internal/opcclient"
	"github.com/Atot4/iot-project/internal/register"
	"github.com/Atot4/iot-project/internal/shift"
	"github.com/Atot4/iot-project/internal/snapshot"
	"github.com/Atot4/iot-project/internal/store"
)

// shutdownGrace bounds how long workers get to finish after cancel.
const shutdownGrace = 5 * time.Second

// Monitor owns the worker set for one process.
type Monitor struct {
	cfg    *appconfig.Config
	store  *store.Store
	reg    *register.Register
	logger zerolog.Logger
}

func New(cfg *appconfig.Config, st *store.Store, reg *register.Register, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		store:  st,
		reg:    reg,
		logger: logger.With().Str("component", "monitor").Logger(),
	}
}

// Run starts every worker and blocks until the context is cancelled,
// then gives the workers a bounded grace period and flushes the final
// snapshot.
func (m *Monitor) Run(ctx context.Context) error {
	running := m.cfg.Vocabulary.RunningSet()
	machines := make([]string, 0, len(m.cfg.Machines))
	for _, mc := range m.cfg.Machines {
		machines = append(machines, mc.Name)
	}

	writer, err := snapshot.NewWriter(m.reg, m.cfg.Snapshot.Path, m.interval(m.cfg.Intervals.SnapshotSeconds), m.logger)
	if err != nil {
		return fmt.Errorf("snapshot writer: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	for _, mc := range m.cfg.Machines {
		endpoint := mc.URL
		if endpoint == "" {
			endpoint = m.cfg.OpcUa.URL
		}
		client, err := opcclient.New(endpoint, m.cfg.OpcUa.User, m.cfg.OpcUa.Password, mc.Variables, m.logger)
		if err != nil {
			return fmt.Errorf("client for %s: %w", mc.Name, err)
		}
		family, err := normalize.ParseFamily(mc.Family)
		if err != nil {
			return fmt.Errorf("machine %s: %w", mc.Name, err)
		}
		poller := opcclient.NewPoller(mc.Name, family, client, m.reg,
			m.interval(m.cfg.Intervals.PollSeconds), m.logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(workerCtx)
		}()
	}

	writer.Start()

	shiftEngine := shift.NewEngine(m.store, shift.NewTable(m.cfg.Shifts, nil), machines, running,
		m.interval(m.cfg.Intervals.ShiftCalcSeconds), m.logger)
	cycleEngine := cycle.NewEngine(m.store, machines, running,
		m.interval(m.cfg.Intervals.ProgramReportSeconds), m.logger)

	wg.Add(3)
	go func() {
		defer wg.Done()
		m.flushLoop(workerCtx)
	}()
	go func() {
		defer wg.Done()
		shiftEngine.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		cycleEngine.Run(workerCtx)
	}()

	m.logger.Info().
		Int("machines", len(m.cfg.Machines)).
		Str("snapshot", writer.Path()).
		Msg("monitor started")

	<-ctx.Done()
	m.logger.Info().Msg("shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		m.logger.Warn().Msg("workers did not stop within grace period")
	}

	writer.Stop()
	m.reg.Close()
	return nil
}

// flushLoop writes pending register samples to the status log on the
// configured cadence. Machines whose sample has not changed since the
// last flush are skipped.
func (m *Monitor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval(m.cfg.Intervals.StatusLogSeconds))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.flush(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn().Err(err).Msg("status log flush failed, will retry")
			}
		}
	}
}

func (m *Monitor) flush(ctx context.Context) error {
	pending := m.reg.Pending()
	if len(pending) == 0 {
		return nil
	}

	entries := make([]store.StatusLogEntry, 0, len(pending))
	for machine, s := range pending {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sample for %s: %w", machine, err)
		}
		entries = append(entries, store.StatusLogEntry{
			MachineName:    machine,
			Timestamp:      s.Timestamp(),
			StatusText:     s.StatusText,
			SpindleSpeed:   s.SpindleSpeed,
			FeedRate:       s.FeedRate,
			CurrentProgram: s.CurrentProgram,
			Raw:            raw,
		})
	}

	if err := m.store.SaveStatusLogs(ctx, entries); err != nil {
		return err
	}
	for machine, s := range pending {
		m.reg.MarkLogged(machine, s.TimestampProcessed)
	}
	m.logger.Debug().Int("entries", len(entries)).Msg("status log flushed")
	return nil
}

func (m *Monitor) interval(seconds int) time.Duration {
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
