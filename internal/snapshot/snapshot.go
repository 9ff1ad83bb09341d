// Package snapshot periodically writes the latest-state register to a
// JSON file. The file is the dashboard's primary data source and keeps
// serving readers even when database writes are failing.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/register"
)

// DefaultFile is the snapshot filename when no path is configured.
const DefaultFile = "machine_data.json"

// Writer persists the register to disk on a fixed cadence.
type Writer struct {
	reg      *register.Register
	path     string
	interval time.Duration
	logger   zerolog.Logger
	done     chan struct{}
}

func NewWriter(reg *register.Register, path string, interval time.Duration, logger zerolog.Logger) (*Writer, error) {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &Writer{
		reg:      reg,
		path:     path,
		interval: interval,
		logger:   logger.With().Str("component", "snapshot-writer").Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Start begins periodic snapshot writes.
func (w *Writer) Start() {
	go w.loop()
}

// Stop halts the writer and flushes a final snapshot.
func (w *Writer) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.write()
}

// Path returns the snapshot file path.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.write()
		}
	}
}

func (w *Writer) write() {
	state := w.reg.All()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		w.logger.Err(err).Msg("marshal snapshot")
		return
	}
	// Write to temp file then rename so readers never see a torn file.
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		w.logger.Err(err).Msg("write snapshot file")
		return
	}
	if err := os.Rename(tmp, w.path); err != nil {
		w.logger.Err(err).Msg("rename snapshot file")
	}
}

// ReadFile loads the last-written snapshot, for consumers that run
// outside the monitoring process (status command, TUI).
func ReadFile(path string) (register.State, error) {
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state register.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return state, nil
}
