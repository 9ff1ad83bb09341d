// Package appconfig loads the monitor's TOML configuration: the machine
// fleet, status vocabularies, shift table, worker intervals and the
// database/server settings. Values can be overridden from the environment;
// OPC UA credentials come from the environment only.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/Atot4/iot-project/internal/normalize"
)

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
	MinConns int32  `toml:"min_conns"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
	Port   int    `toml:"port"`
}

type SnapshotConfig struct {
	Path string `toml:"path"`
}

// OpcUaConfig holds the global endpoint and credentials. User and Password
// are never read from the file; they come from OPC_UA_USER / OPC_UA_PASSWORD.
type OpcUaConfig struct {
	URL      string `toml:"url"`
	User     string `toml:"-"`
	Password string `toml:"-"`
}

// Intervals are the worker tick periods, in integer seconds.
type Intervals struct {
	PollSeconds          int `toml:"poll_seconds"`
	SnapshotSeconds      int `toml:"snapshot_seconds"`
	StatusLogSeconds     int `toml:"status_log_seconds"`
	ShiftCalcSeconds     int `toml:"shift_calc_seconds"`
	ProgramReportSeconds int `toml:"program_report_seconds"`
	SessionGapSeconds    int `toml:"session_gap_seconds"`
	RetentionHours       int `toml:"retention_hours"`
}

// Vocabulary is the closed status classification. The three sets must be
// disjoint; Validate rejects overlaps.
type Vocabulary struct {
	Running []string `toml:"running"`
	Idle    []string `toml:"idle"`
	Other   []string `toml:"other"`
}

// Shift is one named wall-clock interval. EndHour 0 means midnight of the
// next day.
type Shift struct {
	Name      string `toml:"name"`
	StartHour int    `toml:"start_hour"`
	EndHour   int    `toml:"end_hour"`
}

// Machine describes one polled endpoint. URL overrides the global OPC UA
// URL when set. Variables maps logical names to node ids.
type Machine struct {
	Name      string            `toml:"name"`
	Family    string            `toml:"family"`
	URL       string            `toml:"url"`
	Variables map[string]string `toml:"variables"`
}

type Config struct {
	Database     DatabaseConfig `toml:"database"`
	Logging      LoggingConfig  `toml:"logging"`
	Server       ServerConfig   `toml:"server"`
	Snapshot     SnapshotConfig `toml:"snapshot"`
	OpcUa        OpcUaConfig    `toml:"opcua"`
	Intervals    Intervals      `toml:"intervals"`
	Vocabulary   Vocabulary     `toml:"vocabulary"`
	Shifts       []Shift        `toml:"shifts"`
	Machines     []Machine      `toml:"machines"`
	DisplayOrder []string       `toml:"display_order"`
}

func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			URL:      "postgres://postgres@localhost:5432/iot_db?sslmode=disable",
			MaxConns: 300,
			MinConns: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1",
			Port:   8970,
		},
		Snapshot: SnapshotConfig{
			Path: "machine_data.json",
		},
		Intervals: Intervals{
			PollSeconds:          1,
			SnapshotSeconds:      1,
			StatusLogSeconds:     10,
			ShiftCalcSeconds:     5,
			ProgramReportSeconds: 10,
			SessionGapSeconds:    300,
			RetentionHours:       720,
		},
		Vocabulary: Vocabulary{
			Running: []string{"Running", "Operating", "Processing", "Cycle Start", "Active"},
			Idle: []string{
				"Idle", "Ready", "Standby", "Program End", "Manual mode",
				"Power On", "M-Code Stop", "Program Stop", "Emergency Stop",
				"Fault", "NC Reset", "Emergency", "With Synchronization",
				"Waiting", "Stop", "Hold", "Disconnected",
				"Connected but not sending data", "Interrupted", "Faulted",
				"Alarm", "Unknown/Offline", "Undefined Status", "N/A",
				"MDI", "Setup", "Cooling", "Tool Change",
			},
			Other: []string{
				"Error", "Maintenance", "Testing", "Paused",
				"Suspended", "Warmup", "Dry Run",
			},
		},
		Shifts: []Shift{
			{Name: "shift_1", StartHour: 8, EndHour: 16},
			{Name: "shift_2", StartHour: 16, EndHour: 0},
			{Name: "shift_3", StartHour: 0, EndHour: 8},
		},
	}
}

// Load reads the config file (searching the usual locations when path is
// empty), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"machinemon.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".machinemon", "config.toml"))
	}
	candidates = append(candidates, "/etc/machinemon/config.toml")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MACHINEMON_DB_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("MACHINEMON_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("MACHINEMON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MACHINEMON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MACHINEMON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MACHINEMON_SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv("OPC_UA_URL"); v != "" {
		cfg.OpcUa.URL = v
	}
	cfg.OpcUa.User = os.Getenv("OPC_UA_USER")
	cfg.OpcUa.Password = os.Getenv("OPC_UA_PASSWORD")
}

// Validate checks that the config can actually run a monitor: machines with
// reachable endpoints, credentials, sane intervals, a well-formed shift
// table and disjoint status vocabularies.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Machines) == 0 {
		errs = append(errs, errors.New("no machines configured"))
	}
	for i, m := range c.Machines {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("machine %d: name is required", i))
		}
		if len(m.Variables) == 0 {
			errs = append(errs, fmt.Errorf("machine %q: no variables configured", m.Name))
		}
		if m.URL == "" && c.OpcUa.URL == "" {
			errs = append(errs, fmt.Errorf("machine %q: no endpoint URL (set opcua.url or a per-machine url)", m.Name))
		}
		if _, err := normalize.ParseFamily(m.Family); err != nil {
			errs = append(errs, fmt.Errorf("machine %q: %w", m.Name, err))
		}
	}

	if c.OpcUa.User == "" {
		errs = append(errs, errors.New("OPC_UA_USER is not set"))
	}
	if c.OpcUa.Password == "" {
		errs = append(errs, errors.New("OPC_UA_PASSWORD is not set"))
	}

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database url is required"))
	}
	if c.Database.MaxConns < 1 {
		c.Database.MaxConns = 300
	}
	if c.Database.MinConns < 1 {
		c.Database.MinConns = 1
	}

	for _, iv := range []struct {
		name  string
		value int
	}{
		{"poll_seconds", c.Intervals.PollSeconds},
		{"snapshot_seconds", c.Intervals.SnapshotSeconds},
		{"status_log_seconds", c.Intervals.StatusLogSeconds},
		{"shift_calc_seconds", c.Intervals.ShiftCalcSeconds},
		{"program_report_seconds", c.Intervals.ProgramReportSeconds},
		{"session_gap_seconds", c.Intervals.SessionGapSeconds},
	} {
		if iv.value < 1 {
			errs = append(errs, fmt.Errorf("intervals.%s must be at least 1", iv.name))
		}
	}

	errs = append(errs, c.validateShifts()...)
	errs = append(errs, c.validateVocabulary()...)

	return errors.Join(errs...)
}

func (c *Config) validateShifts() []error {
	var errs []error
	if len(c.Shifts) == 0 {
		errs = append(errs, errors.New("no shifts configured"))
		return errs
	}
	seen := make(map[string]bool, len(c.Shifts))
	for _, s := range c.Shifts {
		if s.Name == "" {
			errs = append(errs, errors.New("shift name is required"))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate shift %q", s.Name))
		}
		seen[s.Name] = true
		if s.StartHour < 0 || s.StartHour > 23 {
			errs = append(errs, fmt.Errorf("shift %q: start_hour %d out of range", s.Name, s.StartHour))
		}
		if s.EndHour < 0 || s.EndHour > 23 {
			errs = append(errs, fmt.Errorf("shift %q: end_hour %d out of range", s.Name, s.EndHour))
		}
	}
	return errs
}

// validateVocabulary rejects any status that appears in more than one of
// the running/idle/other sets. The shift engine derives the "other" bucket
// by subtraction, which is only sound when the sets are disjoint.
func (c *Config) validateVocabulary() []error {
	var errs []error
	if len(c.Vocabulary.Running) == 0 {
		errs = append(errs, errors.New("vocabulary.running is empty"))
	}
	owner := make(map[string]string)
	for _, set := range []struct {
		name     string
		statuses []string
	}{
		{"running", c.Vocabulary.Running},
		{"idle", c.Vocabulary.Idle},
		{"other", c.Vocabulary.Other},
	} {
		for _, st := range set.statuses {
			if prev, ok := owner[st]; ok {
				errs = append(errs, fmt.Errorf("status %q appears in both %s and %s vocabularies", st, prev, set.name))
				continue
			}
			owner[st] = set.name
		}
	}
	return errs
}

// RunningSet returns the running vocabulary as a membership set.
func (v Vocabulary) RunningSet() map[string]bool { return toSet(v.Running) }

// IdleSet returns the idle vocabulary as a membership set.
func (v Vocabulary) IdleSet() map[string]bool { return toSet(v.Idle) }

// OtherSet returns the other vocabulary as a membership set.
func (v Vocabulary) OtherSet() map[string]bool { return toSet(v.Other) }

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
