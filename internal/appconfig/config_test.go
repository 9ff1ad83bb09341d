package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Machines = []Machine{
		{
			Name:      "Yasda 1 - 1013",
			Family:    "fanuc",
			Variables: map[string]string{"Status": "ns=1;s=/Channel/State"},
		},
	}
	cfg.OpcUa.URL = "opc.tcp://192.168.0.2:4840/"
	cfg.OpcUa.User = "operator"
	cfg.OpcUa.Password = "secret"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestValidate_NoMachines(t *testing.T) {
	cfg := validConfig()
	cfg.Machines = nil
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "no machines") {
		t.Errorf("Validate() = %v, want no-machines error", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.OpcUa.User = ""
	cfg.OpcUa.Password = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want credential errors")
	}
	if !strings.Contains(err.Error(), "OPC_UA_USER") || !strings.Contains(err.Error(), "OPC_UA_PASSWORD") {
		t.Errorf("Validate() = %v, want both credential errors", err)
	}
}

func TestValidate_MissingEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.OpcUa.URL = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "no endpoint URL") {
		t.Errorf("Validate() = %v, want endpoint error", err)
	}

	// A per-machine URL satisfies the requirement.
	cfg.Machines[0].URL = "opc.tcp://192.168.0.9:4840/"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with per-machine url error: %v", err)
	}
}

func TestValidate_VocabularyOverlap(t *testing.T) {
	cfg := validConfig()
	cfg.Vocabulary.Other = append(cfg.Vocabulary.Other, "Alarm") // already in idle
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `"Alarm"`) {
		t.Errorf("Validate() = %v, want vocabulary overlap error", err)
	}
}

func TestValidate_BadFamily(t *testing.T) {
	cfg := validConfig()
	cfg.Machines[0].Family = "siemens"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown machine family") {
		t.Errorf("Validate() = %v, want family error", err)
	}
}

func TestDefaultVocabularyIsDisjoint(t *testing.T) {
	cfg := validConfig()
	if errs := cfg.validateVocabulary(); len(errs) != 0 {
		t.Errorf("default vocabulary has overlaps: %v", errs)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machinemon.toml")
	content := `
[opcua]
url = "opc.tcp://10.0.0.5:4840/"

[intervals]
status_log_seconds = 30

[[machines]]
name = "Quaser 4 - 1005"
family = "quaser"

[machines.variables]
State_Number = "ns=2;s=/NC/StateNumber"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPC_UA_USER", "operator")
	t.Setenv("OPC_UA_PASSWORD", "secret")
	t.Setenv("MACHINEMON_DB_URL", "postgres://monitor@db:5432/iot_db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OpcUa.URL != "opc.tcp://10.0.0.5:4840/" {
		t.Errorf("OpcUa.URL = %q", cfg.OpcUa.URL)
	}
	if cfg.OpcUa.User != "operator" {
		t.Errorf("OpcUa.User = %q, want operator", cfg.OpcUa.User)
	}
	if cfg.Intervals.StatusLogSeconds != 30 {
		t.Errorf("StatusLogSeconds = %d, want 30", cfg.Intervals.StatusLogSeconds)
	}
	if cfg.Intervals.PollSeconds != 1 {
		t.Errorf("PollSeconds = %d, want default 1", cfg.Intervals.PollSeconds)
	}
	if cfg.Database.URL != "postgres://monitor@db:5432/iot_db" {
		t.Errorf("Database.URL = %q, want env override", cfg.Database.URL)
	}
	if len(cfg.Machines) != 1 || cfg.Machines[0].Name != "Quaser 4 - 1005" {
		t.Fatalf("Machines = %+v", cfg.Machines)
	}
}

func TestLoad_MissingCredentialsFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machinemon.toml")
	content := `
[opcua]
url = "opc.tcp://10.0.0.5:4840/"

[[machines]]
name = "Wele 3 - 1007"
family = "wele"

[machines.variables]
Status = "ns=2;s=/NC/Status"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPC_UA_USER", "")
	t.Setenv("OPC_UA_PASSWORD", "")

	if _, err := Load(path); err == nil {
		t.Error("Load() = nil error, want credential failure")
	}
}
