package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/normalize"
	"github.com/Atot4/iot-project/internal/register"
)

func TestWriteAndReadBack(t *testing.T) {
	reg := register.New(time.Second, zerolog.Nop())
	defer reg.Close()
	reg.Set("Yasda 1 - 1013", normalize.Sample{
		StatusText:         "Running",
		CurrentProgram:     "N1234-5B77",
		TimestampProcessed: 1756022400,
	})

	path := filepath.Join(t.TempDir(), "machine_data.json")
	w, err := NewWriter(reg, path, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.Stop() // flushes once without waiting for the ticker

	state, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	s, ok := state["Yasda 1 - 1013"]
	if !ok {
		t.Fatalf("snapshot missing machine, got %v", state)
	}
	if s.StatusText != "Running" || s.CurrentProgram != "N1234-5B77" {
		t.Errorf("round-tripped sample = %+v", s)
	}
}

func TestWriteCreatesParentDir(t *testing.T) {
	reg := register.New(time.Second, zerolog.Nop())
	defer reg.Close()

	path := filepath.Join(t.TempDir(), "nested", "dir", "snap.json")
	w, err := NewWriter(reg, path, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.Stop()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot file not written: %v", err)
	}
}

func TestNoTempFileLeftBehind(t *testing.T) {
	reg := register.New(time.Second, zerolog.Nop())
	defer reg.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	w, err := NewWriter(reg, path, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	w.Stop()

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after write")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("ReadFile() on a missing file should fail")
	}
}
