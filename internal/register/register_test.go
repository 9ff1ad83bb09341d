package register

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/normalize"
)

func sample(status string, processed float64) normalize.Sample {
	return normalize.Sample{StatusText: status, TimestampProcessed: processed}
}

func TestSetGet_LastWriterWins(t *testing.T) {
	r := New(50*time.Millisecond, zerolog.Nop())
	defer r.Close()

	r.Set("m1", sample("Idle", 1))
	r.Set("m1", sample("Running", 2))

	s, ok := r.Get("m1")
	if !ok {
		t.Fatal("Get(m1) not found")
	}
	if s.StatusText != "Running" {
		t.Errorf("StatusText = %q, want Running", s.StatusText)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	r := New(50*time.Millisecond, zerolog.Nop())
	defer r.Close()

	r.Set("m1", sample("Running", 1))
	all := r.All()
	all["m1"] = sample("Tampered", 9)

	s, _ := r.Get("m1")
	if s.StatusText != "Running" {
		t.Errorf("register mutated through All() copy: %q", s.StatusText)
	}
}

func TestPendingAndMarkLogged(t *testing.T) {
	r := New(50*time.Millisecond, zerolog.Nop())
	defer r.Close()

	r.Set("m1", sample("Running", 100))
	r.Set("m2", sample("Idle", 100))

	if got := len(r.Pending()); got != 2 {
		t.Fatalf("Pending() = %d machines, want 2", got)
	}

	r.MarkLogged("m1", 100)
	pending := r.Pending()
	if len(pending) != 1 {
		t.Fatalf("Pending() = %d machines after mark, want 1", len(pending))
	}
	if _, ok := pending["m2"]; !ok {
		t.Error("Pending() should still contain m2")
	}

	// A newer sample makes the machine pending again.
	r.Set("m1", sample("Idle", 101))
	if _, ok := r.Pending()["m1"]; !ok {
		t.Error("m1 should be pending again after a newer sample")
	}

	// A stale mark never rolls the watermark back.
	r.MarkLogged("m1", 50)
	if _, ok := r.Pending()["m1"]; !ok {
		t.Error("stale MarkLogged must not clear a newer pending sample")
	}
}

func TestNewDefaultsBroadcastInterval(t *testing.T) {
	r := New(0, zerolog.Nop())
	defer r.Close()
	if r.interval != time.Second {
		t.Errorf("interval = %v, want 1s default", r.interval)
	}

	r2 := New(5*time.Second, zerolog.Nop())
	defer r2.Close()
	if r2.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", r2.interval)
	}
}

func TestSubscribeReceivesState(t *testing.T) {
	r := New(50*time.Millisecond, zerolog.Nop())
	defer r.Close()

	ch := r.Subscribe()
	defer r.Unsubscribe(ch)

	r.Set("m1", sample("Running", 1))

	select {
	case state := <-ch:
		if state["m1"].StatusText != "Running" {
			t.Errorf("broadcast state = %+v, want m1 Running", state)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no broadcast received")
	}
}
