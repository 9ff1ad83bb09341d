package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/Atot4/iot-project/internal/normalize"
)

var (
	running = map[string]bool{"Running": true}
	idle    = map[string]bool{"Idle": true, "Disconnected": true}
)

func TestStatusClass(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{"Running", "running"},
		{"Idle", "idle"},
		{"Disconnected", "idle"},
		{"Error", "other"},
		{"", "other"},
	}
	for _, tc := range cases {
		if got := statusClass(tc.status, running, idle); got != tc.want {
			t.Errorf("statusClass(%q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestRenderTile_StaleMarker(t *testing.T) {
	now := time.Now()
	fresh := normalize.Sample{
		StatusText:         "Running",
		TimestampProcessed: float64(now.UnixNano()) / 1e9,
	}
	stale := normalize.Sample{
		StatusText:         "Running",
		TimestampProcessed: float64(now.Add(-time.Minute).UnixNano()) / 1e9,
	}

	if out := renderTile("m1", fresh, running, idle, now, 30); strings.Contains(out, "[stale]") {
		t.Error("fresh sample rendered with stale marker")
	}
	if out := renderTile("m1", stale, running, idle, now, 30); !strings.Contains(out, "[stale]") {
		t.Error("stale sample rendered without stale marker")
	}
}

func TestRenderTile_AllStatusClasses(t *testing.T) {
	now := time.Now()
	for _, status := range []string{"Running", "Idle", "Error"} {
		s := normalize.Sample{
			StatusText:         status,
			TimestampProcessed: float64(now.UnixNano()) / 1e9,
		}
		if out := renderTile("m1", s, running, idle, now, 30); !strings.Contains(out, status) {
			t.Errorf("tile for %q does not render the status text:\n%s", status, out)
		}
	}
}

func TestRenderTile_MissingFields(t *testing.T) {
	out := renderTile("m1", normalize.Sample{StatusText: "Idle"}, running, idle, time.Now(), 30)
	if !strings.Contains(out, "N/A") {
		t.Errorf("tile should show N/A for absent program and speeds:\n%s", out)
	}
}
