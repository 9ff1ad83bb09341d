package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Atot4/iot-project/internal/analysis"
	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/normalize"
	"github.com/Atot4/iot-project/internal/register"
	"github.com/Atot4/iot-project/internal/store"
)

type handlers struct {
	reg      *register.Register
	store    *store.Store
	analysis *analysis.Engine
	cfg      *appconfig.Config
}

// machineView is one dashboard row: the latest sample plus its name,
// ordered by the configured display order.
type machineView struct {
	Name string `json:"name"`
	normalize.Sample
}

func (h *handlers) machines(w http.ResponseWriter, r *http.Request) {
	state := h.reg.All()

	views := make([]machineView, 0, len(state))
	seen := make(map[string]bool, len(state))
	for _, name := range h.cfg.DisplayOrder {
		if s, ok := state[name]; ok {
			views = append(views, machineView{Name: name, Sample: s})
			seen[name] = true
		}
	}
	for name, s := range state {
		if !seen[name] {
			views = append(views, machineView{Name: name, Sample: s})
		}
	}
	writeJSON(w, views)
}

func (h *handlers) machine(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s, ok := h.reg.Get(name)
	if !ok {
		http.Error(w, "unknown machine", http.StatusNotFound)
		return
	}
	writeJSON(w, machineView{Name: name, Sample: s})
}

func (h *handlers) statusLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	from, to, err := timeRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logs, err := h.store.GetStatusLogs(r.Context(), name, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, logs)
}

func (h *handlers) programReport(w http.ResponseWriter, r *http.Request) {
	machine := r.URL.Query().Get("machine")
	if machine == "" {
		http.Error(w, "machine parameter required", http.StatusBadRequest)
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, err := h.analysis.SubProgramReport(r.Context(), machine, from, to, r.URL.Query().Get("filter"), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, reports)
}

func (h *handlers) sessionAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	machine, main := q.Get("machine"), q.Get("main")
	if machine == "" || main == "" {
		http.Error(w, "machine and main parameters required", http.StatusBadRequest)
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var gap time.Duration
	if v := q.Get("gap_seconds"); v != "" {
		d, err := time.ParseDuration(v + "s")
		if err != nil {
			http.Error(w, "invalid gap_seconds", http.StatusBadRequest)
			return
		}
		gap = d
	}

	sessions, err := h.analysis.SessionAnalysis(r.Context(), machine, main, from, to, gap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sessions)
}

// timeRange parses from/to query parameters (RFC 3339). Defaults cover
// the last 24 hours.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
