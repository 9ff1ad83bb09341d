// Package register holds the latest normalized sample per machine. Each
// machine's slot is written only by its own polling worker; readers (the
// snapshot writer, the status-log writer, the live API) see a consistent
// copy of the whole map.
package register

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/normalize"
)

// State is the full register contents keyed by machine name.
type State map[string]normalize.Sample

// Register is the in-memory latest-state fan-out point between the
// polling workers and every downstream consumer.
type Register struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	samples State

	// lastLogged tracks the processed-timestamp of the newest sample the
	// status-log writer has persisted per machine, so an unchanged
	// register slot is not rewritten every flush.
	lastLogged map[string]float64

	subMu       sync.Mutex
	subscribers map[chan State]struct{}

	interval  time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a register broadcasting to subscribers every interval.
func New(interval time.Duration, logger zerolog.Logger) *Register {
	if interval <= 0 {
		interval = time.Second
	}
	r := &Register{
		logger:      logger.With().Str("component", "register").Logger(),
		samples:     make(State),
		lastLogged:  make(map[string]float64),
		subscribers: make(map[chan State]struct{}),
		interval:    interval,
		done:        make(chan struct{}),
	}
	go r.broadcastLoop()
	return r
}

// Set records the machine's newest sample. Last writer wins.
func (r *Register) Set(machine string, s normalize.Sample) {
	r.mu.Lock()
	r.samples[machine] = s
	r.mu.Unlock()
}

// Get returns the machine's latest sample, if any.
func (r *Register) Get(machine string) (normalize.Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[machine]
	return s, ok
}

// All returns a copy of the whole register.
func (r *Register) All() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(State, len(r.samples))
	for k, v := range r.samples {
		out[k] = v
	}
	return out
}

// Pending returns the machines whose latest sample has not been written
// to the status log yet.
func (r *Register) Pending() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(State)
	for machine, s := range r.samples {
		if s.TimestampProcessed > r.lastLogged[machine] {
			out[machine] = s
		}
	}
	return out
}

// MarkLogged records that the machine's sample with the given processed
// timestamp has been persisted.
func (r *Register) MarkLogged(machine string, processed float64) {
	r.mu.Lock()
	if processed > r.lastLogged[machine] {
		r.lastLogged[machine] = processed
	}
	r.mu.Unlock()
}

// Subscribe returns a channel receiving periodic register snapshots for
// push-based consumers. Slow subscribers miss updates rather than block
// the broadcaster.
func (r *Register) Subscribe() chan State {
	ch := make(chan State, 4)
	r.subMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel.
func (r *Register) Unsubscribe(ch chan State) {
	r.subMu.Lock()
	delete(r.subscribers, ch)
	r.subMu.Unlock()
}

// Close stops the broadcast loop.
func (r *Register) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Register) broadcastLoop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			state := r.All()
			if len(state) == 0 {
				continue
			}
			r.subMu.Lock()
			for ch := range r.subscribers {
				select {
				case ch <- state:
				default:
					// Subscriber too slow, skip.
				}
			}
			r.subMu.Unlock()
		}
	}
}
