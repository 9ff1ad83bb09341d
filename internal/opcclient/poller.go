package opcclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atot4/iot-project/internal/normalize"
	"github.com/Atot4/iot-project/internal/register"
)

// reconnectDelay is the fixed backoff between connection attempts.
const reconnectDelay = 5 * time.Second

// Poller owns one machine: it keeps a session alive, reads on a fixed
// cadence, normalizes, and publishes to the register. It is the only
// writer of its machine's register slot.
type Poller struct {
	machine  string
	family   normalize.Family
	client   *Client
	reg      *register.Register
	interval time.Duration
	logger   zerolog.Logger
}

func NewPoller(machine string, family normalize.Family, client *Client, reg *register.Register, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		machine:  machine,
		family:   family,
		client:   client,
		reg:      reg,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Str("machine", machine).Logger(),
	}
}

// Run polls until the context is cancelled. Connection failures publish
// a Disconnected sample and retry after a fixed delay; a session that
// stops serving values is torn down and rebuilt.
func (p *Poller) Run(ctx context.Context) {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.client.Close(closeCtx); err != nil {
			p.logger.Debug().Err(err).Msg("session close failed")
		}
	}()

	for {
		if err := p.client.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn().Err(err).Msg("connect failed, will retry")
			p.publishDisconnected()
			if !sleep(ctx, reconnectDelay) {
				return
			}
			continue
		}
		p.logger.Info().Msg("connected")

		if !p.pollLoop(ctx) {
			return
		}
		// pollLoop exits on read failure: rebuild the session.
		if err := p.client.Close(ctx); err != nil {
			p.logger.Debug().Err(err).Msg("session close failed")
		}
		p.publishDisconnected()
		if !sleep(ctx, reconnectDelay) {
			return
		}
	}
}

// pollLoop reads until the context is cancelled (returns false) or the
// session fails (returns true, caller reconnects).
func (p *Poller) pollLoop(ctx context.Context) bool {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			raw, err := p.client.ReadAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				p.logger.Warn().Err(err).Msg("read failed, reconnecting")
				return true
			}
			sample := normalize.Normalize(p.machine, p.family, raw, time.Now())
			p.reg.Set(p.machine, sample)
		}
	}
}

// publishDisconnected keeps the machine visible on the dashboard while
// its endpoint is unreachable.
func (p *Poller) publishDisconnected() {
	p.reg.Set(p.machine, normalize.Sample{
		StatusText:         "Disconnected",
		TimestampProcessed: float64(time.Now().UnixNano()) / 1e9,
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
