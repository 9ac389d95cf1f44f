// vclock/driver.go
package vclock

import (
	"context"
	"time"

	"simboard-go/types"
	"simboard-go/x/timex"
)

// Driver pushes wall time into a Clock while it is in REALTIME mode.
// It is the environment timer the core itself must never own: the core
// only ever sees Advance calls.
type Driver struct {
	clk      *Clock
	interval time.Duration
}

func NewDriver(clk *Clock, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Driver{clk: clk, interval: interval}
}

// Start runs the tick pump until ctx is cancelled. Ticks accumulate
// from wall-clock deltas, so a late timer fire still advances by the
// right amount. Non-REALTIME modes pause accumulation entirely.
func (d *Driver) Start(ctx context.Context) {
	go func() {
		tick := time.NewTicker(d.interval)
		defer tick.Stop()

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				if d.clk.Mode() != types.Realtime {
					last = now
					continue
				}
				elapsed := now.Sub(last)
				if elapsed <= 0 {
					continue
				}
				n := uint64(elapsed) * timex.TicksPerSecond / uint64(time.Second)
				if n == 0 {
					continue
				}
				d.clk.Advance(n)
				// Carry the remainder so slow ticking stays accurate.
				last = last.Add(time.Duration(n * uint64(time.Second) / timex.TicksPerSecond))
			}
		}
	}()
}
