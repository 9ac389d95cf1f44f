// vclock/clock.go
package vclock

import (
	"sync"
	"sync/atomic"

	"simboard-go/types"
	"simboard-go/x/timex"
)

// DefaultCPUFrequencyHz is reporting metadata only; it does not affect
// the tick rate.
const DefaultCPUFrequencyHz = 120_000_000

// DefaultTimelineSize bounds the diagnostic event log.
const DefaultTimelineSize = 256

// Event is one named point on the virtual timeline.
type Event struct {
	Name  string
	Ticks uint64
}

// Clock is the single source of truth for all guest-visible time.
// Ticks advance at timex.TicksPerSecond (a virtual 32.768 kHz crystal)
// and are monotonically non-decreasing within a session; mode switches
// never rewind them. No component may read wall-clock time for
// guest-visible behavior — the realtime Driver is the only place wall
// time enters, and it only ever calls Advance.
type Clock struct {
	ticks atomic.Uint64
	mode  atomic.Uint32
	cpuHz atomic.Uint32

	tlMu   sync.Mutex
	tl     []Event
	tlNext int
	tlFull bool
}

func New(mode types.ClockMode, timelineSize int) *Clock {
	if timelineSize <= 0 {
		timelineSize = DefaultTimelineSize
	}
	c := &Clock{tl: make([]Event, timelineSize)}
	c.mode.Store(uint32(mode))
	c.cpuHz.Store(DefaultCPUFrequencyHz)
	return c
}

func (c *Clock) Mode() types.ClockMode { return types.ClockMode(c.mode.Load()) }

// SetMode switches the timing discipline. The tick counter is left
// untouched so already-scheduled timeouts stay consistent.
func (c *Clock) SetMode(m types.ClockMode) { c.mode.Store(uint32(m)) }

// Advance moves the clock forward by n ticks and returns the new count.
func (c *Clock) Advance(n uint64) uint64 { return c.ticks.Add(n) }

// AdvanceToMS advances to the given absolute millisecond target.
// Targets at or below the current time are a no-op (time never rewinds).
func (c *Clock) AdvanceToMS(targetMS uint64) {
	target := timex.MSToTicks(targetMS)
	for {
		cur := c.ticks.Load()
		if target <= cur {
			return
		}
		if c.ticks.CompareAndSwap(cur, target) {
			return
		}
	}
}

func (c *Clock) NowTicks() uint64 { return c.ticks.Load() }
func (c *Clock) NowMS() float64   { return timex.TicksToMS(c.ticks.Load()) }

// CPU frequency is reporting metadata for the guest; changing it does
// not change how fast ticks accumulate.
func (c *Clock) SetCPUFrequency(hz uint32) { c.cpuHz.Store(hz) }
func (c *Clock) CPUFrequency() uint32      { return c.cpuHz.Load() }

// SleepMS emulates a blocking guest sleep. In FAST_FORWARD mode the
// whole duration is collapsed by advancing the clock immediately. In
// the other modes it cooperatively yields to the scheduler until the
// target tick is reached; in MANUAL mode something reachable from
// sched.RunPending must advance the clock or the sleep never ends.
func (c *Clock) SleepMS(ms uint64, sched types.Scheduler) {
	n := timex.MSToTicks(ms)
	if c.Mode() == types.FastForward {
		c.Advance(n)
		return
	}
	target := c.ticks.Load() + n
	for c.ticks.Load() < target {
		sched.RunPending()
	}
}

// Record appends a named event to the timeline at the current tick.
// The log is a fixed-size ring: old events are overwritten.
func (c *Clock) Record(name string) {
	ev := Event{Name: name, Ticks: c.ticks.Load()}
	c.tlMu.Lock()
	c.tl[c.tlNext] = ev
	c.tlNext++
	if c.tlNext == len(c.tl) {
		c.tlNext = 0
		c.tlFull = true
	}
	c.tlMu.Unlock()
}

// Timeline returns the retained events, oldest first.
func (c *Clock) Timeline() []Event {
	c.tlMu.Lock()
	defer c.tlMu.Unlock()
	if !c.tlFull {
		out := make([]Event, c.tlNext)
		copy(out, c.tl[:c.tlNext])
		return out
	}
	out := make([]Event, 0, len(c.tl))
	out = append(out, c.tl[c.tlNext:]...)
	out = append(out, c.tl[:c.tlNext]...)
	return out
}
