package types

// ---- Pin attributes ----

// Direction of a digital pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// Pull mode for input pins.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Drive mode for output pins.
type Drive uint8

const (
	PushPull Drive = iota
	OpenDrain
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// ---- Serial framing ----

// Parity is a small enum to avoid string parsing on the wire.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// ---- Clock ----

// ClockMode selects how the virtual clock advances.
type ClockMode uint8

const (
	// Realtime: ticks advance proportionally to wall time, pushed by an
	// environment driver.
	Realtime ClockMode = iota
	// Manual: ticks advance only on explicit Advance/AdvanceToMS calls.
	Manual
	// FastForward: guest sleeps are collapsed by advancing the clock
	// immediately instead of waiting.
	FastForward
)

func (m ClockMode) String() string {
	switch m {
	case Manual:
		return "manual"
	case FastForward:
		return "fast-forward"
	default:
		return "realtime"
	}
}

// ---- Cooperative scheduling ----

// Scheduler is the background-task hook supplied by the environment.
// Any loop that emulates a blocking hardware call must invoke
// RunPending on every iteration so unrelated pending work (bridge
// responses, housekeeping, callbacks) is not starved.
type Scheduler interface {
	RunPending()
}

// SchedulerFunc adapts a plain function to a Scheduler.
type SchedulerFunc func()

func (f SchedulerFunc) RunPending() { f() }

// NopScheduler never has pending work. Useful in tests and in manual
// clock stepping where the caller drives everything itself.
var NopScheduler Scheduler = SchedulerFunc(func() {})
