// vhw/board.go
package vhw

import (
	"simboard-go/bus"
	"simboard-go/msgq"
	"simboard-go/types"
	"simboard-go/vclock"
)

// Config assembles a Board. Zero-value fields get working defaults:
// a manual clock, a NopScheduler, no transport (hosted buses then fail
// fast with IOError) and no event bus.
type Config struct {
	Profile   types.BoardProfile
	Bus       *bus.Bus
	Transport msgq.Transport
	Scheduler types.Scheduler
}

// Board is the top-level context owning every simulated resource.
// There are no package globals; embedders construct as many boards as
// they want and they share nothing.
type Board struct {
	Pins     *PinBank
	Analog   *AnalogBank
	I2C      *I2CController
	SPI      *SPIController
	UART     *UARTController
	Encoders *EncoderBank
	Queue    *msgq.Queue
	Clock    *vclock.Clock

	conn  *bus.Connection
	sched types.Scheduler
}

func NewBoard(cfg Config) *Board {
	sched := cfg.Scheduler
	if sched == nil {
		sched = types.NopScheduler
	}

	mode := types.Manual
	if cfg.Profile.Clock.Mode != "" {
		mode = parseClockMode(cfg.Profile.Clock.Mode)
	}
	clk := vclock.New(mode, cfg.Profile.Clock.TimelineSize)
	if cfg.Profile.Clock.CPUFreqHz != 0 {
		clk.SetCPUFrequency(cfg.Profile.Clock.CPUFreqHz)
	}

	b := &Board{
		Pins:   NewPinBank(),
		Analog: NewAnalogBank(),
		Clock:  clk,
		sched:  sched,
	}
	b.Queue = msgq.New(clk, cfg.Transport)
	bridge := &Bridge{Q: b.Queue, Sched: sched}
	b.I2C = NewI2CController(b.Pins, bridge)
	b.SPI = NewSPIController(b.Pins, bridge)
	b.UART = NewUARTController(b.Pins)
	b.Encoders = NewEncoderBank(b.Pins)

	if cfg.Bus != nil {
		b.conn = cfg.Bus.NewConnection("vhw")
		b.Pins.SetNotify(func(pin int, s PinSnapshot) {
			b.conn.Publish(b.conn.NewMessage(bus.T("hw", "gpio", pin), s, true))
		})
		b.I2C.SetNotify(func(ev I2CEvent) {
			b.conn.Publish(b.conn.NewMessage(bus.T("hw", "i2c", ev.Bus, "txn"), ev, false))
		})
		b.SPI.SetNotify(func(ev SPIEvent) {
			b.conn.Publish(b.conn.NewMessage(bus.T("hw", "spi", ev.Bus, "txn"), ev, false))
		})
		b.UART.SetNotify(func(ev UARTEvent) {
			b.conn.Publish(b.conn.NewMessage(bus.T("hw", "uart", ev.Port, "io"), ev, false))
		})
		bridge.Notify = func(ev BridgeEvent) {
			b.conn.Publish(b.conn.NewMessage(bus.T("bridge", "req"), ev, false))
		}
	}
	return b
}

func parseClockMode(s string) types.ClockMode {
	switch s {
	case "manual":
		return types.Manual
	case "fast-forward":
		return types.FastForward
	default:
		return types.Realtime
	}
}

// Scheduler returns the background-task hook the board was built with.
func (b *Board) Scheduler() types.Scheduler { return b.sched }

// ClaimConsole claims a UART port and marks it never-reset, the usual
// arrangement for a guest console that must survive soft resets.
func (b *Board) ClaimConsole(txPin, rxPin int, baud uint32) (*UARTPort, error) {
	p, err := b.UART.Claim(txPin, rxPin, baud)
	if err != nil {
		return nil, err
	}
	p.SetNeverReset(true)
	return p, nil
}

// SleepMS is the guest-facing blocking sleep against the virtual clock.
func (b *Board) SleepMS(ms uint64) {
	b.Clock.SleepMS(ms, b.sched)
}

// Reset performs a soft reset: pins, analog channels, buses and
// encoders return to power-on state except where never-reset is set.
// The clock is deliberately untouched; the virtual crystal keeps
// running across guest restarts. Published as a retained hw/reset
// event carrying the tick it happened at.
func (b *Board) Reset() {
	b.Pins.Reset()
	b.Analog.Reset()
	b.I2C.Reset()
	b.SPI.Reset()
	b.UART.Reset()
	b.Encoders.Reset()
	b.Clock.Record("soft-reset")
	if b.conn != nil {
		b.conn.Publish(b.conn.NewMessage(bus.T("hw", "reset"), b.Clock.NowTicks(), true))
	}
}
