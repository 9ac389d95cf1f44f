// vhw/pins.go
package vhw

import (
	"fmt"
	"sync"

	"simboard-go/errcode"
	"simboard-go/types"
)

// NumPins is the size of the digital pin bank.
const NumPins = 64

type pinState struct {
	value      bool // last value written while an output
	inLevel    bool // externally driven input level
	driven     bool // inLevel is valid
	direction  types.Direction
	pull       types.Pull
	drive      types.Drive
	enabled    bool
	neverReset bool
}

// PinSnapshot is the inspector-facing view of one pin. Field order is
// part of the host contract.
type PinSnapshot struct {
	Value      bool            `json:"value"`
	Direction  types.Direction `json:"direction"`
	Pull       types.Pull      `json:"pull"`
	OpenDrain  bool            `json:"open_drain"`
	Enabled    bool            `json:"enabled"`
	NeverReset bool            `json:"never_reset"`
}

// PinBank is the digital pin state store. All methods panic on an
// out-of-range pin number; that is an embedding bug, not a guest error.
type PinBank struct {
	mu     sync.Mutex
	pins   [NumPins]pinState
	notify func(pin int, s PinSnapshot)
}

func NewPinBank() *PinBank { return &PinBank{} }

// SetNotify installs a change callback, invoked outside the bank lock.
func (pb *PinBank) SetNotify(fn func(pin int, s PinSnapshot)) { pb.notify = fn }

func checkPin(pin int) {
	if pin < 0 || pin >= NumPins {
		panic(fmt.Sprintf("vhw: pin %d out of range", pin))
	}
}

func (pb *PinBank) SetDirection(pin int, d types.Direction) {
	checkPin(pin)
	pb.mu.Lock()
	p := &pb.pins[pin]
	p.direction = d
	p.enabled = true
	if d == types.Output {
		p.driven = false
	}
	s := snapshotLocked(p)
	pb.mu.Unlock()
	pb.emit(pin, s)
}

// SetValue stores a level on an output pin. Writes to inputs are
// ignored, matching real GPIO output latches.
func (pb *PinBank) SetValue(pin int, level bool) {
	checkPin(pin)
	pb.mu.Lock()
	p := &pb.pins[pin]
	if p.direction != types.Output {
		pb.mu.Unlock()
		return
	}
	p.value = level
	s := snapshotLocked(p)
	pb.mu.Unlock()
	pb.emit(pin, s)
}

// Value reads a pin. Outputs read back their latch. Inputs read the
// externally driven level when one was injected; an undriven input
// follows its pull: up reads high, down or floating reads low.
func (pb *PinBank) Value(pin int) bool {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	p := &pb.pins[pin]
	if p.direction == types.Output {
		return p.value
	}
	if p.driven {
		return p.inLevel
	}
	return p.pull == types.PullUp
}

// OutputValue reads the output latch regardless of direction.
func (pb *PinBank) OutputValue(pin int) bool {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].value
}

func (pb *PinBank) SetPull(pin int, pull types.Pull) {
	checkPin(pin)
	pb.mu.Lock()
	p := &pb.pins[pin]
	p.pull = pull
	s := snapshotLocked(p)
	pb.mu.Unlock()
	pb.emit(pin, s)
}

func (pb *PinBank) Pull(pin int) types.Pull {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].pull
}

func (pb *PinBank) SetDrive(pin int, d types.Drive) {
	checkPin(pin)
	pb.mu.Lock()
	pb.pins[pin].drive = d
	pb.mu.Unlock()
}

func (pb *PinBank) Drive(pin int) types.Drive {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].drive
}

func (pb *PinBank) Direction(pin int) types.Direction {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].direction
}

func (pb *PinBank) Enabled(pin int) bool {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].enabled
}

// Deinit disables a pin without clearing its configuration.
func (pb *PinBank) Deinit(pin int) {
	checkPin(pin)
	pb.mu.Lock()
	pb.pins[pin].enabled = false
	pb.mu.Unlock()
}

// SetNeverReset exempts a pin from soft reset. Buses claim this for
// their pins so a console or hosted link survives guest restarts.
func (pb *PinBank) SetNeverReset(pin int, v bool) {
	checkPin(pin)
	pb.mu.Lock()
	pb.pins[pin].neverReset = v
	pb.mu.Unlock()
}

func (pb *PinBank) NeverReset(pin int) bool {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.pins[pin].neverReset
}

// InjectInput sets the externally driven level on an input pin. The
// injected level takes precedence over the pull. Driving an output pin
// is rejected.
func (pb *PinBank) InjectInput(pin int, level bool) error {
	checkPin(pin)
	pb.mu.Lock()
	p := &pb.pins[pin]
	if p.direction == types.Output {
		pb.mu.Unlock()
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.InjectInput",
			Msg: fmt.Sprintf("pin %d is an output", pin)}
	}
	p.inLevel = level
	p.driven = true
	s := snapshotLocked(p)
	pb.mu.Unlock()
	pb.emit(pin, s)
	return nil
}

// ReleaseInput removes the external drive; the pin reads its pull again.
func (pb *PinBank) ReleaseInput(pin int) {
	checkPin(pin)
	pb.mu.Lock()
	pb.pins[pin].driven = false
	pb.mu.Unlock()
}

// Reset returns every pin that is not marked never-reset to its
// power-on state: disabled input, no pull, push-pull, low.
func (pb *PinBank) Reset() {
	pb.mu.Lock()
	for i := range pb.pins {
		if pb.pins[i].neverReset {
			continue
		}
		pb.pins[i] = pinState{}
	}
	pb.mu.Unlock()
}

func (pb *PinBank) Snapshot(pin int) PinSnapshot {
	checkPin(pin)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return snapshotLocked(&pb.pins[pin])
}

func snapshotLocked(p *pinState) PinSnapshot {
	return PinSnapshot{
		Value:      p.value,
		Direction:  p.direction,
		Pull:       p.pull,
		OpenDrain:  p.drive == types.OpenDrain,
		Enabled:    p.enabled,
		NeverReset: p.neverReset,
	}
}

func (pb *PinBank) emit(pin int, s PinSnapshot) {
	if pb.notify != nil {
		pb.notify(pin, s)
	}
}
