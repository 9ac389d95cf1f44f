// vhw/analog.go
package vhw

import (
	"fmt"
	"sync"

	"simboard-go/errcode"
)

// AnalogMidScale seeds a fresh ADC channel. Mid-range rather than zero
// so floating-input code sees a plausible reading out of the box.
const AnalogMidScale = 32768

type analogState struct {
	value    uint16
	isOutput bool
	enabled  bool
}

// AnalogSnapshot mirrors PinSnapshot for the analog bank.
type AnalogSnapshot struct {
	Value    uint16 `json:"value"`
	IsOutput bool   `json:"is_output"`
	Enabled  bool   `json:"enabled"`
}

// AnalogBank holds the 16-bit analog channel table, one channel per
// pin number. Out-of-range pins panic, as in PinBank.
type AnalogBank struct {
	mu    sync.Mutex
	chans [NumPins]analogState
}

func NewAnalogBank() *AnalogBank { return &AnalogBank{} }

// InitADC enables a channel as an input, seeded mid-scale.
func (ab *AnalogBank) InitADC(pin int) {
	checkPin(pin)
	ab.mu.Lock()
	ab.chans[pin] = analogState{value: AnalogMidScale, enabled: true}
	ab.mu.Unlock()
}

// InitDAC enables a channel as an output, starting at zero.
func (ab *AnalogBank) InitDAC(pin int) {
	checkPin(pin)
	ab.mu.Lock()
	ab.chans[pin] = analogState{isOutput: true, enabled: true}
	ab.mu.Unlock()
}

func (ab *AnalogBank) Deinit(pin int) {
	checkPin(pin)
	ab.mu.Lock()
	ab.chans[pin].enabled = false
	ab.mu.Unlock()
}

// Read returns the channel value, or 0 when the channel is disabled.
func (ab *AnalogBank) Read(pin int) uint16 {
	checkPin(pin)
	ab.mu.Lock()
	defer ab.mu.Unlock()
	c := &ab.chans[pin]
	if !c.enabled {
		return 0
	}
	return c.value
}

// Write sets a DAC channel's level. Writing an ADC channel is rejected;
// the host owns input levels.
func (ab *AnalogBank) Write(pin int, v uint16) error {
	checkPin(pin)
	ab.mu.Lock()
	defer ab.mu.Unlock()
	c := &ab.chans[pin]
	if !c.enabled || !c.isOutput {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.AnalogWrite",
			Msg: fmt.Sprintf("pin %d is not an enabled DAC", pin)}
	}
	c.value = v
	return nil
}

// InjectInput sets an ADC channel's level from the host side.
func (ab *AnalogBank) InjectInput(pin int, v uint16) error {
	checkPin(pin)
	ab.mu.Lock()
	defer ab.mu.Unlock()
	c := &ab.chans[pin]
	if !c.enabled || c.isOutput {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.AnalogInject",
			Msg: fmt.Sprintf("pin %d is not an enabled ADC", pin)}
	}
	c.value = v
	return nil
}

// OutputValue reads a channel's stored level regardless of role.
func (ab *AnalogBank) OutputValue(pin int) uint16 {
	checkPin(pin)
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.chans[pin].value
}

func (ab *AnalogBank) Snapshot(pin int) AnalogSnapshot {
	checkPin(pin)
	ab.mu.Lock()
	defer ab.mu.Unlock()
	c := &ab.chans[pin]
	return AnalogSnapshot{Value: c.value, IsOutput: c.isOutput, Enabled: c.enabled}
}

// Reset disables every channel and clears its value.
func (ab *AnalogBank) Reset() {
	ab.mu.Lock()
	for i := range ab.chans {
		ab.chans[i] = analogState{}
	}
	ab.mu.Unlock()
}
