// vhw/encoder.go
package vhw

import (
	"sync"

	"simboard-go/errcode"
)

// NumEncoders is the fixed decoder table size.
const NumEncoders = 4

// encBad marks a quadrature transition where both phases changed at
// once. The decoder resynchronizes its state but moves no count.
const encBad = 127

// encDelta maps (oldState<<2 | newState) to a sub-count step. The
// canonical forward sequence 00 01 11 10 yields +1 per step.
var encDelta = [16]int8{
	0, +1, -1, encBad,
	-1, 0, encBad, +1,
	+1, encBad, 0, -1,
	encBad, -1, +1, 0,
}

// Encoder is one quadrature decoder bound to a pin pair. Position moves
// one detent per divisor valid transitions.
type Encoder struct {
	bank  *EncoderBank
	index int

	mu         sync.Mutex
	pinA, pinB int
	divisor    int
	position   int32
	state      uint8
	subCount   int8
	inUse      bool
	enabled    bool
	neverReset bool
}

// EncoderSnapshot is the inspector view of one decoder.
type EncoderSnapshot struct {
	Index    int   `json:"index"`
	PinA     int   `json:"pin_a"`
	PinB     int   `json:"pin_b"`
	Divisor  int   `json:"divisor"`
	Position int32 `json:"position"`
	Enabled  bool  `json:"enabled"`
}

// EncoderBank owns the fixed decoder table and the pin bank the
// decoders sample from.
type EncoderBank struct {
	mu       sync.Mutex
	encoders [NumEncoders]Encoder
	pins     *PinBank
}

func NewEncoderBank(pins *PinBank) *EncoderBank {
	b := &EncoderBank{pins: pins}
	for i := range b.encoders {
		b.encoders[i].bank = b
		b.encoders[i].index = i
		b.encoders[i].divisor = 4
	}
	return b
}

// Claim finds or creates the decoder for a pin pair. The initial state
// is sampled from the pins so the first real transition is not
// misread as movement from 00.
func (eb *EncoderBank) Claim(pinA, pinB int) (*Encoder, error) {
	checkPin(pinA)
	checkPin(pinB)
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i := range eb.encoders {
		e := &eb.encoders[i]
		if e.inUse && e.pinA == pinA && e.pinB == pinB {
			e.enabled = true
			return e, nil
		}
	}
	for i := range eb.encoders {
		e := &eb.encoders[i]
		if !e.inUse {
			e.pinA, e.pinB = pinA, pinB
			e.inUse, e.enabled = true, true
			e.state = encState(eb.pins.Value(pinA), eb.pins.Value(pinB))
			return e, nil
		}
	}
	return nil, &errcode.E{C: errcode.ResourceExhausted, Op: "vhw.Encoder.Claim",
		Msg: "all encoder slots in use"}
}

func (eb *EncoderBank) Encoder(i int) *Encoder { return &eb.encoders[i] }

func (eb *EncoderBank) Reset() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i := range eb.encoders {
		e := &eb.encoders[i]
		if e.inUse && !e.neverReset {
			e.enabled = false
			e.position = 0
			e.subCount = 0
		}
	}
}

func encState(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

func (e *Encoder) Index() int { return e.index }

func (e *Encoder) Deinit() {
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
}

func (e *Encoder) SetNeverReset(v bool) {
	e.mu.Lock()
	e.neverReset = v
	a, b := e.pinA, e.pinB
	e.mu.Unlock()
	e.bank.pins.SetNeverReset(a, v)
	e.bank.pins.SetNeverReset(b, v)
}

// Update feeds one sampled phase pair into the decoder and returns the
// detent delta it produced (-1, 0 or +1).
func (e *Encoder) Update(a, b bool) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return 0
	}
	next := encState(a, b)
	d := encDelta[e.state<<2|next]
	e.state = next
	if d == encBad || d == 0 {
		return 0
	}
	e.subCount += d
	if int(e.subCount) >= e.divisor {
		e.subCount = 0
		e.position++
		return 1
	}
	if int(e.subCount) <= -e.divisor {
		e.subCount = 0
		e.position--
		return -1
	}
	return 0
}

// Sample reads the decoder's pins from the pin bank and feeds them in.
func (e *Encoder) Sample() int32 {
	e.mu.Lock()
	a, b := e.pinA, e.pinB
	e.mu.Unlock()
	return e.Update(e.bank.pins.Value(a), e.bank.pins.Value(b))
}

func (e *Encoder) Position() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Encoder) SetPosition(p int32) {
	e.mu.Lock()
	e.position = p
	e.subCount = 0
	e.mu.Unlock()
}

func (e *Encoder) Divisor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.divisor
}

// SetDivisor changes the detent granularity. Accumulated sub-counts are
// kept as-is; there is no retroactive rescale.
func (e *Encoder) SetDivisor(d int) error {
	if d <= 0 {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.Encoder.SetDivisor",
			Msg: "divisor must be positive"}
	}
	e.mu.Lock()
	e.divisor = d
	e.mu.Unlock()
	return nil
}

func (e *Encoder) Snapshot() EncoderSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EncoderSnapshot{
		Index: e.index, PinA: e.pinA, PinB: e.pinB,
		Divisor: e.divisor, Position: e.position, Enabled: e.enabled,
	}
}
