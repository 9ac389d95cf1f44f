// vhw/spi.go
package vhw

import (
	"sync"

	"simboard-go/errcode"
	"simboard-go/msgq"
	"simboard-go/x/mathx"
)

// NumSPIBuses is the fixed controller table size.
const NumSPIBuses = 4

// SPIBus is one claimed controller slot. Configuration and data
// operations require the caller to hold the bus lock (TryLock), the
// same contract the guest HAL exposes.
type SPIBus struct {
	ctl   *SPIController
	index int

	mu              sync.Mutex
	sck, mosi, miso int
	inUse           bool
	enabled         bool
	neverReset      bool
	locked          bool

	baud     uint32
	polarity uint8
	phase    uint8
	bits     uint8

	readData [ObsBufSize]byte
	readLen  int
	readPos  int

	lastTx    [ObsBufSize]byte
	lastTxLen int
	lastRx    [ObsBufSize]byte
	lastRxLen int

	backend SPIBackend
	hosted  bool
}

// SPISnapshot is the inspector view of one bus slot.
type SPISnapshot struct {
	Index      int    `json:"index"`
	SCK        int    `json:"sck"`
	MOSI       int    `json:"mosi"`
	MISO       int    `json:"miso"`
	InUse      bool   `json:"in_use"`
	Enabled    bool   `json:"enabled"`
	NeverReset bool   `json:"never_reset"`
	Locked     bool   `json:"locked"`
	Baudrate   uint32 `json:"baudrate"`
	Polarity   uint8  `json:"polarity"`
	Phase      uint8  `json:"phase"`
	Bits       uint8  `json:"bits"`
	Hosted     bool   `json:"hosted"`
}

// SPIController owns the fixed bus table.
type SPIController struct {
	mu     sync.Mutex
	buses  [NumSPIBuses]SPIBus
	pins   *PinBank
	bridge *Bridge
	notify func(ev SPIEvent)
}

func NewSPIController(pins *PinBank, bridge *Bridge) *SPIController {
	c := &SPIController{pins: pins, bridge: bridge}
	for i := range c.buses {
		c.buses[i].ctl = c
		c.buses[i].index = i
		c.buses[i].bits = 8
	}
	return c
}

// Claim finds or creates the slot for a pin triple, as in I2C.
func (c *SPIController) Claim(sck, mosi, miso int) (*SPIBus, error) {
	checkPin(sck)
	checkPin(mosi)
	checkPin(miso)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.buses {
		b := &c.buses[i]
		if b.inUse && b.sck == sck && b.mosi == mosi && b.miso == miso {
			b.enabled = true
			return b, nil
		}
	}
	for i := range c.buses {
		b := &c.buses[i]
		if !b.inUse {
			b.sck, b.mosi, b.miso = sck, mosi, miso
			b.inUse, b.enabled = true, true
			return b, nil
		}
	}
	return nil, &errcode.E{C: errcode.ResourceExhausted, Op: "vhw.SPI.Claim",
		Msg: "all SPI bus slots in use"}
}

func (c *SPIController) Bus(i int) *SPIBus { return &c.buses[i] }

// SetNotify installs a transfer observer, invoked outside bus locks.
func (c *SPIController) SetNotify(fn func(ev SPIEvent)) { c.notify = fn }

func (c *SPIController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.buses {
		b := &c.buses[i]
		if b.inUse && !b.neverReset {
			b.enabled = false
			b.locked = false
		}
	}
}

func (b *SPIBus) Index() int { return b.index }

func (b *SPIBus) Deinit() {
	b.mu.Lock()
	b.enabled = false
	b.locked = false
	b.mu.Unlock()
}

func (b *SPIBus) SetNeverReset(v bool) {
	b.mu.Lock()
	b.neverReset = v
	sck, mosi, miso := b.sck, b.mosi, b.miso
	b.mu.Unlock()
	b.ctl.pins.SetNeverReset(sck, v)
	b.ctl.pins.SetNeverReset(mosi, v)
	b.ctl.pins.SetNeverReset(miso, v)
}

func (b *SPIBus) SetBackend(be SPIBackend) {
	b.mu.Lock()
	b.backend = be
	b.mu.Unlock()
}

func (b *SPIBus) SetHosted(v bool) {
	b.mu.Lock()
	b.hosted = v
	b.mu.Unlock()
}

// TryLock claims single ownership of the bus. It never blocks.
func (b *SPIBus) TryLock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked || !b.enabled {
		return false
	}
	b.locked = true
	return true
}

func (b *SPIBus) Unlock() {
	b.mu.Lock()
	b.locked = false
	b.mu.Unlock()
}

func (b *SPIBus) notLocked(op string) error {
	return &errcode.E{C: errcode.InvalidArg, Op: op, Msg: "bus not locked"}
}

// Configure sets the transfer parameters. Requires the lock.
func (b *SPIBus) Configure(baud uint32, polarity, phase, bits uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.locked {
		return b.notLocked("vhw.SPI.Configure")
	}
	b.baud, b.polarity, b.phase, b.bits = baud, polarity, phase, bits
	return nil
}

// SetReadData seeds the MISO bytes the next reads will return. Host
// side; does not require the guest lock.
func (b *SPIBus) SetReadData(data []byte) {
	b.mu.Lock()
	b.readLen = copy(b.readData[:], data)
	b.readPos = 0
	b.mu.Unlock()
}

// Write clocks data out. Requires the lock. The payload is captured in
// the TX observation buffer, truncated to its capacity.
func (b *SPIBus) Write(data []byte) error {
	return b.transfer(data, nil, 0)
}

// Read clocks len(into) bytes in, sending fill on MOSI. Bytes come from
// the host-seeded read data while it lasts, then repeat fill.
func (b *SPIBus) Read(into []byte, fill byte) error {
	return b.transfer(nil, into, fill)
}

// Transfer is the full-duplex exchange.
func (b *SPIBus) Transfer(out, in []byte) error {
	return b.transfer(out, in, 0)
}

func (b *SPIBus) transfer(out, in []byte, fill byte) error {
	b.mu.Lock()
	if !b.locked {
		b.mu.Unlock()
		return b.notLocked("vhw.SPI.Transfer")
	}
	be, hosted := b.backend, b.hosted
	if out != nil {
		b.lastTxLen = copy(b.lastTx[:], out[:mathx.Min(len(out), ObsBufSize)])
	}
	b.mu.Unlock()

	if hosted {
		resp, err := b.ctl.bridge.roundTrip(msgq.OpSPITransfer, uint8(b.index), 0, out)
		if err != nil {
			b.emit(out, nil, false)
			return err
		}
		if in != nil {
			copy(in, resp)
			b.recordRx(in)
		}
		b.emit(out, in, true)
		return nil
	}
	if be != nil {
		if handled, err := be.Transfer(out, in); handled {
			if err == nil && in != nil {
				b.recordRx(in)
			}
			b.emit(out, in, err == nil)
			return err
		}
	}

	if in != nil {
		b.mu.Lock()
		for i := range in {
			if b.readPos < b.readLen {
				in[i] = b.readData[b.readPos]
				b.readPos++
			} else {
				in[i] = fill
			}
		}
		b.mu.Unlock()
		b.recordRx(in)
	}
	b.emit(out, in, true)
	return nil
}

func (b *SPIBus) emit(tx, rx []byte, ok bool) {
	fn := b.ctl.notify
	if fn == nil {
		return
	}
	ev := SPIEvent{Bus: b.index, OK: ok}
	if len(tx) > 0 {
		ev.Tx = append([]byte(nil), tx...)
	}
	if len(rx) > 0 {
		ev.Rx = append([]byte(nil), rx...)
	}
	fn(ev)
}

func (b *SPIBus) recordRx(data []byte) {
	b.mu.Lock()
	b.lastRxLen = copy(b.lastRx[:], data[:mathx.Min(len(data), ObsBufSize)])
	b.mu.Unlock()
}

// LastTx returns the observation copy of the most recent outgoing data.
func (b *SPIBus) LastTx() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.lastTx[:b.lastTxLen]...)
}

// LastRx returns the observation copy of the most recent incoming data.
func (b *SPIBus) LastRx() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.lastRx[:b.lastRxLen]...)
}

func (b *SPIBus) Snapshot() SPISnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return SPISnapshot{
		Index: b.index, SCK: b.sck, MOSI: b.mosi, MISO: b.miso,
		InUse: b.inUse, Enabled: b.enabled, NeverReset: b.neverReset,
		Locked: b.locked, Baudrate: b.baud,
		Polarity: b.polarity, Phase: b.phase, Bits: b.bits, Hosted: b.hosted,
	}
}
