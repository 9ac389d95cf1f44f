// vhw/i2c.go
package vhw

import (
	"sync"

	"simboard-go/errcode"
	"simboard-go/msgq"
	"simboard-go/x/mathx"
)

const (
	// NumI2CBuses is the fixed controller table size.
	NumI2CBuses = 8
	// I2CAddrSpace covers 7-bit addressing.
	I2CAddrSpace = 128
	// I2CRegSpace is the register file size of a built-in device.
	I2CRegSpace = 256
	// ObsBufSize caps the last-transfer observation buffers.
	ObsBufSize = 256
)

type i2cDevice struct {
	active bool
	regs   [I2CRegSpace]byte
}

// I2CBus is one claimed controller slot. Data operations hit the
// backend first (if any), then the built-in device table, unless the
// bus is hosted, in which case they go through the bridge.
type I2CBus struct {
	ctl   *I2CController
	index int

	mu         sync.Mutex
	scl, sda   int
	inUse      bool
	enabled    bool
	neverReset bool
	locked     bool
	baud       uint32
	devices    [I2CAddrSpace]i2cDevice

	lastWrite     [ObsBufSize]byte
	lastWriteLen  int
	lastWriteAddr uint8
	lastRead      [ObsBufSize]byte
	lastReadLen   int
	lastReadAddr  uint8

	backend I2CBackend
	hosted  bool
}

// I2CSnapshot is the inspector view of one bus slot.
type I2CSnapshot struct {
	Index      int    `json:"index"`
	SCL        int    `json:"scl"`
	SDA        int    `json:"sda"`
	InUse      bool   `json:"in_use"`
	Enabled    bool   `json:"enabled"`
	NeverReset bool   `json:"never_reset"`
	Locked     bool   `json:"locked"`
	Baudrate   uint32 `json:"baudrate"`
	Hosted     bool   `json:"hosted"`
	Devices    []int  `json:"devices"`
}

// I2CController owns the fixed bus table.
type I2CController struct {
	mu     sync.Mutex
	buses  [NumI2CBuses]I2CBus
	pins   *PinBank
	bridge *Bridge
	notify func(ev I2CEvent)
}

func NewI2CController(pins *PinBank, bridge *Bridge) *I2CController {
	c := &I2CController{pins: pins, bridge: bridge}
	for i := range c.buses {
		c.buses[i].ctl = c
		c.buses[i].index = i
	}
	return c
}

// SetNotify installs a transaction observer, invoked outside bus locks.
func (c *I2CController) SetNotify(fn func(ev I2CEvent)) { c.notify = fn }

// Claim returns the bus slot for the given pin pair, creating it in the
// first free slot when new. Re-claiming an existing pair re-enables the
// same slot so device tables survive deinit/reinit cycles.
func (c *I2CController) Claim(scl, sda int, baud uint32) (*I2CBus, error) {
	checkPin(scl)
	checkPin(sda)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.buses {
		b := &c.buses[i]
		if b.inUse && b.scl == scl && b.sda == sda {
			b.enabled = true
			b.baud = baud
			return b, nil
		}
	}
	for i := range c.buses {
		b := &c.buses[i]
		if !b.inUse {
			b.scl, b.sda = scl, sda
			b.inUse, b.enabled = true, true
			b.baud = baud
			return b, nil
		}
	}
	return nil, &errcode.E{C: errcode.ResourceExhausted, Op: "vhw.I2C.Claim",
		Msg: "all I2C bus slots in use"}
}

// Bus returns slot i for inspectors; it may be unclaimed.
func (c *I2CController) Bus(i int) *I2CBus { return &c.buses[i] }

// Reset disables claimed buses except those marked never-reset.
// Device tables are kept; disable is not deallocate.
func (c *I2CController) Reset() {
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

// Deinit disables the bus; its slot and device table stay allocated so
// a later Claim of the same pins finds them again.
func (b *I2CBus) Deinit() {
	b.mu.Lock()
	b.enabled = false
	b.locked = false
	b.mu.Unlock()
}

// TryLock claims single ownership of the bus. It never blocks.
func (b *I2CBus) TryLock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked || !b.enabled {
		return false
	}
	b.locked = true
	return true
}

func (b *I2CBus) Unlock() {
	b.mu.Lock()
	b.locked = false
	b.mu.Unlock()
}

func (b *I2CBus) Index() int { return b.index }

// SetNeverReset exempts the bus from soft reset and propagates the flag
// to its pins.
func (b *I2CBus) SetNeverReset(v bool) {
	b.mu.Lock()
	b.neverReset = v
	scl, sda := b.scl, b.sda
	b.mu.Unlock()
	b.ctl.pins.SetNeverReset(scl, v)
	b.ctl.pins.SetNeverReset(sda, v)
}

func (b *I2CBus) SetBackend(be I2CBackend) {
	b.mu.Lock()
	b.backend = be
	b.mu.Unlock()
}

// SetHosted routes the bus's data operations through the host bridge.
func (b *I2CBus) SetHosted(v bool) {
	b.mu.Lock()
	b.hosted = v
	b.mu.Unlock()
}

// AddDevice activates a built-in register device at addr.
func (b *I2CBus) AddDevice(addr uint8) error {
	if addr >= I2CAddrSpace {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.I2C.AddDevice", Msg: "address out of range"}
	}
	b.mu.Lock()
	b.devices[addr] = i2cDevice{active: true}
	b.mu.Unlock()
	return nil
}

func (b *I2CBus) RemoveDevice(addr uint8) {
	if addr >= I2CAddrSpace {
		return
	}
	b.mu.Lock()
	b.devices[addr].active = false
	b.mu.Unlock()
}

// SetDeviceRegister pokes a register from the host side.
func (b *I2CBus) SetDeviceRegister(addr uint8, reg uint8, val byte) error {
	if addr >= I2CAddrSpace {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.I2C.SetDeviceRegister", Msg: "address out of range"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.devices[addr].active {
		return errcode.NoDevice
	}
	b.devices[addr].regs[reg] = val
	return nil
}

// Probe reports whether a device answers at addr. Addresses outside
// 7-bit space simply do not answer.
func (b *I2CBus) Probe(addr uint8) bool {
	if addr >= I2CAddrSpace {
		return false
	}
	b.mu.Lock()
	be, hosted := b.backend, b.hosted
	b.mu.Unlock()

	found, answered := false, false
	if hosted {
		resp, err := b.ctl.bridge.roundTrip(msgq.OpI2CProbe, uint8(b.index), addr, nil)
		found = err == nil && len(resp) > 0 && resp[0] != 0
		answered = true
	} else if be != nil {
		if f, handled := be.Probe(addr); handled {
			found, answered = f, true
		}
	}
	if !answered {
		b.mu.Lock()
		found = b.devices[addr].active
		b.mu.Unlock()
	}
	b.emit("probe", addr, nil, found)
	return found
}

// Write sends data to a device. When the payload is at least two bytes
// the first byte is the register offset and the remainder lands in the
// device's register file, clipped at its end. The payload is captured
// in the last-write observation buffer only when a device answered.
func (b *I2CBus) Write(addr uint8, data []byte) error {
	if addr >= I2CAddrSpace {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.I2C.Write", Msg: "address out of range"}
	}
	data = data[:mathx.Min(len(data), ObsBufSize)]

	b.mu.Lock()
	be, hosted := b.backend, b.hosted
	b.mu.Unlock()

	if hosted {
		_, err := b.ctl.bridge.roundTrip(msgq.OpI2CWrite, uint8(b.index), addr, data)
		if err == nil {
			b.recordWrite(addr, data)
		}
		b.emit("write", addr, data, err == nil)
		return err
	}
	if be != nil {
		if handled, err := be.Write(addr, data); handled {
			if err == nil {
				b.recordWrite(addr, data)
			}
			b.emit("write", addr, data, err == nil)
			return err
		}
	}

	b.mu.Lock()
	dev := &b.devices[addr]
	if !dev.active {
		b.mu.Unlock()
		b.emit("write", addr, nil, false)
		return &errcode.E{C: errcode.NoDevice, Op: "vhw.I2C.Write"}
	}
	b.lastWriteAddr = addr
	b.lastWriteLen = copy(b.lastWrite[:], data)
	if len(data) >= 2 {
		reg := int(data[0])
		copy(dev.regs[reg:], data[1:])
	}
	b.mu.Unlock()
	b.emit("write", addr, data, true)
	return nil
}

// Read fills into from the device's register file, starting at
// register 0.
func (b *I2CBus) Read(addr uint8, into []byte) error {
	return b.readFrom(addr, 0, into, msgq.OpI2CRead, nil)
}

// WriteRead performs the usual register-pointer transaction: out is
// written (out[0] names the start register), then into is read from
// that offset.
func (b *I2CBus) WriteRead(addr uint8, out, into []byte) error {
	reg := 0
	if len(out) > 0 {
		reg = int(out[0])
	}
	return b.readFrom(addr, reg, into, msgq.OpI2CWriteRead, out)
}

func (b *I2CBus) readFrom(addr uint8, reg int, into []byte, op msgq.Op, out []byte) error {
	kind := "read"
	if op == msgq.OpI2CWriteRead {
		kind = "write-read"
	}
	if addr >= I2CAddrSpace {
		return &errcode.E{C: errcode.InvalidArg, Op: "vhw.I2C.Read", Msg: "address out of range"}
	}
	b.mu.Lock()
	be, hosted := b.backend, b.hosted
	b.mu.Unlock()

	if hosted {
		resp, err := b.ctl.bridge.roundTrip(op, uint8(b.index), addr, out)
		if err != nil {
			b.emit(kind, addr, nil, false)
			return err
		}
		n := copy(into, resp)
		b.recordRead(addr, into[:n])
		b.emit(kind, addr, into[:n], true)
		return nil
	}
	if be != nil {
		var handled bool
		var err error
		if op == msgq.OpI2CWriteRead {
			handled, err = be.WriteRead(addr, out, into)
		} else {
			handled, err = be.Read(addr, into)
		}
		if handled {
			if err == nil {
				b.recordRead(addr, into)
				b.emit(kind, addr, into, true)
			} else {
				b.emit(kind, addr, nil, false)
			}
			return err
		}
	}

	b.mu.Lock()
	dev := &b.devices[addr]
	if !dev.active {
		b.mu.Unlock()
		b.emit(kind, addr, nil, false)
		return &errcode.E{C: errcode.NoDevice, Op: "vhw.I2C.Read"}
	}
	for i := range into {
		if reg+i < I2CRegSpace {
			into[i] = dev.regs[reg+i]
		} else {
			into[i] = 0
		}
	}
	b.mu.Unlock()
	b.recordRead(addr, into)
	b.emit(kind, addr, into, true)
	return nil
}

func (b *I2CBus) recordWrite(addr uint8, data []byte) {
	b.mu.Lock()
	b.lastWriteAddr = addr
	b.lastWriteLen = copy(b.lastWrite[:], data)
	b.mu.Unlock()
}

func (b *I2CBus) recordRead(addr uint8, data []byte) {
	b.mu.Lock()
	b.lastReadAddr = addr
	b.lastReadLen = copy(b.lastRead[:], data)
	b.mu.Unlock()
}

func (b *I2CBus) emit(kind string, addr uint8, data []byte, ok bool) {
	fn := b.ctl.notify
	if fn == nil {
		return
	}
	ev := I2CEvent{Bus: b.index, Kind: kind, Addr: addr, OK: ok}
	if len(data) > 0 {
		ev.Data = append([]byte(nil), data...)
	}
	fn(ev)
}

// LastWrite returns the observation copy of the most recent write.
func (b *I2CBus) LastWrite() (addr uint8, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastWriteAddr, append([]byte(nil), b.lastWrite[:b.lastWriteLen]...)
}

// LastRead returns the observation copy of the most recent read.
func (b *I2CBus) LastRead() (addr uint8, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReadAddr, append([]byte(nil), b.lastRead[:b.lastReadLen]...)
}

func (b *I2CBus) Snapshot() I2CSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	var devs []int
	for a := range b.devices {
		if b.devices[a].active {
			devs = append(devs, a)
		}
	}
	return I2CSnapshot{
		Index: b.index, SCL: b.scl, SDA: b.sda,
		InUse: b.inUse, Enabled: b.enabled, NeverReset: b.neverReset,
		Locked: b.locked, Baudrate: b.baud, Hosted: b.hosted, Devices: devs,
	}
}
