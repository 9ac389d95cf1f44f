// driverio/driverio.go
//
// Adapters exposing simulated buses through the tinygo.org/x/drivers
// bus interfaces, so unmodified TinyGo device drivers run against the
// simulator.
package driverio

import (
	"simboard-go/errcode"
	"simboard-go/vhw"

	"tinygo.org/x/drivers"
)

// I2C adapts a simulated I2C bus to drivers.I2C.
type I2C struct {
	bus *vhw.I2CBus
}

var _ drivers.I2C = (*I2C)(nil)

func NewI2C(bus *vhw.I2CBus) *I2C { return &I2C{bus: bus} }

// Tx maps the combined-transaction contract onto the bus operations:
// write-then-read, plain write, or plain read depending on which
// buffers are non-empty.
func (d *I2C) Tx(addr uint16, w, r []byte) error {
	if addr >= vhw.I2CAddrSpace {
		return &errcode.E{C: errcode.InvalidArg, Op: "driverio.I2C.Tx",
			Msg: "address out of 7-bit range"}
	}
	a := uint8(addr)
	switch {
	case len(w) > 0 && len(r) > 0:
		return d.bus.WriteRead(a, w, r)
	case len(w) > 0:
		return d.bus.Write(a, w)
	case len(r) > 0:
		return d.bus.Read(a, r)
	}
	// Zero-length transaction degenerates to an address probe.
	if !d.bus.Probe(a) {
		return &errcode.E{C: errcode.NoDevice, Op: "driverio.I2C.Tx"}
	}
	return nil
}

// SPI adapts a simulated SPI bus to drivers.SPI. Each call takes the
// bus lock for its duration; a bus held by another owner reports
// ResourceExhausted rather than blocking.
type SPI struct {
	bus *vhw.SPIBus
}

var _ drivers.SPI = (*SPI)(nil)

func NewSPI(bus *vhw.SPIBus) *SPI { return &SPI{bus: bus} }

func (d *SPI) lock(op string) error {
	if !d.bus.TryLock() {
		return &errcode.E{C: errcode.ResourceExhausted, Op: op, Msg: "bus locked elsewhere"}
	}
	return nil
}

func (d *SPI) Tx(w, r []byte) error {
	if err := d.lock("driverio.SPI.Tx"); err != nil {
		return err
	}
	defer d.bus.Unlock()
	if len(w) == 0 && len(r) > 0 {
		return d.bus.Read(r, 0)
	}
	return d.bus.Transfer(w, r)
}

func (d *SPI) Transfer(b byte) (byte, error) {
	if err := d.lock("driverio.SPI.Transfer"); err != nil {
		return 0, err
	}
	defer d.bus.Unlock()
	var in [1]byte
	if err := d.bus.Transfer([]byte{b}, in[:]); err != nil {
		return 0, err
	}
	return in[0], nil
}
