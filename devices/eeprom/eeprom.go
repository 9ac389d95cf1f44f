// devices/eeprom/eeprom.go
//
// A 24Cxx-style I2C EEPROM simulation with a register pointer that
// auto-increments and wraps, implementing the bus backend hook for a
// single address and leaving the rest of the bus alone.
package eeprom

import (
	"sync"

	"simboard-go/errcode"
)

// DefaultSize matches a 24C02 (256 bytes).
const DefaultSize = 256

type EEPROM struct {
	mu      sync.Mutex
	addr    uint8
	mem     []byte
	pointer int
	wp      bool // write protect
}

func New(addr uint8, size int) *EEPROM {
	if size <= 0 {
		size = DefaultSize
	}
	return &EEPROM{addr: addr, mem: make([]byte, size)}
}

func (e *EEPROM) Addr() uint8 { return e.addr }

// SetWriteProtect emulates the WP pin.
func (e *EEPROM) SetWriteProtect(v bool) {
	e.mu.Lock()
	e.wp = v
	e.mu.Unlock()
}

// Load fills the memory image from the host side, ignoring WP.
func (e *EEPROM) Load(offset int, data []byte) {
	e.mu.Lock()
	if offset >= 0 && offset < len(e.mem) {
		copy(e.mem[offset:], data)
	}
	e.mu.Unlock()
}

// Bytes returns a copy of the memory image.
func (e *EEPROM) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.mem...)
}

func (e *EEPROM) Probe(addr uint8) (found, handled bool) {
	return addr == e.addr, addr == e.addr
}

// Write sets the pointer from the first byte and stores the rest,
// wrapping at the end of the array as real parts do.
func (e *EEPROM) Write(addr uint8, data []byte) (bool, error) {
	if addr != e.addr {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(data) == 0 {
		return true, nil
	}
	e.pointer = int(data[0]) % len(e.mem)
	if e.wp && len(data) > 1 {
		return true, &errcode.E{C: errcode.IOError, Op: "eeprom.Write", Msg: "write protected"}
	}
	for _, b := range data[1:] {
		e.mem[e.pointer] = b
		e.pointer = (e.pointer + 1) % len(e.mem)
	}
	return true, nil
}

// Read streams from the current pointer, auto-incrementing.
func (e *EEPROM) Read(addr uint8, into []byte) (bool, error) {
	if addr != e.addr {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range into {
		into[i] = e.mem[e.pointer]
		e.pointer = (e.pointer + 1) % len(e.mem)
	}
	return true, nil
}

// WriteRead is the random-read transaction: set the pointer, then
// stream.
func (e *EEPROM) WriteRead(addr uint8, out, into []byte) (bool, error) {
	if addr != e.addr {
		return false, nil
	}
	e.mu.Lock()
	if len(out) > 0 {
		e.pointer = int(out[0]) % len(e.mem)
	}
	for i := range into {
		into[i] = e.mem[e.pointer]
		e.pointer = (e.pointer + 1) % len(e.mem)
	}
	e.mu.Unlock()
	return true, nil
}
