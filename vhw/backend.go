// vhw/backend.go
package vhw

// Backend hooks let simulated peripherals intercept bus traffic before
// it reaches the built-in register tables. Each method's handled flag
// says whether the backend consumed the operation; handled=false falls
// through to the local simulation, so a backend can model one address
// and leave the rest of the bus alone.

// I2CBackend models one or more devices on an I2C bus.
type I2CBackend interface {
	Probe(addr uint8) (found, handled bool)
	Write(addr uint8, data []byte) (handled bool, err error)
	Read(addr uint8, into []byte) (handled bool, err error)
	WriteRead(addr uint8, out, in []byte) (handled bool, err error)
}

// SPIBackend models the peripheral on an SPI bus's chip select.
type SPIBackend interface {
	Transfer(out, in []byte) (handled bool, err error)
}
