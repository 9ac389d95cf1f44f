// driverio/factory.go
package driverio

import (
	"simboard-go/vhw"

	"tinygo.org/x/drivers"
)

// Factory hands out driver-facing buses from one board, claiming
// controller slots on demand. Repeated requests for the same pins get
// the same underlying slot, per the controllers' find-or-create rule.
type Factory struct {
	board *vhw.Board
}

func NewFactory(board *vhw.Board) *Factory { return &Factory{board: board} }

// I2C claims the bus on the given pins and wraps it.
func (f *Factory) I2C(scl, sda int, baud uint32) (drivers.I2C, error) {
	b, err := f.board.I2C.Claim(scl, sda, baud)
	if err != nil {
		return nil, err
	}
	return NewI2C(b), nil
}

// SPI claims the bus on the given pins and wraps it.
func (f *Factory) SPI(sck, mosi, miso int) (drivers.SPI, error) {
	b, err := f.board.SPI.Claim(sck, mosi, miso)
	if err != nil {
		return nil, err
	}
	return NewSPI(b), nil
}
