// devices/devices.go
package devices

import (
	"simboard-go/devices/eeprom"
	"simboard-go/devices/loopback"
	"simboard-go/errcode"
	"simboard-go/types"
	"simboard-go/vhw"
)

// Attach instantiates the peripheral a profile entry describes and
// hooks it onto the board. The claimed bus pins follow the convention
// 2*bus / 2*bus+1 (I2C) and 3*bus.. (SPI) unless the embedding claimed
// the bus itself beforehand; attach then finds the existing slot.
func Attach(b *vhw.Board, cfg types.DeviceCfg) error {
	switch cfg.Type {
	case "i2c_regs":
		bus, err := b.I2C.Claim(2*cfg.Bus, 2*cfg.Bus+1, 100_000)
		if err != nil {
			return err
		}
		return bus.AddDevice(cfg.Addr)
	case "i2c_eeprom":
		bus, err := b.I2C.Claim(2*cfg.Bus, 2*cfg.Bus+1, 100_000)
		if err != nil {
			return err
		}
		bus.SetBackend(eeprom.New(cfg.Addr, 0))
		return nil
	case "spi_loopback":
		bus, err := b.SPI.Claim(3*cfg.Bus, 3*cfg.Bus+1, 3*cfg.Bus+2)
		if err != nil {
			return err
		}
		bus.SetBackend(loopback.New())
		return nil
	}
	return &errcode.E{C: errcode.InvalidArg, Op: "devices.Attach",
		Msg: "unknown device type " + cfg.Type}
}
