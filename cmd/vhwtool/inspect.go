// cmd/vhwtool/inspect.go
package main

import (
	"simboard-go/vhw"
)

// boardView is the JSON document `vhwtool inspect` prints. Only claimed
// bus slots and enabled pins appear; a fresh board prints near-empty.
type boardView struct {
	ClockMode  string                  `json:"clock_mode"`
	NowMS      float64                 `json:"now_ms"`
	CPUFreqHz  uint32                  `json:"cpu_freq_hz"`
	Pins       map[int]vhw.PinSnapshot `json:"pins"`
	I2C        []vhw.I2CSnapshot       `json:"i2c"`
	SPI        []vhw.SPISnapshot       `json:"spi"`
	UART       []vhw.UARTSnapshot      `json:"uart"`
	Encoders   []vhw.EncoderSnapshot   `json:"encoders"`
	QueueStats any                     `json:"queue_stats"`
}

func inspectBoard(b *vhw.Board) boardView {
	v := boardView{
		ClockMode: b.Clock.Mode().String(),
		NowMS:     b.Clock.NowMS(),
		CPUFreqHz: b.Clock.CPUFrequency(),
		Pins:      map[int]vhw.PinSnapshot{},
	}
	for pin := 0; pin < vhw.NumPins; pin++ {
		if s := b.Pins.Snapshot(pin); s.Enabled {
			v.Pins[pin] = s
		}
	}
	for i := 0; i < vhw.NumI2CBuses; i++ {
		if s := b.I2C.Bus(i).Snapshot(); s.InUse {
			v.I2C = append(v.I2C, s)
		}
	}
	for i := 0; i < vhw.NumSPIBuses; i++ {
		if s := b.SPI.Bus(i).Snapshot(); s.InUse {
			v.SPI = append(v.SPI, s)
		}
	}
	for i := 0; i < vhw.NumUARTPorts; i++ {
		if s := b.UART.Port(i).Snapshot(); s.InUse {
			v.UART = append(v.UART, s)
		}
	}
	for i := 0; i < vhw.NumEncoders; i++ {
		if s := b.Encoders.Encoder(i).Snapshot(); s.Enabled {
			v.Encoders = append(v.Encoders, s)
		}
	}
	v.QueueStats = b.Queue.Stats()
	return v
}
