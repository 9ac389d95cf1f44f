// vhw/events.go
package vhw

import "simboard-go/msgq"

// Observer events. Controllers hand these to an optional notify hook,
// wired by Board onto bus topics; with no hook attached the emit paths
// cost a nil check.

// I2CEvent describes one completed I2C operation.
type I2CEvent struct {
	Bus  int    `json:"bus"`
	Kind string `json:"kind"` // "probe", "write", "read", "write-read"
	Addr uint8  `json:"addr"`
	Data []byte `json:"data,omitempty"`
	OK   bool   `json:"ok"`
}

// SPIEvent describes one completed SPI transfer.
type SPIEvent struct {
	Bus int    `json:"bus"`
	Tx  []byte `json:"tx,omitempty"`
	Rx  []byte `json:"rx,omitempty"`
	OK  bool   `json:"ok"`
}

// UARTEvent describes bytes entering a port's rings.
type UARTEvent struct {
	Port  int    `json:"port"`
	Dir   string `json:"dir"` // "tx" (guest wrote), "rx" (host injected)
	Count int    `json:"count"`
}

// BridgeEvent describes one bridge round trip.
type BridgeEvent struct {
	Op   msgq.Op `json:"op"`
	Bus  uint8   `json:"bus"`
	Addr uint8   `json:"addr"`
	OK   bool    `json:"ok"`
}
