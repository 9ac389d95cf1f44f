package types

// Minimal JSON profile structures consumed by the embedding when it
// builds a board. Everything is optional; zero values fall back to the
// defaults compiled into the core.

type BoardProfile struct {
	Name    string      `json:"name"`
	Clock   ClockCfg    `json:"clock"`
	Devices []DeviceCfg `json:"devices,omitempty"`
}

type ClockCfg struct {
	Mode         string `json:"mode,omitempty"` // "realtime" | "manual" | "fast-forward"
	CPUFreqHz    uint32 `json:"cpu_freq_hz,omitempty"`
	TimelineSize int    `json:"timeline_size,omitempty"`
}

// DeviceCfg pre-populates simulated peripherals (e.g. an I2C register
// device at a fixed address) before the guest program starts.
type DeviceCfg struct {
	ID     string `json:"id"`   // "eeprom0"
	Type   string `json:"type"` // "i2c_regs", "spi_loopback"
	Bus    int    `json:"bus"`  // bus table index
	Addr   uint8  `json:"addr,omitempty"`
	Params any    `json:"params,omitempty"`
}
