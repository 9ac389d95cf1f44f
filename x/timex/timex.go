package timex

// TicksPerSecond is the virtual crystal frequency. Chosen to match the
// 32.768 kHz watch crystal that drives real RTC peripherals.
const TicksPerSecond = 32768

// MSToTicks converts a millisecond duration to virtual ticks,
// rounding up so a nonzero duration never becomes zero ticks.
func MSToTicks(ms uint64) uint64 {
	return (ms*TicksPerSecond + 999) / 1000
}

// TicksToMS converts ticks to fractional milliseconds.
func TicksToMS(ticks uint64) float64 {
	return float64(ticks) * 1000 / TicksPerSecond
}
