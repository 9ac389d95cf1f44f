package errcode

import "testing"

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("nil should map to OK")
	}
	if Of(NoDevice) != NoDevice {
		t.Fatal("bare Code should pass through")
	}
	e := &E{C: Timeout, Op: "uart.read"}
	if Of(e) != Timeout {
		t.Fatal("E wrapper should expose its code")
	}
}

func TestWireRoundTrip(t *testing.T) {
	for _, c := range []Code{OK, ResourceExhausted, InvalidArg, NoDevice, IOError, Timeout, Error} {
		if got := FromWire(Wire(c)); got != c {
			t.Fatalf("wire round trip for %q gave %q", c, got)
		}
	}
	if FromWire(99) != Error {
		t.Fatal("unknown wire value should map to Error")
	}
}
