package vhw

import (
	"bytes"
	"testing"

	"simboard-go/errcode"
)

func newTestUART(t *testing.T) *UARTPort {
	t.Helper()
	c := NewUARTController(NewPinBank())
	p, err := c.Claim(0, 1, 115200)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return p
}

func TestUARTLoopThroughHost(t *testing.T) {
	p := newTestUART(t)

	if n := p.InjectRX([]byte("hello")); n != 5 {
		t.Fatalf("inject accepted %d bytes", n)
	}
	if !p.Readable() || p.RxAvailable() != 5 {
		t.Fatalf("rx available = %d", p.RxAvailable())
	}

	buf := make([]byte, 3)
	if n := p.Read(buf); n != 3 || !bytes.Equal(buf, []byte("hel")) {
		t.Fatalf("read %d %q", n, buf[:n])
	}
	if p.RxAvailable() != 2 {
		t.Fatalf("rx available after partial read = %d", p.RxAvailable())
	}

	if n := p.Write([]byte("ok")); n != 2 {
		t.Fatalf("write moved %d bytes", n)
	}
	out := make([]byte, 8)
	if n := p.DrainTX(out); n != 2 || !bytes.Equal(out[:n], []byte("ok")) {
		t.Fatalf("drain %d %q", n, out[:n])
	}
}

func TestUARTPartialTransferCounts(t *testing.T) {
	p := newTestUART(t)

	big := make([]byte, UARTRingSize+100)
	if n := p.Write(big); n != UARTRingSize {
		t.Fatalf("write into empty ring moved %d, want %d", n, UARTRingSize)
	}
	if p.TxSpace() != 0 {
		t.Fatalf("tx space = %d after fill", p.TxSpace())
	}
	if n := p.Write([]byte{1}); n != 0 {
		t.Fatalf("write into full ring moved %d", n)
	}
	if p.Writable() {
		t.Fatal("full ring must not be writable")
	}

	// Reading from an empty RX ring moves nothing.
	if n := p.Read(make([]byte, 4)); n != 0 {
		t.Fatalf("read from empty ring moved %d", n)
	}
}

func TestUARTClearRx(t *testing.T) {
	p := newTestUART(t)
	p.InjectRX([]byte{1, 2, 3})
	p.ClearRx()
	if p.RxAvailable() != 0 {
		t.Fatal("clear must drop buffered rx bytes")
	}
}

func TestUARTDisabledPortMovesNothing(t *testing.T) {
	p := newTestUART(t)
	p.Deinit()
	if p.InjectRX([]byte{1}) != 0 || p.Write([]byte{1}) != 0 {
		t.Fatal("disabled port must not move bytes")
	}
}

func TestUARTTableExhaustionAndReuse(t *testing.T) {
	c := NewUARTController(NewPinBank())
	for i := 0; i < NumUARTPorts; i++ {
		if _, err := c.Claim(2*i, 2*i+1, 9600); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	if _, err := c.Claim(50, 51, 9600); errcode.Of(err) != errcode.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	if _, err := c.Claim(0, 1, 19200); err != nil {
		t.Fatalf("re-claim existing pins: %v", err)
	}
}

func TestUARTResetHonorsNeverReset(t *testing.T) {
	c := NewUARTController(NewPinBank())
	console, err := c.Claim(0, 1, 115200)
	if err != nil {
		t.Fatal(err)
	}
	console.SetNeverReset(true)
	console.InjectRX([]byte("keep"))

	other, err := c.Claim(2, 3, 9600)
	if err != nil {
		t.Fatal(err)
	}
	other.InjectRX([]byte("drop"))

	c.Reset()

	if console.RxAvailable() != 4 {
		t.Fatal("never-reset port must keep its rx bytes")
	}
	if other.RxAvailable() != 0 {
		t.Fatal("reset port must be disabled and drained")
	}
}

func TestUARTResetDrainsTXBacklog(t *testing.T) {
	c := NewUARTController(NewPinBank())
	p, err := c.Claim(0, 1, 115200)
	if err != nil {
		t.Fatal(err)
	}
	if n := p.Write([]byte("stale")); n != 5 {
		t.Fatalf("write = %d, want 5", n)
	}

	c.Reset()

	// Re-claim the same pins; the old TX backlog must be gone.
	p, err = c.Claim(0, 1, 115200)
	if err != nil {
		t.Fatal(err)
	}
	if n := p.DrainTX(make([]byte, 16)); n != 0 {
		t.Fatalf("drained %d stale tx bytes after reset", n)
	}
}
