package vhw

import (
	"bytes"
	"testing"

	"simboard-go/errcode"
)

func newTestI2C(t *testing.T) (*I2CController, *I2CBus) {
	t.Helper()
	c := NewI2CController(NewPinBank(), &Bridge{})
	b, err := c.Claim(0, 1, 100_000)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return c, b
}

func TestI2CClaimFindOrCreate(t *testing.T) {
	c, b := newTestI2C(t)

	same, err := c.Claim(0, 1, 400_000)
	if err != nil {
		t.Fatal(err)
	}
	if same != b {
		t.Fatal("claiming the same pin pair must return the same slot")
	}

	other, err := c.Claim(2, 3, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	if other == b {
		t.Fatal("different pins must get a different slot")
	}
}

func TestI2CTableExhaustion(t *testing.T) {
	c := NewI2CController(NewPinBank(), &Bridge{})
	for i := 0; i < NumI2CBuses; i++ {
		if _, err := c.Claim(2*i, 2*i+1, 100_000); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	_, err := c.Claim(40, 41, 100_000)
	if errcode.Of(err) != errcode.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}

	// A deinit does not free the slot; the table is still full.
	c.Bus(0).Deinit()
	if _, err := c.Claim(40, 41, 100_000); errcode.Of(err) != errcode.ResourceExhausted {
		t.Fatalf("deinit must not deallocate, got %v", err)
	}

	// But the original pins re-claim their (disabled) slot.
	if _, err := c.Claim(0, 1, 100_000); err != nil {
		t.Fatalf("re-claim after deinit: %v", err)
	}
}

func TestI2CTryLock(t *testing.T) {
	_, b := newTestI2C(t)
	if !b.TryLock() {
		t.Fatal("lock should be free")
	}
	if b.TryLock() {
		t.Fatal("second lock must fail")
	}
	b.Unlock()
	if !b.TryLock() {
		t.Fatal("lock must be reacquirable")
	}
	b.Deinit()
	if b.TryLock() {
		t.Fatal("disabled bus must refuse the lock")
	}
}

func TestI2CProbe(t *testing.T) {
	_, b := newTestI2C(t)
	if b.Probe(0x50) {
		t.Fatal("empty bus must not answer")
	}
	if err := b.AddDevice(0x50); err != nil {
		t.Fatal(err)
	}
	if !b.Probe(0x50) {
		t.Fatal("added device must answer")
	}
	if b.Probe(200) {
		t.Fatal("address beyond 7-bit space must not answer")
	}
	b.RemoveDevice(0x50)
	if b.Probe(0x50) {
		t.Fatal("removed device must not answer")
	}
}

func TestI2CRegisterWriteSemantics(t *testing.T) {
	_, b := newTestI2C(t)
	if err := b.AddDevice(0x42); err != nil {
		t.Fatal(err)
	}

	// data[0] is the register offset, rest is payload.
	if err := b.Write(0x42, []byte{0x10, 0xAA, 0xBB}); err != nil {
		t.Fatalf("write: %v", err)
	}

	in := make([]byte, 2)
	if err := b.WriteRead(0x42, []byte{0x10}, in); err != nil {
		t.Fatalf("write-read: %v", err)
	}
	if !bytes.Equal(in, []byte{0xAA, 0xBB}) {
		t.Fatalf("register contents = %x", in)
	}

	// Plain Read starts at register 0.
	if err := b.Write(0x42, []byte{0x00, 0x55}); err != nil {
		t.Fatal(err)
	}
	one := make([]byte, 1)
	if err := b.Read(0x42, one); err != nil {
		t.Fatal(err)
	}
	if one[0] != 0x55 {
		t.Fatalf("read from register 0 = %x", one[0])
	}
}

func TestI2CWriteClipsAtRegisterSpace(t *testing.T) {
	_, b := newTestI2C(t)
	if err := b.AddDevice(0x42); err != nil {
		t.Fatal(err)
	}
	// Offset 254 with 4 payload bytes: only two fit.
	if err := b.Write(0x42, []byte{254, 1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	in := make([]byte, 2)
	if err := b.WriteRead(0x42, []byte{254}, in); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, []byte{1, 2}) {
		t.Fatalf("tail registers = %x", in)
	}
}

func TestI2CErrors(t *testing.T) {
	_, b := newTestI2C(t)
	if err := b.Write(0x42, []byte{0, 1}); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("write to empty address: %v", err)
	}
	if err := b.Write(130, []byte{0}); errcode.Of(err) != errcode.InvalidArg {
		t.Fatalf("write beyond 7-bit space: %v", err)
	}
	if err := b.Read(130, make([]byte, 1)); errcode.Of(err) != errcode.InvalidArg {
		t.Fatalf("read beyond 7-bit space: %v", err)
	}
}

func TestI2CObservationBuffers(t *testing.T) {
	_, b := newTestI2C(t)
	if err := b.AddDevice(0x42); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(0x42, []byte{0x01, 0xFE}); err != nil {
		t.Fatal(err)
	}
	addr, data := b.LastWrite()
	if addr != 0x42 || !bytes.Equal(data, []byte{0x01, 0xFE}) {
		t.Fatalf("last write = %#x %x", addr, data)
	}

	in := make([]byte, 1)
	if err := b.WriteRead(0x42, []byte{0x01}, in); err != nil {
		t.Fatal(err)
	}
	addr, data = b.LastRead()
	if addr != 0x42 || !bytes.Equal(data, []byte{0xFE}) {
		t.Fatalf("last read = %#x %x", addr, data)
	}
}

func TestI2CLastWriteSkipsAbsentDevice(t *testing.T) {
	_, b := newTestI2C(t)
	if err := b.AddDevice(0x42); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(0x42, []byte{0x01, 0xFE}); err != nil {
		t.Fatal(err)
	}
	// A NACKed write must not overwrite the observation buffer.
	if err := b.Write(0x13, []byte{0x99}); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("write to empty address: %v", err)
	}
	addr, data := b.LastWrite()
	if addr != 0x42 || !bytes.Equal(data, []byte{0x01, 0xFE}) {
		t.Fatalf("last write = %#x %x, want the answered transaction", addr, data)
	}
}

// recorderBackend handles one address and falls through for the rest.
type recorderBackend struct {
	addr   uint8
	writes [][]byte
}

func (r *recorderBackend) Probe(addr uint8) (bool, bool) {
	return addr == r.addr, addr == r.addr
}
func (r *recorderBackend) Write(addr uint8, data []byte) (bool, error) {
	if addr != r.addr {
		return false, nil
	}
	r.writes = append(r.writes, append([]byte(nil), data...))
	return true, nil
}
func (r *recorderBackend) Read(addr uint8, into []byte) (bool, error) {
	if addr != r.addr {
		return false, nil
	}
	for i := range into {
		into[i] = 0x77
	}
	return true, nil
}
func (r *recorderBackend) WriteRead(addr uint8, out, into []byte) (bool, error) {
	return r.Read(addr, into)
}

func TestI2CBackendFallback(t *testing.T) {
	_, b := newTestI2C(t)
	be := &recorderBackend{addr: 0x20}
	b.SetBackend(be)
	if err := b.AddDevice(0x42); err != nil {
		t.Fatal(err)
	}

	// Backend address is intercepted.
	if !b.Probe(0x20) {
		t.Fatal("backend device must answer")
	}
	if err := b.Write(0x20, []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if len(be.writes) != 1 {
		t.Fatalf("backend saw %d writes", len(be.writes))
	}

	// Unhandled address falls back to the local table.
	if !b.Probe(0x42) {
		t.Fatal("fallback device must still answer")
	}
	if err := b.Write(0x42, []byte{0, 9}); err != nil {
		t.Fatalf("fallback write: %v", err)
	}
}
