package vhw

import (
	"bytes"
	"testing"
	"time"

	"simboard-go/bus"
	"simboard-go/errcode"
	"simboard-go/msgq"
	"simboard-go/types"
)

func TestBoardResetKeepsClockRunning(t *testing.T) {
	b := NewBoard(Config{Profile: types.BoardProfile{
		Clock: types.ClockCfg{Mode: "manual"},
	}})

	b.Pins.SetDirection(1, types.Output)
	b.Pins.SetValue(1, true)
	b.Analog.InitADC(2)
	if _, err := b.I2C.Claim(4, 5, 100_000); err != nil {
		t.Fatal(err)
	}
	console, err := b.ClaimConsole(6, 7, 115200)
	if err != nil {
		t.Fatal(err)
	}
	console.InjectRX([]byte("hi"))

	b.Clock.Advance(1000)
	before := b.Clock.NowTicks()
	b.Reset()

	if b.Clock.NowTicks() != before {
		t.Fatal("soft reset must not rewind the clock")
	}
	if b.Pins.OutputValue(1) {
		t.Fatal("pin must be back at power-on state")
	}
	if b.Analog.Read(2) != 0 {
		t.Fatal("analog channel must be disabled")
	}
	if b.I2C.Bus(0).Snapshot().Enabled {
		t.Fatal("I2C bus must be disabled")
	}
	if console.RxAvailable() != 2 {
		t.Fatal("console marked never-reset must survive")
	}
	// Console pins inherit never-reset through the port.
	if !b.Pins.NeverReset(6) || !b.Pins.NeverReset(7) {
		t.Fatal("console pins must carry never-reset")
	}
}

func TestBoardPublishesPinEvents(t *testing.T) {
	eb := bus.NewBus(8)
	b := NewBoard(Config{Bus: eb})

	conn := eb.NewConnection("watcher")
	sub := conn.Subscribe(bus.T("hw", "gpio", "#"))

	b.Pins.SetDirection(9, types.Output)
	b.Pins.SetValue(9, true)

	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case msg := <-sub.Channel():
			s, ok := msg.Payload.(PinSnapshot)
			if ok && s.Value && s.Direction == types.Output {
				return
			}
		case <-deadline:
			t.Fatal("no pin event observed")
		}
	}
}

func TestBoardPublishesI2CEvents(t *testing.T) {
	eb := bus.NewBus(8)
	b := NewBoard(Config{Bus: eb})

	conn := eb.NewConnection("watcher")
	sub := conn.Subscribe(bus.T("hw", "i2c", "#"))

	i2c, err := b.I2C.Claim(4, 5, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := i2c.AddDevice(0x50); err != nil {
		t.Fatal(err)
	}
	if err := i2c.Write(0x50, []byte{0x10, 0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-sub.Channel():
		ev, ok := msg.Payload.(I2CEvent)
		if !ok {
			t.Fatalf("payload %T, want I2CEvent", msg.Payload)
		}
		if ev.Kind != "write" || ev.Addr != 0x50 || !ev.OK {
			t.Fatalf("event = %+v", ev)
		}
		if !bytes.Equal(ev.Data, []byte{0x10, 0xAA, 0xBB}) {
			t.Fatalf("event data = %x", ev.Data)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no I2C event observed")
	}
}

func TestBoardPublishesSPIAndUARTEvents(t *testing.T) {
	eb := bus.NewBus(8)
	b := NewBoard(Config{Bus: eb})

	conn := eb.NewConnection("watcher")
	spiSub := conn.Subscribe(bus.T("hw", "spi", "#"))
	uartSub := conn.Subscribe(bus.T("hw", "uart", "#"))

	spi, err := b.SPI.Claim(10, 11, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !spi.TryLock() {
		t.Fatal("fresh SPI bus must lock")
	}
	if err := spi.Write([]byte{0x9F}); err != nil {
		t.Fatal(err)
	}

	port, err := b.UART.Claim(6, 7, 115200)
	if err != nil {
		t.Fatal(err)
	}
	if n := port.Write([]byte("ok")); n != 2 {
		t.Fatalf("UART write = %d, want 2", n)
	}

	select {
	case msg := <-spiSub.Channel():
		ev := msg.Payload.(SPIEvent)
		if !ev.OK || !bytes.Equal(ev.Tx, []byte{0x9F}) {
			t.Fatalf("SPI event = %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no SPI event observed")
	}
	select {
	case msg := <-uartSub.Channel():
		ev := msg.Payload.(UARTEvent)
		if ev.Dir != "tx" || ev.Count != 2 {
			t.Fatalf("UART event = %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no UART event observed")
	}
}

func TestBoardPublishesBridgeEvents(t *testing.T) {
	eb := bus.NewBus(8)
	tr := &echoTransport{}
	b := NewBoard(Config{Bus: eb, Transport: tr})
	tr.q = b.Queue

	conn := eb.NewConnection("watcher")
	sub := conn.Subscribe(bus.T("bridge", "req"))

	hosted, err := b.I2C.Claim(0, 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	hosted.SetHosted(true)
	if err := hosted.Write(0x42, []byte{0x01}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-sub.Channel():
		ev := msg.Payload.(BridgeEvent)
		if ev.Op != msgq.OpI2CWrite || ev.Addr != 0x42 || !ev.OK {
			t.Fatalf("bridge event = %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no bridge event observed")
	}
}

func TestBoardResetEventRetained(t *testing.T) {
	eb := bus.NewBus(8)
	b := NewBoard(Config{Bus: eb})
	b.Clock.Advance(50)
	b.Reset()

	conn := eb.NewConnection("late")
	sub := conn.Subscribe(bus.T("hw", "reset"))
	select {
	case msg := <-sub.Channel():
		if msg.Payload.(uint64) != 50 {
			t.Fatalf("reset event at tick %v, want 50", msg.Payload)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("retained reset event not delivered")
	}
}

// echoTransport completes I2C reads with a fixed pattern and mirrors
// writes back, standing in for the host side of the bridge.
type echoTransport struct {
	q    *msgq.Queue
	seen []msgq.Op
}

func (e *echoTransport) Submit(ref msgq.SlotRef, req *msgq.Request) error {
	e.seen = append(e.seen, req.Op)
	switch req.Op {
	case msgq.OpI2CProbe:
		e.q.Complete(ref, []byte{1})
	case msgq.OpI2CWriteRead, msgq.OpI2CRead:
		e.q.Complete(ref, []byte{0xDE, 0xAD})
	default:
		e.q.Complete(ref, req.Params.Bytes())
	}
	return nil
}

func TestBoardHostedI2CGoesThroughBridge(t *testing.T) {
	tr := &echoTransport{}
	b := NewBoard(Config{Transport: tr})
	tr.q = b.Queue

	hosted, err := b.I2C.Claim(0, 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	hosted.SetHosted(true)

	if !hosted.Probe(0x50) {
		t.Fatal("hosted probe must reflect the transport answer")
	}
	in := make([]byte, 2)
	if err := hosted.WriteRead(0x50, []byte{0x00}, in); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, []byte{0xDE, 0xAD}) {
		t.Fatalf("hosted read = %x", in)
	}
	if err := hosted.Write(0x50, []byte{0x10, 0x01}); err != nil {
		t.Fatal(err)
	}

	// The local device table was never involved.
	if hosted.Snapshot().Devices != nil {
		t.Fatal("hosted operations must not touch the local table")
	}
	if b.Queue.Stats().Pending != 0 {
		t.Fatal("bridge slots must all be freed")
	}
}

func TestBoardHostedTimeoutWithoutTransportCompletion(t *testing.T) {
	// Transport accepts but never completes; the scheduler advances
	// the virtual clock so the wait times out.
	var b *Board
	b = NewBoard(Config{
		Transport: msgq.TransportFunc(func(msgq.SlotRef, *msgq.Request) error { return nil }),
		Scheduler: types.SchedulerFunc(func() { b.Clock.Advance(10_000) }),
	})

	hosted, err := b.I2C.Claim(0, 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	hosted.SetHosted(true)

	err = hosted.Write(0x50, []byte{0x00, 0x01})
	if errcode.Of(err) != errcode.Timeout {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if b.Queue.Stats().Pending != 0 {
		t.Fatal("timed-out slot must be failed and freed")
	}
}

func TestBoardSleepFastForward(t *testing.T) {
	b := NewBoard(Config{Profile: types.BoardProfile{
		Clock: types.ClockCfg{Mode: "fast-forward"},
	}})
	before := b.Clock.NowMS()
	start := time.Now()
	b.SleepMS(500)
	if got := b.Clock.NowMS() - before; got != 500 {
		t.Fatalf("sleep advanced %v ms, want exactly 500", got)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("fast-forward sleep must not take wall time")
	}
}
