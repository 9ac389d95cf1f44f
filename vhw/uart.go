// vhw/uart.go
package vhw

import (
	"sync"

	"simboard-go/errcode"
	"simboard-go/types"
	"simboard-go/x/ring"
)

const (
	// NumUARTPorts is the fixed controller table size.
	NumUARTPorts = 8
	// UARTRingSize is each direction's buffer capacity.
	UARTRingSize = 512
)

// UARTPort is one claimed port. The guest reads RX and writes TX; the
// host injects RX and drains TX. Both directions are lossy-by-count:
// reads and writes move as many bytes as fit and report the count.
type UARTPort struct {
	ctl   *UARTController
	index int

	mu         sync.Mutex
	txPin      int
	rxPin      int
	inUse      bool
	enabled    bool
	neverReset bool
	baud       uint32
	parity     types.Parity

	rx *ring.Ring
	tx *ring.Ring
}

// UARTSnapshot is the inspector view of one port.
type UARTSnapshot struct {
	Index       int    `json:"index"`
	TXPin       int    `json:"tx_pin"`
	RXPin       int    `json:"rx_pin"`
	InUse       bool   `json:"in_use"`
	Enabled     bool   `json:"enabled"`
	NeverReset  bool   `json:"never_reset"`
	Baudrate    uint32 `json:"baudrate"`
	Parity      uint8  `json:"parity"`
	RxAvailable int    `json:"rx_available"`
	TxPending   int    `json:"tx_pending"`
}

// UARTController owns the fixed port table.
type UARTController struct {
	mu     sync.Mutex
	ports  [NumUARTPorts]UARTPort
	pins   *PinBank
	notify func(ev UARTEvent)
}

func NewUARTController(pins *PinBank) *UARTController {
	c := &UARTController{pins: pins}
	for i := range c.ports {
		c.ports[i].ctl = c
		c.ports[i].index = i
	}
	return c
}

// Claim finds or creates the port for a pin pair.
func (c *UARTController) Claim(txPin, rxPin int, baud uint32) (*UARTPort, error) {
	checkPin(txPin)
	checkPin(rxPin)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.ports {
		p := &c.ports[i]
		if p.inUse && p.txPin == txPin && p.rxPin == rxPin {
			p.enabled = true
			p.baud = baud
			return p, nil
		}
	}
	for i := range c.ports {
		p := &c.ports[i]
		if !p.inUse {
			p.txPin, p.rxPin = txPin, rxPin
			p.inUse, p.enabled = true, true
			p.baud = baud
			p.rx = ring.New(UARTRingSize)
			p.tx = ring.New(UARTRingSize)
			return p, nil
		}
	}
	return nil, &errcode.E{C: errcode.ResourceExhausted, Op: "vhw.UART.Claim",
		Msg: "all UART port slots in use"}
}

func (c *UARTController) Port(i int) *UARTPort { return &c.ports[i] }

// SetNotify installs a traffic observer, invoked outside port locks.
func (c *UARTController) SetNotify(fn func(ev UARTEvent)) { c.notify = fn }

func (c *UARTController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.ports {
		p := &c.ports[i]
		if p.inUse && !p.neverReset {
			p.enabled = false
			p.rx.Clear()
			p.tx.Clear()
		}
	}
}

func (p *UARTPort) Index() int { return p.index }

func (p *UARTPort) Deinit() {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
}

func (p *UARTPort) SetNeverReset(v bool) {
	p.mu.Lock()
	p.neverReset = v
	tx, rx := p.txPin, p.rxPin
	p.mu.Unlock()
	p.ctl.pins.SetNeverReset(tx, v)
	p.ctl.pins.SetNeverReset(rx, v)
}

func (p *UARTPort) SetBaudrate(baud uint32) {
	p.mu.Lock()
	p.baud = baud
	p.mu.Unlock()
}

func (p *UARTPort) SetParity(par types.Parity) {
	p.mu.Lock()
	p.parity = par
	p.mu.Unlock()
}

// Read moves up to len(into) bytes out of the RX ring, returning the
// count actually moved. Never blocks; 0 means nothing buffered.
func (p *UARTPort) Read(into []byte) int {
	if !p.ready() {
		return 0
	}
	return p.rx.ReadInto(into)
}

// Write moves as much of data as fits into the TX ring and returns the
// count. A full ring gives a partial (possibly zero) transfer.
func (p *UARTPort) Write(data []byte) int {
	if !p.ready() {
		return 0
	}
	n := p.tx.WriteFrom(data)
	p.emit("tx", n)
	return n
}

func (p *UARTPort) RxAvailable() int {
	if !p.ready() {
		return 0
	}
	return p.rx.Available()
}

func (p *UARTPort) TxSpace() int {
	if !p.ready() {
		return 0
	}
	return p.tx.Space()
}

func (p *UARTPort) Readable() bool { return p.RxAvailable() > 0 }
func (p *UARTPort) Writable() bool { return p.TxSpace() > 0 }

// ClearRx drops all buffered incoming bytes.
func (p *UARTPort) ClearRx() {
	if p.ready() {
		p.rx.Clear()
	}
}

// InjectRX is the host feeding bytes to the guest. Returns bytes
// accepted; overflow is dropped at the boundary, as on a real wire.
func (p *UARTPort) InjectRX(data []byte) int {
	if !p.ready() {
		return 0
	}
	n := p.rx.WriteFrom(data)
	p.emit("rx", n)
	return n
}

func (p *UARTPort) emit(dir string, n int) {
	fn := p.ctl.notify
	if fn == nil || n == 0 {
		return
	}
	fn(UARTEvent{Port: p.index, Dir: dir, Count: n})
}

// DrainTX is the host consuming the guest's outgoing bytes.
func (p *UARTPort) DrainTX(into []byte) int {
	if !p.ready() {
		return 0
	}
	return p.tx.ReadInto(into)
}

func (p *UARTPort) ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse && p.enabled
}

func (p *UARTPort) Snapshot() UARTSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := UARTSnapshot{
		Index: p.index, TXPin: p.txPin, RXPin: p.rxPin,
		InUse: p.inUse, Enabled: p.enabled, NeverReset: p.neverReset,
		Baudrate: p.baud, Parity: uint8(p.parity),
	}
	if p.rx != nil {
		s.RxAvailable = p.rx.Available()
		s.TxPending = p.tx.Available()
	}
	return s
}
