// msgq/msgq.go
package msgq

import (
	"sync/atomic"

	"simboard-go/errcode"
	"simboard-go/types"
	"simboard-go/vclock"
	"simboard-go/x/mathx"
	"simboard-go/x/timex"
)

const (
	// NumSlots is the fixed pool size. Allocation beyond this fails
	// with ResourceExhausted rather than blocking or growing.
	NumSlots = 32

	// PayloadSize is the fixed data capacity of both the request and
	// response payloads of a slot.
	PayloadSize = 256
)

// Op identifies the kind of operation a request carries to the host.
type Op uint32

const (
	OpNone Op = iota
	OpI2CProbe
	OpI2CWrite
	OpI2CRead
	OpI2CWriteRead
	OpSPITransfer
	OpUARTWrite
	OpUARTRead
	OpPinEvent
	OpCustom
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpI2CProbe:
		return "i2c-probe"
	case OpI2CWrite:
		return "i2c-write"
	case OpI2CRead:
		return "i2c-read"
	case OpI2CWriteRead:
		return "i2c-write-read"
	case OpSPITransfer:
		return "spi-transfer"
	case OpUARTWrite:
		return "uart-write"
	case OpUARTRead:
		return "uart-read"
	case OpPinEvent:
		return "pin-event"
	case OpCustom:
		return "custom"
	}
	return "unknown"
}

// Slot lifecycle. Transitions are idle -> pending -> (complete|failed)
// -> idle; anything else indicates a caller bug or a stale completion.
const (
	statusIdle uint32 = iota
	statusPending
	statusComplete
	statusFailed
)

// Payload is a fixed-layout parameter or response block. Bus, Addr and
// Len give the common addressing fields; Data carries the raw bytes.
type Payload struct {
	Bus  uint8
	Addr uint8
	Len  uint16
	Data [PayloadSize]byte
}

// SetData copies b into the payload, clamping to capacity, and sets Len.
func (p *Payload) SetData(b []byte) {
	n := copy(p.Data[:], b)
	p.Len = uint16(n)
}

// Bytes returns the Len-bounded view of the data.
func (p *Payload) Bytes() []byte {
	n := mathx.Min(int(p.Len), PayloadSize)
	return p.Data[:n]
}

// Request is one slot of the bridge pool. Callers get at it through a
// SlotRef from Alloc; the host side completes it by index + generation.
type Request struct {
	status atomic.Uint32
	gen    atomic.Uint32
	errc   atomic.Int32

	Op     Op
	ID     uint32
	Params Payload
	Resp   Payload
}

// SlotRef names an allocated slot. The generation pins the reference to
// one allocation: once the slot is freed and reused, old refs go stale
// and every operation on them is rejected or dropped.
type SlotRef struct {
	Idx int
	Gen uint32
}

// Transport carries a pending request to the host environment. The
// host answers asynchronously through Queue.Complete or Queue.Fail.
type Transport interface {
	Submit(ref SlotRef, req *Request) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ref SlotRef, req *Request) error

func (f TransportFunc) Submit(ref SlotRef, req *Request) error { return f(ref, req) }

// Stats is a snapshot of queue counters since construction.
type Stats struct {
	Total     uint64
	Pending   uint64
	Completed uint64
	Errors    uint64
	QueueFull uint64
}

// Queue is the fixed pool of bridge request slots.
type Queue struct {
	slots [NumSlots]Request
	clk   *vclock.Clock
	tp    Transport

	nextID    atomic.Uint32
	total     atomic.Uint64
	pending   atomic.Uint64
	completed atomic.Uint64
	errors    atomic.Uint64
	queueFull atomic.Uint64
}

func New(clk *vclock.Clock, tp Transport) *Queue {
	return &Queue{clk: clk, tp: tp}
}

// Alloc claims an idle slot for the given operation. It fails with
// ResourceExhausted when all slots are in flight; it never blocks.
func (q *Queue) Alloc(op Op) (SlotRef, *Request, error) {
	for i := range q.slots {
		s := &q.slots[i]
		if s.status.CompareAndSwap(statusIdle, statusPending) {
			s.Op = op
			s.ID = q.nextID.Add(1)
			s.errc.Store(errcode.Wire(errcode.OK))
			s.Params = Payload{}
			s.Resp = Payload{}
			q.total.Add(1)
			q.pending.Add(1)
			return SlotRef{Idx: i, Gen: s.gen.Load()}, s, nil
		}
	}
	q.queueFull.Add(1)
	return SlotRef{}, nil, &errcode.E{
		C: errcode.ResourceExhausted, Op: "msgq.Alloc",
		Msg: "all bridge slots pending",
	}
}

// Send hands the request to the transport. A transport error fails the
// slot immediately so the caller's wait loop terminates.
func (q *Queue) Send(ref SlotRef) error {
	s, ok := q.slot(ref)
	if !ok {
		return &errcode.E{C: errcode.InvalidArg, Op: "msgq.Send", Msg: "stale or invalid slot ref"}
	}
	if q.tp == nil {
		q.Fail(ref, errcode.IOError)
		return &errcode.E{C: errcode.IOError, Op: "msgq.Send", Msg: "no transport attached"}
	}
	if err := q.tp.Submit(ref, s); err != nil {
		q.Fail(ref, errcode.Of(err))
		return &errcode.E{C: errcode.IOError, Op: "msgq.Send", Err: err}
	}
	return nil
}

// Complete marks a pending slot done and installs the response bytes.
// Stale references and non-pending slots are dropped silently: the
// host may race a completion against a timeout-driven Free.
func (q *Queue) Complete(ref SlotRef, resp []byte) {
	s, ok := q.slot(ref)
	if !ok {
		return
	}
	if !s.status.CompareAndSwap(statusPending, statusComplete) {
		return
	}
	s.Resp.SetData(resp)
	s.errc.Store(errcode.Wire(errcode.OK))
	q.pending.Add(^uint64(0))
	q.completed.Add(1)
}

// Fail marks a pending slot as errored. Same drop rules as Complete.
func (q *Queue) Fail(ref SlotRef, code errcode.Code) {
	s, ok := q.slot(ref)
	if !ok {
		return
	}
	if !s.status.CompareAndSwap(statusPending, statusFailed) {
		return
	}
	s.errc.Store(errcode.Wire(code))
	q.pending.Add(^uint64(0))
	q.errors.Add(1)
}

// IsDone reports whether the slot has left the pending state.
func (q *Queue) IsDone(ref SlotRef) bool {
	s, ok := q.slot(ref)
	if !ok {
		return true
	}
	st := s.status.Load()
	return st == statusComplete || st == statusFailed
}

// Err returns the slot's outcome: nil while pending or on success.
func (q *Queue) Err(ref SlotRef) error {
	s, ok := q.slot(ref)
	if !ok {
		return &errcode.E{C: errcode.InvalidArg, Op: "msgq.Err", Msg: "stale or invalid slot ref"}
	}
	if s.status.Load() != statusFailed {
		return nil
	}
	return errcode.FromWire(s.errc.Load())
}

// Free returns a finished slot to the pool, bumping the generation so
// stale refs die. Freeing a still-pending slot is a caller bug and is
// rejected; the in-flight host completion must land or be failed first.
func (q *Queue) Free(ref SlotRef) error {
	s, ok := q.slot(ref)
	if !ok {
		return &errcode.E{C: errcode.InvalidArg, Op: "msgq.Free", Msg: "stale or invalid slot ref"}
	}
	if s.status.Load() == statusPending {
		return &errcode.E{C: errcode.InvalidArg, Op: "msgq.Free", Msg: "slot still pending"}
	}
	s.gen.Add(1)
	s.status.Store(statusIdle)
	return nil
}

// Wait yields cooperatively until the slot completes or fails.
func (q *Queue) Wait(ref SlotRef, sched types.Scheduler) {
	for !q.IsDone(ref) {
		sched.RunPending()
	}
}

// WaitTimeoutMS waits against the virtual clock. On timeout the slot is
// left pending for the host to complete later; the caller decides
// whether to keep polling or Fail it.
func (q *Queue) WaitTimeoutMS(ref SlotRef, ms uint64, sched types.Scheduler) (timedOut bool) {
	deadline := q.clk.NowTicks() + timex.MSToTicks(ms)
	for !q.IsDone(ref) {
		if q.clk.NowTicks() >= deadline {
			return true
		}
		sched.RunPending()
	}
	return false
}

// Response returns the completed slot's response bytes, or nil when the
// slot is not complete.
func (q *Queue) Response(ref SlotRef) []byte {
	s, ok := q.slot(ref)
	if !ok || s.status.Load() != statusComplete {
		return nil
	}
	return s.Resp.Bytes()
}

func (q *Queue) Stats() Stats {
	return Stats{
		Total:     q.total.Load(),
		Pending:   q.pending.Load(),
		Completed: q.completed.Load(),
		Errors:    q.errors.Load(),
		QueueFull: q.queueFull.Load(),
	}
}

// slot resolves a ref, rejecting out-of-range indices and stale
// generations.
func (q *Queue) slot(ref SlotRef) (*Request, bool) {
	if ref.Idx < 0 || ref.Idx >= NumSlots {
		return nil, false
	}
	s := &q.slots[ref.Idx]
	if s.gen.Load() != ref.Gen {
		return nil, false
	}
	return s, true
}
