// vhw/bridge.go
package vhw

import (
	"simboard-go/errcode"
	"simboard-go/msgq"
	"simboard-go/types"
)

// DefaultBridgeTimeoutMS bounds a hosted bus operation's wait on the
// virtual clock.
const DefaultBridgeTimeoutMS = 100

// Bridge is the hosted-bus escape hatch: a bus marked hosted sends its
// data operations through the message queue to the host environment
// instead of touching the local tables.
type Bridge struct {
	Q         *msgq.Queue
	Sched     types.Scheduler
	TimeoutMS uint64
	Notify    func(ev BridgeEvent)
}

// roundTrip runs one allocate/send/wait/free cycle and returns the
// response bytes. The slot is failed (not leaked) on timeout so late
// host completions are dropped by the generation check.
func (b *Bridge) roundTrip(op msgq.Op, busIdx, addr uint8, data []byte) ([]byte, error) {
	resp, err := b.doRoundTrip(op, busIdx, addr, data)
	if b.Notify != nil {
		b.Notify(BridgeEvent{Op: op, Bus: busIdx, Addr: addr, OK: err == nil})
	}
	return resp, err
}

func (b *Bridge) doRoundTrip(op msgq.Op, busIdx, addr uint8, data []byte) ([]byte, error) {
	ref, req, err := b.Q.Alloc(op)
	if err != nil {
		return nil, err
	}
	req.Params.Bus = busIdx
	req.Params.Addr = addr
	req.Params.SetData(data)

	if err := b.Q.Send(ref); err != nil {
		freeErr := b.Q.Free(ref)
		_ = freeErr // send failure already marked the slot done
		return nil, err
	}

	timeout := b.TimeoutMS
	if timeout == 0 {
		timeout = DefaultBridgeTimeoutMS
	}
	if b.Q.WaitTimeoutMS(ref, timeout, b.Sched) {
		b.Q.Fail(ref, errcode.Timeout)
		_ = b.Q.Free(ref)
		return nil, &errcode.E{C: errcode.Timeout, Op: "vhw.bridge",
			Msg: op.String() + " timed out"}
	}

	opErr := b.Q.Err(ref)
	resp := append([]byte(nil), b.Q.Response(ref)...)
	_ = b.Q.Free(ref)
	if opErr != nil {
		return nil, opErr
	}
	return resp, nil
}
