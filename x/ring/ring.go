package ring

import "sync/atomic"

// Ring is a single-producer, single-consumer byte ring with a
// power-of-two capacity and monotonic indices. The producer and the
// consumer may live on different sides of the host boundary (the host
// injects RX bytes while the guest reads), so the indices are atomic.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring{
		buf:  make([]byte, size),
		mask: uint32(size - 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Space reports free bytes for the producer.
func (r *Ring) Space() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(r.size() - (wr - rd))
}

// Available reports readable bytes for the consumer.
func (r *Ring) Available() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

// WriteFrom copies as much of src as fits and returns the count,
// never blocking.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	if len(src) < space {
		space = len(src)
	}
	n = space

	size := r.size()
	wrIdx := wr & r.mask
	first := int(size - wrIdx)
	if first > n {
		first = n
	}
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release
	return n
}

// ReadInto copies up to len(dst) available bytes and returns the
// count, never blocking.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	if len(dst) < avail {
		avail = len(dst)
	}
	n = avail

	size := r.size()
	rdIdx := rd & r.mask
	first := int(size - rdIdx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n)) // release
	return n
}

// Clear drops all unread bytes. Consumer-side only.
func (r *Ring) Clear() {
	r.rd.Store(r.wr.Load())
}

// Watermarks exposes the raw monotonic indices for inspectors.
func (r *Ring) Watermarks() (rd, wr uint32) {
	return r.rd.Load(), r.wr.Load()
}
