// devices/loopback/loopback.go
//
// The SPI loopback plug: MISO wired to MOSI. Useful as the first smoke
// test for SPI plumbing and for drivers that verify the link.
package loopback

import "sync"

type Loopback struct {
	mu    sync.Mutex
	total int
}

func New() *Loopback { return &Loopback{} }

// Transfer echoes each outgoing byte straight back; positions with no
// outgoing byte read as 0xFF, an idle MISO line.
func (l *Loopback) Transfer(out, in []byte) (bool, error) {
	for i := range in {
		if i < len(out) {
			in[i] = out[i]
		} else {
			in[i] = 0xFF
		}
	}
	l.mu.Lock()
	if len(out) > len(in) {
		l.total += len(out)
	} else {
		l.total += len(in)
	}
	l.mu.Unlock()
	return true, nil
}

// TotalBytes reports how many byte slots have been clocked through.
func (l *Loopback) TotalBytes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
