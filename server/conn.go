package server

import "github.com/jkrings/larch/lib/ds"

// --------------------------------------------------------------------------
// Byte Buffer (append at tail, consume at head)
// --------------------------------------------------------------------------

// buffer is a byte queue. Writers append at the tail, the consumer
// advances a head index; compaction happens lazily so Consume is O(1)
// amortized.
type buffer struct {
	data []byte
	head int
}

func (b *buffer) Len() int { return len(b.data) - b.head }

// Bytes returns the unconsumed portion. The slice is invalidated by
// the next Append or Consume.
func (b *buffer) Bytes() []byte { return b.data[b.head:] }

func (b *buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Consume discards n bytes from the head.
func (b *buffer) Consume(n int) {
	b.head += n
	if b.head >= len(b.data) {
		b.data = b.data[:0]
		b.head = 0
	} else if b.head > 4096 && b.head*2 > len(b.data) {
		// more than half the backing array is dead, slide the tail down
		kept := copy(b.data, b.data[b.head:])
		b.data = b.data[:kept]
		b.head = 0
	}
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// Conn is the per-connection state: the raw fd, the readiness intent
// flags the loop derives its poll set from, the two framing buffers and
// the idle-queue bookkeeping.
type Conn struct {
	fd int

	wantRead  bool
	wantWrite bool
	wantClose bool

	incoming buffer // bytes received, not yet parsed
	outgoing buffer // responses framed, not yet written

	lastActiveMs int64
	idle         ds.ListNode
}

func newConn(fd int, nowMs int64) *Conn {
	c := &Conn{
		fd:           fd,
		wantRead:     true,
		lastActiveMs: nowMs,
	}
	c.idle.Init(c)
	return c
}
