// Package framebuf implements the append-only byte queue with
// length-prefixed frame extraction that sits between a raw byte stream
// and the sproto unpacker.
package framebuf

import (
	"encoding/binary"

	"github.com/ZhangGuangxu/netbuffer"
)

// Buffer is a byte queue backed by netbuffer.Buffer. It is not safe for
// concurrent use; callers confine it to one tick loop.
type Buffer struct {
	buf *netbuffer.Buffer
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{buf: netbuffer.NewBuffer()}
}

// Push appends data to the tail of the queue.
func (b *Buffer) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	b.buf.Append(data)
}

// Len reports the number of unread bytes currently queued.
func (b *Buffer) Len() int {
	return b.buf.ReadableBytes()
}

// PopAll drains and returns every queued byte.
func (b *Buffer) PopAll() []byte {
	n := b.buf.ReadableBytes()
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b.buf.PeekAllAsByteSlice())
	b.buf.Retrieve(n)
	return out
}

// PopMsg reads one length-prefixed message: headerLen bytes encode an
// unsigned integer payload length in order, followed by that many payload
// bytes. If fewer than headerLen+L bytes are queued, it returns ok=false
// and leaves the buffer untouched.
func (b *Buffer) PopMsg(headerLen int, order binary.ByteOrder) (payload []byte, ok bool) {
	avail := b.buf.ReadableBytes()
	if avail < headerLen {
		return nil, false
	}
	head := b.buf.PeekAllAsByteSlice()[:headerLen]

	var length int
	switch headerLen {
	case 2:
		length = int(order.Uint16(head))
	case 4:
		length = int(order.Uint32(head))
	default:
		return nil, false
	}

	total := headerLen + length
	if avail < total {
		return nil, false
	}

	body := b.buf.PeekAllAsByteSlice()[headerLen:total]
	out := make([]byte, length)
	copy(out, body)
	b.buf.Retrieve(total)
	return out, true
}

// PopAllMsg repeatedly calls PopMsg until none is ready, appending each
// payload it extracts to out and returning the extended slice.
func (b *Buffer) PopAllMsg(out [][]byte, headerLen int, order binary.ByteOrder) [][]byte {
	for {
		msg, ok := b.PopMsg(headerLen, order)
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}
