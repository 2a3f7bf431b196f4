package sproto

import (
	"encoding/binary"
	"fmt"
)

// slot is one decoded field-array entry: either a skip directive (covering
// one or more consecutive absent declared fields) or a value, carried
// either inline in the slot word or as a pointer to a length-prefixed blob
// in the data region that follows the slot array.
type slot struct {
	isSkip bool
	skip   int // number of field positions to advance, when isSkip
	inline bool
	value  int64 // decoded inline value, when inline
	blob   []byte
}

// maxDepth bounds recursive struct decoding/encoding.
const maxDepth = 64

// decodeSlots parses the generic sproto record header: a u16
// slot count (stored as n+1, so 0 unambiguously means "no record"), n
// slot words, and the data region of length-prefixed blobs that pointer
// slots consume in order. It returns the ordered slots and the number of
// bytes consumed.
func decodeSlots(data []byte) (slots []slot, consumed int, err error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("%w: slot header", ErrTruncated)
	}
	header := binary.LittleEndian.Uint16(data)
	if header == 0 {
		return nil, 2, nil
	}
	n := int(header) - 1
	pos := 2
	if len(data) < pos+n*2 {
		return nil, 0, fmt.Errorf("%w: slot array", ErrTruncated)
	}
	raw := make([]uint16, n)
	for i := 0; i < n; i++ {
		raw[i] = binary.LittleEndian.Uint16(data[pos:])
		pos += 2
	}

	slots = make([]slot, n)
	for i, v := range raw {
		switch {
		case v&1 == 1:
			slots[i] = slot{isSkip: true, skip: int(v>>1) + 1}
		case v == 0:
			blobLen, n, err := readBlobLen(data[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += n
			if len(data) < pos+blobLen {
				return nil, 0, fmt.Errorf("%w: field blob", ErrTruncated)
			}
			slots[i] = slot{blob: data[pos : pos+blobLen]}
			pos += blobLen
		default:
			slots[i] = slot{inline: true, value: int64(v>>1) - 1}
		}
	}
	return slots, pos, nil
}

func readBlobLen(data []byte) (length, consumed int, err error) {
	if len(data) < 4 {
		return 0, 0, fmt.Errorf("%w: blob length", ErrTruncated)
	}
	return int(binary.LittleEndian.Uint32(data)), 4, nil
}

// slotBuilder accumulates the slot array and data region for one record as
// fields are visited in ascending tag order.
type slotBuilder struct {
	words []uint16
	data  []byte
	skip  int // consecutive absent field positions not yet flushed
}

func (b *slotBuilder) absent() {
	b.skip++
}

func (b *slotBuilder) flushSkip() {
	if b.skip > 0 {
		b.words = append(b.words, uint16((b.skip-1)<<1|1))
		b.skip = 0
	}
}

func (b *slotBuilder) inline(v int64) {
	b.flushSkip()
	b.words = append(b.words, uint16((v+1)<<1))
}

func (b *slotBuilder) pointer(blob []byte) {
	b.flushSkip()
	b.words = append(b.words, 0)
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(blob)))
	b.data = append(b.data, lenbuf[:]...)
	b.data = append(b.data, blob...)
}

// bytes finishes the record: header word, slot words, then the data region.
// Trailing absent fields need no trailing skip — decoders stop consuming
// once the slot array is exhausted and treat the remainder as absent.
func (b *slotBuilder) bytes() []byte {
	out := make([]byte, 2, 2+len(b.words)*2+len(b.data))
	binary.LittleEndian.PutUint16(out, uint16(len(b.words)+1))
	for _, w := range b.words {
		var wb [2]byte
		binary.LittleEndian.PutUint16(wb[:], w)
		out = append(out, wb[:]...)
	}
	out = append(out, b.data...)
	return out
}
