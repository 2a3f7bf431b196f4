package sproto

import (
	"fmt"
	"math/bits"
)

// maxPackedOutput clamps the packer's output buffer to a sane platform
// maximum instead of leaving it conceptually unbounded.
const maxPackedOutput = 1 << 26 // 64 MiB

// Pack compresses data using sproto's 0-run scheme: the input is
// walked in 8-byte groups (the final group zero-padded), each group
// becomes a header byte plus its nonzero bytes, and runs of
// near-incompressible groups are coalesced into an 0xFF escape instead.
func Pack(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)+len(data)/8+8)

	groups := (len(data) + 7) / 8
	i := 0
	for i < groups {
		if isIncompressible(data, i) {
			run := 1
			for run < 256 && i+run < groups && isIncompressible(data, i+run) {
				run++
			}
			if len(out)+2+run*8 > maxPackedOutput {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrPackTooLarge, maxPackedOutput)
			}
			out = append(out, 0xFF, byte(run-1))
			out = append(out, groupBytes(data, i, run)...)
			i += run
			continue
		}

		g := group(data, i)
		var header byte
		var nonzero []byte
		for b := 0; b < 8; b++ {
			if g[b] != 0 {
				header |= 1 << uint(b)
				nonzero = append(nonzero, g[b])
			}
		}
		if len(out)+1+len(nonzero) > maxPackedOutput {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrPackTooLarge, maxPackedOutput)
		}
		out = append(out, header)
		out = append(out, nonzero...)
		i++
	}
	return out, nil
}

// isIncompressible reports whether group i of data has 0 or 1 zero bytes —
// the threshold at which per-group header+popcount encoding stops paying
// for itself and a literal run is cheaper.
func isIncompressible(data []byte, groupIdx int) bool {
	g := group(data, groupIdx)
	zeros := 0
	for _, b := range g {
		if b == 0 {
			zeros++
		}
	}
	return zeros <= 1
}

func group(data []byte, groupIdx int) [8]byte {
	var g [8]byte
	off := groupIdx * 8
	n := len(data) - off
	if n > 8 {
		n = 8
	}
	if n > 0 {
		copy(g[:], data[off:off+n])
	}
	return g
}

func groupBytes(data []byte, startGroup, count int) []byte {
	out := make([]byte, count*8)
	for i := 0; i < count; i++ {
		g := group(data, startGroup+i)
		copy(out[i*8:], g[:])
	}
	return out
}

// Unpack is the inverse of Pack: a header byte of 0xFF means "literal run",
// read the count byte N and copy N+1 groups verbatim; otherwise each
// set bit in the header copies one literal byte and each clear bit emits
// a zero byte.
func Unpack(data []byte) ([]byte, error) {
	var out []byte
	pos := 0
	for pos < len(data) {
		h := data[pos]
		pos++
		if h == 0xFF {
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: missing run count", ErrUnpack)
			}
			count := int(data[pos]) + 1
			pos++
			n := count * 8
			if pos+n > len(data) {
				return nil, fmt.Errorf("%w: run of %d bytes exceeds input", ErrUnpack, n)
			}
			out = append(out, data[pos:pos+n]...)
			pos += n
			continue
		}

		need := bits.OnesCount8(h)
		if pos+need > len(data) {
			return nil, fmt.Errorf("%w: group needs %d literal bytes", ErrUnpack, need)
		}
		for b := 0; b < 8; b++ {
			if h&(1<<uint(b)) != 0 {
				out = append(out, data[pos])
				pos++
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}
