package sproto

import (
	"fmt"
	"math"
)

const inlineMax = 0x7fff

// maxEncodedOutput clamps a single Encode call's output the same way
// maxPackedOutput clamps Pack's, instead of leaving it unbounded.
const maxEncodedOutput = 1 << 26 // 64 MiB

// Encode serializes v against t into the wire form: a slot header, the
// slot array, then the data region of length-prefixed blobs that pointer
// slots reference, in field order.
func Encode(t *Type, v *Value) ([]byte, error) {
	out, err := encodeRecord(t, v, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if len(out) > maxEncodedOutput {
		return nil, fmt.Errorf("%w: %w: limit %d bytes", ErrEncode, ErrOutputTooBig, maxEncodedOutput)
	}
	return out, nil
}

func encodeRecord(t *Type, v *Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	if v == nil {
		return (&slotBuilder{}).bytes(), nil
	}
	if v.Kind != KindStruct {
		return nil, fmt.Errorf("%w: expected struct value for type %q", ErrValueType, t.Name)
	}

	b := &slotBuilder{}
	for tag := 0; tag < t.MaxN; tag++ {
		f := t.byTag(tag)
		if f == nil {
			b.absent()
			continue
		}
		fv, ok := v.Fields[f.Name]
		if !ok || fv == nil {
			b.absent()
			continue
		}
		if err := encodeField(b, f, fv, depth); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return b.bytes(), nil
}

func encodeField(b *slotBuilder, f *Field, v *Value, depth int) error {
	if f.Array {
		blob, err := encodeArray(f, v, depth)
		if err != nil {
			return err
		}
		b.pointer(blob)
		return nil
	}

	switch f.Type {
	case FieldInteger:
		wire, err := scaleToWire(f, v)
		if err != nil {
			return err
		}
		if fitsInline(wire) {
			b.inline(wire)
			return nil
		}
		b.pointer(encodeIntBlob(wire))
		return nil

	case FieldBoolean:
		if v.Kind != KindBoolean {
			return fmt.Errorf("%w: want boolean", ErrValueType)
		}
		if v.Bool {
			b.inline(1)
		} else {
			b.inline(0)
		}
		return nil

	case FieldDouble:
		if v.Kind != KindDouble {
			return fmt.Errorf("%w: want double", ErrValueType)
		}
		var blob [8]byte
		putLE64(blob[:], math.Float64bits(v.Float))
		b.pointer(blob[:])
		return nil

	case FieldString:
		if v.Kind != KindString {
			return fmt.Errorf("%w: want string", ErrValueType)
		}
		b.pointer(v.Bytes)
		return nil

	case FieldStruct:
		if f.Subtype == nil {
			return fmt.Errorf("%w: field %q has no subtype", ErrSchema, f.Name)
		}
		blob, err := encodeRecord(f.Subtype, v, depth+1)
		if err != nil {
			return err
		}
		b.pointer(blob)
		return nil

	default:
		return fmt.Errorf("%w: field type %d", ErrValueType, f.Type)
	}
}

// scaleToWire applies the field's decimal Extra scale and resolves which
// Value arm the caller must have supplied:
// Extra==0 fields carry a plain Int, Extra>0 fields carry the logical
// decimal amount as Float.
func scaleToWire(f *Field, v *Value) (int64, error) {
	if f.Extra <= 0 {
		if v.Kind != KindInteger {
			return 0, fmt.Errorf("%w: want integer", ErrValueType)
		}
		return v.Int, nil
	}
	if v.Kind != KindDouble {
		return 0, fmt.Errorf("%w: want double for scaled integer field", ErrValueType)
	}
	scale := pow10(f.Extra)
	scaled := math.Round(v.Float * float64(scale))
	if scaled > math.MaxInt64 || scaled < math.MinInt64 {
		return 0, fmt.Errorf("%w: %g scaled by 10^%d", ErrIntOverflow, v.Float, f.Extra)
	}
	return int64(scaled), nil
}

// fitsInline resolves the open question on signed inline encoding: only
// values in 0..0x7ffe take the inline path; negative values and inlineMax
// itself always fall through to the blob form, since the slot word
// (v+1)<<1 must fit in 16 bits without colliding with the pointer-slot
// sentinel word 0.
func fitsInline(v int64) bool {
	return v >= 0 && v < inlineMax
}

func encodeIntBlob(v int64) []byte {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		var b [4]byte
		putLE32(b[:], uint32(int32(v)))
		return b[:]
	}
	var b [8]byte
	putLE64(b[:], uint64(v))
	return b[:]
}

func encodeArray(f *Field, v *Value, depth int) ([]byte, error) {
	if v.Kind != KindArray {
		return nil, fmt.Errorf("%w: want array", ErrValueType)
	}
	switch f.Type {
	case FieldInteger:
		return encodeIntArray(f, v.Array)
	case FieldBoolean:
		out := make([]byte, len(v.Array))
		for i, e := range v.Array {
			if e.Kind != KindBoolean {
				return nil, fmt.Errorf("%w: want boolean element", ErrValueType)
			}
			if e.Bool {
				out[i] = 1
			}
		}
		return out, nil
	case FieldString:
		return encodeBlobArray(v.Array, func(e *Value) ([]byte, error) {
			if e.Kind != KindString {
				return nil, fmt.Errorf("%w: want string element", ErrValueType)
			}
			return e.Bytes, nil
		})
	case FieldStruct:
		if f.Subtype == nil {
			return nil, fmt.Errorf("%w: field %q has no subtype", ErrSchema, f.Name)
		}
		return encodeBlobArray(v.Array, func(e *Value) ([]byte, error) {
			return encodeRecord(f.Subtype, e, depth+1)
		})
	default:
		return nil, fmt.Errorf("%w: array of field type %d", ErrValueType, f.Type)
	}
}

func encodeIntArray(f *Field, elems []*Value) ([]byte, error) {
	if len(elems) == 0 {
		return []byte{}, nil
	}
	wire := make([]int64, len(elems))
	width := 4
	for i, e := range elems {
		w, err := scaleToWire(f, e)
		if err != nil {
			return nil, err
		}
		wire[i] = w
		if w < math.MinInt32 || w > math.MaxInt32 {
			width = 8
		}
	}
	out := make([]byte, 1+width*len(wire))
	out[0] = byte(width)
	for i, w := range wire {
		off := 1 + i*width
		if width == 4 {
			putLE32(out[off:], uint32(int32(w)))
		} else {
			putLE64(out[off:], uint64(w))
		}
	}
	return out, nil
}

func encodeBlobArray(elems []*Value, enc func(*Value) ([]byte, error)) ([]byte, error) {
	if len(elems) == 0 {
		return []byte{}, nil
	}
	var out []byte
	for _, e := range elems {
		blob, err := enc(e)
		if err != nil {
			return nil, err
		}
		var lenbuf [4]byte
		putLE32(lenbuf[:], uint32(len(blob)))
		out = append(out, lenbuf[:]...)
		out = append(out, blob...)
	}
	return out, nil
}

func pow10(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}
