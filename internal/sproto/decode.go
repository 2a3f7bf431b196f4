package sproto

import (
	"fmt"
	"math"
)

// Decode parses data against t and returns the resulting struct value plus
// the number of bytes consumed (objlen semantics: callers that embedded
// this record in a larger buffer use the count to find the next one).
func Decode(t *Type, data []byte) (*Value, int, error) {
	v, n, err := decodeRecord(t, data, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, n, nil
}

// ObjLen decodes data against t and discards the value, returning only the
// number of bytes consumed — the same count Decode returns as its second
// result.
func ObjLen(t *Type, data []byte) (int, error) {
	_, n, err := decodeRecord(t, data, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return n, nil
}

func decodeRecord(t *Type, data []byte, depth int) (*Value, int, error) {
	if depth > maxDepth {
		return nil, 0, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	slots, consumed, err := decodeSlots(data)
	if err != nil {
		return nil, 0, err
	}
	out := Struct(nil)
	tag := 0
	for _, sl := range slots {
		if sl.isSkip {
			tag += sl.skip
			continue
		}
		f := t.byTag(tag)
		tag++
		if f == nil {
			// Tag not declared by this schema: either a reserved gap or a
			// field a newer schema added. Ignored for forward compatibility.
			continue
		}

		v, err := decodeField(f, sl, depth)
		if err != nil {
			return nil, 0, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out.Fields[f.Name] = v
	}
	return out, consumed, nil
}

func decodeField(f *Field, sl slot, depth int) (*Value, error) {
	if f.Array {
		return decodeArray(f, sl.blob, depth)
	}

	switch f.Type {
	case FieldInteger:
		wire, err := decodeWireInt(sl)
		if err != nil {
			return nil, err
		}
		return unscaleFromWire(f, wire), nil

	case FieldBoolean:
		if !sl.inline {
			return nil, fmt.Errorf("%w: boolean must be inline", ErrUnknownField)
		}
		return Bool(sl.value != 0), nil

	case FieldDouble:
		if len(sl.blob) != 8 {
			return nil, fmt.Errorf("%w: double blob must be 8 bytes, got %d", ErrSizeMismatch, len(sl.blob))
		}
		return Double(math.Float64frombits(getLE64(sl.blob))), nil

	case FieldString:
		if f.Extra == 1 {
			return Bin(sl.blob), nil
		}
		return Str(string(sl.blob)), nil

	case FieldStruct:
		if f.Subtype == nil {
			return nil, fmt.Errorf("%w: field %q has no subtype", ErrSchema, f.Name)
		}
		v, n, err := decodeRecord(f.Subtype, sl.blob, depth+1)
		if err != nil {
			return nil, err
		}
		if n != len(sl.blob) {
			return nil, fmt.Errorf("%w: struct %q consumed %d of %d bytes", ErrStructConsumed, f.Subtype.Name, n, len(sl.blob))
		}
		return v, nil

	default:
		return nil, fmt.Errorf("%w: field type %d", ErrUnknownField, f.Type)
	}
}

func decodeWireInt(sl slot) (int64, error) {
	if sl.inline {
		return sl.value, nil
	}
	switch len(sl.blob) {
	case 4:
		return int64(int32(getLE32(sl.blob))), nil
	case 8:
		return int64(getLE64(sl.blob)), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrBadIntWidth, len(sl.blob))
	}
}

func unscaleFromWire(f *Field, wire int64) *Value {
	if f.Extra <= 0 {
		return Int(wire)
	}
	return Double(float64(wire) / float64(pow10(f.Extra)))
}

func decodeArray(f *Field, blob []byte, depth int) (*Value, error) {
	switch f.Type {
	case FieldInteger:
		return decodeIntArray(f, blob)
	case FieldBoolean:
		out := make([]*Value, len(blob))
		for i, b := range blob {
			out[i] = Bool(b != 0)
		}
		return Array(KindBoolean, out...), nil
	case FieldString:
		elems, err := decodeBlobArray(blob, func(b []byte) (*Value, error) {
			if f.Extra == 1 {
				return Bin(b), nil
			}
			return Str(string(b)), nil
		})
		if err != nil {
			return nil, err
		}
		return Array(KindString, elems...), nil
	case FieldStruct:
		if f.Subtype == nil {
			return nil, fmt.Errorf("%w: field %q has no subtype", ErrSchema, f.Name)
		}
		elems, err := decodeBlobArray(blob, func(b []byte) (*Value, error) {
			v, n, err := decodeRecord(f.Subtype, b, depth+1)
			if err != nil {
				return nil, err
			}
			if n != len(b) {
				return nil, fmt.Errorf("%w: struct %q consumed %d of %d bytes", ErrStructConsumed, f.Subtype.Name, n, len(b))
			}
			return v, nil
		})
		if err != nil {
			return nil, err
		}
		return Array(KindStruct, elems...), nil
	default:
		return nil, fmt.Errorf("%w: array of field type %d", ErrUnknownField, f.Type)
	}
}

func decodeIntArray(f *Field, blob []byte) (*Value, error) {
	if len(blob) == 0 {
		return Array(KindInteger), nil
	}
	width := int(blob[0])
	if width != 4 && width != 8 {
		return nil, fmt.Errorf("%w: got %d", ErrBadIntWidth, width)
	}
	rest := blob[1:]
	if len(rest)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes at width %d", ErrArrayIndivis, len(rest), width)
	}
	n := len(rest) / width
	out := make([]*Value, n)
	for i := 0; i < n; i++ {
		off := i * width
		var wire int64
		if width == 4 {
			wire = int64(int32(getLE32(rest[off:])))
		} else {
			wire = int64(getLE64(rest[off:]))
		}
		out[i] = unscaleFromWire(f, wire)
	}
	return Array(KindInteger, out...), nil
}

func decodeBlobArray(blob []byte, dec func([]byte) (*Value, error)) ([]*Value, error) {
	var out []*Value
	pos := 0
	for pos < len(blob) {
		if len(blob)-pos < 4 {
			return nil, fmt.Errorf("%w: truncated array element length", ErrTruncated)
		}
		n := int(getLE32(blob[pos:]))
		pos += 4
		if len(blob)-pos < n {
			return nil, fmt.Errorf("%w: truncated array element", ErrTruncated)
		}
		v, err := dec(blob[pos : pos+n])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos += n
	}
	return out, nil
}
