package sconn

import "encoding/binary"

// This file hand-assembles tiny sproto schema bundles for tests, using the
// same positional field-slot grammar the loader decodes. It exists only so
// session and host tests don't depend on an external schema compiler.

type slotSpec struct {
	inline bool
	value  int64
	blob   []byte
}

func buildPositionalRecord(maxPos int, specs map[int]slotSpec) []byte {
	var words []uint16
	var data []byte
	skip := 0
	flush := func() {
		if skip > 0 {
			words = append(words, uint16((skip-1)<<1|1))
			skip = 0
		}
	}
	for i := 0; i <= maxPos; i++ {
		sp, ok := specs[i]
		if !ok {
			skip++
			continue
		}
		flush()
		if sp.inline {
			words = append(words, uint16((sp.value+1)<<1))
			continue
		}
		words = append(words, 0)
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], uint32(len(sp.blob)))
		data = append(data, lb[:]...)
		data = append(data, sp.blob...)
	}

	out := make([]byte, 2, 2+len(words)*2+len(data))
	binary.LittleEndian.PutUint16(out, uint16(len(words)+1))
	for _, w := range words {
		var wb [2]byte
		binary.LittleEndian.PutUint16(wb[:], w)
		out = append(out, wb[:]...)
	}
	return append(out, data...)
}

func blobArray(elems ...[]byte) []byte {
	var out []byte
	for _, e := range elems {
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], uint32(len(e)))
		out = append(out, lb[:]...)
		out = append(out, e...)
	}
	return out
}

func fieldRecord(name string, typeCode, tag int) []byte {
	return buildPositionalRecord(3, map[int]slotSpec{
		0: {blob: []byte(name)},
		1: {inline: true, value: int64(typeCode)},
		3: {inline: true, value: int64(tag)},
	})
}

func typeRecord(name string, fields ...[]byte) []byte {
	return buildPositionalRecord(2, map[int]slotSpec{
		0: {blob: []byte(name)},
		2: {blob: blobArray(fields...)},
	})
}

func protocolRecord(name string, tag int, reqIdx, respIdx *int) []byte {
	specs := map[int]slotSpec{
		0: {blob: []byte(name)},
		1: {inline: true, value: int64(tag)},
	}
	maxPos := 1
	if reqIdx != nil {
		specs[2] = slotSpec{inline: true, value: int64(*reqIdx)}
		maxPos = 2
	}
	if respIdx != nil {
		specs[3] = slotSpec{inline: true, value: int64(*respIdx)}
		maxPos = 3
	}
	return buildPositionalRecord(maxPos, specs)
}

func outerRecord(typesBlob, protocolsBlob []byte) []byte {
	return buildPositionalRecord(1, map[int]slotSpec{
		0: {blob: typesBlob},
		1: {blob: protocolsBlob},
	})
}

// buildEchoBundle returns a bundle declaring base.package{type,session} and
// one protocol "echo" (tag 1) with request {x:int} and response {y:int}.
func buildEchoBundle() []byte {
	pkgType := typeRecord("base.package", fieldRecord("type", metaFieldIntegerForTest, 0), fieldRecord("session", metaFieldIntegerForTest, 1))
	reqType := typeRecord("echo.request", fieldRecord("x", metaFieldIntegerForTest, 0))
	respType := typeRecord("echo.response", fieldRecord("y", metaFieldIntegerForTest, 0))
	typesBlob := blobArray(pkgType, reqType, respType)

	reqIdx, respIdx := 1, 2
	protocolsBlob := blobArray(protocolRecord("echo", 1, &reqIdx, &respIdx))

	return outerRecord(typesBlob, protocolsBlob)
}

// metaFieldIntegerForTest mirrors sproto's unexported metaFieldInteger (0).
const metaFieldIntegerForTest = 0
