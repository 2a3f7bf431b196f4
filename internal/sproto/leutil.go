package sproto

import "encoding/binary"

func putLE32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putLE64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getLE32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
func getLE64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }
