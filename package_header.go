package sconn

import (
	"fmt"

	"github.com/sconn-client/sconn/internal/sproto"
)

const defaultPackageTypeName = "base.package"

// buildHeader encodes the package-header record {type, session}, either
// field omitted from the schema-declared type when nil.
func buildHeader(tag *int, session *uint32) *sproto.Value {
	fields := map[string]*sproto.Value{}
	if tag != nil {
		fields["type"] = sproto.Int(int64(*tag))
	}
	if session != nil {
		fields["session"] = sproto.Int(int64(*session))
	}
	return sproto.Struct(fields)
}

// parseHeader decodes frame's leading package-header record and returns
// the header value plus the byte offset where the body begins.
func parseHeader(pkgType *sproto.Type, frame []byte) (hdr *sproto.Value, bodyOffset int, err error) {
	hdr, n, err := sproto.Decode(pkgType, frame)
	if err != nil {
		return nil, 0, fmt.Errorf("package header: %w", err)
	}
	return hdr, n, nil
}

func headerTag(hdr *sproto.Value) (int, bool) {
	v, ok := hdr.Fields["type"]
	if !ok || v == nil {
		return 0, false
	}
	return int(v.Int), true
}

func headerSession(hdr *sproto.Value) (uint32, bool) {
	v, ok := hdr.Fields["session"]
	if !ok || v == nil {
		return 0, false
	}
	return uint32(v.Int), true
}
