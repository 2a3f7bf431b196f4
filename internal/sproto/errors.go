package sproto

import "errors"

var (
	// ErrSchema is a generic sentinel for malformed schema bundles.
	ErrSchema = errors.New("sproto: malformed schema bundle")

	ErrBadFieldOrder   = errors.New("sproto: field tags are not strictly increasing")
	ErrBadMetaTag      = errors.New("sproto: unknown field meta-tag")
	ErrSubtypeRange    = errors.New("sproto: subtype index out of range")
	ErrTruncated       = errors.New("sproto: record truncated")
	ErrOuterNonZero    = errors.New("sproto: outer record field has a non-pointer value")
	ErrUnknownTypeName = errors.New("sproto: unknown type name")
	ErrUnknownProtocol = errors.New("sproto: unknown protocol")

	// ErrEncode is a generic sentinel for encode-time failures.
	ErrEncode       = errors.New("sproto: encode error")
	ErrTooDeep      = errors.New("sproto: recursion too deep")
	ErrValueType    = errors.New("sproto: value does not match field type")
	ErrIntOverflow  = errors.New("sproto: integer out of range")
	ErrOutputTooBig = errors.New("sproto: encoded output exceeds maximum size")

	// ErrDecode is a generic sentinel for decode-time failures.
	ErrDecode         = errors.New("sproto: decode error")
	ErrSizeMismatch   = errors.New("sproto: size mismatch")
	ErrBadIntWidth    = errors.New("sproto: integer width not in {4,8}")
	ErrArrayIndivis   = errors.New("sproto: array-of-integer length not divisible by width")
	ErrUnknownField   = errors.New("sproto: unknown field type code")
	ErrStructConsumed = errors.New("sproto: nested struct did not consume its declared length")

	// ErrPack covers the zero-run packer.
	ErrPack         = errors.New("sproto: pack error")
	ErrUnpack       = errors.New("sproto: unpack error")
	ErrPackTooLarge = errors.New("sproto: packed output exceeds maximum size")
)
