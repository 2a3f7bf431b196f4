package sproto

// Kind identifies which arm of Value is populated. Go has no tagged union,
// so Value carries every possible arm and Kind says which one is live.
type Kind int

const (
	KindInteger Kind = iota
	KindBoolean
	KindDouble
	KindString
	KindStruct
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a dynamically typed sproto value: the decoder produces a tree of
// these, and callers build one to hand to Encode. Only the field matching
// Kind is meaningful.
type Value struct {
	Kind Kind

	Int    int64
	Bool   bool
	Float  float64
	Bytes  []byte // KindString: UTF-8 text or raw binary, per the field's Extra
	Fields map[string]*Value // KindStruct

	// Array holds one *Value per element when Kind == KindArray. The
	// element Kind is ArrayElem (mirrors the owning field's base type).
	Array     []*Value
	ArrayElem Kind
}

func Int(v int64) *Value                   { return &Value{Kind: KindInteger, Int: v} }
func Bool(v bool) *Value                    { return &Value{Kind: KindBoolean, Bool: v} }
func Double(v float64) *Value               { return &Value{Kind: KindDouble, Float: v} }
func Str(v string) *Value                   { return &Value{Kind: KindString, Bytes: []byte(v)} }
func Bin(v []byte) *Value                   { return &Value{Kind: KindString, Bytes: v} }
func Struct(fields map[string]*Value) *Value {
	if fields == nil {
		fields = map[string]*Value{}
	}
	return &Value{Kind: KindStruct, Fields: fields}
}
func Array(elem Kind, vs ...*Value) *Value {
	return &Value{Kind: KindArray, ArrayElem: elem, Array: vs}
}

// String returns a copy of the UTF-8/binary payload as a Go string.
func (v *Value) String() string {
	if v == nil {
		return ""
	}
	return string(v.Bytes)
}
