package sproto

import "fmt"

// ParseBundle parses a compiled sproto schema bundle into a Schema.
// The bundle is itself sproto-encoded: an outer record with two pointer
// fields, "types" and "protocols", each an array of further records using
// exactly the same field-slot grammar the value codec uses. Parsing it is
// therefore bootstrapped on decodeSlots directly rather than on Decode,
// since no Type yet exists to describe the bundle's own shape.
func ParseBundle(data []byte) (*Schema, error) {
	outer, err := positional(data)
	if err != nil {
		return nil, fmt.Errorf("outer record: %w", err)
	}

	typesBlob, err := requirePointer(outer, 0, "types")
	if err != nil {
		return nil, err
	}
	protocolsBlob, _ := requirePointer(outer, 1, "protocols") // optional: a bundle may carry no protocols

	typeElems, err := splitBlobArray(typesBlob)
	if err != nil {
		return nil, fmt.Errorf("types array: %w", err)
	}

	s := &Schema{
		byName:      map[string]*Type{},
		protoByName: map[string]*Protocol{},
		protoByTag:  map[int]*Protocol{},
	}

	// First pass: allocate every Type so struct-field subtype references
	// (which index into this same table) can resolve regardless of
	// declaration order.
	s.types = make([]*Type, len(typeElems))
	for i, elem := range typeElems {
		name, err := peekTypeName(elem)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
		t := &Type{Name: name}
		s.types[i] = t
		s.byName[name] = t
	}

	for i, elem := range typeElems {
		if err := fillType(s.types[i], elem, s); err != nil {
			return nil, fmt.Errorf("type %q: %w", s.types[i].Name, err)
		}
	}

	if len(protocolsBlob) > 0 {
		protoElems, err := splitBlobArray(protocolsBlob)
		if err != nil {
			return nil, fmt.Errorf("protocols array: %w", err)
		}
		s.protocols = make([]*Protocol, len(protoElems))
		for i, elem := range protoElems {
			p, err := parseProtocol(elem, s)
			if err != nil {
				return nil, fmt.Errorf("protocol %d: %w", i, err)
			}
			s.protocols[i] = p
			s.protoByName[p.Name] = p
			s.protoByTag[p.Tag] = p
		}
	}

	return s, nil
}

// positional decodes data's slot array and maps it from field-array
// position to the raw slot, resolving skips. Meta records throughout the
// bundle (outer record, type records, field records, protocol records)
// all use this same positional grammar with a fixed, documented tag
// assignment.
func positional(data []byte) (map[int]slot, error) {
	slots, _, err := decodeSlots(data)
	if err != nil {
		return nil, err
	}
	out := map[int]slot{}
	fieldIdx := 0
	for _, sl := range slots {
		if sl.isSkip {
			fieldIdx += sl.skip
			continue
		}
		out[fieldIdx] = sl
		fieldIdx++
	}
	return out, nil
}

func requirePointer(m map[int]slot, pos int, what string) ([]byte, error) {
	sl, ok := m[pos]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrSchema, what)
	}
	if sl.inline {
		return nil, fmt.Errorf("%w: %s", ErrOuterNonZero, what)
	}
	return sl.blob, nil
}

func optionalInline(m map[int]slot, pos int) (int64, bool) {
	sl, ok := m[pos]
	if !ok || !sl.inline {
		return 0, false
	}
	return sl.value, true
}

func optionalString(m map[int]slot, pos int) (string, bool) {
	sl, ok := m[pos]
	if !ok || sl.inline {
		return "", false
	}
	return string(sl.blob), true
}

// splitBlobArray divides a struct/array-of-struct style blob (each element
// a u32-length-prefixed chunk) into its element byte slices without
// decoding them — the bundle loader decodes each element with its own
// fixed meta schema afterward.
func splitBlobArray(blob []byte) ([][]byte, error) {
	var out [][]byte
	pos := 0
	for pos < len(blob) {
		if len(blob)-pos < 4 {
			return nil, ErrTruncated
		}
		n := int(getLE32(blob[pos:]))
		pos += 4
		if len(blob)-pos < n {
			return nil, ErrTruncated
		}
		out = append(out, blob[pos:pos+n])
		pos += n
	}
	return out, nil
}

func peekTypeName(elem []byte) (string, error) {
	m, err := positional(elem)
	if err != nil {
		return "", err
	}
	name, ok := optionalString(m, 0)
	if !ok {
		return "", fmt.Errorf("%w: type missing name", ErrSchema)
	}
	return name, nil
}

// fillType decodes one type record (meta tags: 0=name, 1=reserved/no-op,
// 2=field list) and populates t in place.
func fillType(t *Type, elem []byte, s *Schema) error {
	m, err := positional(elem)
	if err != nil {
		return err
	}
	if sl, ok := m[1]; ok && sl.inline {
		return fmt.Errorf("%w: type reserved field must be absent", ErrBadMetaTag)
	}

	fieldsBlob, _ := requirePointer(m, 2, "fields")
	if len(fieldsBlob) == 0 {
		t.Base, t.MaxN = -1, 0
		return nil
	}
	fieldElems, err := splitBlobArray(fieldsBlob)
	if err != nil {
		return fmt.Errorf("fields: %w", err)
	}

	fields := make([]*Field, 0, len(fieldElems))
	lastTag := -1
	for i, fe := range fieldElems {
		f, err := parseField(fe, s)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		if f.Tag <= lastTag {
			return fmt.Errorf("%w: field %q tag %d after %d", ErrBadFieldOrder, f.Name, f.Tag, lastTag)
		}
		lastTag = f.Tag
		fields = append(fields, f)
	}
	t.Fields = fields
	t.Base, t.MaxN = buildBaseAndMaxN(fields)
	return nil
}

// Field meta-type codes, as laid down by the schema compiler.
const (
	metaFieldInteger = 0
	metaFieldBoolean = 1
	metaFieldString  = 2
	metaFieldDouble  = 3
	metaFieldStruct  = 4
)

// parseField decodes one field record (meta tags: 0=name, 1=type-code,
// 2=extra/subtype-index, 3=tag, 4=array-flag, 5=key).
func parseField(elem []byte, s *Schema) (*Field, error) {
	m, err := positional(elem)
	if err != nil {
		return nil, err
	}
	name, ok := optionalString(m, 0)
	if !ok {
		return nil, fmt.Errorf("%w: field missing name", ErrSchema)
	}
	typeCode, ok := optionalInline(m, 1)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing type code", ErrSchema, name)
	}
	tag, ok := optionalInline(m, 3)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing tag", ErrSchema, name)
	}
	arrayFlag, _ := optionalInline(m, 4)
	key, _ := optionalString(m, 5)

	f := &Field{Name: name, Tag: int(tag), Array: arrayFlag != 0, Key: key}

	extraInline, hasExtraInline := optionalInline(m, 2)
	switch typeCode {
	case metaFieldInteger:
		f.Type = FieldInteger
		if hasExtraInline {
			f.Extra = int(extraInline)
		}
	case metaFieldBoolean:
		f.Type = FieldBoolean
	case metaFieldString:
		f.Type = FieldString
		if hasExtraInline {
			f.Extra = int(extraInline) // 0=utf8, 1=binary
		}
	case metaFieldDouble:
		f.Type = FieldDouble
	case metaFieldStruct:
		f.Type = FieldStruct
		if !hasExtraInline {
			return nil, fmt.Errorf("%w: field %q struct type missing subtype index", ErrSchema, name)
		}
		idx := int(extraInline)
		if idx < 0 || idx >= len(s.types) {
			return nil, fmt.Errorf("%w: field %q subtype index %d", ErrSubtypeRange, name, idx)
		}
		f.Subtype = s.types[idx]
	default:
		return nil, fmt.Errorf("%w: field %q type code %d", ErrBadMetaTag, name, typeCode)
	}
	return f, nil
}

// parseProtocol decodes one protocol record (meta tags: 0=name, 1=tag,
// 2=request-type-index, 3=response-type-index, 4=confirm).
func parseProtocol(elem []byte, s *Schema) (*Protocol, error) {
	m, err := positional(elem)
	if err != nil {
		return nil, err
	}
	name, ok := optionalString(m, 0)
	if !ok {
		return nil, fmt.Errorf("%w: protocol missing name", ErrSchema)
	}
	tag, ok := optionalInline(m, 1)
	if !ok {
		return nil, fmt.Errorf("%w: protocol %q missing tag", ErrSchema, name)
	}
	p := &Protocol{Name: name, Tag: int(tag)}

	if reqIdx, ok := optionalInline(m, 2); ok {
		if int(reqIdx) < 0 || int(reqIdx) >= len(s.types) {
			return nil, fmt.Errorf("%w: protocol %q request index %d", ErrSubtypeRange, name, reqIdx)
		}
		p.Request = s.types[reqIdx]
	}
	if respIdx, ok := optionalInline(m, 3); ok {
		if int(respIdx) < 0 || int(respIdx) >= len(s.types) {
			return nil, fmt.Errorf("%w: protocol %q response index %d", ErrSubtypeRange, name, respIdx)
		}
		p.Response = s.types[respIdx]
	}
	if confirm, ok := optionalInline(m, 4); ok {
		p.Confirm = confirm != 0
	}
	return p, nil
}
