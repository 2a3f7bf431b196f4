package sproto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeInlineInteger(t *testing.T) {
	typ := &Type{Name: "T", Base: 0, MaxN: 1, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x"},
	}}
	got, err := Encode(typ, Struct(map[string]*Value{"x": Int(7)}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x02, 0x00, 0x10, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	v, n, err := Decode(typ, got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(got) {
		t.Fatalf("consumed %d, want %d", n, len(got))
	}
	if v.Fields["x"].Int != 7 {
		t.Fatalf("x = %d, want 7", v.Fields["x"].Int)
	}
}

func TestEncodeTagSkip(t *testing.T) {
	typ := &Type{Name: "T", Base: -1, MaxN: 3, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "a"},
		{Tag: 2, Type: FieldInteger, Name: "b"},
	}}
	got, err := Encode(typ, Struct(map[string]*Value{"b": Int(5)}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x03, 0x00, 0x01, 0x00, 0x0C, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	v, _, err := Decode(typ, got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, present := v.Fields["a"]; present {
		t.Fatal("a should be absent")
	}
	if v.Fields["b"].Int != 5 {
		t.Fatalf("b = %d, want 5", v.Fields["b"].Int)
	}
}

func TestForwardCompatibility(t *testing.T) {
	wide := &Type{Name: "Wide", Base: 0, MaxN: 3, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "a"},
		{Tag: 1, Type: FieldInteger, Name: "b"},
		{Tag: 2, Type: FieldInteger, Name: "c"},
	}}
	narrow := &Type{Name: "Narrow", Base: 0, MaxN: 2, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "a"},
		{Tag: 1, Type: FieldInteger, Name: "b"},
	}}

	wire, err := Encode(wide, Struct(map[string]*Value{
		"a": Int(1), "b": Int(2), "c": Int(3),
	}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	v, _, err := Decode(narrow, wire)
	if err != nil {
		t.Fatalf("Decode against narrower schema: %v", err)
	}
	if v.Fields["a"].Int != 1 || v.Fields["b"].Int != 2 {
		t.Fatalf("known fields wrong: %+v", v.Fields)
	}
	if _, present := v.Fields["c"]; present {
		t.Fatal("unknown trailing field must not surface")
	}
}

func TestCodecRoundTripVariety(t *testing.T) {
	inner := &Type{Name: "Point", Base: 0, MaxN: 2, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x"},
		{Tag: 1, Type: FieldInteger, Name: "y"},
	}}
	outer := &Type{Name: "Mixed", Base: 0, MaxN: 7, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "big", Extra: 0},
		{Tag: 1, Type: FieldBoolean, Name: "flag"},
		{Tag: 2, Type: FieldDouble, Name: "ratio"},
		{Tag: 3, Type: FieldString, Name: "name"},
		{Tag: 4, Type: FieldInteger, Name: "scaled", Extra: 2},
		{Tag: 5, Type: FieldStruct, Name: "at", Subtype: inner},
		{Tag: 6, Type: FieldInteger, Name: "ids", Array: true},
	}}

	in := Struct(map[string]*Value{
		"big":    Int(1 << 40),
		"flag":   Bool(true),
		"ratio":  Double(3.5),
		"name":   Str("hello"),
		"scaled": Double(12.34),
		"at":     Struct(map[string]*Value{"x": Int(1), "y": Int(-2)}),
		"ids":    Array(KindInteger, Int(1), Int(2), Int(1<<35)),
	})

	wire, err := Encode(outer, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, n, err := Decode(outer, wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d of %d", n, len(wire))
	}

	if out.Fields["big"].Int != 1<<40 {
		t.Fatalf("big = %d", out.Fields["big"].Int)
	}
	if !out.Fields["flag"].Bool {
		t.Fatal("flag should be true")
	}
	if out.Fields["ratio"].Float != 3.5 {
		t.Fatalf("ratio = %v", out.Fields["ratio"].Float)
	}
	if out.Fields["name"].String() != "hello" {
		t.Fatalf("name = %q", out.Fields["name"].String())
	}
	if got := out.Fields["scaled"].Float; got < 12.339 || got > 12.341 {
		t.Fatalf("scaled = %v", got)
	}
	at := out.Fields["at"]
	if at.Fields["x"].Int != 1 || at.Fields["y"].Int != -2 {
		t.Fatalf("at = %+v", at.Fields)
	}
	ids := out.Fields["ids"].Array
	if len(ids) != 3 || ids[0].Int != 1 || ids[1].Int != 2 || ids[2].Int != 1<<35 {
		t.Fatalf("ids = %+v", ids)
	}
}

func TestDecodeRejectsBadIntWidth(t *testing.T) {
	typ := &Type{Name: "T", Base: 0, MaxN: 1, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x"},
	}}
	// header=2, one pointer slot (value 0), blob length 3 (invalid width).
	bad := []byte{0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03}
	if _, _, err := Decode(typ, bad); err == nil {
		t.Fatal("expected error for 3-byte integer blob")
	}
}

func TestEncodeRejectsWrongValueKind(t *testing.T) {
	typ := &Type{Name: "T", Base: 0, MaxN: 1, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x"},
	}}
	_, err := Encode(typ, Struct(map[string]*Value{"x": Str("not an int")}))
	if err == nil {
		t.Fatal("expected error for string value on integer field")
	}
}

func TestInlineBoundaryRoundTrips(t *testing.T) {
	typ := &Type{Name: "T", Base: 0, MaxN: 1, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x"},
	}}
	for _, want := range []int64{0, 1, inlineMax - 1, inlineMax, inlineMax + 1} {
		wire, err := Encode(typ, Struct(map[string]*Value{"x": Int(want)}))
		if err != nil {
			t.Fatalf("Encode(%d): %v", want, err)
		}
		v, _, err := Decode(typ, wire)
		if err != nil {
			t.Fatalf("Decode(%d): %v", want, err)
		}
		if v.Fields["x"].Int != want {
			t.Fatalf("round-tripped %d as %d", want, v.Fields["x"].Int)
		}
	}
}

func TestScaledIntegerOverflowIsRejected(t *testing.T) {
	typ := &Type{Name: "T", Base: 0, MaxN: 1, Fields: []*Field{
		{Tag: 0, Type: FieldInteger, Name: "x", Extra: 2},
	}}
	_, err := Encode(typ, Struct(map[string]*Value{"x": Double(1e30)}))
	if !errors.Is(err, ErrIntOverflow) {
		t.Fatalf("got err %v, want ErrIntOverflow", err)
	}
}
