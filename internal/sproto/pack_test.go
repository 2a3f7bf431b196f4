package sproto

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0, 0, 0, 0, 0, 0, 0, 0},
		{1, 0, 0, 0, 2, 0, 0, 0},
		bytes.Repeat([]byte{0}, 64),
		[]byte("hello, sproto wire format"),
	}
	for i, in := range cases {
		packed, err := Pack(in)
		if err != nil {
			t.Fatalf("case %d: Pack: %v", i, err)
		}
		out, err := Unpack(packed)
		if err != nil {
			t.Fatalf("case %d: Unpack: %v", i, err)
		}
		if len(out) < len(in) || !bytes.Equal(out[:len(in)], in) {
			t.Fatalf("case %d: round trip mismatch: in=%x out=%x", i, in, out)
		}
		// Anything beyond the original length must be the zero padding the
		// last group was filled with, never leftover data from a prior case.
		for _, b := range out[len(in):] {
			if b != 0 {
				t.Fatalf("case %d: nonzero padding byte in %x", i, out)
			}
		}
	}
}

func TestPackLiteralRun(t *testing.T) {
	in := make([]byte, 16)
	for i := range in {
		in[i] = byte(i + 1) // 0x01..0x10
	}
	packed, err := Pack(in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := append([]byte{0xFF, 0x01}, in...)
	if !bytes.Equal(packed, want) {
		t.Fatalf("got % x, want % x", packed, want)
	}
	out, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("got % x, want % x", out, in)
	}
}

func TestPackSparseGroup(t *testing.T) {
	in := []byte{0, 0, 0, 5, 0, 0, 0, 0}
	packed, err := Pack(in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := []byte{0x08, 0x05} // header bit 3 set, one literal byte
	if !bytes.Equal(packed, want) {
		t.Fatalf("got % x, want % x", packed, want)
	}
	out, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("got % x, want % x", out, in)
	}
}

func TestUnpackRejectsTruncatedRun(t *testing.T) {
	if _, err := Unpack([]byte{0xFF}); err == nil {
		t.Fatal("expected error for missing run count")
	}
	if _, err := Unpack([]byte{0xFF, 0x00, 0x01}); err == nil {
		t.Fatal("expected error for short run payload")
	}
}

func TestPackTooLarge(t *testing.T) {
	// Nonzero, non-repeating bytes pack to roughly their own size (run mode),
	// so an input past the output clamp is guaranteed to overflow it.
	in := make([]byte, maxPackedOutput+1024)
	for i := range in {
		in[i] = byte(i%255 + 1)
	}
	if _, err := Pack(in); err == nil {
		t.Fatal("expected ErrPackTooLarge")
	}
}
