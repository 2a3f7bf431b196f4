package sconn

import (
	"context"
	"testing"

	"github.com/sconn-client/sconn/internal/sproto"
)

func TestCallResolvesOnMatchingResponse(t *testing.T) {
	s, sock := newTestSession(t)
	s.state = StateForward

	promise, err := s.Call("echo", sproto.Struct(map[string]*sproto.Value{"x": sproto.Int(7)}))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(sock.sent) != 1 {
		t.Fatalf("got %d sent frames, want 1", len(sock.sent))
	}

	respType, _ := s.schema.Type("echo.response")
	body, err := sproto.Encode(respType, sproto.Struct(map[string]*sproto.Value{"y": sproto.Int(14)}))
	if err != nil {
		t.Fatalf("Encode response: %v", err)
	}
	session := uint32(0)
	hdrBytes, err := sproto.Encode(s.packageType, buildHeader(nil, &session))
	if err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	frame, err := sproto.Pack(append(hdrBytes, body...))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	sock.push(frame)

	res := s.Update()
	if !res.OK {
		t.Fatalf("Update() not ok: %+v", res)
	}

	val, err := promise.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if val.Fields["y"].Int != 14 {
		t.Fatalf("y = %d, want 14", val.Fields["y"].Int)
	}
}

func TestDispatchInboundRequestSendsResponse(t *testing.T) {
	s, sock := newTestSession(t)
	s.state = StateForward

	if err := s.Register("echo", func(args *sproto.Value) (*sproto.Value, error) {
		x := args.Fields["x"].Int
		return sproto.Struct(map[string]*sproto.Value{"y": sproto.Int(x * 2)}), nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	reqType, _ := s.schema.Type("echo.request")
	body, err := sproto.Encode(reqType, sproto.Struct(map[string]*sproto.Value{"x": sproto.Int(5)}))
	if err != nil {
		t.Fatalf("Encode request: %v", err)
	}
	tag := 1
	session := uint32(99)
	hdrBytes, err := sproto.Encode(s.packageType, buildHeader(&tag, &session))
	if err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	frame, err := sproto.Pack(append(hdrBytes, body...))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	sock.push(frame)

	if res := s.Update(); !res.OK {
		t.Fatalf("Update() not ok: %+v", res)
	}

	if len(sock.sent) != 1 {
		t.Fatalf("got %d sent frames, want 1 response", len(sock.sent))
	}
	unpacked, err := sproto.Unpack(sock.sent[0])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	hdr, n, err := sproto.Decode(s.packageType, unpacked)
	if err != nil {
		t.Fatalf("Decode header: %v", err)
	}
	if _, hasTag := headerTag(hdr); hasTag {
		t.Fatal("response header must not carry a type tag")
	}
	respSession, ok := headerSession(hdr)
	if !ok || respSession != 99 {
		t.Fatalf("response session = %d, ok=%v, want 99", respSession, ok)
	}

	respType, _ := s.schema.Type("echo.response")
	respVal, _, err := sproto.Decode(respType, unpacked[n:])
	if err != nil {
		t.Fatalf("Decode response body: %v", err)
	}
	if respVal.Fields["y"].Int != 10 {
		t.Fatalf("y = %d, want 10", respVal.Fields["y"].Int)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	s, _ := newTestSession(t)
	h := func(*sproto.Value) (*sproto.Value, error) { return nil, nil }
	if err := s.Register("echo", h); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := s.Register("echo", h); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestUnmatchedResponseSessionIsDropped(t *testing.T) {
	s, sock := newTestSession(t)
	s.state = StateForward

	session := uint32(12345)
	hdrBytes, _ := sproto.Encode(s.packageType, buildHeader(nil, &session))
	frame, _ := sproto.Pack(hdrBytes)
	sock.push(frame)

	res := s.Update()
	if !res.OK {
		t.Fatalf("Update() should not fail on an unmatched response: %+v", res)
	}
}
