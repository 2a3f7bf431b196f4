package transport

import (
	"net"
	"testing"
	"time"
)

func TestTCPSocketRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			serverConnCh <- conn
		}
	}()

	client, err := DialTCP(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	serverConn := <-serverConnCh
	server := newTCPSocket(serverConn)
	defer server.Close()

	if err := client.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := server.Recv(); ok {
			if string(msg) != "hello" {
				t.Fatalf("got %q, want %q", msg, "hello")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for frame")
}

func TestTCPSocketCloseReportsClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	client, err := DialTCP(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if status, _ := client.Update(); status == StatusClosed {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected socket to observe remote close")
}
