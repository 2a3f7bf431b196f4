package sconn

import "github.com/sconn-client/sconn/transport"

// fakeSocket is a scriptable transport.Socket for exercising the session
// state machine without a real network connection.
type fakeSocket struct {
	sent   [][]byte
	inbox  [][]byte
	status transport.Status
	err    error
	closed bool
}

func (f *fakeSocket) Update() (transport.Status, error) {
	return f.status, f.err
}

func (f *fakeSocket) Send(payload []byte) error {
	if f.closed {
		return transport.ErrConnectionClosed
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSocket) Recv() ([]byte, bool) {
	if len(f.inbox) == 0 {
		return nil, false
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, true
}

func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSocket) push(frame []byte) {
	f.inbox = append(f.inbox, frame)
}
