package sconn

import (
	ccq "github.com/ZhangGuangxu/circularqueue"
)

// prehandshakeQueue buffers payloads a caller sends while the session is
// still in newconnect — bytes destined for the wire but not yet eligible
// for the replay cache, since they have not been transmitted. Sends made
// in reconnect bypass this queue and go straight to the replay cache.
// It is intentionally unbounded; a caller exposed to untrusted producers
// should add its own backpressure before pushing.
type prehandshakeQueue struct {
	q *ccq.CircularQueue
}

func newPrehandshakeQueue() *prehandshakeQueue {
	return &prehandshakeQueue{q: ccq.NewCircularQueue()}
}

func (p *prehandshakeQueue) Push(payload []byte) {
	p.q.Push(payload)
}

// Drain removes and returns every queued payload, oldest first.
func (p *prehandshakeQueue) Drain() [][]byte {
	var out [][]byte
	for !p.q.IsEmpty() {
		v, err := p.q.Pop()
		if err != nil {
			break
		}
		if payload, ok := v.([]byte); ok {
			out = append(out, payload)
		}
	}
	return out
}
